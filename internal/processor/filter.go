package processor

import "strings"

// Filter decides whether a post is topically relevant. The catch-all
// subreddit (every post there is on-topic by definition) bypasses the
// keyword check entirely.
type Filter struct {
	keywords []string
	catchAll string
}

// NewFilter returns a Filter over the configured keyword list.
func NewFilter(keywords []string, catchAllSubreddit string) *Filter {
	return &Filter{keywords: keywords, catchAll: catchAllSubreddit}
}

// Relevant reports whether the post's title or body contains at least one
// keyword (case-insensitive substring match).
func (f *Filter) Relevant(subreddit, title, selftext string) bool {
	if strings.EqualFold(subreddit, f.catchAll) {
		return true
	}

	corpus := strings.ToLower(title + " " + selftext)
	for _, keyword := range f.keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(corpus, keyword) {
			return true
		}
	}
	return false
}
