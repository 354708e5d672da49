// Package processor sweeps the configured subreddits and feeds surviving
// posts into the suggestion queue. It runs as a discrete batch, triggered
// by an external scheduler hitting the cron endpoint.
package processor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stroombox/reddit-bot-project/internal/logger"
	"github.com/stroombox/reddit-bot-project/internal/reddit"
	"github.com/stroombox/reddit-bot-project/internal/store"
)

// Storer is the slice of the store the scraper needs: the posted-id
// pre-filter and the insert that doubles as the final dedup gate.
type Storer interface {
	InsertIfAbsent(ctx context.Context, sug store.Suggestion) (bool, error)
	IsPosted(ctx context.Context, submissionID string) (bool, error)
}

// RedditClient is the slice of the Reddit API the scraper needs.
type RedditClient interface {
	FetchNewestPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
	ListCommentAuthors(ctx context.Context, postID string) ([]string, error)
	Me(ctx context.Context) (string, error)
}

// Notifier pings the operator when new suggestions land.
type Notifier interface {
	NotifyNewSuggestions(added int, perSubreddit map[string]int) error
}

// Pipeline holds everything one scrape run needs.
type Pipeline struct {
	store  Storer
	reddit RedditClient
	filter *Filter
	notify Notifier // nil disables operator alerts

	subreddits        []string
	prioritySubreddit string
	limit             int
}

// NewPipeline wires up a Pipeline.
func NewPipeline(st Storer, rc RedditClient, filter *Filter, notify Notifier, subreddits []string, prioritySubreddit string, limit int) *Pipeline {
	return &Pipeline{
		store:             st,
		reddit:            rc,
		filter:            filter,
		notify:            notify,
		subreddits:        subreddits,
		prioritySubreddit: prioritySubreddit,
		limit:             limit,
	}
}

// Run sweeps every configured subreddit. Subreddit fetches are independent,
// so they run in parallel; a failure in one is logged and skipped, never a
// reason to abort the rest of the batch.
func (p *Pipeline) Run(ctx context.Context) error {
	me, err := p.reddit.Me(ctx)
	if err != nil {
		// Without our own username we can't do self-comment suppression,
		// and an auth failure here means every other call would fail too.
		return fmt.Errorf("failed to identify bot account: %w", err)
	}

	now := time.Now()
	var mu sync.Mutex
	counts := make(map[string]int)

	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range p.subreddits {
		g.Go(func() error {
			added, err := p.processSubreddit(gctx, sub, me, now)
			if err != nil {
				logger.Error(gctx, "Subreddit sweep failed", "subreddit", sub, "error", err)
				return nil
			}
			mu.Lock()
			counts[sub] = added
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, c := range counts {
		total += c
	}
	logger.Info(ctx, "Scrape complete", "subreddits", len(p.subreddits), "new_suggestions", total)

	if total > 0 && p.notify != nil {
		if err := p.notify.NotifyNewSuggestions(total, counts); err != nil {
			logger.Warn(ctx, "Failed to send operator alert", "error", err)
		}
	}
	return nil
}

// processSubreddit fetches the newest posts from one subreddit and queues
// the ones that pass every gate. Returns how many were actually inserted.
func (p *Pipeline) processSubreddit(ctx context.Context, sub, me string, now time.Time) (int, error) {
	cutoff := now.Add(-store.Window(sub, p.prioritySubreddit))

	posts, err := p.reddit.FetchNewestPosts(ctx, sub, p.limit)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, post := range posts {
		if post.CreatedAt().Before(cutoff) {
			// Older than the visibility window; it would expire out of the
			// listing immediately, so not worth suggesting at all.
			continue
		}
		if post.RemovedByCategory != "" {
			continue
		}

		// Cheap posted-id check first, before the extra comments fetch.
		posted, err := p.store.IsPosted(ctx, post.ID)
		if err != nil {
			logger.Error(ctx, "Posted-marker check failed", "submission_id", post.ID, "error", err)
			continue
		}
		if posted {
			continue
		}

		authors, err := p.reddit.ListCommentAuthors(ctx, post.ID)
		if err != nil {
			// Skip rather than risk double-commenting; the next run retries.
			logger.Warn(ctx, "Could not list comments", "submission_id", post.ID, "error", err)
			continue
		}
		if containsUser(authors, me) {
			logger.Debug(ctx, "Already commented, skipping", "submission_id", post.ID)
			continue
		}

		subName := post.Subreddit
		if subName == "" {
			subName = sub
		}
		if !p.filter.Relevant(subName, post.Title, post.SelfText) {
			continue
		}

		inserted, err := p.store.InsertIfAbsent(ctx, store.Suggestion{
			SubmissionID:  post.ID,
			Title:         post.Title,
			Subreddit:     subName,
			Author:        post.Author,
			Selftext:      post.SelfText,
			PostURL:       post.FullURL(),
			ImageURLs:     post.ImageURLs(),
			PostCreatedAt: post.CreatedAt(),
			AddedAt:       now,
		})
		if err != nil {
			logger.Error(ctx, "Failed to queue suggestion", "submission_id", post.ID, "error", err)
			continue
		}
		if inserted {
			logger.Debug(ctx, "Queued suggestion", "submission_id", post.ID, "title", post.Title)
			added++
		}
	}
	return added, nil
}

func containsUser(authors []string, name string) bool {
	for _, a := range authors {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// ServeCron is the HTTP handler struck by the external scheduler.
func (p *Pipeline) ServeCron(w http.ResponseWriter, r *http.Request) {
	requestID := fmt.Sprintf("cron-%d", time.Now().UnixNano())
	ctx := logger.WithRequestID(r.Context(), requestID)

	logger.Info(ctx, "Starting cron scrape pipeline")

	if err := p.Run(ctx); err != nil {
		logger.Error(ctx, "Pipeline failed", "error", err)
		http.Error(w, "Pipeline failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("✅ Pipeline complete."))
}
