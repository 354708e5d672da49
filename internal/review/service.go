// Package review implements the suggestion lifecycle and the HTTP surface
// the dashboard drives it through.
//
// A suggestion moves from pending (no comment) through optional comment
// generation to exactly one terminal outcome: posted, rejected, or quietly
// expired out of the listing. Only posting writes a permanent marker;
// rejected ids are allowed to resurface on a later scrape.
package review

import (
	"context"
	"strings"
	"time"

	"github.com/stroombox/reddit-bot-project/internal/ai"
	"github.com/stroombox/reddit-bot-project/internal/logger"
	"github.com/stroombox/reddit-bot-project/internal/store"
)

// Storer is the slice of the store the lifecycle needs.
type Storer interface {
	Get(ctx context.Context, submissionID string) (*store.Suggestion, error)
	ListPending(ctx context.Context, now time.Time) ([]store.Suggestion, error)
	InsertIfAbsent(ctx context.Context, sug store.Suggestion) (bool, error)
	UpdateComment(ctx context.Context, submissionID, text string) error
	Remove(ctx context.Context, submissionID string) error
	MarkPosted(ctx context.Context, submissionID string, when time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Replier posts a comment on a Reddit submission.
type Replier interface {
	Reply(ctx context.Context, submissionID, text string) (string, error)
}

// Generator drafts a comment from a prompt.
type Generator interface {
	GenerateComment(ctx context.Context, prompt string) (string, error)
}

// LinkChooser picks the blog link to feed the prompt.
type LinkChooser interface {
	BestFor(ctx context.Context, title, selftext string) string
}

// Service drives suggestions through their lifecycle.
type Service struct {
	store  Storer
	reddit Replier
	ai     Generator
	links  LinkChooser

	now func() time.Time
}

// NewService wires up a Service. links may be nil when no sitemap is
// configured.
func NewService(st Storer, reddit Replier, gen Generator, links LinkChooser) *Service {
	return &Service{
		store:  st,
		reddit: reddit,
		ai:     gen,
		links:  links,
		now:    time.Now,
	}
}

// List returns the pending, unexpired suggestions.
func (s *Service) List(ctx context.Context) ([]store.Suggestion, error) {
	return s.store.ListPending(ctx, s.now())
}

// Add creates a suggestion if its submission id was never seen. Idempotent:
// re-adding an existing id reports inserted=false and changes nothing.
func (s *Service) Add(ctx context.Context, sug store.Suggestion) (bool, error) {
	sug.AddedAt = s.now()
	return s.store.InsertIfAbsent(ctx, sug)
}

// Generate drafts a comment for the suggestion and persists it. Regeneration
// is allowed and overwrites the previous draft. On any failure the stored
// comment is left exactly as it was.
func (s *Service) Generate(ctx context.Context, submissionID, userThought string) (string, error) {
	sug, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return "", err
	}

	blogLink := ""
	if s.links != nil {
		blogLink = s.links.BestFor(ctx, sug.Title, sug.Selftext)
	}
	prompt := ai.BuildCommentPrompt(sug.Title, sug.Selftext, sug.PostURL, sug.ImageURLs, userThought, blogLink)

	text, err := s.ai.GenerateComment(ctx, prompt)
	if err != nil {
		return "", &ExternalServiceError{Service: "gemini", Err: err}
	}

	if err := s.store.UpdateComment(ctx, submissionID, text); err != nil {
		return "", err
	}
	return text, nil
}

// ApproveAndPost submits the comment to Reddit and retires the suggestion.
// The text defaults to the stored draft when no override is supplied.
func (s *Service) ApproveAndPost(ctx context.Context, submissionID, override string) error {
	sug, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(override)
	if text == "" {
		text = strings.TrimSpace(sug.SuggestedComment)
	}
	if text == "" {
		return ErrEmptyComment
	}

	return s.postAndRetire(ctx, submissionID, text)
}

// PostDirect submits caller-supplied text, bypassing generation entirely.
// The text is validated before any store access.
func (s *Service) PostDirect(ctx context.Context, submissionID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyComment
	}

	if _, err := s.store.Get(ctx, submissionID); err != nil {
		return err
	}
	return s.postAndRetire(ctx, submissionID, text)
}

// postAndRetire is the shared tail of approve-and-post and post-direct.
// Nothing durable changes until the Reddit reply succeeds; after it does,
// the marker is written before the row disappears so a concurrent listing
// can never see the id as "never seen".
func (s *Service) postAndRetire(ctx context.Context, submissionID, text string) error {
	if _, err := s.reddit.Reply(ctx, submissionID, text); err != nil {
		return &ExternalServiceError{Service: "reddit", Err: err}
	}

	if err := s.store.MarkPosted(ctx, submissionID, s.now()); err != nil {
		// The reply is live but the marker write failed. The scraper's
		// self-comment check keeps the id from being re-suggested.
		logger.Error(ctx, "Reply posted but marker write failed", "submission_id", submissionID, "error", err)
		return err
	}

	if err := s.store.Remove(ctx, submissionID); err != nil {
		// Marker exists, so the row is already invisible to listings.
		logger.Warn(ctx, "Failed to remove suggestion after posting", "submission_id", submissionID, "error", err)
	}
	return nil
}

// Reject retires the suggestion without posting. No marker is written, so
// the id may legitimately resurface if it is scraped again.
func (s *Service) Reject(ctx context.Context, submissionID string) error {
	if _, err := s.store.Get(ctx, submissionID); err != nil {
		return err
	}
	return s.store.Remove(ctx, submissionID)
}

// PurgeExpired physically deletes rows past their visibility window.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeExpired(ctx, s.now())
}
