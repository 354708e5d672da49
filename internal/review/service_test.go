package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stroombox/reddit-bot-project/internal/store"
	"github.com/stroombox/reddit-bot-project/internal/testutils"
)

func newTestService(fs *testutils.FakeStore) (*Service, *MockReplier, *MockGenerator) {
	replier := new(MockReplier)
	gen := new(MockGenerator)
	svc := NewService(fs, replier, gen, nil)
	return svc, replier, gen
}

func pendingSuggestion(id string) store.Suggestion {
	return store.Suggestion{
		SubmissionID: id,
		Title:        "losing hair at 24",
		Subreddit:    "bald",
		Author:       "worried_user",
		Selftext:     "scalp thinning fast",
		PostURL:      "https://reddit.com/r/bald/comments/" + id,
	}
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, _ := newTestService(fs)

	inserted, err := svc.Add(ctx, pendingSuggestion("abc123"))
	if err != nil || !inserted {
		t.Fatalf("first Add = (%v, %v), want (true, nil)", inserted, err)
	}

	inserted, err = svc.Add(ctx, pendingSuggestion("abc123"))
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if inserted {
		t.Error("second Add reported inserted=true, want false")
	}

	pending, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected exactly 1 pending suggestion, got %d", len(pending))
	}
}

func TestListExcludesPostedEvenIfRowExists(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, _ := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}
	if err := fs.MarkPosted(ctx, "abc123", time.Now()); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("posted id still listed: %v", pending)
	}
	if !fs.Has("abc123") {
		t.Error("row should still physically exist; only visibility is suppressed")
	}
}

func TestGeneratePersistsComment(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, gen := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}

	gen.On("GenerateComment", ctx, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "losing hair at 24") &&
			strings.Contains(prompt, "scalp thinning fast") &&
			strings.Contains(prompt, "Looks promising!")
	})).Return("Try a trichologist.", nil)

	comment, err := svc.Generate(ctx, "abc123", "Looks promising!")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if comment != "Try a trichologist." {
		t.Errorf("got comment %q", comment)
	}

	sug, err := fs.Get(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if sug.SuggestedComment != "Try a trichologist." {
		t.Errorf("comment not persisted, got %q", sug.SuggestedComment)
	}
	gen.AssertExpectations(t)
}

func TestGenerateOverwritesPriorDraft(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, gen := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}
	if err := fs.UpdateComment(ctx, "abc123", "old draft"); err != nil {
		t.Fatal(err)
	}

	gen.On("GenerateComment", ctx, mock.Anything).Return("new draft", nil)

	if _, err := svc.Generate(ctx, "abc123", ""); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	sug, _ := fs.Get(ctx, "abc123")
	if sug.SuggestedComment != "new draft" {
		t.Errorf("regeneration did not overwrite, got %q", sug.SuggestedComment)
	}
}

func TestGenerateFailureLeavesCommentEmpty(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, gen := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}

	gen.On("GenerateComment", ctx, mock.Anything).Return("", errors.New("empty response from model"))

	_, err := svc.Generate(ctx, "abc123", "")
	var extErr *ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if extErr.Service != "gemini" {
		t.Errorf("got service %q, want gemini", extErr.Service)
	}

	sug, _ := fs.Get(ctx, "abc123")
	if sug.SuggestedComment != "" {
		t.Errorf("failed generation mutated the stored comment: %q", sug.SuggestedComment)
	}
}

func TestGenerateUnknownID(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, gen := newTestService(fs)

	_, err := svc.Generate(ctx, "nope", "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	gen.AssertNotCalled(t, "GenerateComment", mock.Anything, mock.Anything)
}

func TestApproveAndPostEmptyComment(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, _ := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}

	err := svc.ApproveAndPost(ctx, "abc123", "")
	if !errors.Is(err, ErrEmptyComment) {
		t.Errorf("expected ErrEmptyComment, got %v", err)
	}
	replier.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveAndPostReplyFailureLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, _ := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}
	if err := fs.UpdateComment(ctx, "abc123", "Try a trichologist."); err != nil {
		t.Fatal(err)
	}

	replier.On("Reply", ctx, "abc123", "Try a trichologist.").Return("", errors.New("reddit is down"))

	err := svc.ApproveAndPost(ctx, "abc123", "")
	var extErr *ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}

	// The suggestion must survive untouched so the operation can be retried.
	sug, err := fs.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("suggestion row was mutated: %v", err)
	}
	if sug.SuggestedComment != "Try a trichologist." {
		t.Errorf("stored comment changed: %q", sug.SuggestedComment)
	}
	posted, _ := fs.IsPosted(ctx, "abc123")
	if posted {
		t.Error("marker written despite failed reply")
	}
}

func TestApproveAndPostSuccess(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, _ := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}

	replier.On("Reply", ctx, "abc123", "Try a trichologist.").Return("t1_newcomment", nil)

	if err := svc.ApproveAndPost(ctx, "abc123", "Try a trichologist."); err != nil {
		t.Fatalf("ApproveAndPost failed: %v", err)
	}

	posted, _ := fs.IsPosted(ctx, "abc123")
	if !posted {
		t.Error("isPosted = false after approval")
	}
	pending, _ := svc.List(ctx)
	if len(pending) != 0 {
		t.Errorf("approved suggestion still pending: %v", pending)
	}
	replier.AssertExpectations(t)
}

func TestApproveAndPostUsesStoredDraftByDefault(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, _ := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}
	if err := fs.UpdateComment(ctx, "abc123", "stored draft"); err != nil {
		t.Fatal(err)
	}

	replier.On("Reply", ctx, "abc123", "stored draft").Return("t1_x", nil)

	if err := svc.ApproveAndPost(ctx, "abc123", ""); err != nil {
		t.Fatalf("ApproveAndPost failed: %v", err)
	}
	replier.AssertExpectations(t)
}

func TestPostDirectValidatesBeforeStoreAccess(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, _ := newTestService(fs)

	// Even for an id that doesn't exist, empty text fails first.
	err := svc.PostDirect(ctx, "whatever", "   ")
	if !errors.Is(err, ErrEmptyComment) {
		t.Errorf("expected ErrEmptyComment, got %v", err)
	}
	replier.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostDirectBypassesGeneration(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, gen := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}

	replier.On("Reply", ctx, "abc123", "hand-written reply").Return("t1_y", nil)

	if err := svc.PostDirect(ctx, "abc123", "hand-written reply"); err != nil {
		t.Fatalf("PostDirect failed: %v", err)
	}

	posted, _ := fs.IsPosted(ctx, "abc123")
	if !posted {
		t.Error("isPosted = false after post-direct")
	}
	gen.AssertNotCalled(t, "GenerateComment", mock.Anything, mock.Anything)
}

func TestRejectAllowsResurfacing(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, _ := newTestService(fs)

	if _, err := svc.Add(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reject(ctx, "abc123"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	pending, _ := svc.List(ctx)
	if len(pending) != 0 {
		t.Errorf("rejected suggestion still pending: %v", pending)
	}
	posted, _ := fs.IsPosted(ctx, "abc123")
	if posted {
		t.Error("reject must not write a posted marker")
	}

	// A later scrape of the same id is allowed back in.
	inserted, err := svc.Add(ctx, pendingSuggestion("abc123"))
	if err != nil || !inserted {
		t.Errorf("re-add after reject = (%v, %v), want (true, nil)", inserted, err)
	}
}

func TestRejectUnknownID(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, _ := newTestService(fs)

	if err := svc.Reject(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiredSuggestionHiddenButStillActionable(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, replier, _ := newTestService(fs)

	old := pendingSuggestion("old123")
	svc.now = func() time.Time { return time.Now().Add(-26 * time.Hour) }
	if _, err := svc.Add(ctx, old); err != nil {
		t.Fatal(err)
	}
	svc.now = time.Now

	pending, _ := svc.List(ctx)
	if len(pending) != 0 {
		t.Errorf("expired suggestion still listed: %v", pending)
	}

	// Addressing it directly by id still works.
	replier.On("Reply", ctx, "old123", "late but fine").Return("t1_z", nil)
	if err := svc.ApproveAndPost(ctx, "old123", "late but fine"); err != nil {
		t.Errorf("approve on expired suggestion failed: %v", err)
	}
}

func TestGenerateFeedsChosenBlogLinkToPrompt(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	replier := new(MockReplier)
	gen := new(MockGenerator)
	chooser := new(MockLinkChooser)
	svc := NewService(fs, replier, gen, chooser)

	if _, err := fs.InsertIfAbsent(ctx, pendingSuggestion("abc123")); err != nil {
		t.Fatal(err)
	}

	link := "https://example.com/blog/smp-aftercare-guide"
	chooser.On("BestFor", mock.Anything, "losing hair at 24", "scalp thinning fast").Return(link)
	gen.On("GenerateComment", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, link)
	})).Return("Try a trichologist.", nil)

	if _, err := svc.Generate(ctx, "abc123", ""); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	chooser.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	fs := testutils.NewFakeStore("SMPchat")
	svc, _, _ := newTestService(fs)

	svc.now = func() time.Time { return time.Now().Add(-26 * time.Hour) }
	if _, err := svc.Add(ctx, pendingSuggestion("old123")); err != nil {
		t.Fatal(err)
	}
	svc.now = time.Now
	if _, err := svc.Add(ctx, pendingSuggestion("fresh456")); err != nil {
		t.Fatal(err)
	}

	purged, err := svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if fs.Has("old123") {
		t.Error("expired row survived the purge")
	}
	if !fs.Has("fresh456") {
		t.Error("fresh row was purged")
	}
}
