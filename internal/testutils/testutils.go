// Package testutils provides a state-carrying in-memory store for tests
// that exercise the suggestion lifecycle across multiple calls.
package testutils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stroombox/reddit-bot-project/internal/store"
)

// FakeStore is an in-memory stand-in for store.Store. It shares the expiry
// rule with the real store via store.Expired, so listing semantics match.
type FakeStore struct {
	mu                sync.Mutex
	PrioritySubreddit string

	suggestions map[string]store.Suggestion
	posted      map[string]time.Time
}

// NewFakeStore returns an empty FakeStore.
func NewFakeStore(prioritySubreddit string) *FakeStore {
	return &FakeStore{
		PrioritySubreddit: prioritySubreddit,
		suggestions:       make(map[string]store.Suggestion),
		posted:            make(map[string]time.Time),
	}
}

func (f *FakeStore) InsertIfAbsent(_ context.Context, sug store.Suggestion) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.suggestions[sug.SubmissionID]; exists {
		return false, nil
	}
	f.suggestions[sug.SubmissionID] = sug
	return true, nil
}

func (f *FakeStore) Get(_ context.Context, submissionID string) (*store.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sug, ok := f.suggestions[submissionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sug, nil
}

func (f *FakeStore) ListPending(_ context.Context, now time.Time) ([]store.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []store.Suggestion
	for id, sug := range f.suggestions {
		if _, posted := f.posted[id]; posted {
			continue
		}
		if store.Expired(sug, now, f.PrioritySubreddit) {
			continue
		}
		out = append(out, sug)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].SubmissionID < out[j].SubmissionID
	})
	return out, nil
}

func (f *FakeStore) UpdateComment(_ context.Context, submissionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sug, ok := f.suggestions[submissionID]
	if !ok {
		return store.ErrNotFound
	}
	sug.SuggestedComment = text
	f.suggestions[submissionID] = sug
	return nil
}

func (f *FakeStore) Remove(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.suggestions, submissionID)
	return nil
}

func (f *FakeStore) MarkPosted(_ context.Context, submissionID string, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.posted[submissionID]; !exists {
		f.posted[submissionID] = when
	}
	return nil
}

func (f *FakeStore) IsPosted(_ context.Context, submissionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.posted[submissionID]
	return ok, nil
}

func (f *FakeStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	for id, sug := range f.suggestions {
		if store.Expired(sug, now, f.PrioritySubreddit) {
			delete(f.suggestions, id)
			purged++
		}
	}
	return purged, nil
}

// Has reports whether a suggestion row physically exists, posted or not.
func (f *FakeStore) Has(submissionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.suggestions[submissionID]
	return ok
}
