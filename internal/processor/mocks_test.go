package processor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stroombox/reddit-bot-project/internal/reddit"
)

// MockReddit implements RedditClient using testify/mock
type MockReddit struct {
	mock.Mock
}

func (m *MockReddit) FetchNewestPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error) {
	args := m.Called(ctx, subreddit, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reddit.Post), args.Error(1)
}

func (m *MockReddit) ListCommentAuthors(ctx context.Context, postID string) ([]string, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReddit) Me(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockNotifier implements Notifier using testify/mock
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewSuggestions(added int, perSubreddit map[string]int) error {
	args := m.Called(added, perSubreddit)
	return args.Error(0)
}
