package review

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockReplier implements Replier using testify/mock
type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Reply(ctx context.Context, submissionID, text string) (string, error) {
	args := m.Called(ctx, submissionID, text)
	return args.String(0), args.Error(1)
}

// MockGenerator implements Generator using testify/mock
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateComment(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockLinkChooser implements LinkChooser using testify/mock
type MockLinkChooser struct {
	mock.Mock
}

func (m *MockLinkChooser) BestFor(ctx context.Context, title, selftext string) string {
	args := m.Called(ctx, title, selftext)
	return args.String(0)
}
