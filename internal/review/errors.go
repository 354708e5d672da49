package review

import (
	"errors"
	"fmt"
)

// ErrEmptyComment is returned when approve/post-direct is invoked without
// any comment text. No store or Reddit call happens in that case.
var ErrEmptyComment = errors.New("comment text is empty")

// ExternalServiceError wraps a failed Reddit or Gemini call. The suggestion
// row is left untouched, so the same operation can simply be retried.
type ExternalServiceError struct {
	Service string // "reddit" or "gemini"
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
