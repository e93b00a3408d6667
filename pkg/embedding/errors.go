package embedding

import (
	"errors"
	"fmt"
)

var ErrEmptyText = errors.New("text is empty")

// EmbeddingError reports a failed single embedding call.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding with %s failed: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
