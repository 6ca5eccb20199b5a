package text

import (
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/orderable"
)

var (
	ErrEmptyContent      = errors.New("no-empty-content")
	ErrSplitMetaContent  = errors.New("no-split-meta-content")
	ErrConcatMetaContent = errors.New("no-concat-meta-content")
	ErrNotUpdatable      = errors.New("no-updatable")
)

// Content is what a span carries. Slice and Concat never modify the
// receiver.
type Content[C any] interface {
	Length() int
	Slice(start, end int) (C, error)
	Concat(other C) (C, error)
	Clone() C
}

func validatedLength(n int) (int, error) {
	if _, err := orderable.Validated(int64(n)); err != nil {
		return 0, fmt.Errorf("content length %d: %w", n, err)
	}
	return n, nil
}
