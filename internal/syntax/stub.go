//go:build !cgo

package syntax

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("syntax parsing requires CGO (tree-sitter)")

// Parse is unavailable without CGO.
func Parse(ctx context.Context, source []byte, lang Language) (*Tree, error) {
	return nil, ErrNoCGO
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
