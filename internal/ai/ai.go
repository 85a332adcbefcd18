// Package ai provides the bill extraction and intent recognition adapters.
// OpenAI backs the full multi-modal service; Heuristic is a regex-based
// fallback that handles text only.
package ai

import "errors"

var (
	// ErrExtraction is returned (wrapped) when no bill could be extracted from the input.
	ErrExtraction = errors.New("bill extraction failed")

	// ErrUnsupported is returned (wrapped) when an adapter cannot handle the input type.
	ErrUnsupported = errors.New("input type not supported")
)
