package domain

import "errors"

var (
	// ErrStoryNotFound covers both "does not exist" and "not yours" so that
	// ownership is never disclosed separately.
	ErrStoryNotFound = errors.New("story not found")
	// ErrInvalidDraft is returned before any persistence happens.
	ErrInvalidDraft = errors.New("invalid draft story")
)
