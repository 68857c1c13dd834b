package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrThrottled marks a detail page that came back 200 with no review body.
	ErrThrottled = errors.New("review body is empty, response was throttled")

	// ErrNoLayout means no registered layout recognised the page.
	ErrNoLayout = errors.New("page does not match any known layout")
)

// ParseError is a structural mismatch between a page and its layout adapter.
// Retrying does not help; the parser needs adapting.
type ParseError struct {
	URL    string
	Layout string
	Reason string
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse %s layout: %s", e.Layout, e.Reason)
	}
	return fmt.Sprintf("parse %s layout for %s: %s", e.Layout, e.URL, e.Reason)
}

// ConflictError reports a unique-constraint violation during a write.
// ReviewID and EntityID are set when the conflict is on a join row.
type ConflictError struct {
	Relation Relation
	ReviewID int64
	EntityID int64
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Relation == "" {
		return fmt.Sprintf("review key conflict: %v", e.Err)
	}
	return fmt.Sprintf("%s link conflict (review %d, entity %d): %v", e.Relation, e.ReviewID, e.EntityID, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsJoinConflict reports whether the conflict names a concrete join row.
func (e *ConflictError) IsJoinConflict() bool {
	return e.Relation != "" && e.ReviewID != 0 && e.EntityID != 0
}
