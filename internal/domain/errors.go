package domain

import (
	"fmt"
	"time"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ConditionError marks a malformed filter tree. These are caller bugs
// and are returned, not degraded.
type ConditionError struct {
	Reason string
}

func (e ConditionError) Error() string {
	return "invalid condition: " + e.Reason
}

func (e ConditionError) Is(target error) bool {
	_, ok := target.(ConditionError)
	if ok {
		return true
	}
	_, ok = target.(*ConditionError)
	return ok
}

// ErrInvalidCondition is the sentinel error for malformed filters.
var ErrInvalidCondition = ConditionError{}

// RateLimitError is returned when a counter bucket is exhausted. It is
// always propagated to the caller, never swallowed.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e RateLimitError) Is(target error) bool {
	_, ok := target.(RateLimitError)
	if ok {
		return true
	}
	_, ok = target.(*RateLimitError)
	return ok
}
