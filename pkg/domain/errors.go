package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamTimeout     = errors.New("upstream did not respond in time")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMissingQuery        = errors.New("query parameter is required")
)

// UpstreamError describes a failed call to the quote API. Kind is one of
// ErrUpstreamTimeout or ErrUpstreamUnavailable.
type UpstreamError struct {
	Op    string
	URL   string
	Kind  error
	Cause error
}

func (e *UpstreamError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.URL, e.Kind, e.Cause)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewUpstreamError(op, url string, kind, cause error) error {
	return &UpstreamError{
		Op:    op,
		URL:   url,
		Kind:  kind,
		Cause: cause,
	}
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout)
}

func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
