package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrUnsupportedLang    = errors.New("unsupported language")
	ErrEmptyResponse      = errors.New("empty response body")
	ErrMalformedResponse  = errors.New("model response is not a JSON object")
	ErrNoActiveTheme      = errors.New("no active theme found")
	ErrStoreNotConnected  = errors.New("store not connected")
	ErrImagePoolExhausted = errors.New("image pool exhausted")
)

// FetchError wraps errors that occur while retrieving a page. It is only
// returned after every retrieval strategy has been exhausted, and carries
// the individual attempt failures.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   []string
	Err        error

	// Certificate marks TLS/x509 failures so callers can surface a
	// retry-with-caution message instead of a generic failure.
	Certificate bool

	// AccessDenied marks HTTP 403 style blocks by the target site.
	AccessDenied bool
}

func (e *FetchError) Error() string {
	if len(e.Attempts) > 0 {
		return fmt.Sprintf("all fetch methods failed for %s: %s", e.URL, strings.Join(e.Attempts, "; "))
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError wraps errors that occur while cleaning or parsing markup.
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error for %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// GenerateError wraps a failed AI generation call or response parse.
type GenerateError struct {
	Stage string // "whole", "chunk", "parse"
	Err   error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generation error at stage %q: %v", e.Stage, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }

// TemplateError wraps an unreadable or structurally invalid template document.
type TemplateError struct {
	Source string
	Err    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error (%s): %v", e.Source, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// StoreError wraps failures talking to the storefront admin API.
type StoreError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("store error during %s (status %d): %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("store error during %s: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
