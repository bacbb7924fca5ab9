package wiki

import (
	"errors"
	"fmt"
	"strings"
)

// SnippetLimit caps how much of a bad response body is kept for diagnostics
const SnippetLimit = 300

// ErrCursorLoop is returned when the API hands back the cursor that was just sent,
// which would otherwise make enumeration loop forever.
var ErrCursorLoop = errors.New("continuation cursor did not advance")

// ErrUnexpectedShape is returned when a response is valid JSON but does not fit the
// expected structure. Unlike a ResponseParseError it never aborts enumeration.
var ErrUnexpectedShape = errors.New("response has an unexpected shape")

// ResponseParseError reports an API response body that was not valid JSON at all
type ResponseParseError struct {
	Action     string // "allpages" or "revisions"
	Title      string // page title for revision fetches, empty for listings
	StatusCode int
	Snippet    string // first SnippetLimit characters of the body
	Err        error
}

func (e *ResponseParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("failed to parse %s response", e.Action))
	if e.Title != "" {
		sb.WriteString(fmt.Sprintf(" for page %q", e.Title))
	}
	sb.WriteString(fmt.Sprintf(" (status %d)", e.StatusCode))
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is or wraps a ResponseParseError
func IsParseError(err error) bool {
	var pe *ResponseParseError
	return errors.As(err, &pe)
}

// ValidationError represents an invalid configuration value
type ValidationError struct {
	Field      string
	Value      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid %s: %s", e.Field, e.Message))
	if e.Value != "" {
		sb.WriteString(fmt.Sprintf(" (got %q)", truncate(e.Value, 100)))
	}
	if e.Suggestion != "" {
		sb.WriteString(". ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// truncate shortens s to at most maxRunes runes, adding "..." if truncated
func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// snippet returns the leading part of a response body for logging
func snippet(body []byte) string {
	runes := []rune(string(body))
	if len(runes) <= SnippetLimit {
		return string(runes)
	}
	return string(runes[:SnippetLimit])
}
