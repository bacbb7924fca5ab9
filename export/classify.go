package export

import (
	"regexp"
	"strings"
	"unicode"
)

// RedirectMarker starts the wikitext of every redirect page, compared case-insensitively
const RedirectMarker = "#redirect"

// Kind is the outcome of classifying fetched page content
type Kind int

const (
	KindContent     Kind = iota // Saved to its own file
	KindRedirect                // Points at another page, skipped
	KindUnavailable             // Fetch failed or page had no text, skipped
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindRedirect:
		return "redirect"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Classify decides what the exporter does with a page's content
func Classify(content string) Kind {
	if content == "" {
		return KindUnavailable
	}
	if IsRedirect(content) {
		return KindRedirect
	}
	return KindContent
}

// IsRedirect reports whether content, ignoring leading whitespace and case,
// begins with the redirect marker
func IsRedirect(content string) bool {
	trimmed := strings.TrimLeftFunc(content, unicode.IsSpace)
	if len(trimmed) < len(RedirectMarker) {
		return false
	}
	return strings.EqualFold(trimmed[:len(RedirectMarker)], RedirectMarker)
}

// unsafeFilenameChars matches anything other than letters, digits, underscore,
// whitespace and dash
var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}-]`)

// SanitizeFilename turns a page title into a filename stem.
// "Unit: Archer/2" becomes "Unit_ Archer_2".
func SanitizeFilename(title string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(title, "_"))
}
