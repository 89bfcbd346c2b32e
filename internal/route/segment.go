// Package route implements the slug router: deterministic mapping between
// tree nodes and hash route segments, and resolution of segment paths back
// to nodes. All functions are pure over a read-only tree view.
package route

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes to NFD and strips combining marks, so accented
// characters match their plain counterparts.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(foldMarks, s)
	if err != nil {
		return s
	}
	return out
}

var (
	nonSlugRunes   = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	hyphenRuns     = regexp.MustCompile(`-+`)
	nonTokenRuns   = regexp.MustCompile(`[^a-z0-9]+`)
)

// TitleToSegment derives the display slug for a title. Diacritics fold to
// their base letters, everything outside word characters, whitespace, and
// hyphens is dropped, whitespace runs become single hyphens, and an empty
// result falls back to "untitled". Casing is preserved.
func TitleToSegment(title string) string {
	cleaned := stripDiacritics(title)
	cleaned = nonSlugRunes.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, "-")
	cleaned = hyphenRuns.ReplaceAllString(cleaned, "-")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// NormalizeToken folds a route token for comparison: diacritics stripped,
// lowercased, every run outside [a-z0-9] collapsed to a single hyphen,
// leading and trailing hyphens trimmed.
func NormalizeToken(value string) string {
	out := strings.ToLower(stripDiacritics(value))
	out = nonTokenRuns.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// ParsePath splits a route path into decoded segments. Empty segments are
// dropped; segments that fail percent-decoding are kept raw.
func ParsePath(path string) []string {
	raw := strings.TrimSpace(path)
	if raw == "" || raw == "/" {
		return nil
	}
	var segments []string
	for _, part := range strings.Split(raw, "/") {
		if part == "" {
			continue
		}
		if decoded, err := url.PathUnescape(part); err == nil {
			part = decoded
		}
		segments = append(segments, part)
	}
	return segments
}

// SegmentsFromHash parses a "#/seg/seg" hash into decoded segments.
func SegmentsFromHash(hash string) []string {
	return ParsePath(strings.TrimPrefix(hash, "#"))
}

// BuildHash renders segments into the canonical hash form. No segments
// yields the root hash "#/".
func BuildHash(segments []string) string {
	if len(segments) == 0 {
		return "#/"
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "#/" + strings.Join(escaped, "/")
}
