package domain

import "strings"

// NormalizeTag trims a raw label and collapses interior whitespace runs to a
// single space. The empty string result means the label carried no content.
func NormalizeTag(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// TagKey folds a normalized label for case-insensitive comparison. Two labels
// with the same key are the same tag regardless of how the user typed them.
func TagKey(label string) string {
	return strings.ToLower(NormalizeTag(label))
}

// AddTag appends label to tags unless an equivalent tag is already present.
// The original casing of the incoming label is preserved on first insert.
// The second return value reports whether the set changed.
func AddTag(tags []string, label string) ([]string, bool) {
	label = NormalizeTag(label)
	if label == "" {
		return tags, false
	}
	key := TagKey(label)
	for _, existing := range tags {
		if TagKey(existing) == key {
			return tags, false
		}
	}
	return append(tags, label), true
}

// RemoveTag deletes the tag matching label case-insensitively, preserving the
// relative order of the remaining tags. The second return value reports
// whether a tag was removed.
func RemoveTag(tags []string, label string) ([]string, bool) {
	key := TagKey(label)
	if key == "" {
		return tags, false
	}
	for i, existing := range tags {
		if TagKey(existing) == key {
			out := make([]string, 0, len(tags)-1)
			out = append(out, tags[:i]...)
			out = append(out, tags[i+1:]...)
			return out, true
		}
	}
	return tags, false
}

// NormalizeTags rewrites a stored tag list, dropping empty labels and
// case-insensitive duplicates while keeping first-seen order and casing.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		label := NormalizeTag(raw)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}

// TagOp distinguishes the two directions of a tag edit.
type TagOp int

// Tag edit directions parsed from user input.
const (
	TagOpAdd TagOp = iota
	TagOpRemove
)

// ParseTagOperation interprets tag-bar input. A leading "+" or "-" selects
// the direction explicitly; bare input adds. The returned label is
// normalized but keeps its casing.
func ParseTagOperation(input string) (TagOp, string) {
	trimmed := strings.TrimSpace(input)
	op := TagOpAdd
	switch {
	case strings.HasPrefix(trimmed, "+"):
		trimmed = trimmed[1:]
	case strings.HasPrefix(trimmed, "-"):
		op = TagOpRemove
		trimmed = trimmed[1:]
	}
	return op, NormalizeTag(trimmed)
}

// HasTag reports whether tags contains a label equivalent to the query.
func HasTag(tags []string, label string) bool {
	key := TagKey(label)
	if key == "" {
		return false
	}
	for _, existing := range tags {
		if TagKey(existing) == key {
			return true
		}
	}
	return false
}
