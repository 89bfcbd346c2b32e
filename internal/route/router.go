package route

import (
	"strings"

	"notations/pkg/domain"
)

// TreeView is the read-only tree access the router needs. It is satisfied by
// domain.TransactionView.
type TreeView interface {
	RootID() string
	FindStack(id string) (domain.Stack, bool)
	FindSheet(id string) (domain.Sheet, bool)
}

// Kind identifies the view a resolved route lands on.
type Kind string

// Route kinds.
const (
	KindLogin   Kind = "login"
	KindLibrary Kind = "library"
	KindEditor  Kind = "editor"
)

// Route is a resolved destination.
type Route struct {
	Kind    Kind
	StackID string // set for library routes
	SheetID string // set for editor routes
}

// Reserved leading tokens. "login" routes to the login view; "library" is an
// alias for the root and is stripped before matching.
const (
	tokenLogin   = "login"
	tokenLibrary = "library"
)

// MatchesSegment reports whether a node answers to the given route segment.
// The segment matches on normalized id, title, or slug equality, or as a
// hyphen-bounded prefix of the normalized title or slug.
func MatchesSegment(id, title, segment string) bool {
	target := NormalizeToken(segment)
	if target == "" {
		return false
	}
	byID := NormalizeToken(id)
	byTitle := NormalizeToken(title)
	bySlug := NormalizeToken(TitleToSegment(title))
	if byID == target || byTitle == target || bySlug == target {
		return true
	}
	return strings.HasPrefix(byTitle, target+"-") || strings.HasPrefix(bySlug, target+"-")
}

// findChildStack returns the first child stack of parent matching segment,
// in children order. First match wins; later siblings with the same slug are
// unreachable by design.
func findChildStack(view TreeView, parent domain.Stack, segment string) (domain.Stack, bool) {
	for _, childID := range parent.Children {
		child, ok := view.FindStack(childID)
		if !ok {
			continue
		}
		if MatchesSegment(child.ID, child.Title, segment) {
			return child, true
		}
	}
	return domain.Stack{}, false
}

func findChildSheet(view TreeView, parent domain.Stack, segment string) (domain.Sheet, bool) {
	for _, childID := range parent.Children {
		child, ok := view.FindSheet(childID)
		if !ok {
			continue
		}
		if MatchesSegment(child.ID, child.Title, segment) {
			return child, true
		}
	}
	return domain.Sheet{}, false
}

// ResolveRoute maps decoded segments to a destination. Unresolvable paths
// return ok=false; the caller decides the fallback.
func ResolveRoute(view TreeView, segments []string) (Route, bool) {
	if len(segments) == 0 {
		return Route{Kind: KindLibrary, StackID: view.RootID()}, true
	}

	first := NormalizeToken(segments[0])
	if first == tokenLogin {
		return Route{Kind: KindLogin}, true
	}

	path := segments
	if first == tokenLibrary {
		path = segments[1:]
	}
	if len(path) == 0 {
		return Route{Kind: KindLibrary, StackID: view.RootID()}, true
	}

	current, ok := view.FindStack(view.RootID())
	if !ok {
		return Route{}, false
	}

	visited := map[string]struct{}{current.ID: {}}
	for i, segment := range path {
		isLast := i == len(path)-1
		stackMatch, found := findChildStack(view, current, segment)

		if !isLast {
			if !found {
				return Route{}, false
			}
			if _, seen := visited[stackMatch.ID]; seen {
				return Route{}, false
			}
			visited[stackMatch.ID] = struct{}{}
			current = stackMatch
			continue
		}

		if found {
			return Route{Kind: KindLibrary, StackID: stackMatch.ID}, true
		}
		if sheetMatch, ok := findChildSheet(view, current, segment); ok {
			return Route{Kind: KindEditor, SheetID: sheetMatch.ID}, true
		}
		return Route{}, false
	}

	return Route{Kind: KindLibrary, StackID: view.RootID()}, true
}

// RouteForStack returns the slug segments addressing a stack, shallow to
// deep, excluding the root. The root itself yields no segments.
func RouteForStack(view TreeView, stackID string) []string {
	var segments []string
	visited := make(map[string]struct{})

	cursor, ok := view.FindStack(stackID)
	for ok && cursor.ID != view.RootID() {
		if _, seen := visited[cursor.ID]; seen {
			break
		}
		visited[cursor.ID] = struct{}{}
		segments = append(segments, TitleToSegment(cursor.Title))
		if cursor.ParentID == "" {
			break
		}
		cursor, ok = view.FindStack(cursor.ParentID)
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return segments
}

// RouteForSheet returns the slug segments addressing a sheet: its parent
// stack trail plus the sheet's own segment. Unknown ids yield nil.
func RouteForSheet(view TreeView, sheetID string) []string {
	sheet, ok := view.FindSheet(sheetID)
	if !ok {
		return nil
	}
	parentID := sheet.ParentID
	if parentID == "" {
		parentID = view.RootID()
	}
	segments := RouteForStack(view, parentID)
	return append(segments, TitleToSegment(sheet.Title))
}
