package core

import (
	"context"
	"fmt"

	"notations/pkg/domain"
)

// NewTreeIntegrityRule returns the default in-transaction rule enforcing
// structural invariants of the document tree: a single root, parent and
// children links that mirror each other, unique membership, and no cycles.
func NewTreeIntegrityRule() domain.Rule {
	return treeIntegrityRule{}
}

type treeIntegrityRule struct{}

func (treeIntegrityRule) Name() string { return "tree_integrity" }

func (treeIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(kind domain.NodeKind, nodeID, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "tree_integrity",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Kind:     kind,
			NodeID:   nodeID,
		})
	}

	rootID := view.RootID()
	root, ok := view.FindStack(rootID)
	if !ok {
		block(domain.KindStack, rootID, "root stack %s missing", rootID)
		return res, nil
	}
	if root.ParentID != "" {
		block(domain.KindStack, rootID, "root stack %s has parent %s", rootID, root.ParentID)
	}

	// Each node id may appear in at most one children list, exactly once.
	memberOf := make(map[string]string)
	for _, stack := range view.ListStacks() {
		seen := make(map[string]struct{}, len(stack.Children))
		for _, childID := range stack.Children {
			if _, dup := seen[childID]; dup {
				block(domain.KindStack, stack.ID, "stack %s lists child %s more than once", stack.ID, childID)
				continue
			}
			seen[childID] = struct{}{}
			if owner, claimed := memberOf[childID]; claimed {
				block(domain.KindStack, stack.ID, "node %s owned by both %s and %s", childID, owner, stack.ID)
				continue
			}
			memberOf[childID] = stack.ID
			_, isStack := view.FindStack(childID)
			_, isSheet := view.FindSheet(childID)
			if !isStack && !isSheet {
				block(domain.KindStack, stack.ID, "stack %s references missing child %s", stack.ID, childID)
			}
		}
	}

	checkParent := func(kind domain.NodeKind, id, parentID string) {
		if id == rootID {
			return
		}
		if parentID == "" {
			block(kind, id, "%s %s has no parent", kind, id)
			return
		}
		if _, ok := view.FindStack(parentID); !ok {
			block(kind, id, "%s %s has missing parent %s", kind, id, parentID)
			return
		}
		if memberOf[id] != parentID {
			block(kind, id, "%s %s claims parent %s but is listed under %q", kind, id, parentID, memberOf[id])
		}
	}

	for _, stack := range view.ListStacks() {
		checkParent(domain.KindStack, stack.ID, stack.ParentID)
	}
	for _, sheet := range view.ListSheets() {
		checkParent(domain.KindSheet, sheet.ID, sheet.ParentID)
	}

	// Every stack must reach the root by walking parents.
	for _, stack := range view.ListStacks() {
		visited := map[string]struct{}{}
		cursor := stack
		for cursor.ID != rootID {
			if _, seen := visited[cursor.ID]; seen {
				block(domain.KindStack, stack.ID, "stack %s is part of a parent cycle", stack.ID)
				break
			}
			visited[cursor.ID] = struct{}{}
			parent, ok := view.FindStack(cursor.ParentID)
			if !ok {
				break
			}
			cursor = parent
		}
	}

	return res, nil
}
