package core

import (
	"context"
	"testing"

	"notations/pkg/domain"
)

type ruleViewStub struct {
	snap domain.Snapshot
}

func (v ruleViewStub) RootID() string { return v.snap.RootID }

func (v ruleViewStub) FindStack(id string) (domain.Stack, bool) {
	st, ok := v.snap.Stacks[id]
	return st, ok
}

func (v ruleViewStub) FindSheet(id string) (domain.Sheet, bool) {
	sh, ok := v.snap.Sheets[id]
	return sh, ok
}

func (v ruleViewStub) ListStacks() []domain.Stack {
	out := make([]domain.Stack, 0, len(v.snap.Stacks))
	for _, st := range v.snap.Stacks {
		out = append(out, st)
	}
	return out
}

func (v ruleViewStub) ListSheets() []domain.Sheet {
	out := make([]domain.Sheet, 0, len(v.snap.Sheets))
	for _, sh := range v.snap.Sheets {
		out = append(out, sh)
	}
	return out
}

func evaluate(t *testing.T, rule domain.Rule, snap domain.Snapshot) domain.Result {
	t.Helper()
	res, err := rule.Evaluate(context.Background(), ruleViewStub{snap: snap}, nil)
	if err != nil {
		t.Fatalf("%s evaluate: %v", rule.Name(), err)
	}
	return res
}

func TestTreeIntegrityAcceptsSeed(t *testing.T) {
	res := evaluate(t, NewTreeIntegrityRule(), domain.Seed())
	if len(res.Violations) != 0 {
		t.Fatalf("seed flagged: %+v", res.Violations)
	}
}

func TestTreeIntegrityFlagsMissingChild(t *testing.T) {
	snap := domain.Seed()
	root := snap.Stacks[snap.RootID]
	root.Children = append(root.Children, "ghost-node")
	snap.Stacks[snap.RootID] = root

	res := evaluate(t, NewTreeIntegrityRule(), snap)
	if !res.HasBlocking() {
		t.Fatal("missing child reference not flagged")
	}
}

func TestTreeIntegrityFlagsDoubleOwnership(t *testing.T) {
	snap := domain.Seed()
	var sheetID string
	for id := range snap.Sheets {
		if snap.Sheets[id].ParentID == snap.RootID {
			sheetID = id
			break
		}
	}
	if sheetID == "" {
		t.Fatal("no root-level sheet in seed")
	}
	var otherStack string
	for id := range snap.Stacks {
		if id != snap.RootID {
			otherStack = id
			break
		}
	}
	st := snap.Stacks[otherStack]
	st.Children = append(st.Children, sheetID)
	snap.Stacks[otherStack] = st

	res := evaluate(t, NewTreeIntegrityRule(), snap)
	if !res.HasBlocking() {
		t.Fatal("double ownership not flagged")
	}
}

func TestTreeIntegrityFlagsParentCycle(t *testing.T) {
	snap := domain.Seed()
	a := domain.Stack{Base: domain.Base{ID: "stack_a", ParentID: "stack_b", Title: "A"}, Children: []string{"stack_b"}}
	b := domain.Stack{Base: domain.Base{ID: "stack_b", ParentID: "stack_a", Title: "B"}, Children: []string{"stack_a"}}
	snap.Stacks[a.ID] = a
	snap.Stacks[b.ID] = b

	res := evaluate(t, NewTreeIntegrityRule(), snap)
	if !res.HasBlocking() {
		t.Fatal("parent cycle not flagged")
	}
}

func TestTreeIntegrityFlagsRootWithParent(t *testing.T) {
	snap := domain.Seed()
	root := snap.Stacks[snap.RootID]
	root.ParentID = "elsewhere"
	snap.Stacks[snap.RootID] = root

	res := evaluate(t, NewTreeIntegrityRule(), snap)
	if !res.HasBlocking() {
		t.Fatal("parented root not flagged")
	}
}

func TestSheetHygieneAcceptsSeed(t *testing.T) {
	res := evaluate(t, NewSheetHygieneRule(), domain.Seed())
	if len(res.Violations) != 0 {
		t.Fatalf("seed flagged: %+v", res.Violations)
	}
}

func TestSheetHygieneFlagsDuplicateTags(t *testing.T) {
	snap := domain.Seed()
	for id, sh := range snap.Sheets {
		sh.Tags = []string{"Draft", "draft"}
		snap.Sheets[id] = sh
		break
	}
	res := evaluate(t, NewSheetHygieneRule(), snap)
	if !res.HasBlocking() {
		t.Fatal("duplicate tags not flagged")
	}
}

func TestSheetHygieneFlagsNegativeMargin(t *testing.T) {
	snap := domain.Seed()
	for id, sh := range snap.Sheets {
		sh.Margins.Left = -1
		snap.Sheets[id] = sh
		break
	}
	res := evaluate(t, NewSheetHygieneRule(), snap)
	if !res.HasBlocking() {
		t.Fatal("negative margin not flagged")
	}
}

func TestDefaultRulesEngineRegistersPolicies(t *testing.T) {
	engine := NewDefaultRulesEngine()
	res, err := engine.Evaluate(context.Background(), ruleViewStub{snap: domain.Seed()}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.HasBlocking() {
		t.Fatalf("seed blocked: %+v", res.Violations)
	}
}
