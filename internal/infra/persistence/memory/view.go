package memory

import "notations/pkg/domain"

// view exposes a read-only snapshot of the transactional state.
type view struct {
	state *memoryState
}

func newView(state *memoryState) view {
	return view{state: state}
}

// RootID returns the id of the root stack.
func (v view) RootID() string { return v.state.rootID }

// FindStack retrieves a stack by id from the snapshot.
func (v view) FindStack(id string) (domain.Stack, bool) {
	st, ok := v.state.stacks[id]
	if !ok {
		return domain.Stack{}, false
	}
	return cloneStack(st), true
}

// FindSheet retrieves a sheet by id from the snapshot.
func (v view) FindSheet(id string) (domain.Sheet, bool) {
	sh, ok := v.state.sheets[id]
	if !ok {
		return domain.Sheet{}, false
	}
	return cloneSheet(sh), true
}

// ListStacks returns all stacks in the snapshot.
func (v view) ListStacks() []domain.Stack {
	out := make([]domain.Stack, 0, len(v.state.stacks))
	for _, st := range v.state.stacks {
		out = append(out, cloneStack(st))
	}
	return out
}

// ListSheets returns all sheets in the snapshot.
func (v view) ListSheets() []domain.Sheet {
	out := make([]domain.Sheet, 0, len(v.state.sheets))
	for _, sh := range v.state.sheets {
		out = append(out, cloneSheet(sh))
	}
	return out
}

// CountSheets returns the recursive sheet count beneath a stack.
func (v view) CountSheets(stackID string) int {
	return countSheets(v.state, stackID)
}

// CurrentStackID returns the persisted library focus.
func (v view) CurrentStackID() string { return v.state.currentStackID }

// ActiveSheetID returns the persisted editor focus, if any.
func (v view) ActiveSheetID() string { return v.state.activeSheetID }

// Settings returns the document settings.
func (v view) Settings() domain.Settings { return v.state.settings }

// Auth returns the login state.
func (v view) Auth() domain.AuthState { return v.state.auth }

// UI returns the persisted presentation flags.
func (v view) UI() domain.UIState { return v.state.ui }

var _ domain.TransactionView = view{}
var _ domain.RuleView = view{}
