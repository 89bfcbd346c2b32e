// Package memory implements the canonical in-memory transactional tree
// store. Durable drivers embed it and snapshot its exported state.
package memory

import (
	"context"
	"sync"
	"time"

	"notations/pkg/domain"
)

type memoryState struct {
	auth           domain.AuthState
	settings       domain.Settings
	rootID         string
	currentStackID string
	activeSheetID  string
	stacks         map[string]domain.Stack
	sheets         map[string]domain.Sheet
	ui             domain.UIState
}

func stateFromSnapshot(snap domain.Snapshot) memoryState {
	s := memoryState{
		auth:           snap.Auth,
		settings:       snap.Settings,
		rootID:         snap.RootID,
		currentStackID: snap.CurrentStackID,
		activeSheetID:  snap.ActiveSheetID,
		stacks:         make(map[string]domain.Stack, len(snap.Stacks)),
		sheets:         make(map[string]domain.Sheet, len(snap.Sheets)),
		ui:             snap.UI,
	}
	for id, st := range snap.Stacks {
		s.stacks[id] = cloneStack(st)
	}
	for id, sh := range snap.Sheets {
		s.sheets[id] = cloneSheet(sh)
	}
	return s
}

func (s memoryState) snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Auth:           s.auth,
		Settings:       s.settings,
		RootID:         s.rootID,
		CurrentStackID: s.currentStackID,
		ActiveSheetID:  s.activeSheetID,
		Stacks:         make(map[string]domain.Stack, len(s.stacks)),
		Sheets:         make(map[string]domain.Sheet, len(s.sheets)),
		UI:             s.ui,
	}
	for id, st := range s.stacks {
		snap.Stacks[id] = cloneStack(st)
	}
	for id, sh := range s.sheets {
		snap.Sheets[id] = cloneSheet(sh)
	}
	return snap.Clone()
}

func (s memoryState) clone() memoryState {
	cloned := s
	cloned.stacks = make(map[string]domain.Stack, len(s.stacks))
	for id, st := range s.stacks {
		cloned.stacks[id] = cloneStack(st)
	}
	cloned.sheets = make(map[string]domain.Sheet, len(s.sheets))
	for id, sh := range s.sheets {
		cloned.sheets[id] = cloneSheet(sh)
	}
	return cloned
}

func cloneStack(st domain.Stack) domain.Stack {
	cp := st
	cp.Children = append([]string(nil), st.Children...)
	if st.PreviewCount != nil {
		n := *st.PreviewCount
		cp.PreviewCount = &n
	}
	return cp
}

func cloneSheet(sh domain.Sheet) domain.Sheet {
	cp := sh
	cp.Tags = append([]string(nil), sh.Tags...)
	return cp
}

// Store provides the in-memory transactional tree store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// New constructs a store seeded with the default demo tree and backed by the
// provided rules engine.
func New(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  stateFromSnapshot(domain.Seed()),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Transaction applies a mutation set to a cloned copy of the store state.
type Transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

// RunInTransaction executes fn within a transactional copy of the store
// state. Rules run against the mutated copy before commit; a blocking
// violation rolls the whole transaction back.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := newView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newView(&snapshot))
}

// RootID returns the id of the root stack.
func (s *Store) RootID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.rootID
}

// GetStack retrieves a stack by id.
func (s *Store) GetStack(id string) (domain.Stack, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.stacks[id]
	if !ok {
		return domain.Stack{}, false
	}
	return cloneStack(st), true
}

// GetSheet retrieves a sheet by id.
func (s *Store) GetSheet(id string) (domain.Sheet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.state.sheets[id]
	if !ok {
		return domain.Sheet{}, false
	}
	return cloneSheet(sh), true
}

// ListStacks returns all stacks.
func (s *Store) ListStacks() []domain.Stack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Stack, 0, len(s.state.stacks))
	for _, st := range s.state.stacks {
		out = append(out, cloneStack(st))
	}
	return out
}

// ListSheets returns all sheets.
func (s *Store) ListSheets() []domain.Sheet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sheet, 0, len(s.state.sheets))
	for _, sh := range s.state.sheets {
		out = append(out, cloneSheet(sh))
	}
	return out
}

// CountSheets returns the recursive sheet count beneath a stack.
func (s *Store) CountSheets(stackID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countSheets(&s.state, stackID)
}

// ExportState returns a deep copy of the full store snapshot.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

// ImportState replaces the store state with a normalized copy of the given
// snapshot. Unrecoverable snapshots fall back to the seed.
func (s *Store) ImportState(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(domain.Normalize(snap))
}

var _ domain.PersistentStore = (*Store)(nil)

func countSheets(state *memoryState, stackID string) int {
	visited := make(map[string]struct{})

	var walk func(id string) int
	walk = func(id string) int {
		if _, seen := visited[id]; seen {
			return 0
		}
		visited[id] = struct{}{}

		st, ok := state.stacks[id]
		if !ok {
			return 0
		}
		total := 0
		for _, childID := range st.Children {
			if _, ok := state.sheets[childID]; ok {
				total++
				continue
			}
			total += walk(childID)
		}
		return total
	}
	return walk(stackID)
}
