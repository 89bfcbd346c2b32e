package memory

import (
	"notations/pkg/domain"
)

// Snapshot exposes the transactional state to rules and callers.
func (tx *Transaction) Snapshot() domain.TransactionView {
	return newView(&tx.state)
}

func (tx *Transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *Transaction) findStack(id string) (domain.Stack, error) {
	if st, ok := tx.state.stacks[id]; ok {
		return st, nil
	}
	if _, ok := tx.state.sheets[id]; ok {
		return domain.Stack{}, domain.ErrKindMismatch{ID: id, Want: domain.KindStack, Got: domain.KindSheet}
	}
	return domain.Stack{}, domain.ErrNotFound{Kind: domain.KindStack, ID: id}
}

func (tx *Transaction) findSheet(id string) (domain.Sheet, error) {
	if sh, ok := tx.state.sheets[id]; ok {
		return sh, nil
	}
	if _, ok := tx.state.stacks[id]; ok {
		return domain.Sheet{}, domain.ErrKindMismatch{ID: id, Want: domain.KindSheet, Got: domain.KindStack}
	}
	return domain.Sheet{}, domain.ErrNotFound{Kind: domain.KindSheet, ID: id}
}

// prependChild inserts childID at the front of the stack's children,
// removing any existing occurrence first.
func prependChild(st *domain.Stack, childID string) {
	out := make([]string, 0, len(st.Children)+1)
	out = append(out, childID)
	for _, id := range st.Children {
		if id != childID {
			out = append(out, id)
		}
	}
	st.Children = out
}

func removeChild(st *domain.Stack, childID string) {
	out := st.Children[:0]
	for _, id := range st.Children {
		if id != childID {
			out = append(out, id)
		}
	}
	st.Children = out
}

// CreateStack creates a stack under the given parent. The new stack lands at
// the front of the parent's children.
func (tx *Transaction) CreateStack(title, parentID string) (domain.Stack, error) {
	parent, err := tx.findStack(parentID)
	if err != nil {
		return domain.Stack{}, err
	}

	st := domain.Stack{
		Base: domain.Base{
			ID:        domain.NewID(domain.KindStack),
			ParentID:  parentID,
			Title:     domain.SafeTitle(title, domain.DefaultStackTitle),
			CreatedAt: tx.now,
			UpdatedAt: tx.now,
		},
		Children: []string{},
	}
	tx.state.stacks[st.ID] = st

	prependChild(&parent, st.ID)
	parent.UpdatedAt = tx.now
	tx.state.stacks[parentID] = parent

	tx.recordChange(domain.Change{Kind: domain.KindStack, Action: domain.ActionCreate, After: cloneStack(st)})
	return cloneStack(st), nil
}

// CreateSheet creates a sheet under the given parent stack, prepended to the
// parent's children.
func (tx *Transaction) CreateSheet(title, body, parentID, subtitle string) (domain.Sheet, error) {
	parent, err := tx.findStack(parentID)
	if err != nil {
		return domain.Sheet{}, err
	}

	sh := domain.Sheet{
		Base: domain.Base{
			ID:        domain.NewID(domain.KindSheet),
			ParentID:  parentID,
			Title:     domain.SafeTitle(title, domain.DefaultSheetTitle),
			CreatedAt: tx.now,
			UpdatedAt: tx.now,
		},
		Subtitle: subtitle,
		Body:     body,
		Tags:     []string{},
		Margins:  domain.DefaultMargins(),
	}
	tx.state.sheets[sh.ID] = sh

	prependChild(&parent, sh.ID)
	parent.UpdatedAt = tx.now
	tx.state.stacks[parentID] = parent

	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionCreate, After: cloneSheet(sh)})
	return cloneSheet(sh), nil
}

// Rename retitles a node of either kind. A title that trims to the current
// value is a no-op and does not bump UpdatedAt.
func (tx *Transaction) Rename(nodeID, title string) (domain.Base, bool, error) {
	if st, ok := tx.state.stacks[nodeID]; ok {
		next := domain.SafeTitle(title, domain.DefaultStackTitle)
		if next == st.Title {
			return st.Base, false, nil
		}
		before := cloneStack(st)
		st.Title = next
		st.UpdatedAt = tx.now
		tx.state.stacks[nodeID] = st
		tx.recordChange(domain.Change{Kind: domain.KindStack, Action: domain.ActionUpdate, Before: before, After: cloneStack(st)})
		return st.Base, true, nil
	}
	if sh, ok := tx.state.sheets[nodeID]; ok {
		next := domain.SafeTitle(title, domain.DefaultSheetTitle)
		if next == sh.Title {
			return sh.Base, false, nil
		}
		before := cloneSheet(sh)
		sh.Title = next
		sh.UpdatedAt = tx.now
		tx.state.sheets[nodeID] = sh
		tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
		return sh.Base, true, nil
	}
	return domain.Base{}, false, domain.ErrNotFound{ID: nodeID}
}

// MoveSheet relocates a sheet into the target stack, prepending it to the
// target's children. Moving a sheet onto its current parent is a no-op.
func (tx *Transaction) MoveSheet(sheetID, targetStackID string) (bool, error) {
	sh, err := tx.findSheet(sheetID)
	if err != nil {
		return false, err
	}
	target, err := tx.findStack(targetStackID)
	if err != nil {
		return false, err
	}

	currentParentID := sh.ParentID
	if currentParentID == "" {
		currentParentID = tx.state.rootID
	}
	if currentParentID == targetStackID {
		return false, nil
	}

	beforeSheet := cloneSheet(sh)

	if source, ok := tx.state.stacks[currentParentID]; ok {
		removeChild(&source, sheetID)
		source.UpdatedAt = tx.now
		tx.state.stacks[currentParentID] = source
	}

	prependChild(&target, sheetID)
	target.UpdatedAt = tx.now
	tx.state.stacks[targetStackID] = target

	sh.ParentID = targetStackID
	sh.UpdatedAt = tx.now
	tx.state.sheets[sheetID] = sh

	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: beforeSheet, After: cloneSheet(sh)})
	return true, nil
}

// DeleteCascade removes a node and, for stacks, its whole subtree. The
// parent link is severed first so a partial failure can never leave a
// dangling child reference. Focus pointers that referenced deleted nodes
// reset toward the root.
func (tx *Transaction) DeleteCascade(nodeID string) error {
	if nodeID == tx.state.rootID {
		return domain.ErrRootImmutable
	}
	_, isStack := tx.state.stacks[nodeID]
	_, isSheet := tx.state.sheets[nodeID]
	if !isStack && !isSheet {
		return domain.ErrNotFound{ID: nodeID}
	}
	tx.deleteRecursive(nodeID, make(map[string]struct{}))
	return nil
}

func (tx *Transaction) deleteRecursive(nodeID string, visited map[string]struct{}) {
	if _, seen := visited[nodeID]; seen {
		return
	}
	visited[nodeID] = struct{}{}

	var parentID string
	var childIDs []string
	if st, ok := tx.state.stacks[nodeID]; ok {
		parentID = st.ParentID
		childIDs = append([]string(nil), st.Children...)
	} else if sh, ok := tx.state.sheets[nodeID]; ok {
		parentID = sh.ParentID
	} else {
		return
	}

	if parent, ok := tx.state.stacks[parentID]; ok && parentID != "" {
		removeChild(&parent, nodeID)
		tx.state.stacks[parentID] = parent
	}

	for _, childID := range childIDs {
		tx.deleteRecursive(childID, visited)
	}

	if tx.state.activeSheetID == nodeID {
		tx.state.activeSheetID = ""
	}
	if tx.state.currentStackID == nodeID {
		tx.state.currentStackID = tx.state.rootID
	}
	if tx.state.ui.SelectedCardID == nodeID {
		tx.state.ui.SelectedCardID = ""
	}

	if st, ok := tx.state.stacks[nodeID]; ok {
		delete(tx.state.stacks, nodeID)
		tx.recordChange(domain.Change{Kind: domain.KindStack, Action: domain.ActionDelete, Before: cloneStack(st)})
	} else if sh, ok := tx.state.sheets[nodeID]; ok {
		delete(tx.state.sheets, nodeID)
		tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionDelete, Before: cloneSheet(sh)})
	}
}

// UnstackAndDelete deletes a stack subtree but rescues every descendant
// sheet, reparenting the sheets to the root. Sheet order follows the
// depth-first collection order, deduplicated, prepended to the root's
// children as a group.
func (tx *Transaction) UnstackAndDelete(stackID string) error {
	if stackID == tx.state.rootID {
		return domain.ErrRootImmutable
	}
	if _, err := tx.findStack(stackID); err != nil {
		return err
	}
	root, ok := tx.state.stacks[tx.state.rootID]
	if !ok {
		return domain.ErrNotFound{Kind: domain.KindStack, ID: tx.state.rootID}
	}

	var descendantStackIDs []string
	var descendantSheetIDs []string
	visited := make(map[string]struct{})

	var collect func(id string)
	collect = func(id string) {
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}

		st, ok := tx.state.stacks[id]
		if !ok {
			return
		}
		descendantStackIDs = append(descendantStackIDs, id)
		for _, childID := range st.Children {
			if _, ok := tx.state.stacks[childID]; ok {
				collect(childID)
				continue
			}
			if _, ok := tx.state.sheets[childID]; ok {
				descendantSheetIDs = append(descendantSheetIDs, childID)
			}
		}
	}
	collect(stackID)

	stackIDSet := make(map[string]struct{}, len(descendantStackIDs))
	for _, id := range descendantStackIDs {
		stackIDSet[id] = struct{}{}
	}

	seenSheets := make(map[string]struct{}, len(descendantSheetIDs))
	sheetsToMove := make([]string, 0, len(descendantSheetIDs))
	for _, id := range descendantSheetIDs {
		if _, dup := seenSheets[id]; dup {
			continue
		}
		seenSheets[id] = struct{}{}
		sheetsToMove = append(sheetsToMove, id)
	}

	for _, id := range sheetsToMove {
		sh := tx.state.sheets[id]
		before := cloneSheet(sh)
		sh.ParentID = tx.state.rootID
		tx.state.sheets[id] = sh
		tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
	}

	// Strip sheet children from the doomed stacks so the cascade below only
	// tears down the stack skeleton.
	for _, id := range descendantStackIDs {
		st := tx.state.stacks[id]
		kept := st.Children[:0]
		for _, childID := range st.Children {
			if _, ok := tx.state.stacks[childID]; ok {
				kept = append(kept, childID)
			}
		}
		st.Children = kept
		tx.state.stacks[id] = st
	}

	filtered := make([]string, 0, len(root.Children))
	for _, id := range root.Children {
		if _, doomed := stackIDSet[id]; !doomed {
			filtered = append(filtered, id)
		}
	}
	rootChildSet := make(map[string]struct{}, len(filtered))
	for _, id := range filtered {
		rootChildSet[id] = struct{}{}
	}
	moved := make([]string, 0, len(sheetsToMove))
	for _, id := range sheetsToMove {
		if _, present := rootChildSet[id]; !present {
			moved = append(moved, id)
		}
	}
	root.Children = append(moved, filtered...)
	root.UpdatedAt = tx.now
	tx.state.stacks[tx.state.rootID] = root

	tx.deleteRecursive(stackID, make(map[string]struct{}))
	return nil
}

// AddSheetTag adds a tag to a sheet with case-insensitive set semantics.
func (tx *Transaction) AddSheetTag(sheetID, label string) (bool, error) {
	sh, err := tx.findSheet(sheetID)
	if err != nil {
		return false, err
	}
	tags, changed := domain.AddTag(sh.Tags, label)
	if !changed {
		return false, nil
	}
	before := cloneSheet(sh)
	sh.Tags = tags
	sh.UpdatedAt = tx.now
	tx.state.sheets[sheetID] = sh
	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
	return true, nil
}

// RemoveSheetTag removes a tag from a sheet, matching case-insensitively.
func (tx *Transaction) RemoveSheetTag(sheetID, label string) (bool, error) {
	sh, err := tx.findSheet(sheetID)
	if err != nil {
		return false, err
	}
	tags, changed := domain.RemoveTag(sh.Tags, label)
	if !changed {
		return false, nil
	}
	before := cloneSheet(sh)
	sh.Tags = tags
	sh.UpdatedAt = tx.now
	tx.state.sheets[sheetID] = sh
	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
	return true, nil
}

// ApplyTagOperation parses tag-bar input and applies the add or remove it
// describes.
func (tx *Transaction) ApplyTagOperation(sheetID, input string) (bool, error) {
	op, label := domain.ParseTagOperation(input)
	if label == "" {
		if _, err := tx.findSheet(sheetID); err != nil {
			return false, err
		}
		return false, nil
	}
	if op == domain.TagOpRemove {
		return tx.RemoveSheetTag(sheetID, label)
	}
	return tx.AddSheetTag(sheetID, label)
}

// SetSheetBody replaces a sheet's body.
func (tx *Transaction) SetSheetBody(sheetID, body string) error {
	sh, err := tx.findSheet(sheetID)
	if err != nil {
		return err
	}
	if sh.Body == body {
		return nil
	}
	before := cloneSheet(sh)
	sh.Body = body
	sh.UpdatedAt = tx.now
	tx.state.sheets[sheetID] = sh
	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
	return nil
}

// SetSheetSubtitle replaces a sheet's subtitle.
func (tx *Transaction) SetSheetSubtitle(sheetID, subtitle string) error {
	sh, err := tx.findSheet(sheetID)
	if err != nil {
		return err
	}
	if sh.Subtitle == subtitle {
		return nil
	}
	before := cloneSheet(sh)
	sh.Subtitle = subtitle
	sh.UpdatedAt = tx.now
	tx.state.sheets[sheetID] = sh
	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
	return nil
}

// SetSheetMargins replaces a sheet's margins, normalized against the
// document settings fallback.
func (tx *Transaction) SetSheetMargins(sheetID string, margins domain.Margins) error {
	sh, err := tx.findSheet(sheetID)
	if err != nil {
		return err
	}
	next := domain.NormalizeMargins(margins, tx.state.settings.Margins)
	if sh.Margins == next {
		return nil
	}
	before := cloneSheet(sh)
	sh.Margins = next
	sh.UpdatedAt = tx.now
	tx.state.sheets[sheetID] = sh
	tx.recordChange(domain.Change{Kind: domain.KindSheet, Action: domain.ActionUpdate, Before: before, After: cloneSheet(sh)})
	return nil
}

// SetStackPreviewCount pins or clears a stack's preview badge override.
func (tx *Transaction) SetStackPreviewCount(stackID string, count *int) error {
	st, err := tx.findStack(stackID)
	if err != nil {
		return err
	}
	before := cloneStack(st)
	if count == nil {
		st.PreviewCount = nil
	} else {
		n := *count
		st.PreviewCount = &n
	}
	st.UpdatedAt = tx.now
	tx.state.stacks[stackID] = st
	tx.recordChange(domain.Change{Kind: domain.KindStack, Action: domain.ActionUpdate, Before: before, After: cloneStack(st)})
	return nil
}

// UpdateSettings mutates the document settings and re-normalizes them.
func (tx *Transaction) UpdateSettings(mutator func(*domain.Settings) error) (domain.Settings, error) {
	current := tx.state.settings
	if err := mutator(&current); err != nil {
		return domain.Settings{}, err
	}
	tx.state.settings = domain.NormalizeSettings(current)
	return tx.state.settings, nil
}

// SetLogin updates the local login flag.
func (tx *Transaction) SetLogin(loggedIn bool, username string) error {
	tx.state.auth = domain.AuthState{LoggedIn: loggedIn, Username: username}
	return nil
}

// SetFocus updates the persisted focus pointers. Ids that do not resolve
// fall back to the root stack and no active sheet.
func (tx *Transaction) SetFocus(currentStackID, activeSheetID string) error {
	if _, ok := tx.state.stacks[currentStackID]; ok {
		tx.state.currentStackID = currentStackID
	} else {
		tx.state.currentStackID = tx.state.rootID
	}
	if _, ok := tx.state.sheets[activeSheetID]; ok {
		tx.state.activeSheetID = activeSheetID
	} else {
		tx.state.activeSheetID = ""
	}
	return nil
}

// UpdateUI mutates the persisted presentation flags.
func (tx *Transaction) UpdateUI(mutator func(*domain.UIState) error) (domain.UIState, error) {
	current := tx.state.ui
	if err := mutator(&current); err != nil {
		return domain.UIState{}, err
	}
	tx.state.ui = current
	return tx.state.ui, nil
}

var _ domain.Transaction = (*Transaction)(nil)
