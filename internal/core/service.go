package core

import (
	"context"
	"time"

	"notations/internal/infra/persistence/memory"
	"notations/pkg/domain"
)

// Service exposes higher-level transactional operations over the document
// store, instrumented with logging, metrics, tracing, and audit recording.
type Service struct {
	store domain.PersistentStore
	opts  serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, options ...ServiceOption) *Service {
	opts := defaultServiceOptions()
	for _, apply := range options {
		apply(&opts)
	}
	return &Service{store: store, opts: opts}
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *domain.RulesEngine, options ...ServiceOption) *Service {
	return NewService(memory.New(engine), options...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

type auditTarget struct {
	kind   domain.NodeKind
	action domain.Action
}

var auditTargets = map[string]auditTarget{
	"create_stack":        {domain.KindStack, domain.ActionCreate},
	"create_sheet":        {domain.KindSheet, domain.ActionCreate},
	"rename_node":         {"", domain.ActionUpdate},
	"move_sheet":          {domain.KindSheet, domain.ActionUpdate},
	"delete_node":         {"", domain.ActionDelete},
	"unstack_stack":       {domain.KindStack, domain.ActionDelete},
	"add_sheet_tag":       {domain.KindSheet, domain.ActionUpdate},
	"remove_sheet_tag":    {domain.KindSheet, domain.ActionUpdate},
	"apply_tag_operation": {domain.KindSheet, domain.ActionUpdate},
	"set_sheet_body":      {domain.KindSheet, domain.ActionUpdate},
	"set_sheet_subtitle":  {domain.KindSheet, domain.ActionUpdate},
	"set_sheet_margins":   {domain.KindSheet, domain.ActionUpdate},
	"set_preview_count":   {domain.KindStack, domain.ActionUpdate},
}

// run executes fn inside a store transaction with tracing, metrics, and
// logging wrapped around it. Failed runs record an error audit entry; callers
// record success entries once the created or mutated entity id is known.
func (s *Service) run(ctx context.Context, operation string, fn func(domain.Transaction) error) (domain.Result, time.Duration, error) {
	start := s.opts.clock.Now()
	ctx, span := s.opts.tracer.Start(ctx, operation)
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := s.opts.clock.Now().Sub(start)
	span.End(err)
	s.opts.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.opts.logger.Error("operation failed", "operation", operation, "error", err)
		s.recordAudit(ctx, operation, "", AuditStatusError, duration, err)
		return res, duration, err
	}
	s.opts.logger.Debug("operation complete", "operation", operation, "duration", duration)
	return res, duration, nil
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, status AuditStatus, duration time.Duration, err error) {
	target, ok := auditTargets[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Kind:      target.kind,
		Action:    target.action,
		EntityID:  entityID,
		Status:    status,
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.opts.audit.Record(ctx, entry)
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	s.recordAudit(ctx, operation, entityID, AuditStatusSuccess, duration, nil)
}

// CreateStack creates a stack under the given parent and places it first
// among the parent's children.
func (s *Service) CreateStack(ctx context.Context, title, parentID string) (domain.Stack, domain.Result, error) {
	var created domain.Stack
	res, duration, err := s.run(ctx, "create_stack", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateStack(title, parentID)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_stack", created.ID, duration)
	}
	return created, res, err
}

// CreateSheet creates a sheet under the given parent and places it first
// among the parent's children.
func (s *Service) CreateSheet(ctx context.Context, title, body, parentID, subtitle string) (domain.Sheet, domain.Result, error) {
	var created domain.Sheet
	res, duration, err := s.run(ctx, "create_sheet", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateSheet(title, body, parentID, subtitle)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_sheet", created.ID, duration)
	}
	return created, res, err
}

// Rename retitles a node of either kind. The returned flag reports whether
// the title actually changed; renaming to the same trimmed title is a no-op.
func (s *Service) Rename(ctx context.Context, nodeID, title string) (domain.Base, bool, domain.Result, error) {
	var (
		base    domain.Base
		changed bool
	)
	res, duration, err := s.run(ctx, "rename_node", func(tx domain.Transaction) error {
		var err error
		base, changed, err = tx.Rename(nodeID, title)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "rename_node", nodeID, duration)
	}
	return base, changed, res, err
}

// MoveSheet reparents a sheet to the target stack. Moving to the current
// parent is a no-op and the returned flag is false.
func (s *Service) MoveSheet(ctx context.Context, sheetID, targetStackID string) (bool, domain.Result, error) {
	var moved bool
	res, duration, err := s.run(ctx, "move_sheet", func(tx domain.Transaction) error {
		var err error
		moved, err = tx.MoveSheet(sheetID, targetStackID)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "move_sheet", sheetID, duration)
	}
	return moved, res, err
}

// DeleteCascade removes a node and, for stacks, every descendant.
func (s *Service) DeleteCascade(ctx context.Context, nodeID string) (domain.Result, error) {
	res, duration, err := s.run(ctx, "delete_node", func(tx domain.Transaction) error {
		return tx.DeleteCascade(nodeID)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_node", nodeID, duration)
	}
	return res, err
}

// UnstackAndDelete removes a stack subtree while rescuing every contained
// sheet to the root.
func (s *Service) UnstackAndDelete(ctx context.Context, stackID string) (domain.Result, error) {
	res, duration, err := s.run(ctx, "unstack_stack", func(tx domain.Transaction) error {
		return tx.UnstackAndDelete(stackID)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "unstack_stack", stackID, duration)
	}
	return res, err
}

// AddSheetTag appends a tag to a sheet. Duplicate tags are ignored and the
// returned flag is false.
func (s *Service) AddSheetTag(ctx context.Context, sheetID, label string) (bool, domain.Result, error) {
	return s.tagOp(ctx, "add_sheet_tag", sheetID, func(tx domain.Transaction) (bool, error) {
		return tx.AddSheetTag(sheetID, label)
	})
}

// RemoveSheetTag removes a tag from a sheet, matching case-insensitively.
func (s *Service) RemoveSheetTag(ctx context.Context, sheetID, label string) (bool, domain.Result, error) {
	return s.tagOp(ctx, "remove_sheet_tag", sheetID, func(tx domain.Transaction) (bool, error) {
		return tx.RemoveSheetTag(sheetID, label)
	})
}

// ApplyTagOperation parses a "+tag" / "-tag" / "tag" input and applies it.
func (s *Service) ApplyTagOperation(ctx context.Context, sheetID, input string) (bool, domain.Result, error) {
	return s.tagOp(ctx, "apply_tag_operation", sheetID, func(tx domain.Transaction) (bool, error) {
		return tx.ApplyTagOperation(sheetID, input)
	})
}

func (s *Service) tagOp(ctx context.Context, operation, sheetID string, fn func(domain.Transaction) (bool, error)) (bool, domain.Result, error) {
	var changed bool
	res, duration, err := s.run(ctx, operation, func(tx domain.Transaction) error {
		var err error
		changed, err = fn(tx)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, operation, sheetID, duration)
	}
	return changed, res, err
}

// SetSheetBody replaces a sheet's body text.
func (s *Service) SetSheetBody(ctx context.Context, sheetID, body string) (domain.Result, error) {
	res, duration, err := s.run(ctx, "set_sheet_body", func(tx domain.Transaction) error {
		return tx.SetSheetBody(sheetID, body)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "set_sheet_body", sheetID, duration)
	}
	return res, err
}

// SetSheetSubtitle replaces a sheet's subtitle.
func (s *Service) SetSheetSubtitle(ctx context.Context, sheetID, subtitle string) (domain.Result, error) {
	res, duration, err := s.run(ctx, "set_sheet_subtitle", func(tx domain.Transaction) error {
		return tx.SetSheetSubtitle(sheetID, subtitle)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "set_sheet_subtitle", sheetID, duration)
	}
	return res, err
}

// SetSheetMargins updates a sheet's print margins, normalized against the
// defaults.
func (s *Service) SetSheetMargins(ctx context.Context, sheetID string, margins domain.Margins) (domain.Result, error) {
	res, duration, err := s.run(ctx, "set_sheet_margins", func(tx domain.Transaction) error {
		return tx.SetSheetMargins(sheetID, margins)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "set_sheet_margins", sheetID, duration)
	}
	return res, err
}

// SetStackPreviewCount sets or clears the preview count of a stack.
func (s *Service) SetStackPreviewCount(ctx context.Context, stackID string, count *int) (domain.Result, error) {
	res, duration, err := s.run(ctx, "set_preview_count", func(tx domain.Transaction) error {
		return tx.SetStackPreviewCount(stackID, count)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "set_preview_count", stackID, duration)
	}
	return res, err
}

// UpdateSettings mutates the editor settings through the supplied mutator.
// The stored result is normalized.
func (s *Service) UpdateSettings(ctx context.Context, mutator func(*domain.Settings) error) (domain.Settings, domain.Result, error) {
	var updated domain.Settings
	res, _, err := s.run(ctx, "update_settings", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateSettings(mutator)
		return err
	})
	return updated, res, err
}

// Login records a signed-in session for the given username.
func (s *Service) Login(ctx context.Context, username string) (domain.Result, error) {
	res, _, err := s.run(ctx, "login", func(tx domain.Transaction) error {
		return tx.SetLogin(true, username)
	})
	return res, err
}

// Logout clears the signed-in session.
func (s *Service) Logout(ctx context.Context) (domain.Result, error) {
	res, _, err := s.run(ctx, "logout", func(tx domain.Transaction) error {
		return tx.SetLogin(false, "")
	})
	return res, err
}

// SetFocus persists the current stack and active sheet pointers.
func (s *Service) SetFocus(ctx context.Context, currentStackID, activeSheetID string) (domain.Result, error) {
	res, _, err := s.run(ctx, "set_focus", func(tx domain.Transaction) error {
		return tx.SetFocus(currentStackID, activeSheetID)
	})
	return res, err
}

// UpdateUI mutates transient interface state through the supplied mutator.
func (s *Service) UpdateUI(ctx context.Context, mutator func(*domain.UIState) error) (domain.UIState, domain.Result, error) {
	var updated domain.UIState
	res, _, err := s.run(ctx, "update_ui", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateUI(mutator)
		return err
	})
	return updated, res, err
}

// View runs fn against a read-only snapshot of the store.
func (s *Service) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}

// RootID returns the id of the root stack.
func (s *Service) RootID() string { return s.store.RootID() }

// GetStack fetches a stack by id.
func (s *Service) GetStack(id string) (domain.Stack, bool) { return s.store.GetStack(id) }

// GetSheet fetches a sheet by id.
func (s *Service) GetSheet(id string) (domain.Sheet, bool) { return s.store.GetSheet(id) }

// CountSheets counts the sheets reachable from a stack, including nested ones.
func (s *Service) CountSheets(stackID string) int { return s.store.CountSheets(stackID) }

// ExportState returns a deep copy of the full persisted state.
func (s *Service) ExportState() domain.Snapshot { return s.store.ExportState() }

// ImportState replaces the persisted state with the normalized snapshot.
func (s *Service) ImportState(snapshot domain.Snapshot) { s.store.ImportState(snapshot) }
