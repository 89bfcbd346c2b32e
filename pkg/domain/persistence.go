package domain

import "context"

// Transaction exposes the tree and state operations that a persistence
// implementation must support within an atomic scope. Mutations either all
// commit or all roll back; a blocking rule violation aborts the commit.
type Transaction interface {
	Snapshot() TransactionView

	CreateStack(title, parentID string) (Stack, error)
	CreateSheet(title, body, parentID, subtitle string) (Sheet, error)
	Rename(nodeID, title string) (Base, bool, error)
	MoveSheet(sheetID, targetStackID string) (bool, error)
	DeleteCascade(nodeID string) error
	UnstackAndDelete(stackID string) error

	AddSheetTag(sheetID, label string) (bool, error)
	RemoveSheetTag(sheetID, label string) (bool, error)
	ApplyTagOperation(sheetID, input string) (bool, error)

	SetSheetBody(sheetID, body string) error
	SetSheetSubtitle(sheetID, subtitle string) error
	SetSheetMargins(sheetID string, margins Margins) error
	SetStackPreviewCount(stackID string, count *int) error

	UpdateSettings(mutator func(*Settings) error) (Settings, error)
	SetLogin(loggedIn bool, username string) error
	SetFocus(currentStackID, activeSheetID string) error
	UpdateUI(mutator func(*UIState) error) (UIState, error)
}

// TransactionView provides read-only access to snapshot data for rules,
// routing, and rendering.
type TransactionView interface {
	RootID() string
	FindStack(id string) (Stack, bool)
	FindSheet(id string) (Sheet, bool)
	ListStacks() []Stack
	ListSheets() []Sheet
	CountSheets(stackID string) int
	CurrentStackID() string
	ActiveSheetID() string
	Settings() Settings
	Auth() AuthState
	UI() UIState
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RootID() string
	GetStack(id string) (Stack, bool)
	GetSheet(id string) (Sheet, bool)
	ListStacks() []Stack
	ListSheets() []Sheet
	CountSheets(stackID string) int
	ExportState() Snapshot
	ImportState(Snapshot)
}
