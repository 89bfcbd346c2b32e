// Package domain defines the persistent entities, snapshot schema, and
// rule evaluation primitives used by the notations core.
package domain

import (
	"math"
	"strings"
	"time"
)

// NodeKind identifies the kind of node stored in the tree.
type NodeKind string

// Node kinds used in Change records, persistence buckets, and route matching.
const (
	// KindStack identifies a folder-like container node.
	KindStack NodeKind = "stack"
	// KindSheet identifies a document node.
	KindSheet NodeKind = "sheet"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Default titles applied when user input trims to nothing.
const (
	DefaultSheetTitle = "Untitled"
	DefaultStackTitle = "Untitled Stack"
)

// Base contains common fields for both node kinds. ParentID is empty only
// for the root stack.
type Base struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stack is a container node. Children is ordered most-recent-first and its
// order is the display and route-priority contract.
type Stack struct {
	Base
	PreviewCount *int     `json:"previewCount,omitempty"`
	Children     []string `json:"children"`
}

// Sheet is a document node.
type Sheet struct {
	Base
	Subtitle string   `json:"subtitle"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Margins  Margins  `json:"margins"`
}

// Margins holds the four print insets of a sheet, in inches.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DefaultMargins returns the stock margin insets.
func DefaultMargins() Margins {
	return Margins{Top: 0.42, Right: 1.12, Bottom: 0.75, Left: 0.42}
}

// roundMargin coerces a single inset to a finite, non-negative value rounded
// to two decimals, falling back when the input is unusable.
func roundMargin(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		v = fallback
	}
	return math.Round(v*100) / 100
}

// NormalizeMargins clamps every inset against the provided fallback.
func NormalizeMargins(raw, fallback Margins) Margins {
	return Margins{
		Top:    roundMargin(raw.Top, fallback.Top),
		Right:  roundMargin(raw.Right, fallback.Right),
		Bottom: roundMargin(raw.Bottom, fallback.Bottom),
		Left:   roundMargin(raw.Left, fallback.Left),
	}
}

// SafeTitle trims a raw title and substitutes fallback when nothing remains.
func SafeTitle(raw, fallback string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return fallback
}

// Change describes a mutation applied to a node during a transaction.
type Change struct {
	Kind   NodeKind
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured for rule evaluation.
const (
	// ActionCreate indicates a node was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates a node was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Kind     NodeKind
	NodeID   string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
