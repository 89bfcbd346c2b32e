package domain

import (
	"strings"

	"github.com/google/uuid"
)

// RootStackID is the fixed id of the root stack in every snapshot.
const RootStackID = "root"

// NewID mints a node id. Both kinds share one id namespace; the kind prefix
// keeps ids readable in logs and snapshots but carries no lookup semantics.
func NewID(kind NodeKind) string {
	return string(kind) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
