package orchestrator

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID creates a unique run identifier.
// Format: run-{first 12 hex digits of a random UUID}
// Example: run-1a2b3c4de5f6
func NewRunID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "run-" + id[:12]
}
