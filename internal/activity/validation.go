// Package activity provides user activity event capture and processing.
package activity

import (
	"fmt"
	"slices"

	"github.com/learnhub/learnhub/internal/model"
)

const (
	maxMetaLength    = 500
	sourceHashLength = 16
)

// ValidateEventPayload validates activity event payload fields.
func ValidateEventPayload(payload EventPayload) error {
	if payload.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if payload.Action == "" {
		return fmt.Errorf("action is required")
	}
	if !slices.Contains(model.ValidActions, payload.Action) {
		return fmt.Errorf("unknown action %q", payload.Action)
	}
	if payload.SourceHash != "" && (len(payload.SourceHash) != sourceHashLength || !isHex(payload.SourceHash)) {
		return fmt.Errorf("source_hash must be %d hex chars", sourceHashLength)
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if len(payload.UserAgent) > maxMetaLength {
		return fmt.Errorf("user_agent too long")
	}
	return nil
}

func isHex(value string) bool {
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			continue
		}
		return false
	}
	return true
}
