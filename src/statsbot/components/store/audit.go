package store

import (
	"context"
	"fmt"

	"github.com/cognita-labs/cognita/src/shared/types"
)

// FieldChange is one observed mutation of a tracked field.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// Diff appends a change when before and after differ. Every entity kind's
// update handler funnels through this instead of hand-writing the compare.
func Diff(changes []FieldChange, field string, before, after interface{}) []FieldChange {
	if before == after {
		return changes
	}
	return append(changes, FieldChange{
		Field: field,
		Old:   fmt.Sprint(before),
		New:   fmt.Sprint(after),
	})
}

// AuditChanges writes one audit row per changed field, batched.
func (s *Store) AuditChanges(ctx context.Context, kind string, entityID int64, changes []FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	rows := make([]types.AuditLog, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, types.AuditLog{
			Kind:     kind,
			EntityID: entityID,
			Field:    c.Field,
			OldValue: c.Old,
			NewValue: c.New,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// Audit records a single change.
func (s *Store) Audit(ctx context.Context, kind string, entityID int64, field string, before, after interface{}) error {
	return s.AuditChanges(ctx, kind, entityID, Diff(nil, field, before, after))
}
