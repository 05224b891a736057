package diff

import (
	"reflect"

	"gmb_sync/internal/domain"
)

// Diff compares a stored row with a freshly built one over fields, in order,
// using Serialize as the equality oracle. Nested values are compared
// structurally.
func Diff(existing, next domain.Row, fields []string) []domain.ChangeEntry {
	var changes []domain.ChangeEntry
	for _, f := range fields {
		stored := DecodeStored(existing[f])
		old, nv := stored.Value(), next[f]
		want := Serialize(nv)
		if Serialize(old) == want {
			continue
		}
		// A plain text column whose content merely looks like JSON ("{...}")
		// is still equal when the text itself matches.
		if _, ok := stored.(Decoded); ok {
			if s, isStr := existing[f].(string); isStr && literal(s) == want {
				continue
			}
		}
		changes = append(changes, domain.ChangeEntry{Field: f, Old: old, New: nv})
	}
	return changes
}

// DiffFlat is the comparator for flat records (reviews): both sides are
// normalized and compared by value.
func DiffFlat(existing, next domain.Row, fields []string) []domain.ChangeEntry {
	var changes []domain.ChangeEntry
	for _, f := range fields {
		old, nv := existing[f], next[f]
		if !reflect.DeepEqual(Normalize(old), Normalize(nv)) {
			changes = append(changes, domain.ChangeEntry{Field: f, Old: old, New: nv})
		}
	}
	return changes
}
