package diff

import (
	"regexp"
	"time"
)

// InstantLayout is the canonical instant text: UTC, millisecond precision.
const InstantLayout = "2006-01-02T15:04:05.000Z"

var isoDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

// Normalize canonicalizes a flat column value: nil stays nil, instants and
// ISO-8601 date-time strings become InstantLayout text, anything else passes
// through. A string that looks like a date-time but does not parse is kept.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format(InstantLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(InstantLayout)
	case *string:
		if t == nil {
			return nil
		}
		return Normalize(*t)
	case string:
		if isoDateTime.MatchString(t) {
			if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return ts.UTC().Format(InstantLayout)
			}
		}
		return t
	}
	return v
}
