package diff

import (
	"encoding/json"
	"strings"

	"gmb_sync/internal/domain"
)

// Stored is the outcome of reading a stored value back for comparison:
// either Decoded (structured form recovered) or Raw (used as stored).
type Stored interface {
	Value() any
}

type Decoded struct{ V any }

type Raw struct{ V any }

func (d Decoded) Value() any { return d.V }
func (r Raw) Value() any     { return r.V }

// DecodeStored recovers the structured form of a stored value. Tagged JSON
// columns are always decode candidates; untagged strings only when they start
// with '{'. A failed decode yields Raw with the original text.
func DecodeStored(v any) Stored {
	switch s := v.(type) {
	case domain.StoredJSON:
		if out, ok := decodeJSON(string(s)); ok {
			return Decoded{V: out}
		}
		return Raw{V: string(s)}
	case string:
		if strings.HasPrefix(s, "{") {
			if out, ok := decodeJSON(s); ok {
				return Decoded{V: out}
			}
		}
	}
	return Raw{V: v}
}

func decodeJSON(s string) (any, bool) {
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}
