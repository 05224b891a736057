package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Row is a record as the store sees it: column name -> raw value.
type Row map[string]any

// StoredJSON tags a value read from a JSON column. It is still the encoded
// text; the differ decides whether to decode it.
type StoredJSON string

type FieldKind int

const (
	KindString FieldKind = iota
	KindJSON
	KindTime
	KindBool
)

type Field struct {
	Name string
	Kind FieldKind
}

func FieldNames(fs []Field) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Name)
	}
	return out
}

// EncodeColumn converts a Row value into a SQL argument for a column of kind k.
func EncodeColumn(k FieldKind, v any) (any, error) {
	if isNil(v) {
		return nil, nil
	}
	switch k {
	case KindJSON:
		if s, ok := v.(StoredJSON); ok {
			return string(s), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json column: %w", err)
		}
		return string(b), nil
	case KindTime:
		// time columns are DATETIME(3); MySQL would round anything finer
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Truncate(time.Millisecond), nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("encode time column %q: %w", t, err)
			}
			return ts.UTC().Truncate(time.Millisecond), nil
		}
		return nil, fmt.Errorf("encode time column: unsupported %T", v)
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("encode bool column: unsupported %T", v)
	}
	return v, nil
}

// DecodeColumn turns a driver value into the Row representation for kind k.
func DecodeColumn(k FieldKind, raw any) any {
	if b, ok := raw.([]byte); ok {
		if b == nil {
			return nil
		}
		raw = string(b)
	}
	if raw == nil {
		return nil
	}
	switch k {
	case KindJSON:
		if s, ok := raw.(string); ok {
			return StoredJSON(s)
		}
	case KindTime:
		switch t := raw.(type) {
		case time.Time:
			return t.UTC()
		case string:
			for _, layout := range []string{"2006-01-02 15:04:05.999999", time.RFC3339Nano} {
				if ts, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
					return ts.UTC()
				}
			}
		}
	case KindBool:
		switch t := raw.(type) {
		case bool:
			return t
		case int64:
			return t != 0
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n != 0
			}
			return strings.EqualFold(t, "true")
		}
	}
	return raw
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// value helpers for building rows from typed records

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func strs(s []string) any {
	if s == nil {
		return nil
	}
	return s
}

func obj(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
