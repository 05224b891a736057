// Package diff holds the change-detection primitives: a canonical
// serializer, the stored-value decoder, and the record differs.
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Serialize renders v as canonical JSON-like text. Map keys are sorted, so two
// maps with the same entries serialize identically whatever their insertion
// order. It never fails: values JSON cannot express fall back to their %v text.
func Serialize(v any) string {
	var b strings.Builder
	write(&b, reflect.ValueOf(v))
	return b.String()
}

func write(b *strings.Builder, rv reflect.Value) {
	if !rv.IsValid() {
		b.WriteString("null")
		return
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		write(b, rv.Elem())
	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b.WriteString(literal(string(rv.Bytes())))
			return
		}
		writeList(b, rv)
	case reflect.Array:
		writeList(b, rv)
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		if rv.Type().Key().Kind() != reflect.String {
			writeGeneric(b, rv)
			return
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(literal(k.String()))
			b.WriteByte(':')
			write(b, rv.MapIndex(k))
		}
		b.WriteByte('}')
	case reflect.String:
		b.WriteString(literal(rv.String()))
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if !rv.CanInterface() {
			b.WriteString(literal(fmt.Sprint(rv)))
			return
		}
		b.WriteString(literal(rv.Interface()))
	default:
		writeGeneric(b, rv)
	}
}

func writeList(b *strings.Builder, rv reflect.Value) {
	b.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		write(b, rv.Index(i))
	}
	b.WriteByte(']')
}

// writeGeneric routes structs, times and other exotic values through a JSON
// round trip so they serialize like their decoded form would.
func writeGeneric(b *strings.Builder, rv reflect.Value) {
	if !rv.CanInterface() {
		b.WriteString(literal(fmt.Sprint(rv)))
		return
	}
	raw, err := json.Marshal(rv.Interface())
	if err != nil {
		b.WriteString(literal(fmt.Sprintf("%v", rv.Interface())))
		return
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		b.WriteString(literal(string(raw)))
		return
	}
	write(b, reflect.ValueOf(generic))
}

// literal is JSON encoding without HTML escaping. NaN and Inf become null.
func literal(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
