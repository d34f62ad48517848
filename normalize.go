package hica

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
)

// NormalizeResult converts an arbitrary tool return value into a
// JSON-representable form before it is appended to the event log:
//
//   - a mapping carrying mime_type and binary data → {mime_type, data: base64}
//   - a mapping carrying a text field → the text's JSON parse, or the text itself
//   - a mapping carrying a bytes data field → base64 string
//   - []byte → base64 string
//   - structs → their map form
//   - lists → normalized elementwise
//   - primitives and plain mappings → passthrough
//   - anything else → string coercion
func NormalizeResult(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = NormalizeResult(e)
		}
		return out
	case ToolResult:
		return val.eventData()
	case *ToolResult:
		if val == nil {
			return nil
		}
		return val.eventData()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = NormalizeResult(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return NormalizeResult(rv.Elem().Interface())
	case reflect.Struct, reflect.Map:
		// Model-like values: take the dictionary form via a JSON round trip.
		if m, ok := toMap(v); ok {
			return normalizeMap(m)
		}
	}
	return fmt.Sprintf("%v", v)
}

func normalizeMap(m map[string]any) any {
	if mime, ok := m["mime_type"].(string); ok {
		if data, ok := bytesOf(m["data"]); ok {
			return map[string]any{
				"mime_type": mime,
				"data":      base64.StdEncoding.EncodeToString(data),
			}
		}
	}
	if text, ok := m["text"].(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			return parsed
		}
		return text
	}
	if data, ok := bytesOf(m["data"]); ok {
		return base64.StdEncoding.EncodeToString(data)
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeResult(v)
	}
	return out
}

func bytesOf(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

func toMap(v any) (map[string]any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false
	}
	return m, true
}

// stringCoerce renders a value as a prompt-safe string: strings pass through,
// JSON-representable values become compact JSON, everything else uses the
// default Go formatting.
func stringCoerce(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// wrapResult lifts a bare executor return value into a ToolResult. Values
// that already are a ToolResult pass through unchanged.
func wrapResult(v any) ToolResult {
	switch r := v.(type) {
	case ToolResult:
		return r
	case *ToolResult:
		if r != nil {
			return *r
		}
		return ToolResult{}
	}
	s := stringCoerce(NormalizeResult(v))
	return ToolResult{LLMContent: s, DisplayContent: s, Raw: v}
}
