package hica

import (
	"reflect"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestNormalizeResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"number", 3.5, 3.5},
		{"bool", true, true},
		{"bytes", []byte{0x68, 0x69}, "aGk="},
		{"mime attachment", map[string]any{"mime_type": "image/png", "data": []byte{1, 2}},
			map[string]any{"mime_type": "image/png", "data": "AQI="}},
		{"text field with JSON", map[string]any{"text": `{"k":1}`},
			map[string]any{"k": float64(1)}},
		{"text field plain", map[string]any{"text": "just words"}, "just words"},
		{"bare data bytes", map[string]any{"data": []byte{0xff}}, "/w=="},
		{"plain map", map[string]any{"k": "v", "n": 2.0},
			map[string]any{"k": "v", "n": 2.0}},
		{"nested map", map[string]any{"inner": map[string]any{"b": []byte{0x41}}},
			map[string]any{"inner": map[string]any{"b": "QQ=="}}},
		{"list", []any{"a", []byte{0x42}}, []any{"a", "Qg=="}},
		{"typed slice", []string{"x", "y"}, []any{"x", "y"}},
		{"struct", sample{Name: "n", Count: 2},
			map[string]any{"name": "n", "count": float64(2)}},
		{"pointer to struct", &sample{Name: "p"},
			map[string]any{"name": "p", "count": float64(0)}},
		{"nil pointer", (*sample)(nil), nil},
		{"tool result", ToolResult{LLMContent: "l", DisplayContent: "d"},
			map[string]any{"llm_content": "l", "display_content": "d"}},
		{"fallback", make(chan int), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeResult(tt.in)
			if tt.name == "fallback" {
				if _, ok := got.(string); !ok {
					t.Fatalf("expected string coercion, got %T", got)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestStringCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "s", "s"},
		{"number", 5.0, "5"},
		{"map", map[string]any{"k": 1}, `{"k":1}`},
		{"list", []any{1, "a"}, `[1,"a"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringCoerce(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapResult(t *testing.T) {
	ready := ToolResult{LLMContent: "a", DisplayContent: "b", Raw: 1}
	if got := wrapResult(ready); !reflect.DeepEqual(got, ready) {
		t.Fatalf("ToolResult must pass through, got %+v", got)
	}
	if got := wrapResult(&ready); !reflect.DeepEqual(got, ready) {
		t.Fatalf("*ToolResult must pass through, got %+v", got)
	}

	got := wrapResult(float64(5))
	if got.LLMContent != "5" || got.DisplayContent != "5" {
		t.Fatalf("bare value not coerced: %+v", got)
	}
	if got.Raw != float64(5) {
		t.Fatalf("raw must carry the original value, got %v", got.Raw)
	}

	m := wrapResult(map[string]any{"k": "v"})
	if m.LLMContent != `{"k":"v"}` {
		t.Fatalf("map not JSON-coerced: %q", m.LLMContent)
	}
}
