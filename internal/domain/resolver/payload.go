package resolver

import (
	"encoding/json"
	"fmt"
)

// Payload is a schemaless sync payload as it arrives from a device.
type Payload map[string]any

// Clone returns a deep copy so merges never mutate the caller's data.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for key, value := range p {
		out[key] = cloneValue(value)
	}

	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case Payload:
		return map[string]any(value.Clone())
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, entry := range value {
			out[key] = cloneValue(entry)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, entry := range value {
			out[i] = cloneValue(entry)
		}
		return out
	default:
		return v
	}
}

// Equal compares two values under JSON semantics: 1 and 1.0 are equal,
// map key order does not matter.
func Equal(a, b any) bool {
	return canonical(a) == canonical(b)
}

// canonical строит каноническое представление значения для сравнения.
func canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(b)
}

func listField(p Payload, key string) ([]any, bool) {
	list, ok := p[key].([]any)
	return list, ok
}

func mapField(p Payload, key string) (map[string]any, bool) {
	m, ok := p[key].(map[string]any)
	return m, ok
}
