package storage

import (
	"encoding/json"
	"fmt"
)

// ExtensionState carries settings owned by adapters outside the game core,
// such as narration template overrides on a saved table. Values stay raw
// JSON until an adapter decodes them.
type ExtensionState map[string]json.RawMessage

// Set stores v under key after marshalling it to JSON.
func (e *ExtensionState) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal extension %q: %w", key, err)
	}
	if *e == nil {
		*e = make(ExtensionState, 1)
	}
	(*e)[key] = raw
	return nil
}

// Get unmarshals the value at key into out and reports whether it existed.
func (e ExtensionState) Get(key string, out any) (bool, error) {
	raw := e[key]
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshal extension %q: %w", key, err)
	}
	return true, nil
}

// Extension decodes the value at key as a T. Absent keys yield the zero T.
func Extension[T any](e ExtensionState, key string) (T, bool, error) {
	var v T
	found, err := e.Get(key, &v)
	return v, found, err
}

func (e ExtensionState) Delete(key string) {
	delete(e, key)
}
