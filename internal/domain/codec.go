package domain

import (
	"encoding/json"
	"fmt"
)

// The store and cache move collections around as opaque raw sequences; the
// typed view only exists at the business-operation boundary. These codecs
// are the single place where raw and typed representations meet.

// DecodeRecords unmarshals every raw record in a collection sequence into T.
func DecodeRecords[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// EncodeRecords marshals typed records back into a raw collection sequence.
func EncodeRecords[T any](records []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(records))
	for i := range records {
		b, err := json.Marshal(records[i])
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		out = append(out, json.RawMessage(b))
	}
	return out, nil
}

// CloneRecords deep-copies a raw sequence. Load-bearing for the cache's
// copy-on-read/copy-on-write contract: callers must never share backing
// arrays with cache internals.
func CloneRecords(raw []json.RawMessage) []json.RawMessage {
	if raw == nil {
		return []json.RawMessage{}
	}
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		cp := make(json.RawMessage, len(r))
		copy(cp, r)
		out[i] = cp
	}
	return out
}
