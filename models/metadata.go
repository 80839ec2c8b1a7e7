package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	MaxMetadataKeys   = 50
	MaxMetadataKeyLen = 100
	MaxMetadataBytes  = 8 << 10
)

var (
	ErrMetadataTooLarge  = errors.New("metadata exceeds size limit")
	ErrMetadataNotObject = errors.New("metadata must be a JSON object")
)

// Metadata is a small free-form JSON object attached to an event. Values
// are kept as raw JSON so they round-trip exactly.
type Metadata map[string]json.RawMessage

// NewMetadata encodes each value of m as JSON.
func NewMetadata(m map[string]any) (Metadata, error) {
	out := make(Metadata, len(m))
	for k, v := range m {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// UnmarshalJSON only accepts a JSON object or null.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrMetadataNotObject
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// Validate enforces the key count, key length and encoded size limits.
func (m Metadata) Validate() error {
	if len(m) > MaxMetadataKeys {
		return fmt.Errorf("metadata may contain at most %d keys", MaxMetadataKeys)
	}
	size := 2
	for k, v := range m {
		if k == "" || utf8.RuneCountInString(k) > MaxMetadataKeyLen {
			return fmt.Errorf("metadata keys must be 1-%d characters", MaxMetadataKeyLen)
		}
		if !json.Valid(v) {
			return fmt.Errorf("metadata %q is not valid JSON", k)
		}
		size += len(k) + len(v) + 4
	}
	if size > MaxMetadataBytes {
		return ErrMetadataTooLarge
	}
	return nil
}

// String returns the value under key if it is a JSON string.
func (m Metadata) String(key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Encode renders the metadata as a JSON object, "{}" when empty.
func (m Metadata) Encode() string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]json.RawMessage(m))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DecodeMetadata parses a stored JSON object. Invalid input yields an empty map.
func DecodeMetadata(s string) Metadata {
	out := Metadata{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return Metadata{}
	}
	return out
}
