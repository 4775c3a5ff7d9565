package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ImageKeyShape names a stored representation of a visit's image keys.
// Records written over time used several; readers accept all of them.
type ImageKeyShape string

const (
	// ShapeAbsent is a missing attribute or JSON null.
	ShapeAbsent ImageKeyShape = "absent"
	// ShapeList is a JSON array of strings.
	ShapeList ImageKeyShape = "list"
	// ShapeSet is a string-set wrapper: {"values": [...]}.
	ShapeSet ImageKeyShape = "set"
	// ShapeJSONString is a string that itself holds a JSON array.
	ShapeJSONString ImageKeyShape = "json_string"
	// ShapeCommaString is a comma-separated string.
	ShapeCommaString ImageKeyShape = "comma_string"
	// ShapeUnknown is anything else; it normalizes to no keys.
	ShapeUnknown ImageKeyShape = "unknown"
)

type setWrapper struct {
	Values []any `json:"values"`
}

// ImageKeys normalizes a raw stored image-key attribute into an ordered list of
// object keys. Entries are trimmed; non-strings, empties and repeats are dropped.
func ImageKeys(raw json.RawMessage) ([]string, ImageKeyShape) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, ShapeAbsent
	}

	switch raw[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return []string{}, ShapeUnknown
		}
		return cleanKeys(items), ShapeList

	case '{':
		var set setWrapper
		if err := json.Unmarshal(raw, &set); err != nil || set.Values == nil {
			return []string{}, ShapeUnknown
		}
		return cleanKeys(set.Values), ShapeSet

	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return []string{}, ShapeUnknown
		}
		return stringImageKeys(s)
	}

	return []string{}, ShapeUnknown
}

// stringImageKeys handles a string attribute, which is either an encoded JSON
// array or a comma-separated list.
func stringImageKeys(s string) ([]string, ImageKeyShape) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") {
		var items []any
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return cleanKeys(items), ShapeJSONString
		}
	}

	parts := strings.Split(s, ",")
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return cleanKeys(items), ShapeCommaString
}

// KeyList applies the same cleanup to an already-typed list of keys.
func KeyList(keys []string) []string {
	items := make([]any, len(keys))
	for i, k := range keys {
		items[i] = k
	}
	return cleanKeys(items)
}

func cleanKeys(items []any) []string {
	keys := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		keys = append(keys, s)
	}
	return keys
}
