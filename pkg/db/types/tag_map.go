package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TagMap stores structured artwork tags (key -> string|number) as JSONB.
type TagMap map[string]any

func (m *TagMap) Scan(src any) error {
	if src == nil {
		*m = TagMap{}
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return m.parse(v)
	case string:
		return m.parse([]byte(v))
	default:
		return fmt.Errorf("TagMap: unsupported Scan type %T", src)
	}
}

func (m TagMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("TagMap: marshal: %w", err)
	}
	return string(encoded), nil
}

func (m *TagMap) parse(raw []byte) error {
	if len(raw) == 0 {
		*m = TagMap{}
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("TagMap: unmarshal: %w", err)
	}
	*m = out
	return nil
}

// Merge returns a copy of m with the entries of other layered on top.
// Incoming values win on key collision.
func (m TagMap) Merge(other TagMap) TagMap {
	merged := make(TagMap, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
