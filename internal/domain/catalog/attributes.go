package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Well-known attribute keys read by the sync engine. Every other key arrives
// from the feed with a feed-defined label and is stored verbatim.
const (
	// AttrParentID marks an item as a variant of another item. The value is
	// the parent's external identifier.
	AttrParentID = "parent_external_id"
)

// NullGUID is the source system's "no reference" sentinel. A parent reference
// equal to this value means the item has no parent.
const NullGUID = "00000000-0000-0000-0000-000000000000"

// AttributeMap is a dynamic key-value container for feed-defined item
// attributes (brand, material, size, color, ...). Stored as JSONB.
type AttributeMap map[string]string

// Value implements driver.Valuer for GORM
func (m AttributeMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for GORM
func (m *AttributeMap) Scan(value interface{}) error {
	if value == nil {
		*m = AttributeMap{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attribute column type %T", value)
	}

	if len(data) == 0 {
		*m = AttributeMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Clone returns a deep copy of the map
func (m AttributeMap) Clone() AttributeMap {
	clone := make(AttributeMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
