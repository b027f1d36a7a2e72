package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata represents a flexible key-value store for additional data, stored as JSON in the database.
// It implements the sql.Scanner and driver.Valuer interfaces to handle database serialization.
type Metadata map[string]any

// Scan implements the sql.Scanner interface, allowing Metadata to be read from the database.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if *m == nil {
		*m = make(Metadata)
	}
	return nil
}

// Value implements the driver.Valuer interface, allowing Metadata to be written to the database.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(raw), nil
}

// JSONList is a slice stored as a JSON array column (headers, params, tags, names...).
// A NULL or empty column scans into an empty, non-nil slice.
type JSONList[T any] []T

// Scan implements the sql.Scanner interface.
func (l *JSONList[T]) Scan(value interface{}) error {
	if value == nil {
		*l = JSONList[T]{}
		return nil
	}

	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("unmarshalling json list: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	*l = items
	return nil
}

// Value implements the driver.Valuer interface.
func (l JSONList[T]) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]T(l))
	if err != nil {
		return nil, fmt.Errorf("marshalling json list: %w", err)
	}
	return string(raw), nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return []byte("null"), nil
		}
		return v, nil
	case string:
		if v == "" {
			return []byte("null"), nil
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
