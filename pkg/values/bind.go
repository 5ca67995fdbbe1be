// SPDX-License-Identifier: Apache-2.0

package values

import (
	"fmt"

	"github.com/google/uuid"
)

// Bind converts a neutral Cell into the native Go value the database/sql
// driver expects as a query argument. Integer widening (an integer cell
// bound against a decimal/float parameter) is lossless and handled by the
// driver's own conversion once the argument reaches it; Bind's job is only
// to produce a value of a type database/sql recognizes natively.
func Bind(c Cell) (interface{}, error) {
	switch c.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return c.Bool, nil
	case KindInt64:
		return c.Int64, nil
	case KindUint64:
		// database/sql has no native uint64 arg type; large unsigned values
		// are passed as their decimal text form so the driver/column can
		// parse them without silent truncation.
		if c.Uint64 <= 1<<63-1 {
			return int64(c.Uint64), nil
		}
		return fmt.Sprintf("%d", c.Uint64), nil
	case KindFloat64:
		return c.Float64, nil
	case KindText, KindDecimal, KindDate, KindTime, KindTimestamp, KindTimestampTZ:
		return c.Text, nil
	case KindBlob:
		return c.Blob, nil
	case KindUUID:
		id, err := uuid.Parse(c.Text)
		if err != nil {
			return nil, fmt.Errorf("values: invalid uuid cell %q: %w", c.Text, err)
		}
		return id.String(), nil
	case KindJSON:
		return []byte(c.JSON), nil
	case KindArray:
		return nil, fmt.Errorf("values: array parameters must be bound through a backend-specific array type, not the generic binder")
	default:
		return nil, fmt.Errorf("values: cannot bind cell of kind %s", c.Kind)
	}
}

// BindAll binds a slice of cells in order, failing on the first error.
func BindAll(cells []Cell) ([]interface{}, error) {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		v, err := Bind(c)
		if err != nil {
			return nil, fmt.Errorf("values: parameter %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
