// SPDX-License-Identifier: Apache-2.0

// Package values implements the backend-neutral cell value model (§3, §4.A
// of the gateway specification) and the dialect-aware parameter binder.
package values

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the closed tag of the Cell union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindFloat64
	KindText
	KindBlob
	KindDecimal     // arbitrary-precision, carried as its canonical decimal string
	KindDate        // "2006-01-02"
	KindTime        // "15:04:05(.999999999)?"
	KindTimestamp   // RFC3339 without offset information implied by the backend
	KindTimestampTZ // RFC3339 with an explicit offset
	KindUUID
	KindJSON
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cell is a tagged union over every value category a column may decode to.
// Only the field(s) relevant to Kind are meaningful; the rest are zero.
type Cell struct {
	Kind Kind

	Bool    bool
	Int64   int64
	Uint64  uint64
	Float64 float64

	// Text carries KindText, KindDecimal (canonical decimal string),
	// KindDate/KindTime/KindTimestamp/KindTimestampTZ (ISO-8601 strings) and
	// KindUUID (canonical hyphenated form).
	Text string

	Blob []byte
	JSON json.RawMessage

	Array []Cell
}

// Null is the zero-value representation of SQL NULL.
var Null = Cell{Kind: KindNull}

func Of(v bool) Cell     { return Cell{Kind: KindBool, Bool: v} }
func OfInt64(v int64) Cell   { return Cell{Kind: KindInt64, Int64: v} }
func OfUint64(v uint64) Cell { return Cell{Kind: KindUint64, Uint64: v} }
func OfFloat64(v float64) Cell { return Cell{Kind: KindFloat64, Float64: v} }
func OfText(v string) Cell     { return Cell{Kind: KindText, Text: v} }
func OfBlob(v []byte) Cell     { return Cell{Kind: KindBlob, Blob: v} }
func OfDecimal(v string) Cell  { return Cell{Kind: KindDecimal, Text: v} }
func OfUUID(v uuid.UUID) Cell  { return Cell{Kind: KindUUID, Text: v.String()} }
func OfJSON(v json.RawMessage) Cell { return Cell{Kind: KindJSON, JSON: v} }
func OfArray(v []Cell) Cell    { return Cell{Kind: KindArray, Array: v} }

// IsNull reports whether the cell represents SQL NULL.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Equal reports equality under the category's own equivalence relation:
// numeric kinds compare numerically, JSON compares after normalization,
// everything else compares by its canonical textual/byte form.
func (c Cell) Equal(other Cell) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case KindNull:
		return true
	case KindBool:
		return c.Bool == other.Bool
	case KindInt64:
		return c.Int64 == other.Int64
	case KindUint64:
		return c.Uint64 == other.Uint64
	case KindFloat64:
		return c.Float64 == other.Float64
	case KindBlob:
		return string(c.Blob) == string(other.Blob)
	case KindJSON:
		return jsonEqual(c.JSON, other.JSON)
	case KindArray:
		if len(c.Array) != len(other.Array) {
			return false
		}
		for i := range c.Array {
			if !c.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	default:
		return c.Text == other.Text
	}
}

func jsonEqual(a, b json.RawMessage) bool {
	var va, vb interface{}
	if err := json.Unmarshal(a, &va); err != nil {
		return string(a) == string(b)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return string(a) == string(b)
	}
	na, errA := json.Marshal(va)
	nb, errB := json.Marshal(vb)
	if errA != nil || errB != nil {
		return string(a) == string(b)
	}
	return string(na) == string(nb)
}
