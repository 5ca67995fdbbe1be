// SPDX-License-Identifier: Apache-2.0

package values

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemporalKind refines CategoryTemporal into the four shapes the cell model
// distinguishes. It is irrelevant for every other Category.
type TemporalKind int

const (
	TemporalDate TemporalKind = iota
	TemporalTime
	TemporalTimestamp
	TemporalTimestampTZ
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05.999999999"
)

// Decode converts a raw value scanned out of a *sql.Rows (via Scan into an
// interface{}) into the neutral Cell model, dispatching purely on the
// driver-reported column category. Decoding never consults the textual
// declared type string. Values of a category this function does not know
// how to narrow degrade to text using the driver's own string form, never
// silently truncated.
func Decode(cat Category, temporal TemporalKind, raw interface{}) (Cell, error) {
	if raw == nil {
		return Null, nil
	}

	switch cat {
	case CategoryBoolean:
		return decodeBool(raw)
	case CategoryInteger:
		return decodeInt64(raw)
	case CategoryUnsigned:
		return decodeUint64(raw)
	case CategoryFloat:
		return decodeFloat64(raw)
	case CategoryDecimal:
		return OfDecimal(stringify(raw)), nil
	case CategoryText:
		return OfText(stringify(raw)), nil
	case CategoryBinary:
		return decodeBinary(raw)
	case CategoryTemporal:
		return decodeTemporal(temporal, raw)
	case CategoryUUID:
		return decodeUUID(raw)
	case CategoryJSON:
		return OfJSON(json.RawMessage(toBytes(raw))), nil
	case CategoryArray:
		return decodeArray(raw)
	default:
		// CategoryOther and anything unrecognized: degrade to text using the
		// driver's own string form, never silently truncated.
		return OfText(stringify(raw)), nil
	}
}

func decodeBool(raw interface{}) (Cell, error) {
	switch v := raw.(type) {
	case bool:
		return Of(v), nil
	case int64:
		return Of(v != 0), nil
	case []byte:
		s := strings.TrimSpace(string(v))
		if s == "1" || strings.EqualFold(s, "t") || strings.EqualFold(s, "true") {
			return Of(true), nil
		}
		return Of(false), nil
	case string:
		return Of(v == "1" || strings.EqualFold(v, "t") || strings.EqualFold(v, "true")), nil
	default:
		return Cell{}, fmt.Errorf("values: cannot decode %T as boolean", raw)
	}
}

func decodeInt64(raw interface{}) (Cell, error) {
	switch v := raw.(type) {
	case int64:
		return OfInt64(v), nil
	case int:
		return OfInt64(int64(v)), nil
	case float64:
		return OfInt64(int64(v)), nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return Cell{}, fmt.Errorf("values: cannot decode %q as integer: %w", v, err)
		}
		return OfInt64(n), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Cell{}, fmt.Errorf("values: cannot decode %q as integer: %w", v, err)
		}
		return OfInt64(n), nil
	default:
		return Cell{}, fmt.Errorf("values: cannot decode %T as integer", raw)
	}
}

func decodeUint64(raw interface{}) (Cell, error) {
	switch v := raw.(type) {
	case uint64:
		return OfUint64(v), nil
	case int64:
		if v < 0 {
			return Cell{}, fmt.Errorf("values: negative value %d cannot decode as unsigned", v)
		}
		return OfUint64(uint64(v)), nil
	case []byte:
		n, err := strconv.ParseUint(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return Cell{}, fmt.Errorf("values: cannot decode %q as unsigned integer: %w", v, err)
		}
		return OfUint64(n), nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Cell{}, fmt.Errorf("values: cannot decode %q as unsigned integer: %w", v, err)
		}
		return OfUint64(n), nil
	default:
		return Cell{}, fmt.Errorf("values: cannot decode %T as unsigned integer", raw)
	}
}

func decodeFloat64(raw interface{}) (Cell, error) {
	switch v := raw.(type) {
	case float64:
		return OfFloat64(v), nil
	case float32:
		return OfFloat64(float64(v)), nil
	case int64:
		return OfFloat64(float64(v)), nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return Cell{}, fmt.Errorf("values: cannot decode %q as float: %w", v, err)
		}
		return OfFloat64(f), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Cell{}, fmt.Errorf("values: cannot decode %q as float: %w", v, err)
		}
		return OfFloat64(f), nil
	default:
		return Cell{}, fmt.Errorf("values: cannot decode %T as float", raw)
	}
}

func decodeBinary(raw interface{}) (Cell, error) {
	switch v := raw.(type) {
	case []byte:
		cp := make([]byte, len(v))
		copy(cp, v)
		return OfBlob(cp), nil
	case string:
		return OfBlob([]byte(v)), nil
	default:
		return Cell{}, fmt.Errorf("values: cannot decode %T as binary", raw)
	}
}

func decodeTemporal(kind TemporalKind, raw interface{}) (Cell, error) {
	t, err := toTime(raw)
	if err != nil {
		return Cell{}, err
	}
	switch kind {
	case TemporalDate:
		return Cell{Kind: KindDate, Text: t.Format(dateLayout)}, nil
	case TemporalTime:
		return Cell{Kind: KindTime, Text: t.Format(timeLayout)}, nil
	case TemporalTimestamp:
		return Cell{Kind: KindTimestamp, Text: t.Format(time.RFC3339Nano)}, nil
	case TemporalTimestampTZ:
		return Cell{Kind: KindTimestampTZ, Text: t.Format(time.RFC3339Nano)}, nil
	default:
		return Cell{}, fmt.Errorf("values: unknown temporal kind %d", kind)
	}
}

func toTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTimeString(string(v))
	case string:
		return parseTimeString(v)
	default:
		return time.Time{}, fmt.Errorf("values: cannot decode %T as a temporal value", raw)
	}
}

func parseTimeString(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"15:04:05.999999999",
		"15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("values: cannot parse %q as a temporal value", s)
}

func decodeUUID(raw interface{}) (Cell, error) {
	s := stringify(raw)
	id, err := uuid.Parse(s)
	if err != nil {
		return Cell{}, fmt.Errorf("values: cannot decode %q as uuid: %w", s, err)
	}
	return OfUUID(id), nil
}

func decodeArray(raw interface{}) (Cell, error) {
	// Backends surface arrays as their native textual array literal (e.g.
	// Postgres "{1,2,3}"). One pair of outer braces is stripped and the rest
	// is split on commas, each element becoming a trimmed text cell. Quoted
	// elements, escapes, nested arrays and JSON arrays are not parsed, and
	// elements are not decoded by their own element category.
	s := stringify(raw)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return OfArray(nil), nil
	}
	parts := strings.Split(s, ",")
	cells := make([]Cell, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, OfText(strings.TrimSpace(p)))
	}
	return OfArray(cells), nil
}

func stringify(raw interface{}) string {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toBytes(raw interface{}) []byte {
	switch v := raw.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}
