// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sqlgateway/core/pkg/values"
)

// parseParams decodes a JSON array of scalars (the CLI's bound-parameter
// syntax) into the neutral Cell model the executor binds through (§4.A).
func parseParams(raw string) ([]values.Cell, error) {
	if raw == "" {
		return nil, nil
	}

	var in []interface{}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("--params must be a JSON array: %w", err)
	}

	out := make([]values.Cell, len(in))
	for i, v := range in {
		cell, err := cellOf(v)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i+1, err)
		}
		out[i] = cell
	}
	return out, nil
}

func cellOf(v interface{}) (values.Cell, error) {
	switch t := v.(type) {
	case nil:
		return values.Null, nil
	case bool:
		return values.Of(t), nil
	case string:
		return values.OfText(t), nil
	case float64:
		if t == float64(int64(t)) {
			return values.OfInt64(int64(t)), nil
		}
		return values.OfFloat64(t), nil
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return values.Cell{}, err
		}
		return values.OfJSON(encoded), nil
	}
}
