// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sqlgateway/core/pkg/executor"
	"github.com/sqlgateway/core/pkg/values"
)

type rowsOutput struct {
	Columns []executor.Column `json:"columns"`
	Rows    [][]interface{}   `json:"rows"`
}

func printResult(result executor.Result) error {
	out := rowsOutput{Columns: result.Columns, Rows: make([][]interface{}, len(result.Rows))}
	for i, row := range result.Rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cellToJSON(cell)
		}
		out.Rows[i] = cells
	}
	return printJSON(out)
}

func printExecResult(result executor.ExecResult) error {
	return printJSON(struct {
		RowsAffected int64  `json:"rows_affected"`
		LastInsertID *int64 `json:"last_insert_id,omitempty"`
	}{result.RowsAffected, result.LastInsertID})
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// cellToJSON renders a Cell as a plain value suitable for json.Marshal,
// matching the kind's canonical textual form where the Cell model itself
// carries one (§3).
func cellToJSON(c values.Cell) interface{} {
	switch c.Kind {
	case values.KindNull:
		return nil
	case values.KindBool:
		return c.Bool
	case values.KindInt64:
		return c.Int64
	case values.KindUint64:
		return c.Uint64
	case values.KindFloat64:
		return c.Float64
	case values.KindBlob:
		return c.Blob
	case values.KindJSON:
		return json.RawMessage(c.JSON)
	case values.KindArray:
		out := make([]interface{}, len(c.Array))
		for i, el := range c.Array {
			out[i] = cellToJSON(el)
		}
		return out
	default:
		return c.Text
	}
}
