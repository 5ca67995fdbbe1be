// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// validateParamsAgainstSchema compiles schemaPath and validates raw (the
// decoded --params JSON array) against it, grounded on the teacher's own
// jsonschema.MustCompile(schemaPath)/sch.Validate pattern for validating
// migration JSON against schema.json — reused here to let a caller pin down
// the shape of a statement's bound parameters ahead of binding.
func validateParamsAgainstSchema(schemaPath, raw string) error {
	if schemaPath == "" {
		return nil
	}

	sch, err := jsonschema.NewCompiler().Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("compiling params schema %s: %w", schemaPath, err)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("--params must be a JSON array: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("params do not match %s: %w", schemaPath, err)
	}
	return nil
}
