// SPDX-License-Identifier: Apache-2.0

package pgschema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlgateway/core/pkg/schema"
)

func TestTableKind(t *testing.T) {
	assert.Equal(t, schema.KindView, tableKind("VIEW"))
	assert.Equal(t, schema.KindTable, tableKind("BASE TABLE"))
}

func TestPgConfAction(t *testing.T) {
	assert.Equal(t, "CASCADE", pgConfAction("c"))
	assert.Equal(t, "NO ACTION", pgConfAction("a"))
	assert.Equal(t, "x", pgConfAction("x"))
}

func TestAllIn(t *testing.T) {
	set := map[string]bool{"a": true, "b": true}
	assert.True(t, allIn([]string{"a", "b"}, set))
	assert.False(t, allIn([]string{"a", "c"}, set))
}
