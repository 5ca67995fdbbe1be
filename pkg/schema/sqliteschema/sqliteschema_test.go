// SPDX-License-Identifier: Apache-2.0

package sqliteschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentEscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"users"`, quoteIdent("users"))
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}

func TestAllIn(t *testing.T) {
	set := map[string]bool{"a": true}
	assert.True(t, allIn([]string{"a"}, set))
	assert.False(t, allIn([]string{"a", "b"}, set))
}
