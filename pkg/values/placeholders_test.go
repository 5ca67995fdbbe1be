// SPDX-License-Identifier: Apache-2.0

package values_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/values"
)

func TestCheckPlaceholders_Dollar(t *testing.T) {
	err := values.CheckPlaceholders("SELECT $1::int + $2::int", backend.PlaceholderDollar, 2)
	assert.NoError(t, err)
}

func TestCheckPlaceholders_WrongFormRejected(t *testing.T) {
	err := values.CheckPlaceholders("SELECT ? + ?", backend.PlaceholderDollar, 2)
	assert.Error(t, err)
}

func TestCheckPlaceholders_CountMismatch(t *testing.T) {
	err := values.CheckPlaceholders("SELECT ?, ?", backend.PlaceholderQuestion, 1)
	assert.Error(t, err)
}

func TestCheckPlaceholders_IgnoresStringLiteralsAndComments(t *testing.T) {
	sql := "SELECT '?' /* ? */ , ? -- trailing ?\n FROM t"
	err := values.CheckPlaceholders(sql, backend.PlaceholderQuestion, 1)
	assert.NoError(t, err)
}
