// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/sqlgateway/core/pkg/connspec"
	"github.com/sqlgateway/core/pkg/gwerrors"
)

func TestRegisterDirectAndResolve(t *testing.T) {
	r := New()
	defer r.Close()

	spec, err := connspec.Parse("sqlite::memory:?writable=true")
	require.NoError(t, err)
	spec.ID = "main"

	desc, err := r.Register(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "main", desc.ID)
	assert.False(t, desc.ServerLevel)
	assert.True(t, desc.Writable)

	lease, err := r.Resolve(context.Background(), "main", "")
	require.NoError(t, err)
	require.NotNil(t, lease.DB)
	assert.True(t, lease.Writable)
	lease.Release()
}

func TestRegisterDuplicateIDRejected(t *testing.T) {
	r := New()
	defer r.Close()

	spec, err := connspec.Parse("sqlite::memory:")
	require.NoError(t, err)
	spec.ID = "main"

	_, err = r.Register(context.Background(), spec)
	require.NoError(t, err)

	_, err = r.Register(context.Background(), spec)
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindConnection, gwerr.Kind)
}

func TestResolveUnknownConnectionFails(t *testing.T) {
	r := New()
	defer r.Close()

	_, err := r.Resolve(context.Background(), "nope", "")
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindConnection, gwerr.Kind)
}

func TestDirectConnectionRejectsDatabaseOverride(t *testing.T) {
	r := New()
	defer r.Close()

	spec, err := connspec.Parse("sqlite::memory:")
	require.NoError(t, err)
	spec.ID = "main"
	spec.Database = "main"
	_, err = r.Register(context.Background(), spec)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "main", "other")
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindConnection, gwerr.Kind)
}
