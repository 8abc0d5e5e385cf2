package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_EmailUniqueness(t *testing.T) {
	mem := NewMemory()

	first := User{Email: "A@X.com"}
	require.NoError(t, mem.Insert(t.Context(), &first))
	assert.Equal(t, "a@x.com", first.Email, "emails are stored lower-cased")

	dup := User{Email: "a@x.com"}
	assert.ErrorIs(t, mem.Insert(t.Context(), &dup), ErrDuplicateKey)
}

func TestMemory_RemoteIDUniqueness(t *testing.T) {
	mem := NewMemory()

	require.NoError(t, mem.Insert(t.Context(), &User{Email: "a@x.com", RemoteID: "r1"}))
	err := mem.Insert(t.Context(), &User{Email: "b@x.com", RemoteID: "r1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// Multiple local-only records (no remote id) are fine.
	require.NoError(t, mem.Insert(t.Context(), &User{Email: "c@x.com"}))
	require.NoError(t, mem.Insert(t.Context(), &User{Email: "d@x.com"}))
}

func TestMemory_ClaimSemantics(t *testing.T) {
	mem := NewMemory()

	seeded := User{Email: "a@x.com"}
	require.NoError(t, mem.Insert(t.Context(), &seeded))

	require.NoError(t, mem.Claim(t.Context(), seeded.LocalID, "r1"))

	// Already linked: the filter no longer matches.
	assert.ErrorIs(t, mem.Claim(t.Context(), seeded.LocalID, "r2"), ErrNotFound)

	other := User{Email: "b@x.com"}
	require.NoError(t, mem.Insert(t.Context(), &other))
	assert.ErrorIs(t, mem.Claim(t.Context(), other.LocalID, "r1"), ErrDuplicateKey)
}

func TestMemory_ListLocalOnly(t *testing.T) {
	mem := NewMemory()

	require.NoError(t, mem.Insert(t.Context(), &User{Email: "linked@x.com", RemoteID: "r1"}))
	require.NoError(t, mem.Insert(t.Context(), &User{Email: "seed@x.com"}))

	locals, err := mem.ListLocalOnly(t.Context())
	require.NoError(t, err)
	require.Len(t, locals, 1)
	assert.Equal(t, "seed@x.com", locals[0].Email)
}

func TestMemory_SetInactive(t *testing.T) {
	mem := NewMemory()

	require.NoError(t, mem.Insert(t.Context(), &User{Email: "a@x.com", RemoteID: "r1"}))
	require.NoError(t, mem.SetInactive(t.Context(), "r1", true))

	rec, err := mem.FindByRemoteID(t.Context(), "r1")
	require.NoError(t, err)
	assert.True(t, rec.Inactive)

	assert.ErrorIs(t, mem.SetInactive(t.Context(), "missing", true), ErrNotFound)
}
