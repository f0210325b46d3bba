package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	r, err = ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRole_In(t *testing.T) {
	assert.True(t, RoleAdmin.In(RoleAdmin))
	assert.False(t, RoleUser.In(RoleAdmin))
	assert.True(t, RoleUser.In(RoleUser, RoleAdmin))
	assert.False(t, RoleUnknown.In(RoleUnknown))
	assert.Equal(t, "admin", RoleAdmin.String())
}
