package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "siwarga/pkg/domain-errors"
)

func TestRoleRanking(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleRW))
	assert.True(t, RoleRW.AtLeast(RoleRT))
	assert.True(t, RoleRT.AtLeast(RoleWarga))
	assert.True(t, RoleRT.AtLeast(RoleRT))
	assert.False(t, RoleWarga.AtLeast(RoleRT))
	assert.False(t, RoleRT.AtLeast(RoleRW))
	assert.False(t, Role("KADES").AtLeast(RoleWarga))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" rt ")
	require.NoError(t, err)
	assert.Equal(t, RoleRT, r)

	_, err = ParseRole("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseRole("lurah")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewLocality(t *testing.T) {
	l, err := NewLocality("5", "02")
	require.NoError(t, err)
	assert.Equal(t, Locality{RTNumber: "005", RWNumber: "002"}, l)
	assert.True(t, l.Equal(Locality{RTNumber: "005", RWNumber: "002"}))
	assert.False(t, l.Equal(Locality{RTNumber: "005", RWNumber: "003"}))

	_, err = NewLocality("", "002")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewLocality("1000", "002")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
