package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashUsesFixedSalt(t *testing.T) {
	for _, pw := range []string{"test", "password", "hello", "mypass123"} {
		hash, err := Hash(pw)
		require.NoError(t, err)
		assert.Len(t, hash, 13, pw)
		assert.Equal(t, Salt, hash[:2], pw)
		assert.True(t, IsHashed(hash), pw)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := Hash("testpass")
	require.NoError(t, err)

	assert.True(t, CheckPassword("testpass", hash))
	assert.False(t, CheckPassword("wrongpass", hash))
	assert.False(t, CheckPassword("", hash))
	assert.False(t, CheckPassword("testpass", "X"))
}

func TestCheckPasswordDifferentSalts(t *testing.T) {
	for _, salt := range []string{"XX", "ab", "Ax", "..", "//"} {
		hash, err := Crypt("mushpassword", salt)
		require.NoError(t, err)
		assert.True(t, CheckPassword("mushpassword", hash), salt)
	}
}

func TestIsHashed(t *testing.T) {
	assert.True(t, IsHashed("$SHA1$abcd$efgh"))
	assert.False(t, IsHashed("potrzebie"))
	assert.False(t, IsHashed("has spaces in!"))
	assert.False(t, IsHashed(""))
}
