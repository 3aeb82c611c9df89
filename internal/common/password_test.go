// File: internal/common/password_test.go
package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordFormat(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	assert.Contains(t, hash, "m=102400,t=3,p=8")
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct-horse-battery", hash))
	assert.False(t, CheckPasswordHash("wrong-password", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestCheckPasswordHashMalformed(t *testing.T) {
	assert.False(t, CheckPasswordHash("anything", "not-a-hash"))
	assert.False(t, CheckPasswordHash("anything", "$argon2id$v=19$m=bad$x$y"))
	assert.False(t, CheckPasswordHash("anything", ""))

	// Wrong algorithm or version never verifies, even with valid segments.
	hash, err := HashPassword("anything")
	require.NoError(t, err)
	assert.False(t, CheckPasswordHash("anything", strings.Replace(hash, "$argon2id$", "$argon2i$", 1)))
	assert.False(t, CheckPasswordHash("anything", strings.Replace(hash, "$v=19$", "$v=18$", 1)))
}

func TestHashesAreSalted(t *testing.T) {
	first, err := HashPassword("same-password-twice")
	require.NoError(t, err)
	second, err := HashPassword("same-password-twice")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.True(t, CheckPasswordHash("same-password-twice", first))
	assert.True(t, CheckPasswordHash("same-password-twice", second))
}
