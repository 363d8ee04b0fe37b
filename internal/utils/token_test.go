package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomTokenIsURLSafe(t *testing.T) {
	token, err := GenerateRandomToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 43)
	assert.NotContainsf(t, token, "+", "token must survive a query string unescaped")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	other, err := GenerateRandomToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}
