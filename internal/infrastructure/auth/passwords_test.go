package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correct-h0rse"))

	assert.Error(t, ValidatePassword("short1!"), "过短")
	assert.Error(t, ValidatePassword("onlyletters!"), "缺少数字")
	assert.Error(t, ValidatePassword("123456789!"), "缺少字母")
	assert.Error(t, ValidatePassword("letters12345"), "缺少特殊字符")
}

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("correct-h0rse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "pbkdf2_sha256$"))

	assert.True(t, VerifyPassword("correct-h0rse", encoded))
	assert.False(t, VerifyPassword("wrong-h0rse!", encoded))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, err := HashPassword("correct-h0rse")
	require.NoError(t, err)
	second, err := HashPassword("correct-h0rse")
	require.NoError(t, err)

	// 相同口令因随机盐得到不同哈希
	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("correct-h0rse", first))
	assert.True(t, VerifyPassword("correct-h0rse", second))
}

func TestVerifyPasswordMalformed(t *testing.T) {
	assert.False(t, VerifyPassword("anything", ""))
	assert.False(t, VerifyPassword("anything", "bcrypt$whatever"))
	assert.False(t, VerifyPassword("anything", "pbkdf2_sha256$abc$salt$hash"))
}
