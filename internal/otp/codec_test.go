package otp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecGenerate(t *testing.T) {
	codec := New("test-secret", 6, "")

	code, salt, hash, err := codec.Generate()
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9')
	}
	require.NotEmpty(t, salt)
	require.NotEqual(t, code, hash)
	require.NotContains(t, hash, code)
}

func TestCodecIndependentCodes(t *testing.T) {
	codec := New("test-secret", 6, "")

	_, salt1, hash1, err := codec.Generate()
	require.NoError(t, err)
	_, salt2, hash2, err := codec.Generate()
	require.NoError(t, err)

	require.NotEqual(t, salt1, salt2)
	require.NotEqual(t, hash1, hash2)
}

func TestCodecVerify(t *testing.T) {
	codec := New("test-secret", 6, "")

	code, salt, hash, err := codec.Generate()
	require.NoError(t, err)

	require.True(t, codec.Verify(code, salt, hash))
	require.False(t, codec.Verify("000000", salt, hash))
	require.False(t, codec.Verify(code, "wrong-salt", hash))
}

func TestCodecVerifyDifferentSecret(t *testing.T) {
	codec := New("secret-a", 6, "")
	other := New("secret-b", 6, "")

	code, salt, hash, err := codec.Generate()
	require.NoError(t, err)
	require.False(t, other.Verify(code, salt, hash))
}

func TestCodecMasterOverride(t *testing.T) {
	codec := New("test-secret", 6, "999999")

	_, salt, hash, err := codec.Generate()
	require.NoError(t, err)
	require.True(t, codec.Verify("999999", salt, hash))

	disabled := New("test-secret", 6, "")
	require.False(t, disabled.Verify("999999", salt, hash))
}
