package monrsa

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Small keys keep the tests fast; the codec is size-independent.
const testKeyBits = 512

func TestGenerate(t *testing.T) {
	key, err := Generate(testKeyBits)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(65537), key.E())
	assert.GreaterOrEqual(t, key.N().BitLen(), testKeyBits-1)

	t.Run("zero bits falls back to default", func(t *testing.T) {
		key, err := Generate(0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, key.N().BitLen(), DefaultKeyBits-1)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := Generate(testKeyBits)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		for _, plain := range []string{"observer", "s3cret-pa55word", "a", "tabs\tand spaces"} {
			cipher, err := key.Encrypt(plain)
			require.NoError(t, err)
			assert.NotEqual(t, plain, cipher)

			got, err := key.Decrypt(cipher)
			require.NoError(t, err)
			assert.Equal(t, plain, got)
		}
	})

	t.Run("ciphertext is decimal", func(t *testing.T) {
		cipher, err := key.Encrypt("observer")
		require.NoError(t, err)
		assert.Empty(t, strings.Trim(cipher, "0123456789"))
	})

	t.Run("public half encrypts for private half", func(t *testing.T) {
		pub := NewPublic(key.E(), key.N())
		cipher, err := pub.Encrypt("observer")
		require.NoError(t, err)

		got, err := key.Decrypt(cipher)
		require.NoError(t, err)
		assert.Equal(t, "observer", got)
	})

	t.Run("public half cannot decrypt", func(t *testing.T) {
		pub := NewPublic(key.E(), key.N())
		_, err := pub.Decrypt("12345")
		assert.ErrorIs(t, err, ErrNoPrivateKey)
	})

	t.Run("non-numeric input is not ciphertext", func(t *testing.T) {
		for _, input := range []string{"observer", "", "12a4", "-  3"} {
			_, err := key.Decrypt(input)
			assert.ErrorIs(t, err, ErrNotCiphertext, "input %q", input)
		}
	})

	t.Run("message longer than modulus", func(t *testing.T) {
		long := strings.Repeat("x", testKeyBits/8+1)
		_, err := key.Encrypt(long)
		assert.ErrorIs(t, err, ErrMessageTooLong)
	})
}

func TestAccessorsReturnCopies(t *testing.T) {
	key, err := Generate(testKeyBits)
	require.NoError(t, err)

	n := key.N()
	n.SetInt64(1)
	assert.NotEqual(t, int64(1), key.N().Int64())
}
