package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box := NewBox(testSecret)

	env, err := box.Encrypt("hello world", "")
	require.NoError(t, err)
	assert.Equal(t, Algorithm, env.Algorithm)
	assert.Len(t, env.IV, ivLength*2)
	assert.NotEmpty(t, env.Encrypted)

	plain, err := box.Decrypt(env, "")
	require.NoError(t, err)
	assert.Equal(t, "hello world", plain)
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	box := NewBox(testSecret)
	_, err := box.Encrypt("", "")
	assert.ErrorIs(t, err, ErrEmptyPlaintext)
}

func TestEncryptFreshIVPerCall(t *testing.T) {
	box := NewBox(testSecret)

	a, err := box.Encrypt("same plaintext", "")
	require.NoError(t, err)
	b, err := box.Encrypt("same plaintext", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Encrypted, b.Encrypted)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	box := NewBox(testSecret)

	env, err := box.Encrypt("secret payload", "key-one")
	require.NoError(t, err)

	plain, err := box.Decrypt(env, "key-two")
	if err == nil {
		// CBC with random padding can occasionally unpad cleanly; the
		// recovered text must still differ.
		assert.NotEqual(t, "secret payload", plain)
		return
	}
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsMalformedEnvelope(t *testing.T) {
	box := NewBox(testSecret)

	_, err := box.Decrypt(nil, "")
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, err = box.Decrypt(&Envelope{IV: "", Encrypted: "abcd"}, "")
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, err = box.Decrypt(&Envelope{IV: "zz", Encrypted: "abcd"}, "")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestObjectRoundTrip(t *testing.T) {
	box := NewBox(testSecret)

	in := map[string]any{"name": "alice", "count": float64(3)}
	env, err := box.EncryptObject(in, "")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, box.DecryptObject(env, "", &out))
	assert.Equal(t, in, out)
}

func TestResolveKeyHeuristic(t *testing.T) {
	rawHex := strings.Repeat("ab", 32)
	key := ResolveKey(rawHex)
	decoded, err := hex.DecodeString(rawHex)
	require.NoError(t, err)
	assert.Equal(t, decoded, key, "64 hex chars should be used as a raw key")

	hashed := ResolveKey("not-a-hex-key")
	assert.Len(t, hashed, keyLength, "non-hex keys should be hashed to 32 bytes")
	assert.NotEqual(t, []byte("not-a-hex-key"), hashed)

	// 64 characters but not valid hex falls through to hashing.
	notHex := strings.Repeat("zz", 32)
	assert.Len(t, ResolveKey(notHex), keyLength)
	assert.NotEqual(t, ResolveKey(rawHex), ResolveKey(notHex))
}

func TestHash(t *testing.T) {
	digest, err := Hash("hello")
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", digest)

	_, err = Hash("")
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestHMACCreateAndVerify(t *testing.T) {
	mac, err := CreateHMAC("payload", "secret")
	require.NoError(t, err)
	assert.Len(t, mac, 64)

	ok, err := VerifyHMAC("payload", "secret", mac)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyHMAC("tampered", "secret", mac)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = VerifyHMAC("payload", "other-secret", mac)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = VerifyHMAC("payload", "secret", "not-hex")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CreateHMAC("", "secret")
	assert.ErrorIs(t, err, ErrMissingHMACArgs)
	_, err = CreateHMAC("payload", "")
	assert.ErrorIs(t, err, ErrMissingHMACArgs)
}

func TestDeriveUserKeyDeterministic(t *testing.T) {
	box := NewBox(testSecret)

	k1 := box.DeriveUserKey("user-1", "")
	k2 := box.DeriveUserKey("user-1", "")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	assert.NotEqual(t, k1, box.DeriveUserKey("user-2", ""))
	assert.NotEqual(t, k1, box.DeriveUserKey("user-1", "other-master"))
}

func TestGenerateUserKeyNonDeterministic(t *testing.T) {
	k1, err := GenerateUserKey("user-1")
	require.NoError(t, err)
	k2, err := GenerateUserKey("user-1")
	require.NoError(t, err)

	assert.Len(t, k1, 64)
	assert.NotEqual(t, k1, k2)
}

func TestEncryptForUserRoundTrip(t *testing.T) {
	box := NewBox(testSecret)

	env, err := box.EncryptForUser("user-1", "per-user data", "")
	require.NoError(t, err)

	plain, err := box.DecryptForUser("user-1", env, "")
	require.NoError(t, err)
	assert.Equal(t, "per-user data", plain)

	// Same envelope under another user's key must not decrypt to the
	// original text.
	other, err := box.DecryptForUser("user-2", env, "")
	if err == nil {
		assert.NotEqual(t, "per-user data", other)
	}
}

func TestGenerateEncryptionKey(t *testing.T) {
	key, err := GenerateEncryptionKey(0)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	key, err = GenerateEncryptionKey(16)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestDeriveKeyFromPassword(t *testing.T) {
	first, err := DeriveKeyFromPassword("correct horse", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 100000, first.Iterations)
	assert.Len(t, first.Key, 64)
	assert.Len(t, first.Salt, 32)

	salt, err := hex.DecodeString(first.Salt)
	require.NoError(t, err)
	second, err := DeriveKeyFromPassword("correct horse", salt, first.Iterations)
	require.NoError(t, err)
	assert.Equal(t, first.Key, second.Key, "same password and salt should derive the same key")

	third, err := DeriveKeyFromPassword("wrong horse", salt, first.Iterations)
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, third.Key)
}

func TestPKCS7Padding(t *testing.T) {
	for _, n := range []int{1, 15, 16, 17, 31, 32} {
		data := make([]byte, n)
		padded := pkcs7Pad(data, 16)
		require.Zero(t, len(padded)%16)

		unpadded, err := pkcs7Unpad(padded, 16)
		require.NoError(t, err)
		assert.Equal(t, data, unpadded)
	}

	_, err := pkcs7Unpad([]byte{}, 16)
	assert.Error(t, err)

	bad := make([]byte, 16)
	bad[15] = 17
	_, err = pkcs7Unpad(bad, 16)
	assert.Error(t, err)
}
