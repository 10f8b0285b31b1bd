// Package crypto implements the symmetric encryption primitives used for
// per-user data protection: AES-256-CBC with a fresh random IV per call,
// SHA-256 hashing, HMAC-SHA256 creation/verification, and key derivation.
// All binary values are hex-encoded at the boundary.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Algorithm tags every envelope produced by this package.
	Algorithm = "aes-256-cbc"

	keyLength = 32
	ivLength  = 16
)

var (
	ErrEmptyPlaintext  = errors.New("text to encrypt cannot be empty")
	ErrEmptyData       = errors.New("data to hash cannot be empty")
	ErrMissingHMACArgs = errors.New("data and secret are required for HMAC")
	ErrInvalidEnvelope = errors.New("invalid encrypted data format")
	ErrEncrypt         = errors.New("encryption failed")
	ErrDecrypt         = errors.New("decryption failed")
	ErrSerialization   = errors.New("serialization failed")
)

// Envelope wraps ciphertext for transport or storage. IV and Encrypted are
// hex strings; Algorithm is always the fixed cipher name.
type Envelope struct {
	IV        string `json:"iv"`
	Encrypted string `json:"encrypted"`
	Algorithm string `json:"algorithm"`
}

// ResolveKey turns a string-typed key into raw AES key bytes. A 64-character
// all-hex string is treated as a raw 256-bit key; anything else is hashed
// with SHA-256 into one. Encrypt and decrypt must apply the same rule or
// round-trips with string keys break, so every key in this package goes
// through here.
func ResolveKey(key string) []byte {
	if isRawHexKey(key) {
		raw, _ := hex.DecodeString(key)
		return raw
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

func isRawHexKey(key string) bool {
	if len(key) != keyLength*2 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}

// Box carries the process-wide default encryption key. The key is resolved
// once from configuration at startup; rotating it invalidates everything
// previously encrypted under it.
type Box struct {
	defaultKey []byte
}

func NewBox(secret string) *Box {
	return &Box{defaultKey: ResolveKey(secret)}
}

func (b *Box) resolve(key string) []byte {
	if key == "" {
		return b.defaultKey
	}
	return ResolveKey(key)
}

// Encrypt encrypts plaintext under the given key, or the default key when
// key is empty. A fresh random IV is generated for every call.
func (b *Box) Encrypt(plaintext, key string) (*Envelope, error) {
	if plaintext == "" {
		return nil, ErrEmptyPlaintext
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	block, err := aes.NewCipher(b.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return &Envelope{
		IV:        hex.EncodeToString(iv),
		Encrypted: hex.EncodeToString(ciphertext),
		Algorithm: Algorithm,
	}, nil
}

// Decrypt reverses Encrypt. It fails if the envelope is malformed or if the
// ciphertext does not decrypt cleanly under the given key and IV.
func (b *Box) Decrypt(env *Envelope, key string) (string, error) {
	if env == nil || env.IV == "" || env.Encrypted == "" {
		return "", ErrInvalidEnvelope
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != ivLength {
		return "", fmt.Errorf("%w: bad iv", ErrDecrypt)
	}
	ciphertext, err := hex.DecodeString(env.Encrypted)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecrypt)
	}

	block, err := aes.NewCipher(b.resolve(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(unpadded), nil
}

// EncryptObject JSON-serializes v before encrypting.
func (b *Box) EncryptObject(v any, key string) (*Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return b.Encrypt(string(data), key)
}

// DecryptObject decrypts the envelope and JSON-unmarshals the plaintext
// into v.
func (b *Box) DecryptObject(env *Envelope, key string, v any) error {
	plaintext, err := b.Decrypt(env, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(plaintext), v); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// Hash returns the SHA-256 hex digest of data.
func Hash(data string) (string, error) {
	if data == "" {
		return "", ErrEmptyData
	}
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:]), nil
}

// CreateHMAC returns the HMAC-SHA256 hex digest of data keyed by secret.
func CreateHMAC(data, secret string) (string, error) {
	if data == "" || secret == "" {
		return "", ErrMissingHMACArgs
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyHMAC recomputes the MAC and compares in constant time. A mismatch
// returns (false, nil); only missing arguments produce an error.
func VerifyHMAC(data, secret, candidate string) (bool, error) {
	expected, err := CreateHMAC(data, secret)
	if err != nil {
		return false, err
	}
	expectedRaw, _ := hex.DecodeString(expected)
	candidateRaw, err := hex.DecodeString(candidate)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(expectedRaw, candidateRaw), nil
}

// DeriveUserKey computes a deterministic per-user encryption key:
// HMAC-SHA256 of "user-encryption-<userID>" keyed by the master key. The
// same user always yields the same key, so nothing needs storing at rest.
func (b *Box) DeriveUserKey(userID, masterKey string) string {
	master := b.defaultKey
	if masterKey != "" {
		master = []byte(masterKey)
	}
	mac := hmac.New(sha256.New, master)
	mac.Write([]byte("user-encryption-" + userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateUserKey produces a random, unrepeatable key for a user. Unlike
// DeriveUserKey the result must be stored if it is ever to be used again.
func GenerateUserKey(userID string) (string, error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	mac := hmac.New(sha256.New, []byte(hex.EncodeToString(random)))
	mac.Write([]byte(fmt.Sprintf("user-%s-%d", userID, time.Now().UnixMilli())))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// EncryptForUser encrypts text under the user's derived key.
func (b *Box) EncryptForUser(userID, text, masterKey string) (*Envelope, error) {
	return b.Encrypt(text, b.DeriveUserKey(userID, masterKey))
}

// DecryptForUser decrypts an envelope under the user's derived key.
func (b *Box) DecryptForUser(userID string, env *Envelope, masterKey string) (string, error) {
	return b.Decrypt(env, b.DeriveUserKey(userID, masterKey))
}

func (b *Box) EncryptObjectForUser(userID string, v any, masterKey string) (*Envelope, error) {
	return b.EncryptObject(v, b.DeriveUserKey(userID, masterKey))
}

func (b *Box) DecryptObjectForUser(userID string, env *Envelope, masterKey string, v any) error {
	return b.DecryptObject(env, b.DeriveUserKey(userID, masterKey), v)
}

// RandomHex returns n random bytes hex-encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateEncryptionKey returns a random key of the given byte length as a
// hex string. Zero length defaults to a 256-bit key.
func GenerateEncryptionKey(length int) (string, error) {
	if length <= 0 {
		length = keyLength
	}
	return RandomHex(length)
}

// DerivedKey is the result of password-based key derivation.
type DerivedKey struct {
	Key        string `json:"key"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
}

// DeriveKeyFromPassword derives a key from a password with PBKDF2-SHA256.
// When salt is nil a random 16-byte salt is generated.
func DeriveKeyFromPassword(password string, salt []byte, iterations int) (*DerivedKey, error) {
	if iterations <= 0 {
		iterations = 100000
	}
	if salt == nil {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return &DerivedKey{
		Key:        hex.EncodeToString(key),
		Salt:       hex.EncodeToString(salt),
		Iterations: iterations,
	}, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
