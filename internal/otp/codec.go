package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const digits = "0123456789"

// Codec generates numeric one-time codes and verifies them against keyed
// hashes. Plaintext codes are never stored; only HMAC-SHA256(secret, salt||code)
// leaves this package.
type Codec struct {
	secret     []byte
	length     int
	masterCode string
}

// New constructs a codec. masterCode, when non-empty, is an explicit escape
// hatch for test and ops environments: it bypasses the hash check. It must
// never be set in production configuration.
func New(secret string, length int, masterCode string) *Codec {
	if length <= 0 {
		length = 6
	}
	return &Codec{secret: []byte(secret), length: length, masterCode: masterCode}
}

// Generate returns a fixed-length numeric code together with a fresh random
// salt and the keyed hash of the pair.
func (c *Codec) Generate() (code, salt, hash string, err error) {
	buf := make([]byte, c.length)
	max := big.NewInt(int64(len(digits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", "", "", fmt.Errorf("generate otp digit: %w", err)
		}
		buf[i] = digits[n.Int64()]
	}
	code = string(buf)

	saltRaw := make([]byte, 16)
	if _, err := rand.Read(saltRaw); err != nil {
		return "", "", "", fmt.Errorf("generate otp salt: %w", err)
	}
	salt = hex.EncodeToString(saltRaw)

	return code, salt, c.Hash(code, salt), nil
}

// Hash computes the keyed hash for a code under the given salt.
func (c *Codec) Hash(code, salt string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(salt))
	_, _ = mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the submitted code matches the stored hash, in
// constant time. The master override code, when configured, always verifies.
func (c *Codec) Verify(code, salt, hash string) bool {
	if c.masterCode != "" && code == c.masterCode {
		return true
	}
	expected := c.Hash(code, salt)
	return hmac.Equal([]byte(expected), []byte(hash))
}

// Length returns the configured code length.
func (c *Codec) Length() int {
	return c.length
}
