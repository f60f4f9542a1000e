package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks values written by Seal. Values without it are returned
// by Open unchanged, so encryption can be enabled on a store that already
// holds plaintext sessions.
const sealedPrefix = "enc:v1:"

// Cipher encrypts session content at rest with AES-GCM and a random nonce per value.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher accepts a raw 16/24/32-byte key or the base64 encoding of one.
func NewCipher(key string) (*Cipher, error) {
	k := []byte(key)
	if !validKeyLen(len(k)) {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil || !validKeyLen(len(decoded)) {
			return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes (raw or base64); got %d", len(k))
		}
		k = decoded
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Cipher{gcm: gcm}, nil
}

func validKeyLen(n int) bool { return n == 16 || n == 24 || n == 32 }

// Seal returns sealedPrefix + base64(nonce || ciphertext).
func (c *Cipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal. Unsealed input is passed through.
func (c *Cipher) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(value[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	ns := c.gcm.NonceSize()
	if len(data) < ns {
		return "", errors.New("sealed value too short")
	}
	pt, err := c.gcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}
