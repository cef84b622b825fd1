// Package cryptox holds the password hashing and document encryption used
// by the client and the reference server.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/sha3"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// HashPassword returns the hex encoded SHA3-512 digest of password+salt.
// This is the value sent on login and stored in user documents.
func HashPassword(password, salt string) string {
	sum := sha3.Sum512([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// DeriveMasterKey stretches a passphrase into a 256-bit AES key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// EncryptDocument seals plaintext with AES-GCM under key and returns
// base64(nonce || ciphertext), suitable for a TEXT column.
func EncryptDocument(plaintext string, key []byte) (string, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptDocument reverses EncryptDocument.
func DecryptDocument(encoded string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(raw) < aesgcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := raw[:aesgcm.NonceSize()], raw[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
