package fyers_authen

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSizeBytes    = 16
	pbkdf2Iterations = 100000
	pbkdf2KeyLength  = 32 // AES-256
)

// loadOrCreateSalt returns the salt stored at path, writing a fresh one on first use.
func loadOrCreateSalt(path string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create salt directory: %w", err)
	}

	salt, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		salt = make([]byte, saltSizeBytes)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := os.WriteFile(path, salt, 0600); err != nil {
			return nil, fmt.Errorf("failed to save salt to %s: %w", path, err)
		}
		return salt, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read salt from %s: %w", path, err)
	}
	if len(salt) != saltSizeBytes {
		return nil, fmt.Errorf("salt file %s has incorrect size: expected %d, got %d", path, saltSizeBytes, len(salt))
	}
	return salt, nil
}

// newSessionCipher derives an AES-GCM key from the app secret and the salt file.
func newSessionCipher(secret, saltPath string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, errors.New("secret cannot be empty")
	}
	salt, err := loadOrCreateSalt(saltPath)
	if err != nil {
		return nil, err
	}
	key := pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}
	return aead, nil
}

// seal prepends a random nonce to the ciphertext.
func seal(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(aead cipher.AEAD, data []byte) ([]byte, error) {
	n := aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("encrypted data is too short to contain a nonce")
	}
	plaintext, err := aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}
	return plaintext, nil
}
