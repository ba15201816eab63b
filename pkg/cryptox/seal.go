package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// sealInfo binds derived keys to their purpose so the same device key
// material can never produce a key that opens some other kind of blob.
const sealInfo = "dinein/device-store/v1"

// KeyMaterialSize is the number of random bytes written when a new device key
// file is generated.
const KeyMaterialSize = 32

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// Sealer encrypts small values (tokens, ids) for storage on the device using
// AES-256-GCM. The output format is: [12-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32-byte AES key from keyMaterial with HKDF-SHA256.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("cryptox: empty key material")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, keyMaterial, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts and authenticates plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// LoadKeyMaterial resolves the device key in this order:
//  1. envValue, when non-empty
//  2. the file at path, when it exists
//  3. a new random key written to path (0600)
//
// With neither a path nor an env value it returns an ephemeral key, which
// means stored tokens will not survive a restart.
func LoadKeyMaterial(path, envValue string) ([]byte, error) {
	if envValue != "" {
		return []byte(envValue), nil
	}

	if path == "" {
		buf := make([]byte, KeyMaterialSize)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
		}
		return buf, nil
	}

	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read device key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	buf := make([]byte, KeyMaterialSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate device key: %w", err)
	}
	encoded := []byte(base64.RawURLEncoding.EncodeToString(buf))
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write device key file: %w", err)
	}

	return encoded, nil
}
