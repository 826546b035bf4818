package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
)

const (
	NonceSize = 12
	TagSize   = 16
)

// FieldCipher encrypts individual blobs with AES-256-GCM.
//
// A blob is nonce || ciphertext || tag with a fresh random nonce per call, so
// it is self-contained and encrypting the same plaintext twice never yields
// the same blob. The empty plaintext maps to the empty blob and back.
//
// A FieldCipher is safe for concurrent use.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a cipher for a KeySize key.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrInvalidArgument, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plaintext.
func (c *FieldCipher) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return []byte{}, nil
	}

	nonce := common.GenerateRandByteArray(NonceSize)

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(out, nonce)
	return c.aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. A truncated or modified blob
// fails with common.ErrIntegrityViolation.
func (c *FieldCipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return []byte{}, nil
	}
	if len(blob) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", common.ErrIntegrityViolation, len(blob))
	}

	plaintext, err := c.aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityViolation, err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func (c *FieldCipher) EncryptString(s string) ([]byte, error) {
	return c.Encrypt([]byte(s))
}

func (c *FieldCipher) DecryptString(blob []byte) (string, error) {
	b, err := c.Decrypt(blob)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Encrypt is a one-shot helper around NewFieldCipher(key).Encrypt.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	c, err := NewFieldCipher(key)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(plaintext)
}

// Decrypt is a one-shot helper around NewFieldCipher(key).Decrypt.
func Decrypt(blob, key []byte) ([]byte, error) {
	c, err := NewFieldCipher(key)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(blob)
}
