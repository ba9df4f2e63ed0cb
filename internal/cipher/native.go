package cipher

import (
	"context"
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Native implements Backend in-process.
type Native struct {
	opts Options
	rand io.Reader
}

// NewNative creates an in-process backend.
func NewNative(opts Options) *Native {
	return &Native{opts: opts, rand: rand.Reader}
}

// Name returns the backend name.
func (n *Native) Name() string {
	return "native"
}

// Encrypt implements Backend.
func (n *Native) Encrypt(ctx context.Context, plaintext, passphrase []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(n.rand, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	key, iv := deriveKeyIV(n.opts, passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(append([]byte(nil), plaintext...))
	raw := make([]byte, len(saltMagic)+saltLen+len(padded))
	copy(raw, saltMagic)
	copy(raw[len(saltMagic):], salt)
	gocipher.NewCBCEncrypter(block, iv).CryptBlocks(raw[len(saltMagic)+saltLen:], padded)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return armor(raw), nil
}

// Decrypt implements Backend.
func (n *Native) Decrypt(ctx context.Context, armored, passphrase []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := dearmor(armored)
	if err != nil {
		return nil, err
	}
	salt, ciphertext, err := splitSalted(raw)
	if err != nil {
		return nil, err
	}

	key, iv := deriveKeyIV(n.opts, passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(ciphertext))
	gocipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return plain, nil
}

var _ Backend = (*Native)(nil)
