package cipher

import (
	"bytes"
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltMagic = "Salted__"
	saltLen   = 8
	keyLen    = 32 // AES-256
	armorCols = 64
)

// deriveKeyIV returns the 32-byte key and 16-byte IV for passphrase and salt.
func deriveKeyIV(opts Options, passphrase, salt []byte) (key, iv []byte) {
	var material []byte
	switch opts.KDF {
	case KDFPBKDF2:
		material = pbkdf2.Key(passphrase, salt, opts.iterations(), keyLen+aes.BlockSize, sha256.New)
	default:
		material = evpBytesToKey(passphrase, salt, keyLen+aes.BlockSize)
	}
	return material[:keyLen], material[keyLen:]
}

// evpBytesToKey is OpenSSL's EVP_BytesToKey with SHA-256 and a count of 1:
// D_i = SHA256(D_{i-1} || passphrase || salt), concatenated until n bytes.
func evpBytesToKey(passphrase, salt []byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	var prev []byte
	for len(out) < n {
		h := sha256.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:n]
}

func pkcs7Pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, &FormatError{Reason: "bad decrypt"}
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, &FormatError{Reason: "bad decrypt"}
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, &FormatError{Reason: "bad decrypt"}
		}
	}
	return data[:len(data)-n], nil
}

// armor base64-encodes data in 64-column lines with a trailing newline, the
// layout `openssl enc -a` produces and expects.
func armor(data []byte) []byte {
	enc := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	b.Grow(len(enc) + len(enc)/armorCols + 1)
	for len(enc) > armorCols {
		b.WriteString(enc[:armorCols])
		b.WriteByte('\n')
		enc = enc[armorCols:]
	}
	b.WriteString(enc)
	b.WriteByte('\n')
	return []byte(b.String())
}

// dearmor strips all whitespace and base64-decodes.
func dearmor(armored []byte) ([]byte, error) {
	compact := bytes.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, armored)
	if len(compact) == 0 {
		return nil, &FormatError{Reason: "error reading input file: empty record"}
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(compact)))
	n, err := base64.StdEncoding.Decode(out, compact)
	if err != nil {
		return nil, &FormatError{Reason: "error reading input file: " + err.Error()}
	}
	return out[:n], nil
}

// splitSalted separates the salt from the ciphertext of a decoded record.
func splitSalted(raw []byte) (salt, ciphertext []byte, err error) {
	if len(raw) < len(saltMagic)+saltLen || string(raw[:len(saltMagic)]) != saltMagic {
		return nil, nil, &FormatError{Reason: "bad magic number"}
	}
	salt = raw[len(saltMagic) : len(saltMagic)+saltLen]
	ciphertext = raw[len(saltMagic)+saltLen:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, nil, &FormatError{Reason: "bad decrypt"}
	}
	return salt, ciphertext, nil
}
