package cipher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      Options
		plaintext string
	}{
		{name: "legacy short", opts: Options{KDF: KDFLegacy}, plaintext: "sk-live-123"},
		{name: "legacy block aligned", opts: Options{KDF: KDFLegacy}, plaintext: "0123456789abcdef"},
		{name: "legacy long", opts: Options{KDF: KDFLegacy}, plaintext: strings.Repeat("long value ", 40)},
		{name: "legacy unicode", opts: Options{KDF: KDFLegacy}, plaintext: "pässwörd-🔐"},
		{name: "pbkdf2 default iterations", opts: Options{KDF: KDFPBKDF2}, plaintext: "ghp_abcdef"},
		{name: "pbkdf2 custom iterations", opts: Options{KDF: KDFPBKDF2, Iterations: 1000}, plaintext: "postgres://u:p@db/app"},
		{name: "empty plaintext", opts: Options{}, plaintext: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := NewNative(tt.opts)
			ctx := context.Background()
			pass := []byte("master-passphrase")

			armored, err := n.Encrypt(ctx, []byte(tt.plaintext), pass)
			require.NoError(t, err)

			plain, err := n.Decrypt(ctx, armored, pass)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(plain))
		})
	}
}

func TestNativeEncryptIsSalted(t *testing.T) {
	t.Parallel()

	n := NewNative(Options{})
	ctx := context.Background()
	pass := []byte("master-passphrase")

	a, err := n.Encrypt(ctx, []byte("same value"), pass)
	require.NoError(t, err)
	b, err := n.Encrypt(ctx, []byte("same value"), pass)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "identical plaintexts must produce different records")

	raw, err := dearmor(a)
	require.NoError(t, err)
	assert.Equal(t, saltMagic, string(raw[:len(saltMagic)]))
}

func TestNativeWrongPassphrase(t *testing.T) {
	t.Parallel()

	n := NewNative(Options{})
	ctx := context.Background()

	armored, err := n.Encrypt(ctx, []byte("the real value"), []byte("right"))
	require.NoError(t, err)

	plain, err := n.Decrypt(ctx, armored, []byte("wrong"))
	if err == nil {
		// CBC without a MAC occasionally unpads garbage successfully.
		assert.NotEqual(t, "the real value", string(plain))
		return
	}
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "bad decrypt", fe.Reason)
}

func TestNativeKDFMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pass := []byte("master-passphrase")
	armored, err := NewNative(Options{KDF: KDFPBKDF2}).Encrypt(ctx, []byte("value"), pass)
	require.NoError(t, err)

	plain, err := NewNative(Options{KDF: KDFLegacy}).Decrypt(ctx, armored, pass)
	if err == nil {
		assert.NotEqual(t, "value", string(plain))
	}
}

func TestNativeMalformedRecords(t *testing.T) {
	t.Parallel()

	n := NewNative(Options{})
	pass := []byte("pass")

	tests := []struct {
		name   string
		record string
		reason string
	}{
		{name: "empty", record: "", reason: "error reading input file"},
		{name: "whitespace only", record: " \n\t", reason: "error reading input file"},
		{name: "not base64", record: "!!!not-base64!!!", reason: "error reading input file"},
		{name: "no salt header", record: "aGVsbG8gd29ybGQgdGhpcyBpcyBwbGFpbg==", reason: "bad magic number"},
		{name: "header without ciphertext", record: string(armor([]byte("Salted__12345678"))), reason: "bad decrypt"},
		{name: "truncated block", record: string(armor([]byte("Salted__12345678short"))), reason: "bad decrypt"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := n.Decrypt(context.Background(), []byte(tt.record), pass)
			require.Error(t, err)
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe.Reason, tt.reason)
		})
	}
}

func TestNativeHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	n := NewNative(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Encrypt(ctx, []byte("v"), []byte("p"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = n.Decrypt(ctx, []byte("v"), []byte("p"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNativeDoesNotMutatePlaintext(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 5, 64)
	copy(buf, "value")
	_, err := NewNative(Options{}).Encrypt(context.Background(), buf, []byte("pass"))
	require.NoError(t, err)
	assert.Equal(t, "value", string(buf))
	assert.Equal(t, make([]byte, 59), buf[5:64])
}

func TestArmorLayout(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0xAB}, 100)
	out := armor(data)

	require.True(t, bytes.HasSuffix(out, []byte("\n")))
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Len(t, lines[0], armorCols)
	assert.Len(t, lines[1], armorCols)

	// CRLF and stray spaces are tolerated on the way back in
	crlf := bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n  "))
	back, err := dearmor(crlf)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestEVPBytesToKeyChain(t *testing.T) {
	t.Parallel()

	pass := []byte("passphrase")
	salt := []byte("saltsalt")
	got := evpBytesToKey(pass, salt, keyLen+16)
	require.Len(t, got, 48)

	d1 := sha256.Sum256(append(append([]byte{}, pass...), salt...))
	d2 := sha256.Sum256(append(append(d1[:], pass...), salt...))
	assert.Equal(t, d1[:], got[:32])
	assert.Equal(t, d2[:16], got[32:])
}

func TestParseKDF(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]KDF{"": KDFLegacy, "legacy": KDFLegacy, "PBKDF2": KDFPBKDF2, " pbkdf2 ": KDFPBKDF2} {
		got, err := ParseKDF(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKDF("scrypt")
	assert.Error(t, err)
}
