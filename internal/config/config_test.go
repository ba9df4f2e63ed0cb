package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dsvault/internal/cipher"
	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/keys"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/tests/testutil"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: filepath.Join(t.TempDir(), DefaultFile)}
	require.NoError(t, cfg.Load())

	assert.Equal(t, Defaults(), cfg.Definition)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, filepath.Join(".", keys.DefaultKeyFile), cfg.KeyFilePath())
}

func TestLoadMissingRequiredFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: filepath.Join(t.TempDir(), "custom.yaml"), Required: true}
	err := cfg.Load()

	var cfgErr dverrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
}

func TestLoadFullFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
version: 0
base_dir: project
key_source: keyring
key_file: keys/master
keyring:
  service: my-app
backend: openssl
kdf: pbkdf2
pbkdf2_iterations: 50000
openssl_path: /usr/bin/openssl
timeout_ms: 2500
env_files: [.env, .env.local]
`)

	cfg := &Config{Path: path, Logger: logging.New(false, true)}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, filepath.Join(dir, "project"), cfg.BaseDir())
	assert.Equal(t, KeySourceKeyring, def.KeySource)
	assert.Equal(t, filepath.Join(dir, "project", "keys", "master"), cfg.KeyFilePath())
	assert.Equal(t, "my-app", def.Keyring.Service)
	assert.Equal(t, keys.DefaultKeyringAccount, def.Keyring.Account, "unset keyring fields keep defaults")
	assert.Equal(t, BackendOpenSSL, def.Backend)
	assert.Equal(t, "pbkdf2", def.KDF)
	assert.Equal(t, 50000, def.PBKDF2Iterations)
	assert.Equal(t, "/usr/bin/openssl", def.OpenSSLPath)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, []string{".env", ".env.local"}, def.EnvFiles)

	_, isKeyring := cfg.KeyProvider().(*keys.KeyringProvider)
	assert.True(t, isKeyring)

	backend, err := cfg.Backend()
	require.NoError(t, err)
	assert.Equal(t, "openssl", backend.Name())
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := &Config{Path: writeConfig(t, dir, "")}
	require.NoError(t, cfg.Load())

	assert.Equal(t, BackendNative, cfg.Definition.Backend)
	assert.Equal(t, filepath.Join(dir, "."), cfg.BaseDir())
}

func TestAbsoluteBaseDirKept(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := &Config{Path: writeConfig(t, t.TempDir(), "base_dir: "+base+"\n")}
	require.NoError(t, cfg.Load())
	assert.Equal(t, base, cfg.BaseDir())
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{name: "bad yaml", content: "backend: [unclosed"},
		{name: "unknown field", content: "backnd: native"},
		{name: "unknown backend", content: "backend: rsa", field: "backend"},
		{name: "unknown kdf", content: "kdf: scrypt", field: "kdf"},
		{name: "unknown key source", content: "key_source: vault", field: "key_source"},
		{name: "zero timeout", content: "timeout_ms: 0", field: "timeout_ms"},
		{name: "string timeout", content: "timeout_ms: soon", field: "timeout_ms"},
		{name: "unsupported version", content: "version: 2", field: "version"},
		{name: "unknown keyring field", content: "keyring:\n  user: me", field: "keyring"},
		{name: "env_files not a list", content: "env_files: .env", field: "env_files"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Path: writeConfig(t, t.TempDir(), tt.content)}
			err := cfg.Load()
			require.Error(t, err)

			var cfgErr dverrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			if tt.field != "" {
				assert.Contains(t, cfgErr.Field, tt.field)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.NoError(t, cfg.Apply(Overrides{
		BaseDir: "/srv/app",
		Backend: "OpenSSL",
		KDF:     "PBKDF2",
		Timeout: 1500 * time.Millisecond,
	}))

	assert.Equal(t, "/srv/app", cfg.BaseDir())
	assert.Equal(t, BackendOpenSSL, cfg.Definition.Backend)
	assert.Equal(t, "pbkdf2", cfg.Definition.KDF)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout())

	require.NoError(t, cfg.Apply(Overrides{Timeout: time.Microsecond}))
	assert.Equal(t, time.Millisecond, cfg.Timeout())

	assert.Error(t, cfg.Apply(Overrides{Backend: "gpg"}))
	cfg.Definition.Backend = BackendNative
	assert.Error(t, cfg.Apply(Overrides{KDF: "argon2"}))
}

func TestBackendSelection(t *testing.T) {
	t.Parallel()

	cfg := &Config{Definition: Defaults()}
	backend, err := cfg.Backend()
	require.NoError(t, err)
	assert.Equal(t, "native", backend.Name())

	cfg.Definition.KDF = "bogus"
	_, err = cfg.Backend()
	assert.Error(t, err)
}

func TestOpenStoreAndEnvSource(t *testing.T) {
	t.Setenv("DSVAULT_CONFIG_TEST_KEY", "from-process")

	base := t.TempDir()
	testutil.WriteMasterKey(t, base, "config-test-key")
	testutil.WriteDotenv(t, base, ".env", map[string]string{
		"DSVAULT_CONFIG_TEST_KEY": "from-dotenv",
		"ONLY_IN_DOTENV":          "dotenv-value",
	})

	cfg := &Config{}
	require.NoError(t, cfg.Apply(Overrides{BaseDir: base, KDF: string(cipher.KDFPBKDF2)}))

	store, err := cfg.OpenStore(nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Encrypt(ctx, "k", "v"))
	got, err := store.Decrypt(ctx, "k", false)
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	env, err := cfg.EnvSource()
	require.NoError(t, err)
	v, ok := env.LookupEnv("DSVAULT_CONFIG_TEST_KEY")
	require.True(t, ok)
	assert.Equal(t, "from-process", v, "process environment wins over .env")
	v, ok = env.LookupEnv("ONLY_IN_DOTENV")
	require.True(t, ok)
	assert.Equal(t, "dotenv-value", v)
}

func TestEmbeddedSchemaIsValidJSONSchema(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("version: 0\n"))
	require.NoError(t, err)
}
