package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/dsvault/internal/cipher"
	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/keys"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/internal/resolve"
	"github.com/systmms/dsvault/internal/secretstore"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "dsvault.yaml"

// Key sources
const (
	KeySourceFile    = "file"
	KeySourceKeyring = "keyring"
)

// Backends
const (
	BackendNative  = "native"
	BackendOpenSSL = "openssl"
)

// DefaultTimeoutMs bounds a single backend call.
const DefaultTimeoutMs = 10000

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path   string
	Logger *logging.Logger

	// Required makes a missing file an error. Set when the path was given
	// explicitly.
	Required bool

	Definition *Definition
}

// Definition represents the dsvault.yaml structure
type Definition struct {
	Version          int           `yaml:"version"`
	BaseDir          string        `yaml:"base_dir,omitempty"`
	KeySource        string        `yaml:"key_source,omitempty"`
	KeyFile          string        `yaml:"key_file,omitempty"`
	Keyring          KeyringConfig `yaml:"keyring,omitempty"`
	Backend          string        `yaml:"backend,omitempty"`
	KDF              string        `yaml:"kdf,omitempty"`
	PBKDF2Iterations int           `yaml:"pbkdf2_iterations,omitempty"`
	OpenSSLPath      string        `yaml:"openssl_path,omitempty"`
	TimeoutMs        int           `yaml:"timeout_ms,omitempty"`
	EnvFiles         []string      `yaml:"env_files,omitempty"`
}

// KeyringConfig locates the master key in the OS keyring
type KeyringConfig struct {
	Service string `yaml:"service,omitempty"`
	Account string `yaml:"account,omitempty"`
}

// Overrides carries command-line settings that win over the file.
// Zero values leave the file setting in place.
type Overrides struct {
	BaseDir string
	Backend string
	KDF     string
	Timeout time.Duration
}

// Defaults returns the definition used when no file is present.
func Defaults() *Definition {
	return &Definition{
		BaseDir:          ".",
		KeySource:        KeySourceFile,
		KeyFile:          keys.DefaultKeyFile,
		Keyring:          KeyringConfig{Service: keys.DefaultKeyringService, Account: keys.DefaultKeyringAccount},
		Backend:          BackendNative,
		KDF:              string(cipher.KDFLegacy),
		PBKDF2Iterations: cipher.DefaultPBKDF2Iterations,
		OpenSSLPath:      "openssl",
		TimeoutMs:        DefaultTimeoutMs,
		EnvFiles:         []string{".env"},
	}
}

// Load reads and validates the config file. A missing file yields the
// defaults unless Required is set.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Required {
				return dverrors.ConfigError{
					Field:      "path",
					Value:      c.Path,
					Message:    "configuration file not found",
					Suggestion: "Check the --config path or omit it to use defaults",
				}
			}
			c.log().Debug("No config file at %s, using defaults", c.Path)
			c.Definition = Defaults()
			return nil
		}
		return dverrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	// relative base_dir is anchored at the config file
	if !filepath.IsAbs(def.BaseDir) {
		def.BaseDir = filepath.Join(filepath.Dir(c.Path), def.BaseDir)
	}

	c.Definition = def
	c.log().Debug("Loaded config from %s", c.Path)
	return nil
}

// Parse validates data against the schema and returns the definition with
// defaults filled in.
func Parse(data []byte) (*Definition, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, dverrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	def := Defaults()
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, dverrors.ConfigError{
			Message:    fmt.Sprintf("cannot decode configuration: %v", err),
			Suggestion: "Check field types against the documented configuration",
		}
	}
	return def, nil
}

func validateSchema(doc interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	descs := result.Errors()
	messages := make([]string, 0, len(descs))
	for _, desc := range descs {
		messages = append(messages, desc.String())
	}
	return dverrors.ConfigError{
		Field:      descs[0].Field(),
		Message:    strings.Join(messages, "; "),
		Suggestion: "Check field names and allowed values in dsvault.yaml",
	}
}

// Apply merges command-line overrides into the loaded definition.
func (c *Config) Apply(o Overrides) error {
	if c.Definition == nil {
		c.Definition = Defaults()
	}
	def := c.Definition

	if o.BaseDir != "" {
		def.BaseDir = o.BaseDir
	}
	if o.Backend != "" {
		def.Backend = strings.ToLower(o.Backend)
	}
	if o.KDF != "" {
		def.KDF = strings.ToLower(o.KDF)
	}
	if o.Timeout > 0 {
		def.TimeoutMs = int(o.Timeout / time.Millisecond)
		if def.TimeoutMs == 0 {
			def.TimeoutMs = 1
		}
	}
	return def.Validate()
}

// Validate checks settings that overrides may have changed.
func (d *Definition) Validate() error {
	switch d.Backend {
	case BackendNative, BackendOpenSSL:
	default:
		return dverrors.ConfigError{
			Field:      "backend",
			Value:      d.Backend,
			Message:    "unknown cipher backend",
			Suggestion: "Use 'native' or 'openssl'",
		}
	}
	if _, err := cipher.ParseKDF(d.KDF); err != nil {
		return dverrors.ConfigError{
			Field:      "kdf",
			Value:      d.KDF,
			Message:    err.Error(),
			Suggestion: "Use 'legacy' or 'pbkdf2'",
		}
	}
	switch d.KeySource {
	case KeySourceFile, KeySourceKeyring:
	default:
		return dverrors.ConfigError{
			Field:      "key_source",
			Value:      d.KeySource,
			Message:    "unknown key source",
			Suggestion: "Use 'file' or 'keyring'",
		}
	}
	if d.TimeoutMs <= 0 {
		return dverrors.ConfigError{Field: "timeout_ms", Value: d.TimeoutMs, Message: "timeout must be positive"}
	}
	return nil
}

// BaseDir returns the directory holding the key file and .secrets.
func (c *Config) BaseDir() string {
	return c.def().BaseDir
}

// KeyFilePath returns the master key file location.
func (c *Config) KeyFilePath() string {
	return c.resolvePath(c.def().KeyFile)
}

// Timeout returns the per-call backend timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.def().TimeoutMs) * time.Millisecond
}

// KeyProvider builds the configured master key source.
func (c *Config) KeyProvider() keys.Provider {
	def := c.def()
	if def.KeySource == KeySourceKeyring {
		return keys.NewKeyringProvider(def.Keyring.Service, def.Keyring.Account)
	}
	return keys.NewFileProvider(c.KeyFilePath())
}

// Backend builds the configured cipher backend.
func (c *Config) Backend() (cipher.Backend, error) {
	def := c.def()
	kdf, err := cipher.ParseKDF(def.KDF)
	if err != nil {
		return nil, err
	}
	opts := cipher.Options{KDF: kdf, Iterations: def.PBKDF2Iterations}

	switch def.Backend {
	case BackendOpenSSL:
		return cipher.NewOpenSSL(def.OpenSSLPath, opts, c.log()), nil
	case BackendNative, "":
		return cipher.NewNative(opts), nil
	}
	return nil, fmt.Errorf("unknown cipher backend %q", def.Backend)
}

// OpenStore opens the secret store described by the config.
func (c *Config) OpenStore(metrics *secretstore.Metrics) (*secretstore.Store, error) {
	backend, err := c.Backend()
	if err != nil {
		return nil, err
	}
	return secretstore.New(c.BaseDir(), secretstore.Options{
		KeyProvider: c.KeyProvider(),
		Backend:     backend,
		Timeout:     c.Timeout(),
		Logger:      c.log(),
		Metrics:     metrics,
	})
}

// EnvSource returns the fallback lookup chain: the process environment,
// then the configured .env files.
func (c *Config) EnvSource() (resolve.EnvSource, error) {
	files := make([]string, 0, len(c.def().EnvFiles))
	for _, f := range c.def().EnvFiles {
		files = append(files, c.resolvePath(f))
	}
	dotenv, err := resolve.LoadDotenv(files...)
	if err != nil {
		return nil, err
	}
	for _, f := range dotenv.Files() {
		c.log().Debug("Loaded env file %s", f)
	}
	return resolve.ChainEnv{resolve.OSEnv{}, dotenv}, nil
}

func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir(), p)
}

func (c *Config) log() *logging.Logger {
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	return c.Logger
}

func (c *Config) def() *Definition {
	if c.Definition == nil {
		c.Definition = Defaults()
	}
	return c.Definition
}
