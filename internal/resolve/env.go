package resolve

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvSource looks up fallback values by key.
type EnvSource interface {
	LookupEnv(key string) (string, bool)
}

// OSEnv reads the process environment.
type OSEnv struct{}

// LookupEnv implements EnvSource.
func (OSEnv) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv serves values from a map.
type MapEnv map[string]string

// LookupEnv implements EnvSource.
func (m MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// DotenvEnv serves values parsed from .env files without exporting them to
// the process environment.
type DotenvEnv struct {
	values map[string]string
	files  []string
}

// LoadDotenv parses the given .env files. Files that do not exist are
// skipped. When a key appears in several files the last one wins.
func LoadDotenv(paths ...string) (*DotenvEnv, error) {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read env file %s: %w", p, err)
		}
		existing = append(existing, p)
	}

	env := &DotenvEnv{values: map[string]string{}, files: existing}
	// godotenv.Read with no arguments falls back to ./.env
	if len(existing) == 0 {
		return env, nil
	}

	values, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env files: %w", err)
	}
	env.values = values
	return env, nil
}

// Files returns the env files that were actually loaded.
func (d *DotenvEnv) Files() []string {
	return d.files
}

// LookupEnv implements EnvSource.
func (d *DotenvEnv) LookupEnv(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// ChainEnv consults each source in order; the first non-empty value wins.
type ChainEnv []EnvSource

// LookupEnv implements EnvSource. A key that is set but empty everywhere is
// reported as present with an empty value.
func (c ChainEnv) LookupEnv(key string) (string, bool) {
	found := false
	for _, src := range c {
		if src == nil {
			continue
		}
		v, ok := src.LookupEnv(key)
		if !ok {
			continue
		}
		if v != "" {
			return v, true
		}
		found = true
	}
	return "", found
}
