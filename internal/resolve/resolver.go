// Package resolve implements the lookup policy applications use to obtain a
// configuration value: an encrypted secret first, then an environment
// variable, then a caller-supplied default.
package resolve

import (
	"context"

	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
)

// SecretSource is the part of the secret store the resolver uses.
type SecretSource interface {
	Exists(name string) bool
	Decrypt(ctx context.Context, name string, useCache bool) (string, error)
}

// Source tells where a resolved value came from.
type Source int

const (
	SourceNone Source = iota
	SourceSecret
	SourceEnv
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceSecret:
		return "secret"
	case SourceEnv:
		return "env"
	case SourceDefault:
		return "default"
	}
	return "none"
}

// Resolver applies the secret, env, default order. It never fails: problems
// with a secret are logged and the next source is tried.
type Resolver struct {
	secrets SecretSource
	env     EnvSource
	logger  *logging.Logger
}

// New creates a resolver. A nil env reads the process environment.
func New(secrets SecretSource, env EnvSource, logger *logging.Logger) *Resolver {
	if env == nil {
		env = OSEnv{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{secrets: secrets, env: env, logger: logger}
}

// Lookup returns the value of secretName if it is stored and decrypts, else
// the non-empty value of fallbackKey. ok is false when neither yields a
// value. Either name may be empty to skip that step.
func (r *Resolver) Lookup(ctx context.Context, secretName, fallbackKey string) (value string, source Source, ok bool) {
	if secretName != "" && r.secrets != nil && r.secrets.Exists(secretName) {
		v, err := r.secrets.Decrypt(ctx, secretName, true)
		if err == nil {
			return v, SourceSecret, true
		}
		kind := string(dverrors.KindOf(err))
		if kind == "" {
			kind = "error"
		}
		r.logger.Warn("Secret %s could not be used (%s), falling back", secretName, kind)
		r.logger.Debug("Secret %s: %v", secretName, err)
	}

	if fallbackKey != "" {
		if v, found := r.env.LookupEnv(fallbackKey); found && v != "" {
			return v, SourceEnv, true
		}
	}
	return "", SourceNone, false
}

// Resolve is Lookup with def as the final fallback.
func (r *Resolver) Resolve(ctx context.Context, secretName, fallbackKey, def string) string {
	v, _ := r.ResolveWithSource(ctx, secretName, fallbackKey, def)
	return v
}

// ResolveWithSource is Resolve that also reports which step produced the
// value.
func (r *Resolver) ResolveWithSource(ctx context.Context, secretName, fallbackKey, def string) (string, Source) {
	if v, src, ok := r.Lookup(ctx, secretName, fallbackKey); ok {
		return v, src
	}
	return def, SourceDefault
}
