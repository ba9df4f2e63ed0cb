// Package secretstore keeps named secrets as individually encrypted files
// under a single master key and caches decrypted values for the lifetime of
// the process.
//
// Each secret lives in <base>/.secrets/<name>.enc in the OpenSSL enc format
// produced by a cipher.Backend. The master passphrase is fetched from a
// keys.Provider on every encrypt and decrypt.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"

	"github.com/systmms/dsvault/internal/cipher"
	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/keys"
	"github.com/systmms/dsvault/internal/logging"
)

const (
	// SecretsDirName is the directory under the base dir holding records.
	SecretsDirName = ".secrets"

	// RecordExt is the file extension of an encrypted record.
	RecordExt = ".enc"

	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 10 * time.Second
)

// Options configures a Store.
type Options struct {
	// KeyProvider supplies the master passphrase. Required.
	KeyProvider keys.Provider

	// Backend performs encryption. Defaults to the native backend with the
	// legacy KDF.
	Backend cipher.Backend

	// Timeout bounds each backend call. Defaults to DefaultTimeout.
	Timeout time.Duration

	Logger  *logging.Logger
	Metrics *Metrics
}

// Store is the encrypted secret store. It is safe for concurrent use.
type Store struct {
	dir     string
	keys    keys.Provider
	backend cipher.Backend
	timeout time.Duration
	logger  *logging.Logger
	metrics *Metrics
	cache   *cache
}

// New opens the store rooted at baseDir, creating baseDir/.secrets with
// owner-only permissions if it does not exist.
func New(baseDir string, opts Options) (*Store, error) {
	if opts.KeyProvider == nil {
		return nil, fmt.Errorf("secret store requires a key provider")
	}
	if opts.Backend == nil {
		opts.Backend = cipher.NewNative(cipher.Options{})
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	s := &Store{
		dir:     filepath.Join(baseDir, SecretsDirName),
		keys:    opts.KeyProvider,
		backend: opts.Backend,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		cache:   newCache(),
	}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureDir() error {
	info, err := os.Stat(s.dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("secrets path %s exists and is not a directory", s.dir)
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			s.logger.Warn("Secrets directory %s is accessible by other users (mode %04o)", s.dir, perm)
		}
		return nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return fmt.Errorf("failed to create secrets directory: %w", err)
		}
		// MkdirAll is subject to umask
		if err := os.Chmod(s.dir, 0o700); err != nil {
			return fmt.Errorf("failed to restrict secrets directory: %w", err)
		}
		s.logger.Debug("Created secrets directory %s", s.dir)
		return nil
	default:
		return fmt.Errorf("failed to inspect secrets directory: %w", err)
	}
}

// SecretsDir returns the directory holding the encrypted records.
func (s *Store) SecretsDir() string {
	return s.dir
}

// BackendName returns the name of the configured cipher backend.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Decrypt returns the plaintext of the named secret. With useCache set a
// cached value is returned without touching disk, and a fresh result is
// cached. Without it the cache is neither read nor written.
func (s *Store) Decrypt(ctx context.Context, name string, useCache bool) (string, error) {
	if useCache {
		if value, ok := s.cache.get(name); ok {
			s.metrics.cacheHit()
			s.metrics.operation("decrypt", nil)
			s.logger.Debug("Cache hit for %s", name)
			return value, nil
		}
		s.metrics.cacheMiss()
	}

	value, err := s.decrypt(ctx, name, useCache)
	s.metrics.operation("decrypt", err)
	return value, err
}

func (s *Store) decrypt(ctx context.Context, name string, useCache bool) (string, error) {
	if err := checkName("decrypt", name); err != nil {
		return "", err
	}

	// taken before the record is read so a racing encrypt invalidates it
	st := s.cache.stamp(name)

	path := s.recordPath(name)
	armored, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &dverrors.Error{Kind: dverrors.SecretNotFound, Op: "decrypt", Name: name, Path: path}
		}
		return "", &dverrors.Error{Kind: dverrors.DecryptionFailed, Op: "decrypt", Name: name, Path: path, Err: err}
	}

	key, err := s.keys.MasterKey()
	if err != nil {
		return "", &dverrors.Error{Kind: dverrors.KeyUnavailable, Op: "decrypt", Name: name, Err: err}
	}

	s.logger.Debug("Decrypting %s with %s backend", name, s.backend.Name())
	plain, err := s.call(ctx, "decrypt", []byte(key), func(ctx context.Context, pass []byte) ([]byte, error) {
		return s.backend.Decrypt(ctx, armored, pass)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &dverrors.Error{
				Kind:       dverrors.DecryptionTimeout,
				Op:         "decrypt",
				Name:       name,
				Diagnostic: fmt.Sprintf("%s backend gave no answer within %s", s.backend.Name(), s.timeout),
				Err:        err,
			}
		}
		return "", &dverrors.Error{Kind: dverrors.DecryptionFailed, Op: "decrypt", Name: name, Path: path, Err: err}
	}

	value := strings.TrimRightFunc(string(plain), unicode.IsSpace)
	memguard.WipeBytes(plain)
	if value == "" {
		return "", &dverrors.Error{Kind: dverrors.EmptyPlaintext, Op: "decrypt", Name: name, Path: path}
	}

	if useCache && !s.cache.put(name, value, st) {
		s.logger.Debug("Not caching %s: record changed during decrypt", name)
	}
	return value, nil
}

// Encrypt writes plaintext as the named secret, replacing any existing
// record atomically, and evicts the name from the cache.
func (s *Store) Encrypt(ctx context.Context, name, plaintext string) error {
	err := s.encrypt(ctx, name, plaintext)
	s.metrics.operation("encrypt", err)
	return err
}

func (s *Store) encrypt(ctx context.Context, name, plaintext string) error {
	if err := checkName("encrypt", name); err != nil {
		return err
	}

	key, err := s.keys.MasterKey()
	if err != nil {
		return &dverrors.Error{Kind: dverrors.KeyUnavailable, Op: "encrypt", Name: name, Err: err}
	}

	s.logger.Debug("Encrypting %s with %s backend", name, s.backend.Name())
	armored, err := s.call(ctx, "encrypt", []byte(key), func(ctx context.Context, pass []byte) ([]byte, error) {
		return s.backend.Encrypt(ctx, []byte(plaintext), pass)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &dverrors.Error{
				Kind:       dverrors.EncryptionTimeout,
				Op:         "encrypt",
				Name:       name,
				Diagnostic: fmt.Sprintf("%s backend gave no answer within %s", s.backend.Name(), s.timeout),
				Err:        err,
			}
		}
		return &dverrors.Error{Kind: dverrors.EncryptionFailed, Op: "encrypt", Name: name, Err: err}
	}

	path := s.recordPath(name)
	if err := writeRecord(s.dir, name, armored); err != nil {
		return &dverrors.Error{Kind: dverrors.EncryptionFailed, Op: "encrypt", Name: name, Path: path, Err: err}
	}

	s.cache.evict(name)
	return nil
}

// call runs fn under the store timeout. The result is abandoned when the
// deadline passes even if fn ignores its context. fn owns pass and the
// passphrase bytes are wiped once it returns.
func (s *Store) call(ctx context.Context, op string, pass []byte, fn func(context.Context, []byte) ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		defer memguard.WipeBytes(pass)
		out, err := fn(ctx, pass)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		s.metrics.observeBackend(op, s.backend.Name(), time.Since(start))
		if r.err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.out, r.err
	case <-ctx.Done():
		s.metrics.observeBackend(op, s.backend.Name(), time.Since(start))
		return nil, ctx.Err()
	}
}

// List returns the names of all stored secrets in ascending order. A
// directory that cannot be read is logged and reported as empty.
func (s *Store) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("Failed to list secrets in %s: %v", s.dir, err)
		return []string{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		stem, ok := strings.CutSuffix(entry.Name(), RecordExt)
		if !ok || stem == "" {
			continue
		}
		names = append(names, stem)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether a record for name is present. Invalid names never
// exist.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(s.recordPath(name))
	return err == nil && !info.IsDir()
}

// ClearCache drops every cached value.
func (s *Store) ClearCache() {
	s.cache.clear()
	s.logger.Debug("Secret cache cleared")
}

// CacheLen returns the number of cached values.
func (s *Store) CacheLen() int {
	return s.cache.len()
}

// Remove deletes the named record and evicts it from the cache.
func (s *Store) Remove(name string) error {
	if err := checkName("remove", name); err != nil {
		return err
	}

	path := s.recordPath(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &dverrors.Error{Kind: dverrors.SecretNotFound, Op: "remove", Name: name, Path: path}
		}
		return fmt.Errorf("failed to remove secret %q: %w", name, err)
	}
	s.cache.evict(name)
	return nil
}

func (s *Store) recordPath(name string) string {
	return filepath.Join(s.dir, name+RecordExt)
}

// ValidateName checks that name can be used as a record file stem.
func ValidateName(name string) error {
	return checkName("", name)
}

func checkName(op, name string) error {
	var reason string
	switch {
	case name == "":
		reason = "name is empty"
	case name == "." || name == "..":
		reason = "name is a directory reference"
	case strings.ContainsAny(name, `/\`):
		reason = "name contains a path separator"
	case strings.ContainsRune(name, 0):
		reason = "name contains a NUL byte"
	default:
		return nil
	}
	return &dverrors.Error{Kind: dverrors.InvalidName, Op: op, Name: name, Diagnostic: reason}
}

// writeRecord replaces dir/name.enc with data via a synced temp file and
// rename, so readers never observe a partial record.
func writeRecord(dir, name string, data []byte) (err error) {
	tmp := filepath.Join(dir, "."+name+RecordExt+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name+RecordExt))
}
