// Package store provides locked, crash-safe access to the gus state file.
//
// Every mutation runs as read-modify-write under an exclusive lock on a
// sidecar lock file, and the new document replaces the old one with an
// atomic rename. Concurrent terminals therefore interleave whole
// transactions; a crash mid-write leaves the previous file intact.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
)

const (
	defaultLockAttempts = 40
	defaultLockBackoff  = 5 * time.Millisecond
	maxLockBackoff      = 250 * time.Millisecond
)

// Store guards one config file.
type Store struct {
	path         string
	defaults     config.Config
	lockAttempts int
	lockBackoff  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockRetry sets how many times lock acquisition is attempted and the
// initial backoff between attempts (doubled each time, capped).
func WithLockRetry(attempts int, backoff time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.lockAttempts = attempts
		}
		if backoff > 0 {
			s.lockBackoff = backoff
		}
	}
}

// New creates a store for path. defaults is the document used when the file
// does not exist yet.
func New(path string, defaults config.Config, opts ...Option) *Store {
	s := &Store{
		path:         path,
		defaults:     defaults,
		lockAttempts: defaultLockAttempts,
		lockBackoff:  defaultLockBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the config file has been written.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// View runs fn against the current document under a shared lock.
// Changes fn makes to cfg are discarded.
func (s *Store) View(fn func(cfg *config.Config) error) error {
	unlock, err := s.lock(false)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.read()
	if err != nil {
		return err
	}
	return fn(&cfg)
}

// Update runs fn against the current document under an exclusive lock and
// atomically persists the result. Nothing is written if fn returns an error.
func (s *Store) Update(fn func(cfg *config.Config) error) error {
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return s.write(&cfg)
}

// Load returns a snapshot of the current document.
func (s *Store) Load() (config.Config, error) {
	var out config.Config
	err := s.View(func(cfg *config.Config) error {
		out = *cfg
		return nil
	})
	return out, err
}

// Init writes the default document if no config file exists yet.
// It reports whether a file was created.
func (s *Store) Init() (bool, error) {
	created := false
	err := s.Update(func(cfg *config.Config) error {
		created = !s.Exists()
		return nil
	})
	return created, err
}

// lock acquires the sidecar lock file, retrying with exponential backoff
// while another process holds it.
func (s *Store) lock(exclusive bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, output.NewErrorf(output.CodeConfigSaveError, "failed to create config directory: %v", err).WithCause(err)
	}

	file, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, output.NewErrorf(output.CodeConfigSaveError, "failed to open lock file: %v", err).WithCause(err)
	}

	backoff := s.lockBackoff
	for attempt := 1; ; attempt++ {
		ok, err := tryLockFile(file, exclusive)
		if err != nil {
			_ = file.Close()
			return nil, output.NewErrorf(output.CodeConfigSaveError, "failed to lock %s: %v", s.path, err).WithCause(err)
		}
		if ok {
			break
		}
		if attempt >= s.lockAttempts {
			_ = file.Close()
			return nil, output.NewErrorf(output.CodeLockContention,
				"config %s is locked by another gus process (gave up after %d attempts)", s.path, attempt)
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxLockBackoff {
			backoff = maxLockBackoff
		}
	}

	return func() {
		_ = unlockFile(file)
		_ = file.Close()
	}, nil
}

// read loads the document. A missing file yields the defaults; anything
// unparsable is reported as corrupt and never repaired.
func (s *Store) read() (config.Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return config.Config{}, output.NewErrorf(output.CodeConfigNotFound, "failed to read config: %v", err).WithCause(err)
	}

	cfg, err := config.Parse(data)
	if err != nil {
		return config.Config{}, output.NewErrorf(output.CodeConfigCorrupt,
			"config file %s is corrupt, refusing to continue: %v", s.path, err).
			WithCause(err).
			WithDetail("path", s.path)
	}
	return cfg, nil
}

// write replaces the config file atomically via a temp file and rename.
func (s *Store) write(cfg *config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return output.NewErrorf(output.CodeConfigSaveError, "failed to marshal config: %v", err).WithCause(err)
	}

	fail := func(format string, err error) error {
		return output.NewErrorf(output.CodeConfigSaveError, format, err).WithCause(err)
	}

	tmpPath := s.path + ".tmp"
	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fail("failed to create temp file: %v", err)
	}

	writer := bufio.NewWriter(tmpFile)
	if _, err := writer.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fail("failed to write config: %v", err)
	}
	if err := writer.Flush(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fail("failed to flush writer: %v", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fail("failed to sync temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fail("failed to close temp file: %v", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fail("failed to rename temp file: %v", err)
	}
	return nil
}

// String implements fmt.Stringer.
func (s *Store) String() string {
	return fmt.Sprintf("store(%s)", s.path)
}
