// Package credstore persists the credential bundle as a JSON file in the
// data directory, readable by the owner only.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
	"github.com/bnema/notebooklm-cli/internal/ports"
)

const tempFilePattern = ".auth-*.json.tmp"

type Store struct {
	path string
	mu   sync.Mutex
}

var _ ports.CredentialStore = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the bundle from disk. A missing, unreadable, or cookie-less
// file is domain.ErrCredentialsNotFound: callers treat all three the same
// way, by sending the user to login.
func (s *Store) Load(ctx context.Context) (domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credentials{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Credentials{}, domain.ErrCredentialsNotFound
		}
		return domain.Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode credentials file: %w: %w", domain.ErrCredentialsNotFound, err)
	}
	if len(creds.Cookies) == 0 {
		return domain.Credentials{}, domain.ErrCredentialsNotFound
	}

	return creds, nil
}

// Save replaces the bundle atomically: write to a temp file in the same
// directory, fix the mode, rename over the target.
func (s *Store) Save(ctx context.Context, creds domain.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), config.DirMode); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp credentials file: %w", err)
	}

	if err := tempFile.Chmod(config.FileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp credentials file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp credentials file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}

	cleanup = false
	return nil
}

// Delete removes the bundle. A bundle that was never saved is not an error.
func (s *Store) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}
