// Package application wires the credential store and the API client into
// the operations the CLI and the MCP server expose.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bnema/notebooklm-cli/internal/adapters/browser"
	"github.com/bnema/notebooklm-cli/internal/client"
	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
	"github.com/bnema/notebooklm-cli/internal/ports"
)

// AuthState summarizes whether stored credentials can reach the service.
type AuthState string

const (
	AuthStateAuthenticated    AuthState = "authenticated"
	AuthStateExpired          AuthState = "expired"
	AuthStateNotAuthenticated AuthState = "not_authenticated"
)

// AuthStatus is the full report behind an AuthState, for the status command.
type AuthStatus struct {
	State          AuthState
	CookieCount    int
	MissingCookies []string
	HasCSRFToken   bool
	CapturedAt     string
	Detail         string
}

// loginFunc runs an interactive browser login. Swappable in tests.
type loginFunc func(ctx context.Context, baseURL string, opts browser.Options, logger *zap.Logger) (domain.Credentials, error)

// Session owns one lazily built API client and rebuilds it when the
// credentials change. It replaces nothing on disk by itself; the store does
// all persistence.
type Session struct {
	cfg    config.Config
	store  ports.CredentialStore
	clock  ports.Clock
	logger *zap.Logger
	login  loginFunc

	mu     sync.Mutex
	client *client.Client
}

func NewSession(cfg config.Config, store ports.CredentialStore, clock ports.Clock, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:    cfg,
		store:  store,
		clock:  clock,
		logger: logger,
		login:  browser.Login,
	}
}

// Client returns the API client, building it from stored credentials on
// first use.
func (s *Session) Client(ctx context.Context) (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	creds, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsNotFound) {
			return nil, domain.NewAuthError("not logged in", "")
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if !creds.Usable() {
		return nil, domain.NewAuthError("stored credentials are incomplete", "")
	}

	s.client = client.New(s.cfg, creds, s.store, s.clock, s.logger)
	return s.client, nil
}

// Reset drops the cached client so the next call rebuilds it from disk.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
}

// Login runs the interactive browser flow, persists the captured bundle, and
// resets the session.
func (s *Session) Login(ctx context.Context, opts browser.Options) (domain.Credentials, error) {
	creds, err := s.login(ctx, s.cfg.BaseURL, opts, s.logger)
	if err != nil {
		return domain.Credentials{}, err
	}

	if err := s.store.Save(ctx, creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("save credentials: %w", err)
	}

	s.Reset()
	return creds, nil
}

// Logout deletes stored credentials and resets the session.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return err
	}
	s.Reset()
	return nil
}

// CheckAuth classifies the stored credentials, proving live ones with a
// listing call.
func (s *Session) CheckAuth(ctx context.Context) AuthStatus {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return AuthStatus{
			State:  AuthStateNotAuthenticated,
			Detail: "no stored credentials",
		}
	}

	status := AuthStatus{
		CookieCount:    len(creds.Cookies),
		MissingCookies: creds.MissingCookies(),
		HasCSRFToken:   creds.CSRFToken != "",
	}
	if !creds.CapturedAt.IsZero() {
		status.CapturedAt = creds.CapturedAt.UTC().Format("2006-01-02 15:04:05 MST")
	}

	if !creds.Usable() {
		status.State = AuthStateNotAuthenticated
		status.Detail = "required cookies missing"
		return status
	}

	c, err := s.Client(ctx)
	if err != nil {
		status.State = AuthStateExpired
		status.Detail = err.Error()
		return status
	}

	if _, err := c.ListNotebooks(ctx); err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			status.State = AuthStateExpired
			status.Detail = authErr.Message
		} else {
			status.State = AuthStateExpired
			status.Detail = fmt.Sprintf("verification call failed: %v", err)
		}
		return status
	}

	status.State = AuthStateAuthenticated
	return status
}
