// Package client talks to the NotebookLM internal API: it owns the HTTP
// session, the retry and auth-recovery loop, and the domain operations built
// on top of the batch transport.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
	"github.com/bnema/notebooklm-cli/internal/ports"
	"github.com/bnema/notebooklm-cli/internal/protocol"
)

// Client executes calls against the NotebookLM API with one credential
// bundle. It is safe for concurrent use. Conversation turns for follow-up
// queries live only in memory and do not survive the process.
type Client struct {
	cfg    config.Config
	store  ports.CredentialStore
	clock  ports.Clock
	logger *zap.Logger

	httpc *http.Client

	mu            sync.Mutex
	creds         domain.Credentials
	conversations map[string][]domain.ConversationTurn
	reqid         int
}

// New builds a client around an already-loaded credential bundle. A bundle
// without a CSRF token is accepted; the token is refreshed on first use.
func New(cfg config.Config, creds domain.Credentials, store ports.CredentialStore, clock ports.Clock, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:           cfg,
		store:         store,
		clock:         clock,
		logger:        logger,
		httpc:         &http.Client{},
		creds:         creds,
		conversations: make(map[string][]domain.ConversationTurn),
		reqid:         100000 + rand.Intn(900000),
	}
}

// Credentials returns a copy of the bundle currently in use.
func (c *Client) Credentials() domain.Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// statusError carries a non-2xx transport status through the retry loop.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d", e.status)
}

// callRPC executes one batch RPC with recovery. The loop is flat: retryable
// server statuses back off exponentially up to MaxRetries, an auth failure
// triggers exactly one refresh-and-retry, and the two budgets are
// independent. Anything else fails immediately.
func (c *Client) callRPC(ctx context.Context, rpcID string, params any, sourcePath string, timeout time.Duration) (any, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	authRetried := false
	serverRetries := 0

	for {
		result, err := c.batchOnce(ctx, rpcID, params, sourcePath, timeout)
		if err == nil {
			return result, nil
		}

		var httpErr *statusError
		isStatus := errors.As(err, &httpErr)

		switch {
		case isStatus && isRetryableStatus(httpErr.status):
			if serverRetries >= c.cfg.MaxRetries {
				return nil, &domain.APIError{
					Message: fmt.Sprintf("server error after %d attempts", c.cfg.MaxRetries+1),
					Status:  httpErr.status,
				}
			}
			delay := backoffDelay(c.cfg, serverRetries)
			c.logger.Warn("server error, backing off",
				zap.String("rpc", rpcID),
				zap.Int("status", httpErr.status),
				zap.Int("attempt", serverRetries+1),
				zap.Duration("delay", delay))
			c.clock.Sleep(delay)
			serverRetries++

		case isStatus && (httpErr.status == http.StatusUnauthorized || httpErr.status == http.StatusForbidden):
			if authRetried {
				return nil, domain.NewAuthError("authentication rejected after refresh", "")
			}
			if err := c.recoverAuth(ctx); err != nil {
				return nil, err
			}
			authRetried = true

		case errors.Is(err, protocol.ErrAuthExpired):
			if authRetried {
				return nil, domain.NewAuthError("authentication expired after refresh", "")
			}
			if err := c.recoverAuth(ctx); err != nil {
				return nil, err
			}
			authRetried = true

		case isStatus:
			return nil, &domain.APIError{Message: "unexpected response", Status: httpErr.status}

		default:
			return nil, err
		}
	}
}

// batchOnce performs a single POST of one batch call and extracts its result.
func (c *Client) batchOnce(ctx context.Context, rpcID string, params any, sourcePath string, timeout time.Duration) (any, error) {
	c.mu.Lock()
	token := c.creds.CSRFToken
	sessionID := c.creds.SessionID
	c.mu.Unlock()

	body, err := protocol.EncodeBatchBody(rpcID, params, token)
	if err != nil {
		return nil, err
	}
	url := protocol.BatchURL(c.cfg.BatchEndpoint(), rpcID, c.cfg.BuildLabel, sessionID, sourcePath)

	text, err := c.postForm(ctx, url, body, timeout)
	if err != nil {
		return nil, err
	}

	result, _, err := protocol.ExtractResult(protocol.DecodeFrames(text), rpcID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// postForm sends a form-encoded POST and returns the response body. Non-2xx
// statuses come back as *statusError so the caller can pick a recovery.
func (c *Client) postForm(ctx context.Context, url, body string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Origin", c.cfg.BaseURL)
	req.Header.Set("Referer", c.cfg.BaseURL+"/")
	req.Header.Set("X-Same-Domain", "1")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Cookie", c.cookieHeader())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{status: resp.StatusCode}
	}
	return string(raw), nil
}

func (c *Client) cookieHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	pairs := make([]string, 0, len(c.creds.Cookies))
	for name, value := range c.creds.Cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

// ensureToken refreshes auth when the bundle has no CSRF token yet.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	hasToken := c.creds.CSRFToken != ""
	c.mu.Unlock()

	if hasToken {
		return nil
	}
	return c.recoverAuth(ctx)
}

// recoverAuth refreshes the CSRF token from the landing page. When the
// refresh itself fails on auth, the bundle is reloaded from disk once: the
// user may have re-logged in from another terminal.
func (c *Client) recoverAuth(ctx context.Context) error {
	err := c.refreshAuth(ctx)
	if err == nil {
		return nil
	}

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		return err
	}

	disk, loadErr := c.store.Load(ctx)
	if loadErr != nil || !disk.Usable() {
		return err
	}

	c.logger.Info("reloaded credentials from disk after refresh failure")
	c.mu.Lock()
	c.creds = disk
	c.mu.Unlock()

	if disk.CSRFToken == "" {
		return c.refreshAuth(ctx)
	}
	return nil
}

// refreshAuth fetches the landing page as a browser navigation and scrapes
// the fresh CSRF token and session id out of it. A redirect to the Google
// login page means the cookies themselves are dead.
func (c *Client) refreshAuth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build landing page request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cookie", c.cookieHeader())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch landing page: %w", err)
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Request.URL.Host, "accounts.google.com") {
		return domain.NewAuthError("cookies expired: redirected to Google login", "")
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewAuthError(fmt.Sprintf("landing page returned status %d", resp.StatusCode), "")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read landing page: %w", err)
	}
	html := string(raw)

	token, ok := protocol.ExtractCSRFToken(html)
	if !ok {
		return domain.NewAuthError("no request token on landing page; the page layout may have changed", "")
	}

	c.mu.Lock()
	c.creds.CSRFToken = token
	if sid, ok := protocol.ExtractSessionID(html); ok {
		c.creds.SessionID = sid
	}
	c.creds.CapturedAt = c.clock.Now()
	creds := c.creds
	c.mu.Unlock()

	c.logger.Debug("refreshed auth tokens")

	// Persisting the refreshed bundle is best-effort; a read-only data dir
	// must not fail the call in flight.
	if err := c.store.Save(ctx, creds); err != nil {
		c.logger.Warn("could not persist refreshed credentials", zap.Error(err))
	}
	return nil
}

func isRetryableStatus(status int) bool {
	_, ok := config.RetryableStatuses[status]
	return ok
}

func backoffDelay(cfg config.Config, retry int) time.Duration {
	delay := cfg.RetryBaseDelay << retry
	if delay > cfg.RetryMaxDelay {
		delay = cfg.RetryMaxDelay
	}
	return delay
}
