// Package browser drives a visible Chrome window through the Google login
// flow and captures the session cookies and page tokens the API client
// needs.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/bnema/notebooklm-cli/internal/domain"
	"github.com/bnema/notebooklm-cli/internal/protocol"
)

const pollInterval = 2 * time.Second

// Options tune a login capture.
type Options struct {
	// ChromePath overrides browser autodetection.
	ChromePath string
	// Timeout bounds how long the user gets to finish logging in.
	Timeout time.Duration
}

// ChromeFound reports whether a usable Chrome or Chromium binary is on this
// machine.
func ChromeFound() (string, bool) {
	return launcher.LookPath()
}

// Login opens a headed browser on the NotebookLM landing page, waits for the
// user to finish signing in, and captures the resulting credential bundle.
// The window closes when the capture is done.
func Login(ctx context.Context, baseURL string, opts Options, logger *zap.Logger) (domain.Credentials, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	l := launcher.New().Headless(false).Leakless(true)
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return domain.Credentials{}, fmt.Errorf("connect to browser: %w", err)
	}
	defer func() { _ = b.Close() }()

	page, err := b.Page(proto.TargetCreateTarget{URL: baseURL})
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("open landing page: %w", err)
	}

	logger.Info("waiting for login to finish in the browser window")

	html, err := waitForSignedInPage(ctx, page, baseURL)
	if err != nil {
		return domain.Credentials{}, err
	}

	cookies, err := capturePageCookies(page)
	if err != nil {
		return domain.Credentials{}, err
	}

	creds := domain.Credentials{
		Cookies:    cookies,
		CapturedAt: time.Now().UTC(),
	}
	if token, ok := protocol.ExtractCSRFToken(html); ok {
		creds.CSRFToken = token
	}
	if sid, ok := protocol.ExtractSessionID(html); ok {
		creds.SessionID = sid
	}

	if missing := creds.MissingCookies(); len(missing) > 0 {
		return domain.Credentials{}, fmt.Errorf("%w: %s", domain.ErrMissingCookies, strings.Join(missing, ", "))
	}

	logger.Info("captured session",
		zap.Int("cookies", len(creds.Cookies)),
		zap.Bool("csrf_token", creds.CSRFToken != ""))

	return creds, nil
}

// waitForSignedInPage polls until the tab has settled on the app with its
// tokens present, meaning login completed.
func waitForSignedInPage(ctx context.Context, page *rod.Page, baseURL string) (string, error) {
	appHost := hostOf(baseURL)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("timed out waiting for login: %w", ctx.Err())
		case <-ticker.C:
		}

		info, err := page.Info()
		if err != nil {
			// The tab can be mid-navigation; keep polling.
			continue
		}
		if hostOf(info.URL) != appHost {
			continue
		}

		html, err := page.HTML()
		if err != nil {
			continue
		}
		if _, ok := protocol.ExtractCSRFToken(html); ok {
			return html, nil
		}
	}
}

// capturePageCookies reads every cookie visible to the tab and keeps the
// Google session cookies worth persisting.
func capturePageCookies(page *rod.Page) (map[string]string, error) {
	res, err := proto.NetworkGetCookies{}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("read browser cookies: %w", err)
	}

	all := make(map[string]string, len(res.Cookies))
	for _, c := range res.Cookies {
		if !strings.Contains(c.Domain, "google") {
			continue
		}
		all[c.Name] = c.Value
	}

	return domain.FilterEssential(all), nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
