package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
}

type memStore struct {
	mu      sync.Mutex
	creds   domain.Credentials
	loadErr error
	saves   int
}

func (s *memStore) Load(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return domain.Credentials{}, s.loadErr
	}
	return s.creds, nil
}

func (s *memStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.saves++
	return nil
}

func (s *memStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = domain.Credentials{}
	return nil
}

func testCreds() domain.Credentials {
	return domain.Credentials{
		Cookies: map[string]string{
			"SID": "s", "HSID": "h", "SSID": "ss", "APISID": "a", "SAPISID": "sa",
		},
		CSRFToken: "token-1",
		SessionID: "sid-1",
	}
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		DataDir:          "/tmp",
		BaseURL:          baseURL,
		BuildLabel:       "bl-test",
		UserAgent:        "ua-test",
		CallTimeout:      5 * time.Second,
		AddSourceTimeout: 5 * time.Second,
		QueryTimeout:     5 * time.Second,
		MaxRetries:       3,
		RetryBaseDelay:   time.Second,
		RetryMaxDelay:    16 * time.Second,
	}
}

func newTestClient(srv *httptest.Server, creds domain.Credentials, store *memStore, clock *fakeClock) *Client {
	return New(testConfig(srv.URL), creds, store, clock, zap.NewNop())
}

// batchResponse renders a batch response carrying one result payload.
func batchResponse(t *testing.T, rpcID string, result any) string {
	t.Helper()
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	frame, err := json.Marshal([]any{
		[]any{"wrb.fr", rpcID, string(payload), nil, nil, nil, "generic"},
	})
	require.NoError(t, err)
	return ")]}'\n\n" + fmt.Sprintf("%d", len(frame)) + "\n" + string(frame) + "\n"
}

// authExpiredResponse renders the rpc-level auth-expired signature.
func authExpiredResponse(t *testing.T, rpcID string) string {
	t.Helper()
	frame, err := json.Marshal([]any{
		[]any{"wrb.fr", rpcID, nil, nil, nil, []any{16}, "generic"},
	})
	require.NoError(t, err)
	return ")]}'\n\n" + string(frame) + "\n"
}

func landingPage(token, sessionID string) string {
	return `<html><script>window.WIZ_global_data = {"SNlM0e":"` + token +
		`","FdrFJe":"` + sessionID + `"};</script></html>`
}

func notebookListResult() any {
	return []any{[]any{
		[]any{
			"Research Notes",
			[]any{[]any{[]any{"src-1"}, "Paper One"}},
			"nb-1",
			nil, nil,
			[]any{1, nil, nil, nil, nil, []any{1700000000, 0}, nil, nil, []any{1690000000, 0}},
		},
	}}
}

func formField(t *testing.T, body, field string) (string, bool) {
	t.Helper()
	values, err := url.ParseQuery(body)
	require.NoError(t, err)
	if !values.Has(field) {
		return "", false
	}
	return values.Get(field), true
}

func TestListNotebooks(t *testing.T) {
	var gotBody, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotCookie = r.Header.Get("Cookie")
		assert.Equal(t, config.RPCListNotebooks, r.URL.Query().Get("rpcids"))
		assert.Equal(t, "bl-test", r.URL.Query().Get("bl"))
		assert.Equal(t, "sid-1", r.URL.Query().Get("f.sid"))
		fmt.Fprint(w, batchResponse(t, config.RPCListNotebooks, notebookListResult()))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})
	notebooks, err := c.ListNotebooks(context.Background())
	require.NoError(t, err)

	require.Len(t, notebooks, 1)
	nb := notebooks[0]
	assert.Equal(t, domain.NotebookID("nb-1"), nb.ID)
	assert.Equal(t, "Research Notes", nb.Title)
	assert.True(t, nb.IsOwned)
	assert.False(t, nb.IsShared)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), nb.ModifiedAt)
	assert.Equal(t, time.Unix(1690000000, 0).UTC(), nb.CreatedAt)
	require.Len(t, nb.Sources, 1)
	assert.Equal(t, domain.SourceID("src-1"), nb.Sources[0].ID)
	assert.Equal(t, "Paper One", nb.Sources[0].Title)

	token, ok := formField(t, gotBody, "at")
	require.True(t, ok)
	assert.Equal(t, "token-1", token)
	assert.Contains(t, gotCookie, "SAPISID=sa")
}

func TestCallRetriesRetryableStatuses(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, batchResponse(t, config.RPCListNotebooks, notebookListResult()))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Now()}
	c := newTestClient(srv, testCreds(), &memStore{}, clock)

	_, err := c.ListNotebooks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, clock.sleeps)
}

func TestCallGivesUpAfterMaxRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Now()}
	c := newTestClient(srv, testCreds(), &memStore{}, clock)

	_, err := c.ListNotebooks(context.Background())

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, 4, calls)
	assert.Len(t, clock.sleeps, 3)
}

func TestBackoffDelayIsCapped(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.MaxRetries = 10

	var prev time.Duration
	for retry := 0; retry < 10; retry++ {
		d := backoffDelay(cfg, retry)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, cfg.RetryMaxDelay)
		prev = d
	}
	assert.Equal(t, cfg.RetryMaxDelay, backoffDelay(cfg, 9))
}

func TestForbiddenTriggersSingleAuthRefresh(t *testing.T) {
	var batchCalls, landingCalls int
	var retryToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			landingCalls++
			fmt.Fprint(w, landingPage("fresh-token", "98765"))
			return
		}
		batchCalls++
		if batchCalls == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		retryToken, _ = formField(t, string(raw), "at")
		fmt.Fprint(w, batchResponse(t, config.RPCListNotebooks, notebookListResult()))
	}))
	defer srv.Close()

	store := &memStore{}
	c := newTestClient(srv, testCreds(), store, &fakeClock{now: time.Now()})

	notebooks, err := c.ListNotebooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, notebooks, 1)

	assert.Equal(t, 2, batchCalls)
	assert.Equal(t, 1, landingCalls)
	assert.Equal(t, "fresh-token", retryToken)
	assert.Equal(t, "fresh-token", c.Credentials().CSRFToken)
	assert.Equal(t, "98765", c.Credentials().SessionID)
	assert.Equal(t, 1, store.saves)
}

func TestAuthExpiredSignalTriggersRefresh(t *testing.T) {
	var batchCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, landingPage("fresh-token", "98765"))
			return
		}
		batchCalls++
		if batchCalls == 1 {
			fmt.Fprint(w, authExpiredResponse(t, config.RPCListNotebooks))
			return
		}
		fmt.Fprint(w, batchResponse(t, config.RPCListNotebooks, notebookListResult()))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	_, err := c.ListNotebooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batchCalls)
}

func TestAuthExpiredTwiceFailsWithAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, landingPage("fresh-token", "98765"))
			return
		}
		fmt.Fprint(w, authExpiredResponse(t, config.RPCListNotebooks))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	_, err := c.ListNotebooks(context.Background())

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.NotEmpty(t, authErr.Hint)
}

func TestRefreshFailureFallsBackToDiskCredentials(t *testing.T) {
	var batchCalls int
	var retryToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Landing page without a token: refresh cannot succeed.
			fmt.Fprint(w, "<html>nothing here</html>")
			return
		}
		batchCalls++
		if batchCalls == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		retryToken, _ = formField(t, string(raw), "at")
		fmt.Fprint(w, batchResponse(t, config.RPCListNotebooks, notebookListResult()))
	}))
	defer srv.Close()

	diskCreds := testCreds()
	diskCreds.CSRFToken = "disk-token"
	store := &memStore{creds: diskCreds}

	c := newTestClient(srv, testCreds(), store, &fakeClock{now: time.Now()})

	_, err := c.ListNotebooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disk-token", retryToken)
}

func TestMissingTokenRefreshesBeforeFirstCall(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			order = append(order, "landing")
			fmt.Fprint(w, landingPage("fresh-token", "98765"))
			return
		}
		order = append(order, "batch")
		fmt.Fprint(w, batchResponse(t, config.RPCListNotebooks, notebookListResult()))
	}))
	defer srv.Close()

	creds := testCreds()
	creds.CSRFToken = ""
	c := newTestClient(srv, creds, &memStore{}, &fakeClock{now: time.Now()})

	_, err := c.ListNotebooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"landing", "batch"}, order)
}

func TestAddTextSourceValidation(t *testing.T) {
	c := New(testConfig("http://unused"), testCreds(), &memStore{}, &fakeClock{}, zap.NewNop())

	_, err := c.AddTextSource(context.Background(), "", "t", "body")
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)

	_, err = c.AddTextSource(context.Background(), "nb-1", "t", "")
	require.ErrorAs(t, err, &valErr)

	_, err = c.AddTextSource(context.Background(), "nb-1", "t", strings.Repeat("x", MaxTextSourceLength+1))
	require.ErrorAs(t, err, &valErr)
}

func TestAddURLSourceValidation(t *testing.T) {
	c := New(testConfig("http://unused"), testCreds(), &memStore{}, &fakeClock{}, zap.NewNop())

	_, err := c.AddURLSource(context.Background(), "nb-1", "ftp://example.com")
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestAddURLSourceYouTubeSlot(t *testing.T) {
	var sourceData []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		freq, ok := formField(t, string(raw), "f.req")
		require.True(t, ok)

		var envelope []any
		require.NoError(t, json.Unmarshal([]byte(freq), &envelope))
		inner := envelope[0].([]any)[0].([]any)
		var params []any
		require.NoError(t, json.Unmarshal([]byte(inner[1].(string)), &params))
		sourceData = params[0].([]any)[0].([]any)

		fmt.Fprint(w, batchResponse(t, config.RPCAddSource, []any{
			[]any{[]any{[]any{"src-new"}, "A Video"}},
		}))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	added, err := c.AddURLSource(context.Background(), "nb-1", "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceID("src-new"), added.ID)
	assert.Equal(t, "A Video", added.Title)
	assert.True(t, added.Confirmed)

	// YouTube URLs ride in slot 7; plain web pages in slot 2.
	require.Len(t, sourceData, 11)
	assert.Equal(t, []any{"https://www.youtube.com/watch?v=abc"}, sourceData[7])
	assert.Nil(t, sourceData[2])
}

func TestAddSourceTimeoutIsUnconfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.AddSourceTimeout = 20 * time.Millisecond
	c := New(cfg, testCreds(), &memStore{}, &fakeClock{now: time.Now()}, zap.NewNop())

	added, err := c.AddTextSource(context.Background(), "nb-1", "Notes", "some text")
	require.NoError(t, err)
	assert.False(t, added.Confirmed)
	assert.Empty(t, added.ID)
}

func TestGetSourceContent(t *testing.T) {
	result := []any{
		[]any{[]any{"src-1"}, "Paper One", []any{nil, nil, nil, nil, 3, nil, nil, []any{"https://example.com/p.pdf"}}},
		nil, nil,
		[]any{[]any{
			[]any{"First paragraph.", []any{"Nested second."}},
			[]any{"", "Third."},
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, batchResponse(t, config.RPCGetSource, result))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	content, err := c.GetSourceContent(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, "Paper One", content.Title)
	assert.Equal(t, "pdf", content.TypeName)
	assert.Equal(t, "https://example.com/p.pdf", content.URL)
	assert.Equal(t, "First paragraph.\n\nNested second.\n\nThird.", content.Content)
	assert.Equal(t, len(content.Content), content.CharCount)
}

func TestListSources(t *testing.T) {
	result := []any{[]any{
		"Research Notes",
		[]any{
			[]any{[]any{"src-1"}, "Paper One", []any{nil, nil, nil, nil, 3, nil, nil, []any{"https://example.com/p.pdf"}}},
			[]any{[]any{"src-2"}, "Pasted", []any{nil, nil, nil, nil, 4}},
		},
		"nb-1",
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, config.RPCGetNotebook, r.URL.Query().Get("rpcids"))
		assert.Contains(t, r.URL.Query().Get("source-path"), "/notebook/nb-1")
		fmt.Fprint(w, batchResponse(t, config.RPCGetNotebook, result))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	sources, err := c.ListSources(context.Background(), "nb-1")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, domain.SourceID("src-1"), sources[0].ID)
	assert.Equal(t, "pdf", sources[0].TypeName)
	assert.Equal(t, "https://example.com/p.pdf", sources[0].URL)
	assert.Equal(t, "pasted_text", sources[1].TypeName)
	assert.Empty(t, sources[1].URL)
}
