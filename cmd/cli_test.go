package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/notebooklm-cli/internal/config"
)

func executeCLI(t *testing.T, dataDir string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("NLM_DATA_DIR", dataDir)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeAuthFixture(t *testing.T, dataDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, 0o700))

	bundle := map[string]any{
		"cookies": map[string]string{
			"SID": "s", "HSID": "h", "SSID": "ss", "APISID": "a", "SAPISID": "sa",
		},
		"csrf_token": "fixture-token",
		"session_id": "12345",
	}
	data, err := json.Marshal(bundle)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "auth.json"), data, 0o600))
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestRootHelpListsCommands(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "--help")
	require.NoError(t, err)
	for _, name := range []string{"login", "logout", "status", "doctor", "setup", "notebooks", "ask", "serve"} {
		assert.Contains(t, stdout, name)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out")
}

func TestStatusJSONWithoutSession(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "not_authenticated")
}

func TestDoctorReportsMissingSession(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "doctor")
	require.NoError(t, err)
	assert.Contains(t, stdout, "session cookies")
	assert.Contains(t, stdout, "no stored session")
	assert.Contains(t, stdout, "build label:")
}

func TestDoctorWithStoredSession(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".nlm")
	writeAuthFixture(t, dataDir)

	stdout, _, err := executeCLI(t, dataDir, "doctor")
	require.NoError(t, err)
	assert.Contains(t, stdout, "5 cookies stored")
}

func TestSetupWritesConfigFile(t *testing.T) {
	dataDir := t.TempDir()

	stdout, _, err := executeCLI(t, dataDir, "setup")
	require.NoError(t, err)
	assert.Contains(t, stdout, "config.toml")

	data, err := os.ReadFile(filepath.Join(dataDir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "build_label")
}

func TestNotebooksListAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal([]any{[]any{
			[]any{"Research Notes", []any{[]any{[]any{"src-1"}, "Paper"}}, "nb-1"},
		}})
		frame, _ := json.Marshal([]any{
			[]any{"wrb.fr", config.RPCListNotebooks, string(payload), nil, nil, nil, "generic"},
		})
		fmt.Fprint(w, ")]}'\n\n"+string(frame)+"\n")
	}))
	defer srv.Close()
	t.Setenv("NLM_BASE_URL", srv.URL)

	dataDir := filepath.Join(t.TempDir(), ".nlm")
	writeAuthFixture(t, dataDir)

	stdout, _, err := executeCLI(t, dataDir, "notebooks")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Research Notes")
	assert.Contains(t, stdout, "nb-1")
	assert.Contains(t, stdout, "1 sources")
}

func TestNotebooksRequiresSession(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "notebooks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestAskRequiresQuestion(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "ask", "nb-1")
	require.Error(t, err)
}

func TestServeAnswersInitialize(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("NLM_DATA_DIR", dataDir)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"))
	root.SetArgs([]string{"serve"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "protocolVersion")
	assert.Contains(t, stdout.String(), "\"nlm\"")
}
