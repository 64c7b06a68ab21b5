package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

// streamResponse renders a streaming answer body with one final-answer
// fragment.
func streamResponse(t *testing.T, answer string) string {
	t.Helper()
	payload, err := json.Marshal([]any{
		[]any{answer, nil, nil, nil, []any{nil, 1}},
	})
	require.NoError(t, err)
	frame, err := json.Marshal([]any{[]any{"wrb.fr", "q", string(payload)}})
	require.NoError(t, err)
	return ")]}'\n\n" + string(frame) + "\n"
}

// queryParams decodes the positional parameter array out of a streaming
// request body.
func queryParams(t *testing.T, body string) []any {
	t.Helper()
	freq, ok := formField(t, body, "f.req")
	require.True(t, ok)

	var envelope []any
	require.NoError(t, json.Unmarshal([]byte(freq), &envelope))
	require.Len(t, envelope, 2)
	require.Nil(t, envelope[0])

	var params []any
	require.NoError(t, json.Unmarshal([]byte(envelope[1].(string)), &params))
	return params
}

func TestAskValidation(t *testing.T) {
	c := New(testConfig("http://unused"), testCreds(), &memStore{}, &fakeClock{}, nil)

	var valErr *domain.ValidationError
	_, err := c.Ask(context.Background(), "", "why?", nil, "")
	require.ErrorAs(t, err, &valErr)

	_, err = c.Ask(context.Background(), "nb-1", "", nil, "")
	require.ErrorAs(t, err, &valErr)
}

func TestAskConversationContinuity(t *testing.T) {
	answers := []string{"The paper argues for X.", "It cites three experiments."}
	var bodies []string
	var reqids []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.Contains(r.URL.Path, "GenerateFreeFormStreamed"))
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		reqids = append(reqids, r.URL.Query().Get("_reqid"))
		fmt.Fprint(w, streamResponse(t, answers[len(bodies)-1]))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	first, err := c.Ask(context.Background(), "nb-1", "what is the claim?", []domain.SourceID{"src-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, answers[0], first.Text)
	assert.NotEmpty(t, first.ConversationID)
	assert.Equal(t, 1, first.TurnNumber)
	assert.False(t, first.IsFollowUp)

	second, err := c.Ask(context.Background(), "nb-1", "what evidence?", []domain.SourceID{"src-1"}, first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, answers[1], second.Text)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, 2, second.TurnNumber)
	assert.True(t, second.IsFollowUp)

	require.Len(t, bodies, 2)

	// Fresh conversation sends no history.
	firstParams := queryParams(t, bodies[0])
	require.Len(t, firstParams, 5)
	assert.Equal(t, []any{[]any{[]any{"src-1"}}}, firstParams[0])
	assert.Equal(t, "what is the claim?", firstParams[1])
	assert.Nil(t, firstParams[2])
	assert.Equal(t, first.ConversationID, firstParams[4])

	// Follow-up carries the cached turn, answer before question.
	secondParams := queryParams(t, bodies[1])
	assert.Equal(t, []any{
		[]any{answers[0], nil, float64(2)},
		[]any{"what is the claim?", nil, float64(1)},
	}, secondParams[2])
	assert.Equal(t, first.ConversationID, secondParams[4])

	// The request counter moves by a fixed step between calls.
	assert.NotEqual(t, reqids[0], reqids[1])
}

func TestAskResolvesSourcesFromNotebook(t *testing.T) {
	notebook := []any{[]any{
		"Notes",
		[]any{
			[]any{[]any{"src-1"}, "One", []any{}},
			[]any{[]any{"src-2"}, "Two", []any{}},
		},
		"nb-1",
	}}

	var streamed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "batchexecute") {
			fmt.Fprint(w, batchResponse(t, config.RPCGetNotebook, notebook))
			return
		}
		raw, _ := io.ReadAll(r.Body)
		streamed = string(raw)
		fmt.Fprint(w, streamResponse(t, "Grounded on both sources."))
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	answer, err := c.Ask(context.Background(), "nb-1", "summarize", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Grounded on both sources.", answer.Text)

	params := queryParams(t, streamed)
	assert.Equal(t, []any{
		[]any{[]any{"src-1"}},
		[]any{[]any{"src-2"}},
	}, params[0])
}

func TestAskEmptyAnswerDoesNotCacheTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, ")]}'\n")
	}))
	defer srv.Close()

	c := newTestClient(srv, testCreds(), &memStore{}, &fakeClock{now: time.Now()})

	answer, err := c.Ask(context.Background(), "nb-1", "anything?", []domain.SourceID{"src-1"}, "")
	require.NoError(t, err)
	assert.Empty(t, answer.Text)
	assert.Equal(t, 0, answer.TurnNumber)

	// A follow-up after an empty answer carries no history.
	followUp, err := c.Ask(context.Background(), "nb-1", "again?", []domain.SourceID{"src-1"}, answer.ConversationID)
	require.NoError(t, err)
	assert.True(t, followUp.IsFollowUp)
}
