package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/notebooklm-cli/internal/application"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

// toolPayload is the body of one tool result. Every payload carries a status
// field; failures add error and, when recovery is known, a hint.
type toolPayload map[string]any

func (p toolPayload) status() string {
	s, _ := p["status"].(string)
	return s
}

type toolHandlerFunc func(ctx context.Context, args json.RawMessage) toolPayload

func (s *Server) toolHandler(name string) (toolHandlerFunc, bool) {
	switch name {
	case "list_notebooks":
		return s.toolListNotebooks, true
	case "get_notebook":
		return s.toolGetNotebook, true
	case "list_sources":
		return s.toolListSources, true
	case "get_source_content":
		return s.toolGetSourceContent, true
	case "add_source_url":
		return s.toolAddSourceURL, true
	case "add_source_text":
		return s.toolAddSourceText, true
	case "query_notebook":
		return s.toolQueryNotebook, true
	case "check_auth":
		return s.toolCheckAuth, true
	default:
		return nil, false
	}
}

func toolDefinitions() []map[string]any {
	return []map[string]any{
		{
			"name":        "list_notebooks",
			"description": "List all NotebookLM notebooks with titles, IDs, source counts, ownership, and timestamps",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"max_results": map[string]any{"type": "integer", "description": "Maximum notebooks to return (default 50)"},
				},
			},
		},
		{
			"name":        "get_notebook",
			"description": "Get one notebook's details including its list of sources",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notebook_id": map[string]string{"type": "string", "description": "The notebook UUID"},
				},
				"required": []string{"notebook_id"},
			},
		},
		{
			"name":        "list_sources",
			"description": "List all sources in a notebook with titles, types, and URLs",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notebook_id": map[string]string{"type": "string", "description": "The notebook UUID"},
				},
				"required": []string{"notebook_id"},
			},
		},
		{
			"name":        "get_source_content",
			"description": "Get the full indexed text of one source plus its metadata",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source_id": map[string]string{"type": "string", "description": "The source UUID from list_sources"},
				},
				"required": []string{"source_id"},
			},
		},
		{
			"name":        "add_source_url",
			"description": "Add a web page or YouTube video as a source; NotebookLM fetches and indexes it",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notebook_id": map[string]string{"type": "string", "description": "The notebook UUID"},
					"url":         map[string]string{"type": "string", "description": "URL starting with http:// or https://"},
				},
				"required": []string{"notebook_id", "url"},
			},
		},
		{
			"name":        "add_source_text",
			"description": "Add pasted text as a source to a notebook",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notebook_id": map[string]string{"type": "string", "description": "The notebook UUID"},
					"text":        map[string]string{"type": "string", "description": "Text content, up to 500000 characters"},
					"title":       map[string]string{"type": "string", "description": "Display title (default: Pasted Text)"},
				},
				"required": []string{"notebook_id", "text"},
			},
		},
		{
			"name":        "query_notebook",
			"description": "Ask a question to a notebook's AI; pass conversation_id from a previous answer for follow-ups",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notebook_id":     map[string]string{"type": "string", "description": "The notebook UUID"},
					"query":           map[string]string{"type": "string", "description": "The question to ask"},
					"source_ids":      map[string]any{"type": "array", "items": map[string]string{"type": "string"}, "description": "Restrict grounding to these sources; defaults to all"},
					"conversation_id": map[string]string{"type": "string", "description": "Conversation handle from a previous query_notebook response"},
				},
				"required": []string{"notebook_id", "query"},
			},
		},
		{
			"name":        "check_auth",
			"description": "Check whether stored NotebookLM credentials are valid, without opening a browser",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// JSON views of the domain types, matching the field names the tool
// descriptions promise.

type sourceRefJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type notebookJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	SourceCount int             `json:"source_count"`
	Sources     []sourceRefJSON `json:"sources"`
	IsOwned     bool            `json:"is_owned"`
	IsShared    bool            `json:"is_shared"`
	CreatedAt   string          `json:"created_at,omitempty"`
	ModifiedAt  string          `json:"modified_at,omitempty"`
}

type sourceJSON struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	SourceType     int    `json:"source_type"`
	SourceTypeName string `json:"source_type_name"`
	URL            string `json:"url,omitempty"`
}

func notebookView(nb domain.Notebook) notebookJSON {
	refs := make([]sourceRefJSON, 0, len(nb.Sources))
	for _, src := range nb.Sources {
		refs = append(refs, sourceRefJSON{ID: string(src.ID), Title: src.Title})
	}
	return notebookJSON{
		ID:          string(nb.ID),
		Title:       nb.Title,
		SourceCount: len(nb.Sources),
		Sources:     refs,
		IsOwned:     nb.IsOwned,
		IsShared:    nb.IsShared,
		CreatedAt:   timeView(nb.CreatedAt),
		ModifiedAt:  timeView(nb.ModifiedAt),
	}
}

func sourceView(src domain.Source) sourceJSON {
	return sourceJSON{
		ID:             string(src.ID),
		Title:          src.Title,
		SourceType:     src.TypeCode,
		SourceTypeName: src.TypeName,
		URL:            src.URL,
	}
}

func timeView(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) toolListNotebooks(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		MaxResults int `json:"max_results"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 50
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	notebooks, err := c.ListNotebooks(ctx)
	if err != nil {
		return errorPayload(err)
	}
	if len(notebooks) > in.MaxResults {
		notebooks = notebooks[:in.MaxResults]
	}

	views := make([]notebookJSON, 0, len(notebooks))
	for _, nb := range notebooks {
		views = append(views, notebookView(nb))
	}
	return toolPayload{
		"status":    "success",
		"count":     len(views),
		"notebooks": views,
	}
}

func (s *Server) toolGetNotebook(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		NotebookID string `json:"notebook_id"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if strings.TrimSpace(in.NotebookID) == "" {
		return validationPayload("notebook_id is required")
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	nb, sources, err := c.GetNotebook(ctx, domain.NotebookID(in.NotebookID))
	if err != nil {
		return errorPayload(err)
	}

	views := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView(src))
	}
	return toolPayload{
		"status":       "success",
		"notebook_id":  in.NotebookID,
		"title":        nb.Title,
		"source_count": len(views),
		"sources":      views,
	}
}

func (s *Server) toolListSources(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		NotebookID string `json:"notebook_id"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if strings.TrimSpace(in.NotebookID) == "" {
		return validationPayload("notebook_id is required")
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	sources, err := c.ListSources(ctx, domain.NotebookID(in.NotebookID))
	if err != nil {
		return errorPayload(err)
	}

	views := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView(src))
	}
	return toolPayload{
		"status":      "success",
		"notebook_id": in.NotebookID,
		"count":       len(views),
		"sources":     views,
	}
}

func (s *Server) toolGetSourceContent(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		SourceID string `json:"source_id"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if strings.TrimSpace(in.SourceID) == "" {
		return validationPayload("source_id is required")
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	content, err := c.GetSourceContent(ctx, domain.SourceID(in.SourceID))
	if err != nil {
		return errorPayload(err)
	}

	return toolPayload{
		"status":      "success",
		"title":       content.Title,
		"source_type": content.TypeName,
		"url":         content.URL,
		"content":     content.Content,
		"char_count":  content.CharCount,
	}
}

func (s *Server) toolAddSourceURL(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		NotebookID string `json:"notebook_id"`
		URL        string `json:"url"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if strings.TrimSpace(in.NotebookID) == "" {
		return validationPayload("notebook_id is required")
	}
	if strings.TrimSpace(in.URL) == "" {
		return validationPayload("url is required")
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	added, err := c.AddURLSource(ctx, domain.NotebookID(in.NotebookID), in.URL)
	if err != nil {
		return errorPayload(err)
	}
	return addedPayload(added)
}

func (s *Server) toolAddSourceText(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		NotebookID string `json:"notebook_id"`
		Text       string `json:"text"`
		Title      string `json:"title"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if strings.TrimSpace(in.NotebookID) == "" {
		return validationPayload("notebook_id is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return validationPayload("text is required")
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	added, err := c.AddTextSource(ctx, domain.NotebookID(in.NotebookID), in.Title, in.Text)
	if err != nil {
		return errorPayload(err)
	}
	return addedPayload(added)
}

func addedPayload(added domain.AddedSource) toolPayload {
	if !added.Confirmed {
		return toolPayload{
			"status":  "timeout",
			"title":   added.Title,
			"message": "Timed out waiting for confirmation; the source may still be added server-side.",
		}
	}
	return toolPayload{
		"status": "success",
		"id":     string(added.ID),
		"title":  added.Title,
	}
}

func (s *Server) toolQueryNotebook(ctx context.Context, args json.RawMessage) toolPayload {
	var in struct {
		NotebookID     string   `json:"notebook_id"`
		Query          string   `json:"query"`
		SourceIDs      []string `json:"source_ids"`
		ConversationID string   `json:"conversation_id"`
	}
	if p, ok := decodeArgs(args, &in); !ok {
		return p
	}
	if strings.TrimSpace(in.NotebookID) == "" {
		return validationPayload("notebook_id is required")
	}
	if strings.TrimSpace(in.Query) == "" {
		return validationPayload("query is required")
	}

	c, err := s.session.Client(ctx)
	if err != nil {
		return errorPayload(err)
	}

	srcIDs := make([]domain.SourceID, 0, len(in.SourceIDs))
	for _, id := range in.SourceIDs {
		srcIDs = append(srcIDs, domain.SourceID(id))
	}

	answer, err := c.Ask(ctx, domain.NotebookID(in.NotebookID), in.Query, srcIDs, in.ConversationID)
	if err != nil {
		return errorPayload(err)
	}

	return toolPayload{
		"status":          "success",
		"answer":          answer.Text,
		"conversation_id": answer.ConversationID,
		"turn_number":     answer.TurnNumber,
		"is_follow_up":    answer.IsFollowUp,
	}
}

func (s *Server) toolCheckAuth(ctx context.Context, _ json.RawMessage) toolPayload {
	status := s.session.CheckAuth(ctx)

	payload := toolPayload{"status": string(status.State)}
	switch status.State {
	case application.AuthStateAuthenticated:
		payload["message"] = "Credentials are valid."
		payload["cookie_count"] = status.CookieCount
		if status.CapturedAt != "" {
			payload["captured_at"] = status.CapturedAt
		}
	case application.AuthStateExpired:
		payload["message"] = status.Detail
		payload["hint"] = "Run 'nlm login' to re-authenticate."
	case application.AuthStateNotAuthenticated:
		payload["message"] = "No valid credentials found. Run 'nlm login' first."
		if len(status.MissingCookies) > 0 {
			payload["missing_cookies"] = status.MissingCookies
		}
	}
	return payload
}

func decodeArgs(raw json.RawMessage, into any) (toolPayload, bool) {
	if err := json.Unmarshal(raw, into); err != nil {
		return toolPayload{
			"status": "error",
			"error":  fmt.Sprintf("invalid arguments: %v", err),
		}, false
	}
	return nil, true
}

func validationPayload(message string) toolPayload {
	return toolPayload{"status": "error", "error": message}
}

func errorPayload(err error) toolPayload {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return toolPayload{"status": "error", "error": authErr.Message, "hint": authErr.Hint}
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return toolPayload{"status": "error", "error": valErr.Message}
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return toolPayload{"status": "error", "error": apiErr.Error()}
	}

	return toolPayload{
		"status": "error",
		"error":  fmt.Sprintf("unexpected error: %v", err),
		"hint":   "Run 'nlm doctor' to diagnose issues.",
	}
}
