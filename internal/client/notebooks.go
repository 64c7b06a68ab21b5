package client

import (
	"context"
	"errors"
	"strings"

	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

// MaxTextSourceLength caps pasted-text sources, matching the service's own
// limit.
const MaxTextSourceLength = 500_000

// ListNotebooks returns every notebook visible to the account.
func (c *Client) ListNotebooks(ctx context.Context) ([]domain.Notebook, error) {
	result, err := c.callRPC(ctx, config.RPCListNotebooks, []any{nil, 1, nil, []any{2}}, "/", c.cfg.CallTimeout)
	if err != nil {
		return nil, err
	}
	return notebookList(result), nil
}

// GetNotebook returns one notebook with its full source rows.
func (c *Client) GetNotebook(ctx context.Context, notebookID domain.NotebookID) (domain.Notebook, []domain.Source, error) {
	result, err := c.getNotebookRaw(ctx, notebookID)
	if err != nil {
		return domain.Notebook{}, nil, err
	}

	nb, ok := notebookRecord(notebookDetail(result))
	if !ok {
		nb = domain.Notebook{ID: notebookID, Title: "Untitled"}
	}
	return nb, sourceRecords(result), nil
}

// ListSources returns the full source rows of a notebook.
func (c *Client) ListSources(ctx context.Context, notebookID domain.NotebookID) ([]domain.Source, error) {
	result, err := c.getNotebookRaw(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	return sourceRecords(result), nil
}

// GetSourceContent returns the flattened text of one source.
func (c *Client) GetSourceContent(ctx context.Context, sourceID domain.SourceID) (domain.SourceContent, error) {
	if sourceID == "" {
		return domain.SourceContent{}, domain.NewValidationError("source id is required")
	}

	params := []any{[]any{string(sourceID)}, []any{2}, []any{2}}
	result, err := c.callRPC(ctx, config.RPCGetSource, params, "/", c.cfg.CallTimeout)
	if err != nil {
		return domain.SourceContent{}, err
	}
	return sourceContentRecord(result), nil
}

// AddURLSource registers a web page or YouTube video as a source. A
// client-side timeout yields an unconfirmed result rather than an error:
// large sources regularly finish server-side after we stop waiting.
func (c *Client) AddURLSource(ctx context.Context, notebookID domain.NotebookID, sourceURL string) (domain.AddedSource, error) {
	if notebookID == "" {
		return domain.AddedSource{}, domain.NewValidationError("notebook id is required")
	}
	if !strings.HasPrefix(sourceURL, "http://") && !strings.HasPrefix(sourceURL, "https://") {
		return domain.AddedSource{}, domain.NewValidationError("url must start with http:// or https://")
	}

	// YouTube URLs go through a dedicated ingestion slot.
	var sourceData []any
	if isYouTubeURL(sourceURL) {
		sourceData = []any{nil, nil, nil, nil, nil, nil, nil, []any{sourceURL}, nil, nil, 1}
	} else {
		sourceData = []any{nil, nil, []any{sourceURL}, nil, nil, nil, nil, nil, nil, nil, 1}
	}

	return c.addSource(ctx, notebookID, sourceData, "Untitled")
}

// AddTextSource registers pasted text as a source.
func (c *Client) AddTextSource(ctx context.Context, notebookID domain.NotebookID, title, text string) (domain.AddedSource, error) {
	if notebookID == "" {
		return domain.AddedSource{}, domain.NewValidationError("notebook id is required")
	}
	if text == "" {
		return domain.AddedSource{}, domain.NewValidationError("text is required")
	}
	if len(text) > MaxTextSourceLength {
		return domain.AddedSource{}, domain.NewValidationError("text exceeds %d characters", MaxTextSourceLength)
	}
	if title == "" {
		title = "Pasted Text"
	}

	sourceData := []any{nil, []any{title, text}, nil, 2, nil, nil, nil, nil, nil, nil, 1}
	return c.addSource(ctx, notebookID, sourceData, title)
}

func (c *Client) addSource(ctx context.Context, notebookID domain.NotebookID, sourceData []any, defaultTitle string) (domain.AddedSource, error) {
	params := []any{
		[]any{sourceData},
		string(notebookID),
		[]any{2},
		[]any{1, nil, nil, nil, nil, nil, nil, nil, nil, nil, []any{1}},
	}

	result, err := c.callRPC(ctx, config.RPCAddSource, params, "/notebook/"+string(notebookID), c.cfg.AddSourceTimeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.AddedSource{Title: defaultTitle, Confirmed: false}, nil
		}
		return domain.AddedSource{}, err
	}

	added, ok := addedSourceRecord(result, defaultTitle)
	if !ok {
		return domain.AddedSource{}, &domain.APIError{Message: "add source returned no source record"}
	}
	return added, nil
}

func (c *Client) getNotebookRaw(ctx context.Context, notebookID domain.NotebookID) (any, error) {
	if notebookID == "" {
		return nil, domain.NewValidationError("notebook id is required")
	}
	params := []any{string(notebookID), nil, []any{2}, nil, 0}
	return c.callRPC(ctx, config.RPCGetNotebook, params, "/notebook/"+string(notebookID), c.cfg.CallTimeout)
}

func isYouTubeURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be")
}
