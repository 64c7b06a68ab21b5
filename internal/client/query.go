package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bnema/notebooklm-cli/internal/domain"
	"github.com/bnema/notebooklm-cli/internal/protocol"
)

// Ask sends a question to a notebook over the streaming endpoint. An empty
// conversation id starts a fresh conversation; passing back the id from a
// previous answer makes this a follow-up carrying the conversation history.
// An empty sourceIDs slice grounds the question on every source in the
// notebook.
func (c *Client) Ask(ctx context.Context, notebookID domain.NotebookID, question string, srcIDs []domain.SourceID, conversationID string) (domain.Answer, error) {
	if notebookID == "" {
		return domain.Answer{}, domain.NewValidationError("notebook id is required")
	}
	if question == "" {
		return domain.Answer{}, domain.NewValidationError("query is required")
	}

	if err := c.ensureToken(ctx); err != nil {
		return domain.Answer{}, err
	}

	if len(srcIDs) == 0 {
		raw, err := c.getNotebookRaw(ctx, notebookID)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("resolve notebook sources: %w", err)
		}
		srcIDs = sourceIDs(raw)
	}

	isFollowUp := conversationID != ""
	var history []any
	if isFollowUp {
		history = c.conversationHistory(conversationID)
	} else {
		conversationID = uuid.NewString()
	}

	sourcesArray := make([]any, 0, len(srcIDs))
	for _, id := range srcIDs {
		sourcesArray = append(sourcesArray, []any{[]any{string(id)}})
	}

	params := []any{
		sourcesArray,
		question,
		historyOrNil(history),
		[]any{2, nil, []any{1}},
		conversationID,
	}

	c.mu.Lock()
	token := c.creds.CSRFToken
	sessionID := c.creds.SessionID
	c.reqid += 100000
	reqid := c.reqid
	c.mu.Unlock()

	body, err := protocol.EncodeQueryBody(params, token)
	if err != nil {
		return domain.Answer{}, err
	}
	url := protocol.QueryURL(c.cfg.QueryEndpoint(), c.cfg.BuildLabel, sessionID, reqid)

	text, err := c.postForm(ctx, url, body, c.cfg.QueryTimeout)
	if err != nil {
		var httpErr *statusError
		if errors.As(err, &httpErr) {
			return domain.Answer{}, &domain.APIError{Message: "query failed", Status: httpErr.status}
		}
		return domain.Answer{}, err
	}

	answer := protocol.DecodeAnswer(text)
	if answer == "" {
		c.logger.Warn("query returned no answer text", zap.String("notebook", string(notebookID)))
	}

	turn := 0
	if answer != "" {
		turn = c.cacheTurn(conversationID, question, answer)
	}

	return domain.Answer{
		Text:           answer,
		ConversationID: conversationID,
		TurnNumber:     turn,
		IsFollowUp:     isFollowUp,
	}, nil
}

// conversationHistory renders cached turns in the wire's order: each turn
// contributes its answer (marker 2) before its question (marker 1).
func (c *Client) conversationHistory(conversationID string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.conversations[conversationID]
	history := make([]any, 0, len(turns)*2)
	for _, t := range turns {
		history = append(history, []any{t.Answer, nil, 2})
		history = append(history, []any{t.Question, nil, 1})
	}
	return history
}

func (c *Client) cacheTurn(conversationID, question, answer string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.conversations[conversationID]) + 1
	c.conversations[conversationID] = append(c.conversations[conversationID], domain.ConversationTurn{
		Question:   question,
		Answer:     answer,
		TurnNumber: n,
	})
	return n
}

func historyOrNil(history []any) any {
	if len(history) == 0 {
		return nil
	}
	return history
}
