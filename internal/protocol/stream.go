package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// The streaming endpoint interleaves two kinds of answer fragments.
const (
	fragmentTypeAnswer   = 1
	fragmentTypeThinking = 2
)

// Candidate texts at or below this length are header/echo fragments, not
// answers.
const minAnswerLength = 21

// EncodeQueryBody builds the POST body for the streaming query endpoint. The
// wrapper is the flat pair [null, params] rather than the batch envelope's
// triple nesting; the token rule is the same.
func EncodeQueryBody(params any, csrfToken string) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode query params: %w", err)
	}

	envelope := []any{nil, string(paramsJSON)}
	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encode query envelope: %w", err)
	}

	var body strings.Builder
	body.WriteString("f.req=")
	body.WriteString(url.QueryEscape(string(envelopeJSON)))
	if csrfToken != "" {
		body.WriteString("&at=")
		body.WriteString(url.QueryEscape(csrfToken))
	}
	body.WriteString("&")

	return body.String(), nil
}

// QueryURL builds the streaming endpoint URL. The request counter lands in
// _reqid so the server can tell overlapping calls apart.
func QueryURL(endpoint, buildLabel, sessionID string, reqid int) string {
	q := url.Values{}
	q.Set("bl", buildLabel)
	q.Set("hl", "en")
	q.Set("_reqid", strconv.Itoa(reqid))
	q.Set("rt", "c")
	if sessionID != "" {
		q.Set("f.sid", sessionID)
	}

	return endpoint + "?" + q.Encode()
}

// DecodeAnswer walks a streaming response and selects the answer text. The
// service streams incremental thinking fragments before the final answer and
// frame order is not guaranteed, so the selection is longest-of-type: the
// longest final-answer fragment wins, the longest thinking fragment is the
// fallback, and the result is empty when nothing qualified.
func DecodeAnswer(text string) string {
	var longestAnswer, longestThinking string

	for _, frame := range DecodeFrames(text) {
		candidate, isAnswer, ok := answerFromFrame(frame)
		if !ok {
			continue
		}
		if isAnswer && len(candidate) > len(longestAnswer) {
			longestAnswer = candidate
		}
		if !isAnswer && len(candidate) > len(longestThinking) {
			longestThinking = candidate
		}
	}

	if longestAnswer != "" {
		return longestAnswer
	}
	return longestThinking
}

// answerFromFrame digs the candidate text out of one decoded frame. Each
// tagged entry's payload is itself a JSON string decoding to an array whose
// first element is either an answer-shaped array or a bare string.
func answerFromFrame(frame any) (string, bool, bool) {
	entries, ok := AsArray(frame)
	if !ok {
		return "", false, false
	}

	for _, raw := range entries {
		entry, ok := AsArray(raw)
		if !ok || len(entry) < 3 {
			continue
		}
		if tag, _ := AsString(entry[0]); tag != responseEntryTag {
			continue
		}

		payload, ok := AsString(entry[2])
		if !ok {
			continue
		}

		var inner any
		if err := json.Unmarshal([]byte(payload), &inner); err != nil {
			continue
		}
		innerArr, ok := AsArray(inner)
		if !ok || len(innerArr) == 0 {
			continue
		}

		if text, isAnswer, ok := answerFromElement(innerArr[0]); ok {
			return text, isAnswer, true
		}
	}

	return "", false, false
}

func answerFromElement(elem any) (string, bool, bool) {
	if shaped, ok := AsArray(elem); ok && len(shaped) > 0 {
		text, ok := AsString(shaped[0])
		if !ok || len(text) < minAnswerLength {
			return "", false, false
		}

		// The type discriminator sits in the last slot of the fifth field:
		// 1 marks a final answer, 2 an intermediate thinking fragment.
		isAnswer := false
		if typeInfo := ArrayAt(shaped, 4); len(typeInfo) > 0 {
			if kind, ok := AsInt(typeInfo[len(typeInfo)-1]); ok {
				isAnswer = kind == fragmentTypeAnswer
			}
		}
		return text, isAnswer, true
	}

	if text, ok := AsString(elem); ok && len(text) >= minAnswerLength {
		return text, false, true
	}

	return "", false, false
}
