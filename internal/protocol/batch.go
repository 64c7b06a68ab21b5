// Package protocol encodes and decodes the batch RPC transport used by the
// NotebookLM frontend, plus the streaming variant used for question
// answering. Everything here is a pure function: data in, data out, no I/O.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Responses open with an anti-hijacking prefix that must be stripped before
// any frame parsing.
const antiHijackPrefix = ")]}'"

const responseEntryTag = "wrb.fr"

// authExpiredSignal is the error code the service embeds in a response entry
// when the session's auth material has expired.
const authExpiredSignal = 16

// ErrAuthExpired is returned by ExtractResult when the response carries the
// auth-expired signature instead of a result. The caller refreshes auth and
// retries; it never reaches the user directly.
var ErrAuthExpired = errors.New("rpc error 16: authentication expired")

// EncodeBatchBody builds the form-encoded POST body for one batch call. The
// parameter value is JSON-serialized, wrapped in the service's triple-nested
// envelope, serialized again, and percent-encoded into the f.req field. The
// at= token field is present only when a token is held.
func EncodeBatchBody(rpcID string, params any, csrfToken string) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode rpc params: %w", err)
	}

	envelope := []any{[]any{[]any{rpcID, string(paramsJSON), nil, "generic"}}}
	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encode rpc envelope: %w", err)
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

// BatchURL builds the batch endpoint URL. The session affinity parameter is
// included only when a session id is held; the build label always is.
func BatchURL(endpoint, rpcID, buildLabel, sessionID, sourcePath string) string {
	if sourcePath == "" {
		sourcePath = "/"
	}

	q := url.Values{}
	q.Set("rpcids", rpcID)
	q.Set("source-path", sourcePath)
	q.Set("bl", buildLabel)
	q.Set("hl", "en")
	q.Set("rt", "c")
	if sessionID != "" {
		q.Set("f.sid", sessionID)
	}

	return endpoint + "?" + q.Encode()
}

// DecodeFrames splits a raw response body into its independently JSON-decoded
// frames. A line holding only a non-negative integer is a byte-count marker:
// it is consumed and the following line is decoded as JSON. Any other line is
// decoded directly. Malformed lines are skipped, not fatal.
//
// The marker's announced length is deliberately not validated against the
// following line: the service's framing has never required it, and a strict
// check would break on genuine responses. The cost is that a bare integer
// line that is real data would be mistaken for a marker.
func DecodeFrames(text string) []any {
	text = strings.TrimPrefix(text, antiHijackPrefix)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	frames := make([]any, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if _, err := strconv.Atoi(line); err == nil {
			i++
			if i < len(lines) {
				if frame, ok := decodeFrame(lines[i]); ok {
					frames = append(frames, frame)
				}
			}
			continue
		}

		if frame, ok := decodeFrame(line); ok {
			frames = append(frames, frame)
		}
	}

	return frames
}

func decodeFrame(line string) (any, bool) {
	var frame any
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		return nil, false
	}
	return frame, true
}

// ExtractResult scans decoded frames for the entry answering rpcID. The
// auth-expired signature check runs before any result use: an entry shaped
// ["wrb.fr", id, null, null, null, [16], "generic"] yields ErrAuthExpired.
// String results are double-encoded by the service and get a second JSON
// decode, falling back to the raw string. A missing rpc id is an absent
// result, not an error.
func ExtractResult(frames []any, rpcID string) (any, bool, error) {
	for _, frame := range frames {
		entries, ok := AsArray(frame)
		if !ok {
			continue
		}

		for _, raw := range entries {
			entry, ok := AsArray(raw)
			if !ok || len(entry) < 3 {
				continue
			}
			if tag, _ := AsString(entry[0]); tag != responseEntryTag {
				continue
			}
			if id, _ := AsString(entry[1]); id != rpcID {
				continue
			}

			if isAuthExpiredEntry(entry) {
				return nil, false, ErrAuthExpired
			}

			return decodeResultPayload(entry[2]), true, nil
		}
	}

	return nil, false, nil
}

func isAuthExpiredEntry(entry []any) bool {
	if len(entry) <= 6 {
		return false
	}
	if tag, _ := AsString(entry[6]); tag != "generic" {
		return false
	}

	signals, ok := AsArray(entry[5])
	if !ok {
		return false
	}
	for _, signal := range signals {
		if n, ok := AsInt(signal); ok && n == authExpiredSignal {
			return true
		}
	}
	return false
}

func decodeResultPayload(payload any) any {
	raw, ok := AsString(payload)
	if !ok {
		return payload
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	return decoded
}
