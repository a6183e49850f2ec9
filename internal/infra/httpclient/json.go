package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	brieferrors "morningbrief/internal/shared/errors"
)

const maxErrorSnippet = 256

// DoJSON sends req and decodes a 2xx JSON body into out.
//
// Transport failures and non-2xx statuses come back as *errors.UpstreamError,
// bodies that cannot be read or decoded as *errors.DecodeError. A nil out
// discards the body.
func DoJSON(client *http.Client, req *http.Request, source string, out any) error {
	return doJSON(client, req, source, out, MaxPayloadBytes)
}

func doJSON(client *http.Client, req *http.Request, source string, out any, maxBytes int64) error {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return brieferrors.NewUpstreamError(source, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readPayload(resp.Body, maxBytes)
	if err != nil {
		if errors.Is(err, errPayloadTooLarge) {
			return brieferrors.NewDecodeError(source, err)
		}
		return brieferrors.NewUpstreamError(source, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return brieferrors.NewUpstreamError(source, resp.StatusCode, fmt.Errorf("%s", snippet(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return brieferrors.NewDecodeError(source, err)
	}
	return nil
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty body"
	}
	if len(text) > maxErrorSnippet {
		return text[:maxErrorSnippet] + "..."
	}
	return text
}
