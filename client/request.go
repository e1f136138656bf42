package client

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/adminops/cache"
)

// RequestSpec describes one logical call relative to the client's base URL.
type RequestSpec struct {
	Method string
	Path   string
	Query  []cache.Param
	Header http.Header
	Body   []byte

	// Operation names the call in logs, spans and metrics. Defaults to the
	// path.
	Operation string

	// NoCache skips the cache lookup and store for this call.
	NoCache bool
}

// Form encodes values as the request body and sets the form content type.
func (s RequestSpec) Form(values url.Values) RequestSpec {
	s.Body = []byte(values.Encode())
	s.Header = s.Header.Clone()
	if s.Header == nil {
		s.Header = http.Header{}
	}
	s.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s
}

// Response is the result of a successful logical call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FromCache is true when the response was served without I/O.
	FromCache bool

	// Attempts is the number of transport attempts, replays included. Zero
	// for cache hits.
	Attempts int

	RequestID string
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &InvalidResponseError{Message: "decoding json: " + err.Error(), Err: err}
	}
	return nil
}

// apiMessages is the error envelope returned by the admin API.
type apiMessages struct {
	Messages []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"messages"`
}

const maxMessageLen = 512

// extractMessage returns the first message text of a JSON error envelope,
// otherwise the trimmed body, otherwise the status text.
func extractMessage(status int, body []byte) string {
	var env apiMessages
	if json.Unmarshal(body, &env) == nil {
		for _, m := range env.Messages {
			if m.Text != "" {
				return truncate(m.Text)
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && utf8.ValidString(text) {
		return truncate(text)
	}
	return http.StatusText(status)
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
