// Package llm defines the interface shared by the AI completion providers and
// the helpers that turn their free-text replies into JSON objects.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Sentinel errors for AI providers.
var (
	// ErrMissingCredential is returned before any network call when no API key is configured.
	ErrMissingCredential = errors.New("missing API credential")
	// ErrEmptyResponse indicates the provider answered without any text.
	ErrEmptyResponse = errors.New("empty completion")
	// ErrNoJSONObject indicates the reply did not contain a JSON object.
	ErrNoJSONObject = errors.New("no JSON object in completion")
)

// Provider produces a text completion for a prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn completion request.
type Request struct {
	Prompt string
	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode    bool
	Temperature float64
}

// Error is a non-2xx answer from a provider.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d (%s)", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsAuth reports whether the provider rejected the credential.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsQuota reports whether the provider rejected the call for rate or quota reasons.
func (e *Error) IsQuota() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// StripCodeFences removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the info string ("json", "JSON", ...) up to the first newline.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractObject returns the first balanced {...} object in s.
func ExtractObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}

// DecodeObject strips fences from a completion, extracts the first JSON
// object and decodes it into v. Unknown fields are ignored.
func DecodeObject(completion string, v any) error {
	text := StripCodeFences(completion)
	if text == "" {
		return ErrEmptyResponse
	}

	obj, err := ExtractObject(text)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding completion JSON: %w", err)
	}
	return nil
}

// Number is a JSON number that also accepts a numeric string such as "8.5".
// A null or absent value leaves Set false.
type Number struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Number{}
		return nil
	}
	raw := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = Number{Value: f, Set: true}
	return nil
}
