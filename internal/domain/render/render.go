// Package render turns similarity responses and failures into display text.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Loading is shown while a submission is in flight.
const Loading = "Running…"

const indentUnit = "  "

// ErrInvalidJSON is returned when the body to render is not JSON.
var ErrInvalidJSON = errors.New("invalid json body")

// Result renders the body's "results" member when present and non-null,
// otherwise the whole body. Values are re-encoded the way a browser prints
// them; member order is preserved.
func Result(body json.RawMessage) (string, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return "", ErrInvalidJSON
	}

	selected := body
	if len(body) > 0 && body[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err == nil {
			if results, ok := obj["results"]; ok && string(bytes.TrimSpace(results)) != "null" {
				selected = results
			}
		}
	}

	out, err := indent(selected)
	if err != nil {
		return "", fmt.Errorf("indent: %w", err)
	}
	return out, nil
}

// Error renders a failed submission.
func Error(err error) string {
	if err == nil {
		return "Error: unknown error"
	}
	return "Error: " + err.Error()
}
