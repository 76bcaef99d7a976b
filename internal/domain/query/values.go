package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// ValuesFromJSON reads a JSON object of form fields. String values are
// taken as typed, null becomes blank and any other value keeps its literal
// text so numbers may be sent unquoted.
func ValuesFromJSON(data []byte) (url.Values, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAnObject, err)
	}
	if fields == nil {
		return nil, ErrNotAnObject
	}

	form := url.Values{}
	for name, v := range fields {
		form.Set(name, fieldText(v))
	}
	return form, nil
}

func fieldText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if string(v) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
