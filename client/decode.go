package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// decodeEnvelope parses body as a single JSON value and applies the
// envelope rules: an undecodable body is a [DecodeError] regardless of
// status, a non-null "error" member is an [APIError], and a non-2xx status
// without one is an [UnexpectedStatusError].
func decodeEnvelope(code int, body []byte, useNumber bool) (any, error) {
	d := json.NewDecoder(bytes.NewReader(body))
	if useNumber {
		d.UseNumber()
	}

	var v any
	if err := d.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &DecodeError{StatusCode: code, Body: excerpt(body), Err: err}
	}

	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{StatusCode: code, Body: excerpt(body), Err: errors.New("trailing data after JSON value")}
	}

	if apiErr := extractError(code, v); apiErr != nil {
		return nil, apiErr
	}

	if code < 200 || code > 299 {
		return nil, statusErr(code, body)
	}

	return v, nil
}

// extractError returns the structured error carried by v, if any.
func extractError(code int, v any) *APIError {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	raw, ok := obj["error"]
	if !ok || raw == nil {
		return nil
	}

	apiErr := APIError{StatusCode: code, Raw: raw}

	if nested, ok := raw.(map[string]any); ok {
		if msg, ok := nested["message"]; ok && msg != nil {
			apiErr.Message = stringify(msg)
			return &apiErr
		}
	}

	apiErr.Message = stringify(raw)

	return &apiErr
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}
