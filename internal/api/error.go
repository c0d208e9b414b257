package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is a non-2xx backend response, keyed by HTTP status.
// The message is the server-provided "error" field when present.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a
// backend error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server-provided message, or fallback when absent.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// errorFromResponse drains the body and builds an Error from the
// {"error": ...} payload, if any.
func errorFromResponse(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiErr
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}
