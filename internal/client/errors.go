package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPDF is returned before any network call for non-PDF uploads.
	ErrNotPDF = errors.New("Please select a PDF file")

	// ErrSuperseded is returned by Searcher when a newer search replaced
	// the call in flight.
	ErrSuperseded = errors.New("search superseded by a newer request")
)

// APIError is a non-OK response from the proxy surface.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, format string, args ...interface{}) *APIError {
	return &APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}
