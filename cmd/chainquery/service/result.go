package service

import (
	"github.com/lyzr/chainquery/common/federation"
)

// Status classifies an executor outcome; the HTTP layer picks the code
type Status string

const (
	StatusOK            Status = "ok"
	StatusNotFound      Status = "not_found"
	StatusBadRequest    Status = "bad_request"
	StatusInternalError Status = "internal_error"
)

// internalErrorMessage is the top-level message of every internal failure
const internalErrorMessage = "Something Went Wrong"

// ErrorBody is the diagnostic part of an internal error response. It only
// ever carries client-safe text.
type ErrorBody struct {
	Kind    federation.Kind `json:"kind"`
	Message string          `json:"message"`
}

// Result is what every query executor returns
type Result struct {
	Status  Status
	Message string
	Payload map[string]any
	Error   *ErrorBody
}

// Body renders the response document: message, payload fields, and the
// error object for internal failures
func (r *Result) Body() map[string]any {
	body := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		body[k] = v
	}
	body["message"] = r.Message
	if r.Error != nil {
		body["error"] = r.Error
	}
	return body
}

func ok(message string, payload map[string]any) *Result {
	return &Result{Status: StatusOK, Message: message, Payload: payload}
}

func notFound(message string) *Result {
	return &Result{Status: StatusNotFound, Message: message}
}
