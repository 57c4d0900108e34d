package federation

import (
	"errors"
	"fmt"
)

// Kind classifies a federation failure
type Kind string

const (
	KindConfiguration       Kind = "configuration_error"
	KindRegistryUnavailable Kind = "registry_unavailable"
	KindNoChainsFound       Kind = "no_chains_found"
	KindNotFound            Kind = "not_found"
	KindMissingSearchField  Kind = "missing_search_field"
	KindRootNodeMissing     Kind = "root_node_missing"
	KindStore               Kind = "store_error"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its Kind
var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrRegistryUnavailable = &Error{Kind: KindRegistryUnavailable}
	ErrNoChainsFound       = &Error{Kind: KindNoChainsFound}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrMissingSearchField  = &Error{Kind: KindMissingSearchField}
	ErrRootNodeMissing     = &Error{Kind: KindRootNodeMissing}
	ErrStore               = &Error{Kind: KindStore}
)

// Error is a classified failure. Message is safe to show to clients;
// Err may carry collection names or driver output and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can test against the sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError classifies err under kind with a client-safe message
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindStore for unclassified errors
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindStore
}

// PublicMessage returns the client-safe message for err
func PublicMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return "store operation failed"
}
