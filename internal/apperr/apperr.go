// Package apperr defines the error kinds the search and scrape core reports
// to its callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind int

const (
	// KindUnknown is the zero value.
	KindUnknown Kind = iota
	// KindUpstream means a search API rejected or failed the call.
	KindUpstream
	// KindNavigation means a scrape target could not be loaded or timed out.
	KindNavigation
	// KindConfiguration means a required credential or setting is missing.
	KindConfiguration
	// KindValidation means the request itself is malformed.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindNavigation:
		return "navigation"
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a categorized failure. Message is passed through to callers
// verbatim; for upstream errors it carries the upstream's own text.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Upstream reports a failed search API call.
func Upstream(op, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Message: message, Err: err}
}

// Navigation reports a page that could not be loaded.
func Navigation(op string, err error) *Error {
	return &Error{Kind: KindNavigation, Op: op, Err: err}
}

// Configuration reports a missing credential or setting.
func Configuration(op, message string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: message}
}

// Validation reports a malformed request.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
