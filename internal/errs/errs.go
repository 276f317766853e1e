// Package errs defines the error taxonomy shared by backends, the model
// clients and the analysis pipeline.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	// Validation marks malformed input naming a unit or backend target.
	Validation Kind = "validation"
	// Transport marks a failed outbound call (network, auth, rate limit).
	Transport Kind = "transport"
	// Parse marks malformed model or backend output.
	Parse Kind = "parse"
	// Configuration marks missing credentials or required settings.
	Configuration Kind = "configuration"
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind) + " error")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: Validation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Configurationf(op, format string, args ...any) *Error {
	return &Error{Kind: Configuration, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NewTransport(op string, err error) *Error {
	return &Error{Kind: Transport, Op: op, Err: err}
}

func Transportf(op, format string, args ...any) *Error {
	return &Error{Kind: Transport, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NewParse(op string, err error) *Error {
	return &Error{Kind: Parse, Op: op, Err: err}
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FromStatus maps a non-2xx HTTP response to a transport error.
// body is only used to distinguish rate limiting and to build a preview.
func FromStatus(op string, status int, body []byte) *Error {
	switch status {
	case http.StatusUnauthorized:
		return Transportf(op, "authentication failed (status 401)")
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(string(body)), "rate limit") {
			return Transportf(op, "rate limit exceeded (status 403)")
		}
		return Transportf(op, "access forbidden (status 403)")
	case http.StatusNotFound:
		return Transportf(op, "not found (status 404)")
	}
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return Transportf(op, "request failed with status %d: %s", status, preview)
}
