package cql

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/cql/analyze"
	"github.com/hugr-lab/cql/auth"
	"github.com/hugr-lab/cql/filter"
)

// Code classifies compilation failures for API surfaces.
type Code string

const (
	CodeMalformedFilter    Code = "MALFORMED_FILTER"
	CodeUnauthorizedFields Code = "UNAUTHORIZED_FIELDS"
	CodeQueryTooComplex    Code = "QUERY_TOO_COMPLEX"
	CodeUnknownObject      Code = "UNKNOWN_OBJECT"
	CodeInternal           Code = "INTERNAL"
)

// Error is the classified compilation failure. It wraps the underlying
// package error so callers can still errors.As into the detailed type.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GRPCStatus maps the failure class onto canonical gRPC codes, so the
// error transports cleanly through gRPC middleware.
func (e *Error) GRPCStatus() *status.Status {
	var code codes.Code
	switch e.Code {
	case CodeMalformedFilter, CodeUnknownObject:
		code = codes.InvalidArgument
	case CodeUnauthorizedFields:
		code = codes.PermissionDenied
	case CodeQueryTooComplex:
		code = codes.ResourceExhausted
	default:
		code = codes.Internal
	}
	return status.New(code, e.Error())
}

// classify wraps err with its failure class.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	code := CodeInternal
	var malformed *filter.MalformedError
	var unauthorized *auth.UnauthorizedFieldsError
	var tooComplex *analyze.TooComplexError
	switch {
	case errors.As(err, &malformed):
		code = CodeMalformedFilter
	case errors.As(err, &unauthorized):
		code = CodeUnauthorizedFields
	case errors.As(err, &tooComplex):
		code = CodeQueryTooComplex
	}
	return &Error{Code: code, Err: err}
}
