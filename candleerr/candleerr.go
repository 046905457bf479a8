// Package candleerr holds the typed error taxonomy shared by the store,
// exchange, sync and lang packages, collapsed into the handful of
// categories the API boundary actually needs to distinguish.
package candleerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that branch on failure category
// (HTTP status mapping, retry policy, program exit status) without string
// matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindStoreIO
	KindEncoding
	KindMissingEnviron
	KindExchangeNotFound
	KindPairNotLoaded
	KindNoData
	KindParsing
	KindReferenceNotFound
	KindScopeNotFound
	KindInvalidInterval
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStoreIO:
		return "store_io"
	case KindEncoding:
		return "encoding"
	case KindMissingEnviron:
		return "missing_environ"
	case KindExchangeNotFound:
		return "exchange_not_found"
	case KindPairNotLoaded:
		return "pair_not_loaded"
	case KindNoData:
		return "no_data"
	case KindParsing:
		return "parsing"
	case KindReferenceNotFound:
		return "reference_not_found"
	case KindScopeNotFound:
		return "scope_not_found"
	case KindInvalidInterval:
		return "invalid_interval"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across package boundaries. It
// carries a Kind for programmatic dispatch plus an optional wrapped cause
// for %w unwrapping.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Span locates a parse failure within the source program, in bytes,
	// when Kind is KindParsing. Zero value means "whole input".
	SpanStart int
	SpanEnd   int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, candleerr.New(KindNoData, "")) match on Kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Parsing builds a KindParsing error with a byte span into the source text,
// mirroring the (message, span) shape the lexer and parser report.
func Parsing(message string, start, end int) *Error {
	return &Error{Kind: KindParsing, Message: message, SpanStart: start, SpanEnd: end}
}

func MissingEnviron(name string) *Error {
	return &Error{Kind: KindMissingEnviron, Message: fmt.Sprintf("missing environment variable: %s", name)}
}

func ExchangeNotFound(name string) *Error {
	return &Error{Kind: KindExchangeNotFound, Message: fmt.Sprintf("exchange not found: %s", name)}
}

func ReferenceNotFound(name string) *Error {
	return &Error{Kind: KindReferenceNotFound, Message: fmt.Sprintf("reference not found: %s", name)}
}

func ScopeNotFound(id int) *Error {
	return &Error{Kind: KindScopeNotFound, Message: fmt.Sprintf("the referenced scope does not exist: %d", id)}
}

func InvalidInterval(minutes int64) *Error {
	return &Error{Kind: KindInvalidInterval, Message: fmt.Sprintf("invalid interval: %d", minutes)}
}

var (
	ErrNoData        = New(KindNoData, "no data")
	ErrPairNotLoaded = New(KindPairNotLoaded, "pairs are not loaded")
)

// KindOf extracts the Kind of err, walking the unwrap chain. Returns
// KindUnknown if err is nil or does not wrap a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
