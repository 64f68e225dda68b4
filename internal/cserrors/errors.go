// Package cserrors defines the closed set of error kinds that cross
// component boundaries in CodeSleuth, with this propagation policy: a
// file-level ParseError never fails a job, while
// FetchError/EmbeddingError/VectorStoreError are fatal to the operation
// that raised them.
package cserrors

import "fmt"

// Kind tags one of the error kinds a component may raise.
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindParseError       Kind = "parse_error"
	KindFetchError       Kind = "fetch_error"
	KindEmbeddingError   Kind = "embedding_error"
	KindVectorStoreError Kind = "vector_store_error"
	KindInvalidOperation Kind = "invalid_operation"
	KindInternal         Kind = "internal"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// propagation policy without string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Err: cause}
}

func InvalidArgument(msg string) *Error               { return newErr(KindInvalidArgument, msg, nil) }
func ParseErr(msg string, cause error) *Error          { return newErr(KindParseError, msg, cause) }
func FetchErr(msg string, cause error) *Error          { return newErr(KindFetchError, msg, cause) }
func EmbeddingErr(msg string, cause error) *Error      { return newErr(KindEmbeddingError, msg, cause) }
func VectorStoreErr(msg string, cause error) *Error    { return newErr(KindVectorStoreError, msg, cause) }
func InvalidOperation(msg string, cause error) *Error  { return newErr(KindInvalidOperation, msg, cause) }
func Internal(msg string, cause error) *Error          { return newErr(KindInternal, msg, cause) }

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Kind == k
}
