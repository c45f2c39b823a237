// Package apperrors implements the error values returned by actions and their adapters.
// Errors form a tree: every error derived with New, Msg, MsgErr or Err still matches
// its ancestors under errors.Is, and carries the HTTP status code adapters should use.
package apperrors

// Error is an error that can be derived from, annotated and mapped to a status code.
// Derivation never mutates the receiver.
type Error interface {
	error
	Unwrap() error // errors.Is / errors.As walk the parent chain

	New(msg string) Error                  // child error with a fresh message
	Msg(msg string) Error                  // child error that also lists the parent as a cause
	MsgErr(msg string, err ...error) Error // child error with a message and extra causes
	Err(err ...error) Error                // same message, extra causes attached
	SetExpandError(bool) Error             // include causes in ErrorAll
	SetStatusCode(int) Error
	StatusCode() int
	ErrorAll() string   // message plus causes when expansion is on
	UnwrapAll() []error // causes in insertion order
}
