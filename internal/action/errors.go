package action

import (
	"net/http"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

// Error definitions for the package.
// All errors are derived from ErrActionError.
var (
	// ErrActionError is the base error for the package.
	ErrActionError = apperrors.New("action error").SetStatusCode(http.StatusInternalServerError)

	// ErrBadRequest is the parent of every error caused by the caller's input.
	ErrBadRequest = ErrActionError.New("bad request").SetStatusCode(http.StatusBadRequest)

	// ErrInvalidParams is returned when the request is not a JSON object.
	ErrInvalidParams = ErrBadRequest.New("request parameters must be a JSON object")

	// ErrInvalidParam is returned when a recognized field has the wrong type.
	ErrInvalidParam = ErrBadRequest.New("invalid parameter")

	// ErrMissingParam is returned when a field with no default is absent.
	ErrMissingParam = ErrBadRequest.New("missing parameter")

	// ErrUnknownAction is returned by Registry.Lookup for names it does not serve.
	ErrUnknownAction = ErrActionError.New("unknown action").SetStatusCode(http.StatusNotFound)

	// ErrInvalidDescriptor is returned when a built descriptor fails validation.
	// It indicates a bug, not bad input.
	ErrInvalidDescriptor = ErrActionError.New("invalid command descriptor")

	// ErrInvalidSchema is returned when an action's request schema does not compile.
	ErrInvalidSchema = ErrActionError.New("invalid request schema")
)
