// Package httpx provides HTTP request/response helpers shared by the action
// proxy: JSON request decoding, JSON responses and error responses built from
// apperrors values.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

// ReadRequestBody reads the body of a POST or PUT request, failing with
// ErrRequestTooLarge when it exceeds limit bytes. A limit of 0 disables the check.
func ReadRequestBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return nil, ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		return nil, nil
	}
	var body io.Reader = r.Body
	if limit > 0 {
		body = io.LimitReader(r.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("unable to read request body")
		return nil, ErrUnableToReadRequest()
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrRequestTooLarge(limit)
	}
	return data, nil
}

// Response represents an HTTP response with configurable status code and body.
// Response may be a struct, a string holding JSON or a []byte holding JSON.
type Response struct {
	StatusCode int
	Response   any
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc, rendering errors
// through SendError.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			SendError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
	}
}

// SendError writes err as a JSON error response. *Error values keep their
// status; apperrors.Error values use their status code or 500 when unset.
func SendError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var httpErr *Error
	if errors.As(err, &httpErr) {
		httpErr.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		(&Error{StatusCode: statusCode, Description: appErr.ErrorAll()}).Send(w)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
