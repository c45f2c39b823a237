package action

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

// EmptyResult is the wire form of an action that produced no descriptor.
var EmptyResult = []byte("{}")

// ErrorResult is the wire form of a declared error.
type ErrorResult struct {
	Error string `json:"error" mapstructure:"error"`
}

// NewErrorResult converts err into its wire form.
func NewErrorResult(err error) ErrorResult {
	if appErr, ok := err.(apperrors.Error); ok {
		return ErrorResult{Error: appErr.ErrorAll()}
	}
	return ErrorResult{Error: err.Error()}
}

// EncodeResult renders the outcome of an invocation as a JSON object. A nil
// descriptor renders as {}.
func EncodeResult(d Descriptor, err error) []byte {
	if err != nil {
		b, mErr := json.Marshal(NewErrorResult(err))
		if mErr != nil {
			return []byte(`{"error":"unable to encode error"}`)
		}
		return b
	}
	if d == nil {
		return EmptyResult
	}
	b, mErr := json.Marshal(d)
	if mErr != nil {
		return EncodeResult(nil, ErrInvalidDescriptor.MsgErr("unable to encode descriptor", mErr))
	}
	return b
}

// ToMap converts the outcome of an invocation to the map form used by native
// entry points. A nil descriptor yields an empty map.
func ToMap(d Descriptor, err error) map[string]any {
	out := map[string]any{}
	var src any = d
	if err != nil {
		src = NewErrorResult(err)
	} else if d == nil {
		return out
	}
	if mErr := mapstructure.Decode(src, &out); mErr != nil {
		return map[string]any{"error": ErrInvalidDescriptor.MsgErr("unable to convert descriptor", mErr).ErrorAll()}
	}
	return out
}
