package action

import (
	"context"

	"github.com/tansive/sessionactions/internal/common/apperrors"
	"github.com/tansive/sessionactions/pkg/types"
)

var stopSessionSchema = MustCompileSchema(`{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "integer", "minimum": -9223372036854775808, "maximum": 9223372036854775807}
	}
}`)

// StopSessionRequest holds the recognized stop-session fields.
type StopSessionRequest struct {
	SessionID types.NullableInt64
}

// DecodeStopSessionRequest reads the stop-session fields from params.
func DecodeStopSessionRequest(params *Params) (StopSessionRequest, apperrors.Error) {
	sessionID, err := params.Int64(paramSessionID)
	if err != nil {
		return StopSessionRequest{}, err
	}
	return StopSessionRequest{SessionID: sessionID}, nil
}

// StopSessionHandler builds stopSession descriptors. It never reads a clock.
type StopSessionHandler struct{}

// NewStopSessionHandler returns a StopSessionHandler. Options are accepted for
// symmetry with NewStartSessionHandler and have no effect.
func NewStopSessionHandler(_ ...Option) *StopSessionHandler {
	return &StopSessionHandler{}
}

func (h *StopSessionHandler) Name() string { return StopSessionCommandName }

func (h *StopSessionHandler) Schema() *RequestSchema { return stopSessionSchema }

// Handle requires sessionId; no default is generated.
func (h *StopSessionHandler) Handle(_ context.Context, params *Params) (*StopSessionCommand, apperrors.Error) {
	if err := stopSessionSchema.Validate(params); err != nil {
		return nil, err
	}
	req, err := DecodeStopSessionRequest(params)
	if err != nil {
		return nil, err
	}
	return h.Stop(req)
}

// Stop builds the descriptor for an already decoded request.
func (h *StopSessionHandler) Stop(req StopSessionRequest) (*StopSessionCommand, apperrors.Error) {
	if req.SessionID.IsNil() {
		return nil, ErrMissingParam.Msg(paramSessionID + " is required")
	}
	cmd := &StopSessionCommand{
		Command:   StopSessionCommandName,
		SessionID: req.SessionID.Int64(),
	}
	if err := validateDescriptor(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Invoke implements Action.
func (h *StopSessionHandler) Invoke(ctx context.Context, params *Params) (Descriptor, apperrors.Error) {
	cmd, err := h.Handle(ctx, params)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

var _ Action = (*StopSessionHandler)(nil)
