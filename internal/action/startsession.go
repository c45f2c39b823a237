package action

import (
	"context"

	"github.com/tansive/sessionactions/internal/common/apperrors"
	"github.com/tansive/sessionactions/pkg/types"
)

const (
	paramStrategy  = "strategy"
	paramSessionID = "sessionId"
)

var startSessionSchema = MustCompileSchema(`{
	"type": "object",
	"properties": {
		"strategy": {"type": "string"},
		"sessionId": {"type": "integer", "minimum": -9223372036854775808, "maximum": 9223372036854775807}
	}
}`)

// StartSessionRequest holds the recognized start-session fields.
type StartSessionRequest struct {
	Strategy  types.NullableString
	SessionID types.NullableInt64
}

// DecodeStartSessionRequest reads the start-session fields from params.
func DecodeStartSessionRequest(params *Params) (StartSessionRequest, apperrors.Error) {
	var req StartSessionRequest
	var err apperrors.Error
	if req.Strategy, err = params.String(paramStrategy); err != nil {
		return req, err
	}
	if req.SessionID, err = params.Int64(paramSessionID); err != nil {
		return req, err
	}
	return req, nil
}

// StartSessionHandler builds startSession descriptors.
type StartSessionHandler struct {
	clock Clock
}

// NewStartSessionHandler returns a handler that reads the system clock unless
// WithClock is given.
func NewStartSessionHandler(opts ...Option) *StartSessionHandler {
	o := newOptions(opts)
	return &StartSessionHandler{clock: o.clock}
}

func (h *StartSessionHandler) Name() string { return StartSessionCommandName }

func (h *StartSessionHandler) Schema() *RequestSchema { return startSessionSchema }

// Handle returns nil, nil when the request has no strategy. A supplied sessionId
// is copied verbatim; otherwise the current time in Unix milliseconds is used.
func (h *StartSessionHandler) Handle(_ context.Context, params *Params) (*StartSessionCommand, apperrors.Error) {
	// Absence of strategy wins over any malformed field.
	if !params.Has(paramStrategy) {
		return nil, nil
	}
	if err := startSessionSchema.Validate(params); err != nil {
		return nil, err
	}
	req, err := DecodeStartSessionRequest(params)
	if err != nil {
		return nil, err
	}
	return h.Start(req)
}

// Start builds the descriptor for an already decoded request.
func (h *StartSessionHandler) Start(req StartSessionRequest) (*StartSessionCommand, apperrors.Error) {
	if req.Strategy.IsNil() {
		return nil, nil
	}
	cmd := &StartSessionCommand{
		Command:   StartSessionCommandName,
		SessionID: req.SessionID.OrElse(h.nowMillis),
		Strategy:  req.Strategy.String(),
	}
	if err := validateDescriptor(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (h *StartSessionHandler) nowMillis() int64 {
	return h.clock.Now().UnixMilli()
}

// Invoke implements Action.
func (h *StartSessionHandler) Invoke(ctx context.Context, params *Params) (Descriptor, apperrors.Error) {
	cmd, err := h.Handle(ctx, params)
	if err != nil || cmd == nil {
		return nil, err
	}
	return cmd, nil
}

var _ Action = (*StartSessionHandler)(nil)
