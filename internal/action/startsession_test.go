package action

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000000123)

func TestStartSessionMissingStrategyIsAbsent(t *testing.T) {
	h := NewStartSessionHandler(WithClock(FixedClock(fixedNow)))
	tests := []string{
		`{}`,
		`{"sessionId": 42}`,
		`{"sessionId": "not-a-number"}`,
		`{"Strategy": "greedy"}`,
		``,
	}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			cmd, err := h.Handle(context.Background(), MustParams(tt))
			require.Nil(t, err)
			assert.Nil(t, cmd)

			d, err := h.Invoke(context.Background(), MustParams(tt))
			require.Nil(t, err)
			assert.Nil(t, d, "absent result must be a nil interface")
		})
	}
}

func TestStartSessionSynthesizesSessionId(t *testing.T) {
	h := NewStartSessionHandler(WithClock(FixedClock(fixedNow)))
	cmd, err := h.Handle(context.Background(), MustParams(`{"strategy": "greedy"}`))
	require.Nil(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, &StartSessionCommand{
		Command:   "startSession",
		SessionID: 1700000000123,
		Strategy:  "greedy",
	}, cmd)
}

func TestStartSessionSystemClock(t *testing.T) {
	h := NewStartSessionHandler()
	before := time.Now().UnixMilli()
	cmd, err := h.Handle(context.Background(), MustParams(`{"strategy": "random"}`))
	after := time.Now().UnixMilli()
	require.Nil(t, err)
	require.NotNil(t, cmd)
	assert.GreaterOrEqual(t, cmd.SessionID, before)
	assert.LessOrEqual(t, cmd.SessionID, after)
	assert.InDelta(t, time.Now().UnixMilli(), cmd.SessionID, float64((5 * time.Second).Milliseconds()))
}

func TestStartSessionPrefersSuppliedSessionId(t *testing.T) {
	clockCalled := false
	clock := ClockFunc(func() time.Time {
		clockCalled = true
		return fixedNow
	})
	h := NewStartSessionHandler(WithClock(clock))

	cmd, err := h.Handle(context.Background(), MustParams(`{"strategy": "greedy", "sessionId": 42}`))
	require.Nil(t, err)
	b, mErr := json.Marshal(cmd)
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"command": "startSession", "sessionId": 42, "strategy": "greedy"}`, string(b))
	assert.False(t, clockCalled, "clock must not be read when sessionId is supplied")
}

func TestStartSessionCopiesValuesVerbatim(t *testing.T) {
	h := NewStartSessionHandler(WithClock(FixedClock(fixedNow)))
	tests := []struct {
		name     string
		params   string
		expected StartSessionCommand
	}{
		{"empty strategy", `{"strategy": ""}`, StartSessionCommand{"startSession", 1700000000123, ""}},
		{"zero session", `{"strategy": "s", "sessionId": 0}`, StartSessionCommand{"startSession", 0, "s"}},
		{"negative session", `{"strategy": "s", "sessionId": -5}`, StartSessionCommand{"startSession", -5, "s"}},
		{"max int64", `{"strategy": "s", "sessionId": 9223372036854775807}`, StartSessionCommand{"startSession", 9223372036854775807, "s"}},
		{"integral float", `{"strategy": "s", "sessionId": 42.0}`, StartSessionCommand{"startSession", 42, "s"}},
		{"exponent", `{"strategy": "s", "sessionId": 4.2e1}`, StartSessionCommand{"startSession", 42, "s"}},
		{"integral float above 2^53", `{"strategy": "s", "sessionId": 9007199254740993.0}`, StartSessionCommand{"startSession", 9007199254740993, "s"}},
		{"max int64 in exponent form", `{"strategy": "s", "sessionId": 9.223372036854775807e18}`, StartSessionCommand{"startSession", 9223372036854775807, "s"}},
		{"duplicate key last wins", `{"strategy": 5, "strategy": "s", "sessionId": 1}`, StartSessionCommand{"startSession", 1, "s"}},
		{"unicode strategy", `{"strategy": "résumé"}`, StartSessionCommand{"startSession", 1700000000123, "résumé"}},
		{"extra keys ignored", `{"strategy": "s", "sessionId": 1, "command": "stopSession", "x": [1]}`, StartSessionCommand{"startSession", 1, "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := h.Handle(context.Background(), MustParams(tt.params))
			require.Nil(t, err)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.expected, *cmd)
		})
	}
}

func TestStartSessionMalformedFields(t *testing.T) {
	h := NewStartSessionHandler(WithClock(FixedClock(fixedNow)))
	tests := []struct {
		name   string
		params string
	}{
		{"numeric strategy", `{"strategy": 5}`},
		{"null strategy", `{"strategy": null}`},
		{"object strategy", `{"strategy": {"name": "greedy"}}`},
		{"string session", `{"strategy": "s", "sessionId": "42"}`},
		{"fractional session", `{"strategy": "s", "sessionId": 4.5}`},
		{"null session", `{"strategy": "s", "sessionId": null}`},
		{"overflowing session", `{"strategy": "s", "sessionId": 9223372036854775808}`},
		{"boolean session", `{"strategy": "s", "sessionId": true}`},
		{"exponent beyond int64", `{"strategy": "s", "sessionId": 9.223372036854775808e18}`},
		{"duplicate key last malformed", `{"strategy": "s", "strategy": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := h.Handle(context.Background(), MustParams(tt.params))
			require.NotNil(t, err)
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, ErrInvalidParam)
			assert.ErrorIs(t, err, ErrBadRequest)
			assert.Equal(t, 400, err.StatusCode())
		})
	}
}

func TestStartSessionIdempotent(t *testing.T) {
	h := NewStartSessionHandler(WithClock(FixedClock(fixedNow)))
	for _, params := range []string{`{"strategy": "greedy"}`, `{"strategy": "greedy", "sessionId": 42}`} {
		first, err := h.Handle(context.Background(), MustParams(params))
		require.Nil(t, err)
		second, err := h.Handle(context.Background(), MustParams(params))
		require.Nil(t, err)
		assert.Equal(t, first, second)
	}
}

func TestStartDecodedRequest(t *testing.T) {
	h := NewStartSessionHandler(WithClock(FixedClock(fixedNow)))
	req, err := DecodeStartSessionRequest(MustParams(`{"strategy": "greedy", "sessionId": 7}`))
	require.Nil(t, err)
	assert.Equal(t, "greedy", req.Strategy.String())
	assert.Equal(t, int64(7), req.SessionID.Int64())

	cmd, err := h.Start(req)
	require.Nil(t, err)
	assert.Equal(t, int64(7), cmd.SessionID)

	cmd, err = h.Start(StartSessionRequest{})
	require.Nil(t, err)
	assert.Nil(t, cmd)
}
