package action

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopSession(t *testing.T) {
	h := NewStopSessionHandler()
	tests := []struct {
		params   string
		expected string
	}{
		{`{"sessionId": 7}`, `{"command": "stopSession", "sessionId": 7}`},
		{`{"sessionId": 1700000000123, "strategy": "greedy"}`, `{"command": "stopSession", "sessionId": 1700000000123}`},
		{`{"sessionId": -1}`, `{"command": "stopSession", "sessionId": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.params, func(t *testing.T) {
			cmd, err := h.Handle(context.Background(), MustParams(tt.params))
			require.Nil(t, err)
			b, mErr := json.Marshal(cmd)
			require.NoError(t, mErr)
			assert.JSONEq(t, tt.expected, string(b))
		})
	}
}

func TestStopSessionMissingSessionId(t *testing.T) {
	h := NewStopSessionHandler()
	for _, params := range []string{`{}`, `{"strategy": "greedy"}`, ``} {
		cmd, err := h.Handle(context.Background(), MustParams(params))
		require.NotNil(t, err, params)
		assert.Nil(t, cmd)
		assert.ErrorIs(t, err, ErrMissingParam)
		assert.Equal(t, 400, err.StatusCode())
	}

	_, err := h.Stop(StopSessionRequest{})
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestStopSessionMalformedSessionId(t *testing.T) {
	h := NewStopSessionHandler()
	for _, params := range []string{`{"sessionId": "7"}`, `{"sessionId": null}`, `{"sessionId": 7.5}`, `{"sessionId": [7]}`} {
		_, err := h.Handle(context.Background(), MustParams(params))
		require.NotNil(t, err, params)
		assert.ErrorIs(t, err, ErrInvalidParam, params)
	}
}

func TestStopSessionIdempotent(t *testing.T) {
	h := NewStopSessionHandler()
	first, err := h.Handle(context.Background(), MustParams(`{"sessionId": 7}`))
	require.Nil(t, err)
	second, err := h.Handle(context.Background(), MustParams(`{"sessionId": 7}`))
	require.Nil(t, err)
	assert.Equal(t, first, second)
}
