// Package action implements the start-session and stop-session actions. Each
// action turns a JSON request object into a command descriptor for the session
// orchestrator. Actions are stateless and safe for concurrent use; the only
// ambient input is the injected Clock.
package action

import (
	"context"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

// Action is a named handler that can be invoked by any adapter.
// A nil Descriptor with a nil error means the action produced no result.
type Action interface {
	Name() string
	Schema() *RequestSchema
	Invoke(ctx context.Context, params *Params) (Descriptor, apperrors.Error)
}

// Option configures an action.
type Option func(*options)

type options struct {
	clock Clock
}

func newOptions(opts []Option) options {
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the clock used to synthesize session ids.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}
