// Package actionloop runs an action under the OpenWhisk actionloop protocol:
// each input line is an activation, each activation produces exactly one
// result line on the output.
package actionloop

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/sessionactions/internal/action"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// WaitForAckEnv asks the runtime to announce readiness before the first activation.
	WaitForAckEnv = "__OW_WAIT_FOR_ACK"
	envPrefix     = "__OW_"
)

var ackLine = []byte(`{"ok":true}` + "\n")

var ErrInvalidActivation = action.ErrBadRequest.New("invalid activation")

// Option configures the loop.
type Option func(*loop)

// WithAck writes {"ok":true} to the output before reading the first activation.
func WithAck(ack bool) Option {
	return func(l *loop) {
		l.ack = ack
	}
}

// WithEnvSetter replaces os.Setenv for exporting activation metadata.
func WithEnvSetter(setenv func(key, value string) error) Option {
	return func(l *loop) {
		if setenv != nil {
			l.setenv = setenv
		}
	}
}

// AckRequested reports whether the environment asks for a readiness ack.
func AckRequested() bool {
	return os.Getenv(WaitForAckEnv) != ""
}

type loop struct {
	action action.Action
	ack    bool
	setenv func(key, value string) error
}

// Run serves activations from in until it is exhausted or ctx is done.
// Malformed activations produce an error result and do not stop the loop;
// only I/O failures are returned.
func Run(ctx context.Context, a action.Action, in io.Reader, out io.Writer, opts ...Option) error {
	if a == nil {
		return errors.New("action is required")
	}
	l := &loop{action: a, setenv: os.Setenv}
	for _, opt := range opts {
		opt(l)
	}

	w := bufio.NewWriter(out)
	if l.ack {
		if err := writeLine(w, ackLine); err != nil {
			return errors.Wrap(err, "failed to write ack")
		}
	}

	r := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			result := l.activate(ctx, line)
			if err := writeLine(w, append(result, '\n')); err != nil {
				return errors.Wrap(err, "failed to write result")
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return errors.Wrap(readErr, "failed to read activation")
		}
	}
}

func writeLine(w *bufio.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.Flush()
}

// activate decodes one activation and returns the encoded result.
func (l *loop) activate(ctx context.Context, line []byte) []byte {
	var msg map[string]jsoniter.RawMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return action.EncodeResult(nil, ErrInvalidActivation.MsgErr("unable to decode activation", err))
	}

	var deadline time.Time
	for key, raw := range msg {
		if key == "value" {
			continue
		}
		value := metadataValue(raw)
		if err := l.setenv(envPrefix+strings.ToUpper(key), value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("unable to export activation metadata")
		}
		if key == "deadline" {
			if ms, ok := parseMillis(value); ok {
				deadline = time.UnixMilli(ms)
			}
		}
	}

	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	params, perr := action.ParseParams(msg["value"])
	if perr != nil {
		return action.EncodeResult(nil, perr)
	}
	log.Debug().
		Str("action", l.action.Name()).
		Str("activation_id", metadataValue(msg["activation_id"])).
		Msg("activation")

	d, err := l.action.Invoke(ctx, params)
	if err != nil {
		return action.EncodeResult(nil, err)
	}
	return action.EncodeResult(d, nil)
}

// metadataValue renders a metadata member as an environment value: strings
// unquoted, anything else as its JSON text.
func metadataValue(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func parseMillis(s string) (int64, bool) {
	var ms int64
	if err := json.UnmarshalFromString(s, &ms); err != nil || ms <= 0 {
		return 0, false
	}
	return ms, true
}
