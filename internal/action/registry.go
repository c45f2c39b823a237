package action

import (
	"context"
	"sort"
	"strings"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

var nameAliases = map[string]string{
	"start-session": StartSessionCommandName,
	"start_session": StartSessionCommandName,
	"stop-session":  StopSessionCommandName,
	"stop_session":  StopSessionCommandName,
}

// NormalizeName maps an invocation name to the action name it refers to.
// Fully qualified names such as "/ns/pkg/startSession" resolve by their last
// segment; dashed and underscored aliases resolve to the camel-case name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if canonical, ok := nameAliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// Registry holds the actions an adapter can dispatch to. It is read-only after
// construction.
type Registry struct {
	actions map[string]Action
}

// NewRegistry returns a registry serving the given actions.
func NewRegistry(actions ...Action) *Registry {
	r := &Registry{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		r.actions[a.Name()] = a
	}
	return r
}

// DefaultRegistry serves startSession and stopSession.
func DefaultRegistry(opts ...Option) *Registry {
	return NewRegistry(NewStartSessionHandler(opts...), NewStopSessionHandler(opts...))
}

// Lookup resolves name through NormalizeName.
func (r *Registry) Lookup(name string) (Action, apperrors.Error) {
	a, ok := r.actions[NormalizeName(name)]
	if !ok {
		return nil, ErrUnknownAction.Msg("unknown action: " + name)
	}
	return a, nil
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke looks up name and runs it against params.
func (r *Registry) Invoke(ctx context.Context, name string, params *Params) (Descriptor, apperrors.Error) {
	a, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return a.Invoke(ctx, params)
}
