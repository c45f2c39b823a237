package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/internal/common/httpx"
	"github.com/tansive/sessionactions/internal/config"
)

var (
	ErrNotInitialized = action.ErrActionError.New("action has not been initialized")
	ErrReinit         = action.ErrActionError.New("cannot initialize the action more than once").SetStatusCode(http.StatusForbidden)
)

// initAction selects the action served by /run. The action is named by
// value.main, falling back to value.name. The configured default is used only
// when the body names no action.
func (s *ActionServer) initAction(r *http.Request) (*httpx.Response, error) {
	body, err := httpx.ReadRequestBody(r, config.Config().MaxRequestBodySize)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 && !gjson.ValidBytes(body) {
		return nil, httpx.ErrUnableToParseReqData()
	}

	var candidates []string
	for _, path := range []string{"value.main", "value.name"} {
		if v := gjson.GetBytes(body, path).String(); v != "" {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		if def := config.Config().DefaultAction; def != "" {
			candidates = append(candidates, def)
		}
	}
	if len(candidates) == 0 {
		return nil, action.ErrUnknownAction.Msg("no action named in init request")
	}

	var selected action.Action
	var lookupErr error
	for _, name := range candidates {
		a, err := s.registry.Lookup(name)
		if err == nil {
			selected = a
			break
		}
		if lookupErr == nil {
			lookupErr = err
		}
	}
	if selected == nil {
		return nil, lookupErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && !config.Config().AllowReinit {
		return nil, ErrReinit
	}
	s.selected = selected
	log.Ctx(r.Context()).Info().Str("action", selected.Name()).Msg("action initialized")

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]bool{"ok": true},
	}, nil
}

// runAction invokes the selected action with the activation's value.
func (s *ActionServer) runAction(r *http.Request) (*httpx.Response, error) {
	body, err := httpx.ReadRequestBody(r, config.Config().MaxRequestBodySize)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 && !gjson.ValidBytes(body) {
		return nil, httpx.ErrUnableToParseReqData()
	}
	envelope := gjson.ParseBytes(body)

	a, err := s.resolveRunAction(envelope.Get("action_name").String())
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	if deadline := envelope.Get("deadline").Int(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, time.UnixMilli(deadline))
		defer cancel()
		if ctx.Err() != nil {
			return nil, httpx.ErrRequestTimeout()
		}
	}

	log.Ctx(ctx).Debug().
		Str("action", a.Name()).
		Str("activation_id", envelope.Get("activation_id").String()).
		Str("namespace", envelope.Get("namespace").String()).
		Msg("activation")

	return s.invoke(ctx, a, []byte(envelope.Get("value").Raw))
}

func (s *ActionServer) resolveRunAction(actionName string) (action.Action, error) {
	if a := s.Selected(); a != nil {
		return a, nil
	}
	if def := config.Config().DefaultAction; def != "" {
		return s.registry.Lookup(def)
	}
	if actionName != "" {
		if a, err := s.registry.Lookup(actionName); err == nil {
			return a, nil
		}
	}
	return nil, ErrNotInitialized
}

// invokeAction runs the action named in the path; the body is the parameter object.
func (s *ActionServer) invokeAction(r *http.Request) (*httpx.Response, error) {
	a, lookupErr := s.registry.Lookup(chi.URLParam(r, "actionName"))
	if lookupErr != nil {
		return nil, lookupErr
	}
	body, err := httpx.ReadRequestBody(r, config.Config().MaxRequestBodySize)
	if err != nil {
		return nil, err
	}
	return s.invoke(r.Context(), a, body)
}

func (s *ActionServer) invoke(ctx context.Context, a action.Action, rawParams []byte) (*httpx.Response, error) {
	params, err := action.ParseParams(rawParams)
	if err != nil {
		return nil, err
	}
	d, err := a.Invoke(ctx, params)
	if err != nil {
		log.Ctx(ctx).Debug().Str("action", a.Name()).Err(err).Msg("action rejected request")
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   action.EncodeResult(d, nil),
	}, nil
}

// ListActionsRsp lists the actions served by the proxy.
type ListActionsRsp struct {
	Actions  []string `json:"actions"`
	Selected string   `json:"selected,omitempty"`
}

func (s *ActionServer) listActions(r *http.Request) (*httpx.Response, error) {
	rsp := &ListActionsRsp{Actions: s.registry.Names()}
	if a := s.Selected(); a != nil {
		rsp.Selected = a.Name()
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func (s *ActionServer) getActionSchema(r *http.Request) (*httpx.Response, error) {
	a, err := s.registry.Lookup(chi.URLParam(r, "actionName"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: a.Schema().Source()}, nil
}
