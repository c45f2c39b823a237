// Package server implements the action proxy: an HTTP server speaking the
// OpenWhisk runtime protocol (/init, /run) for the session actions, plus
// direct invocation, schema, version and readiness endpoints.
package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/internal/common/httpx"
	"github.com/tansive/sessionactions/internal/common/logtrace"
	"github.com/tansive/sessionactions/internal/common/middleware"
	"github.com/tansive/sessionactions/internal/config"
)

// ActionServer routes HTTP requests to the registered actions.
type ActionServer struct {
	Router   *chi.Mux
	registry *action.Registry

	mu       sync.RWMutex
	selected action.Action // set by /init
}

// CreateNewServer creates a server dispatching to registry.
func CreateNewServer(registry *action.Registry) (*ActionServer, error) {
	if registry == nil {
		return nil, fmt.Errorf("action registry is required")
	}
	return &ActionServer{
		Router:   chi.NewRouter(),
		registry: registry,
	}, nil
}

// MountHandlers sets up middleware and routes.
func (s *ActionServer) MountHandlers() {
	cfg := config.Config()
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Use(middleware.SetTimeout(cfg.GetRequestTimeoutOrDefault()))
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in action proxy router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *ActionServer) mountResourceHandlers(r chi.Router) {
	r.Post("/init", httpx.WrapHttpRsp(s.initAction))
	r.Post("/run", httpx.WrapHttpRsp(s.runAction))
	r.Route("/actions", func(r chi.Router) {
		r.Get("/", httpx.WrapHttpRsp(s.listActions))
		r.Post("/{actionName}", httpx.WrapHttpRsp(s.invokeAction))
		r.Get("/{actionName}/schema", httpx.WrapHttpRsp(s.getActionSchema))
	})
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

// Selected returns the action chosen by /init, or nil.
func (s *ActionServer) Selected() action.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// GetVersionRsp represents the response for version information.
type GetVersionRsp struct {
	ServerVersion string   `json:"serverVersion"`
	ApiVersion    string   `json:"apiVersion"`
	Actions       []string `json:"actions"`
}

func (s *ActionServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, &GetVersionRsp{
		ServerVersion: Version,
		ApiVersion:    ApiVersion,
		Actions:       s.registry.Names(),
	})
}

func (s *ActionServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *ActionServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, middleware.TimeoutHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
