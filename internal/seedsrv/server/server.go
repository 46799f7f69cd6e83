package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/nerd4ever/kaya-seed/internal/common/httpx"
	"github.com/nerd4ever/kaya-seed/internal/common/logtrace"
	commonmiddleware "github.com/nerd4ever/kaya-seed/internal/common/middleware"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/auth"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/config"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/lifecycle"
	"github.com/rs/zerolog/log"
)

// TokenValidator authenticates inbound bearer tokens.
type TokenValidator interface {
	Validate(ctx context.Context, token string, requiredClaims []string) (bool, auth.Claims)
}

// StateNotifier publishes order state changes to the marketplace.
type StateNotifier interface {
	NotifyState(ctx context.Context, orderID string, state catalog.State) bool
}

type SeedServer struct {
	Router *chi.Mux

	engine    *lifecycle.Engine
	validator TokenValidator
	notifier  StateNotifier
}

// CreateNewServer wires the HTTP surface over the lifecycle engine. The
// notifier may be nil, in which case state changes are not published.
func CreateNewServer(engine *lifecycle.Engine, validator TokenValidator, notifier StateNotifier) (*SeedServer, error) {
	if engine == nil || validator == nil {
		return nil, fmt.Errorf("server requires an engine and a token validator")
	}
	s := &SeedServer{
		engine:    engine,
		validator: validator,
		notifier:  notifier,
	}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *SeedServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"https://*", "http://*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	s.Router.Route("/kaya-marketplace/artifact", s.mountArtifactHandlers)
	s.Router.Get("/version", s.getVersion)
	if logtrace.IsTraceEnabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}
}

func (s *SeedServer) mountArtifactHandlers(r chi.Router) {
	r.Use(s.tokenGate)
	for _, h := range s.artifactHandlers() {
		r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *SeedServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Kaya Seed Server: 0.1.0",
		ApiVersion:    "V1",
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}
