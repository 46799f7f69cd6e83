package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nerd4ever/kaya-seed/internal/common/httpx"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/inventory"
	"github.com/rs/zerolog/log"
)

func (s *SeedServer) artifactHandlers() []httpx.ResponseHandlerParam {
	return []httpx.ResponseHandlerParam{
		{
			Method:  http.MethodGet,
			Path:    "/",
			Handler: s.listArtifacts,
		},
		{
			Method:  http.MethodGet,
			Path:    "/{artifactID}/inventory",
			Handler: s.getInventory,
		},
		{
			Method:  http.MethodGet,
			Path:    "/{artifactID}/log",
			Handler: s.getLog,
		},
		{
			Method:  http.MethodGet,
			Path:    "/{artifactID}/{orderID}",
			Handler: s.getOrder,
		},
		{
			Method:  http.MethodPost,
			Path:    "/{artifactID}/{orderID}",
			Handler: s.provisionOrder,
		},
		{
			Method:  http.MethodPut,
			Path:    "/{artifactID}/{orderID}/{action}",
			Handler: s.executeAction,
		},
	}
}

type listArtifactsRsp struct {
	Artifacts []*catalog.Artifact `json:"artifacts"`
}

type orderRsp struct {
	Artifact *catalog.Artifact      `json:"artifact"`
	Metadata *inventory.OrderRecord `json:"metadata"`
}

type artifactLogRsp struct {
	Log []string `json:"log"`
}

func (s *SeedServer) listArtifacts(r *http.Request) (*httpx.Response, error) {
	artifacts := s.engine.All(r.Context())
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &listArtifactsRsp{Artifacts: artifacts},
	}, nil
}

func (s *SeedServer) getInventory(r *http.Request) (*httpx.Response, error) {
	stock, err := s.engine.Stock(r.Context(), chi.URLParam(r, "artifactID"))
	if err != nil {
		return nil, err
	}
	// The marketplace expects the stock as a single-element array.
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   []int{stock},
	}, nil
}

func (s *SeedServer) getLog(r *http.Request) (*httpx.Response, error) {
	entries, err := s.engine.Log(r.Context(), chi.URLParam(r, "artifactID"))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []string{}
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &artifactLogRsp{Log: entries},
	}, nil
}

func (s *SeedServer) getOrder(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	artifactID := chi.URLParam(r, "artifactID")
	orderID := chi.URLParam(r, "orderID")

	artifact, err := s.engine.Get(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.Metadata(ctx, artifactID, orderID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &orderRsp{Artifact: artifact, Metadata: rec},
	}, nil
}

// provisionOrder creates the order for the (artifact, order) pair. The
// engine logs the provisioning attempt either way.
func (s *SeedServer) provisionOrder(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	artifactID := chi.URLParam(r, "artifactID")
	orderID := chi.URLParam(r, "orderID")

	rec, err := s.engine.Provision(ctx, artifactID, orderID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &orderRsp{Artifact: s.engine.Artifact(artifactID), Metadata: rec},
	}, nil
}

func (s *SeedServer) executeAction(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	artifactID := chi.URLParam(r, "artifactID")
	orderID := chi.URLParam(r, "orderID")
	action := catalog.Action(chi.URLParam(r, "action"))

	rec, err := s.engine.Execute(ctx, artifactID, orderID, action)
	if err != nil {
		return nil, err
	}

	// The marketplace is told about the new state on a best-effort
	// basis; a failed publish never fails the transition itself.
	if s.notifier != nil && !s.notifier.NotifyState(ctx, orderID, rec.State) {
		log.Ctx(ctx).Debug().Str("order", orderID).Str("state", string(rec.State)).
			Msg("state change was not published to the marketplace")
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &orderRsp{Artifact: s.engine.Artifact(artifactID), Metadata: rec},
	}, nil
}
