// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package explore

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/engine"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/resolve"
)

// Server serves the exploration API over HTTP. Every request runs
// against the generation live at the time it arrives; node ids in
// route segments are percent-encoded (asset ids contain slashes).
type Server struct {
	addr       string
	svc        *engine.Service
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	running    atomic.Bool
}

// NewServer creates a Server for the given listen address.
func NewServer(addr string, svc *engine.Service) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		svc:      svc,
		registry: registry,
	}
}

// Start begins serving. The returned channel receives a server failure
// after startup and is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("explore server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("explore server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("explore server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_explore_server").Wrap(err)
		}
	}
	slog.Info("explore server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/nodes", s.listHandler())
	mux.HandleFunc("GET /api/users", s.listHandler(graph.KindUser))
	mux.HandleFunc("GET /api/groups", s.listHandler(graph.KindGroup))
	mux.HandleFunc("GET /api/assets", s.listHandler(graph.KindAsset))
	mux.HandleFunc("GET /api/tags", s.listHandler(graph.KindTag))

	mux.HandleFunc("GET /api/asset/{id}/users", s.assetUsersHandler(true))
	mux.HandleFunc("GET /api/asset/{id}/all_users", s.assetUsersHandler(false))
	mux.HandleFunc("GET /api/asset/{id}/tags", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.TagsForAsset(pathID(r))
	}))
	mux.HandleFunc("GET /api/asset/{id}/hierarchy_upstream", s.relatedHandler(graph.ChildOf, graph.Outgoing))
	mux.HandleFunc("GET /api/asset/{id}/hierarchy_downstream", s.relatedHandler(graph.ChildOf, graph.Incoming))
	mux.HandleFunc("GET /api/asset/{id}/lineage_upstream", s.relatedHandler(graph.DerivedFrom, graph.Outgoing))
	mux.HandleFunc("GET /api/asset/{id}/lineage_downstream", s.relatedHandler(graph.DerivedFrom, graph.Incoming))

	mux.HandleFunc("GET /api/user/{id}/assets", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.AssetsForUser(pathID(r))
	}))
	mux.HandleFunc("GET /api/user/{id}/tags", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.TagsForUser(pathID(r))
	}))
	mux.HandleFunc("GET /api/user/{id}/direct_groups", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.DirectGroups(pathID(r))
	}))
	mux.HandleFunc("GET /api/user/{id}/inherited_groups", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.InheritedGroups(pathID(r))
	}))

	mux.HandleFunc("GET /api/group/{id}/direct_members", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.DirectMembers(pathID(r))
	}))
	mux.HandleFunc("GET /api/group/{id}/all_members", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.AllMembers(pathID(r))
	}))
	mux.HandleFunc("GET /api/group/{id}/direct_groups", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.DirectGroups(pathID(r))
	}))
	mux.HandleFunc("GET /api/group/{id}/inherited_groups", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.InheritedGroups(pathID(r))
	}))

	mux.HandleFunc("GET /api/tag/{id}/all_assets", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.AssetsForTag(pathID(r), false)
	}))
	mux.HandleFunc("GET /api/tag/{id}/direct_assets", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.AssetsForTag(pathID(r), true)
	}))
	mux.HandleFunc("GET /api/tag/{id}/users", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.UsersForTag(pathID(r))
	}))

	mux.HandleFunc("GET /api/node/{id}/permissions/{agent}", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.Explain(graph.ID(r.PathValue("agent")), pathID(r))
	}))
	mux.HandleFunc("GET /api/node/{id}/subgraph", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		depth := 1
		if v := r.URL.Query().Get("depth"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, oops.
					Code(resolve.CodeInvalidRequest).
					With("depth", v).
					Errorf("depth must be a positive integer")
			}
			depth = n
		}
		return x.Subgraph(pathID(r), depth)
	}))
	mux.HandleFunc("GET /api/node/{from}/paths/{to}", s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		paths, conds, err := x.PathsBetween(graph.ID(r.PathValue("from")), graph.ID(r.PathValue("to")))
		if err != nil {
			return nil, err
		}
		return map[string]any{"paths": paths, "conditions": conds}, nil
	}))

	mux.HandleFunc("GET /api/last_fetch", s.withExplorer(func(x *Explorer, _ *http.Request) (any, error) {
		gen := x.Generation()
		return map[string]any{
			"generation": gen.ID.String(),
			"built_at":   gen.BuiltAt.Format(time.RFC3339Nano),
		}, nil
	}))

	// The resolver's metrics live on the default registry; expose both.
	gatherers := prometheus.Gatherers{s.registry, prometheus.DefaultGatherer}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)

	return mux
}

func pathID(r *http.Request) graph.ID {
	return graph.ID(r.PathValue("id"))
}

func (s *Server) listHandler(kinds ...graph.Kind) http.HandlerFunc {
	return s.withExplorer(func(x *Explorer, _ *http.Request) (any, error) {
		return x.Nodes(kinds...), nil
	})
}

func (s *Server) assetUsersHandler(directOnly bool) http.HandlerFunc {
	return s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.UsersForAsset(pathID(r), directOnly)
	})
}

func (s *Server) relatedHandler(t graph.EdgeType, dir graph.Direction) http.HandlerFunc {
	return s.withExplorer(func(x *Explorer, r *http.Request) (any, error) {
		return x.Related(pathID(r), t, dir)
	})
}

// withExplorer resolves the live generation, runs the query, and writes
// the JSON response or a classified error.
func (s *Server) withExplorer(query func(*Explorer, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gen, err := s.svc.Current()
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		result, err := query(NewExplorer(gen), r)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func statusFor(err error) int {
	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case graph.CodeNotFound:
			return http.StatusNotFound
		case resolve.CodeInvalidRequest:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			body.Code = code
		}
	}
	writeJSON(w, status, body)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
