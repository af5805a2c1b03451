package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"decisionflow/internal/adapters/config"
	"decisionflow/internal/metrics"
	"decisionflow/pkg/auth"
	pkgerrors "decisionflow/pkg/errors"
	"decisionflow/pkg/logger"
)

// Server exposes a request handler over JSON-RPC 2.0 on HTTP, serving the
// agent card, health probes, and metrics alongside.
type Server struct {
	card    AgentCard
	handler *RequestHandler
	cfg     *config.Config
	jwt     *auth.JWTService
	log     *logger.Logger

	liveness  http.HandlerFunc
	readiness http.HandlerFunc

	httpServer *http.Server
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithJWT enables bearer token authentication on the RPC endpoint.
func WithJWT(svc *auth.JWTService) ServerOption {
	return func(s *Server) { s.jwt = svc }
}

// WithHealth mounts liveness and readiness probes.
func WithHealth(liveness, readiness http.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.liveness = liveness
		s.readiness = readiness
	}
}

// NewServer creates a server for the given card and handler.
func NewServer(card AgentCard, handler *RequestHandler, cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		card:    card,
		handler: handler,
		cfg:     cfg,
		log:     logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if s.cfg.Server.RateLimitEnabled {
		r.Use(httprate.Limit(
			s.cfg.Server.RateLimit,
			s.cfg.Server.RateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
			}),
		))
	}

	r.Get(WellKnownCardPath, s.handleCard)
	if s.liveness != nil {
		r.Get("/healthz", s.liveness)
	}
	if s.readiness != nil {
		r.Get("/readyz", s.readiness)
	}
	if s.cfg.Server.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(rpc chi.Router) {
		if s.jwt != nil {
			rpc.Use(s.authMiddleware)
		}
		rpc.Post("/", s.handleRPC)
	})

	return r
}

// Start runs the HTTP server until ctx is canceled, then drains it.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Agent.Host, s.cfg.Agent.ListenPort())
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Router(),
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// WriteTimeout has to cover long-lived SSE streams.
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("agent server listening", "addr", addr, "agent", s.card.Name)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.log.Infow("shutting down agent server", "agent", s.card.Name)
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, NewErrorResponse(nil, CodeParseError, "invalid JSON payload"))
		return
	}
	if !req.Valid() {
		writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeInvalidRequest, "invalid JSON-RPC request"))
		return
	}

	started := time.Now()
	var (
		result interface{}
		err    error
	)
	switch req.Method {
	case MethodMessageStream:
		err = s.handleStream(w, r, &req)
		metrics.RecordRPC(req.Method, err, time.Since(started).Seconds())
		return
	case MethodMessageSend:
		var params MessageSendParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeInvalidParams, "invalid message/send params"))
			return
		}
		result, err = s.handler.OnMessageSend(r.Context(), params)
	case MethodTasksGet:
		var params TaskQueryParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeInvalidParams, "invalid tasks/get params"))
			return
		}
		result, err = s.handler.OnGetTask(r.Context(), params)
	case MethodTasksCancel:
		var params TaskIDParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeInvalidParams, "invalid tasks/cancel params"))
			return
		}
		result, err = s.handler.OnCancelTask(r.Context(), params)
	default:
		writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method))
		return
	}

	metrics.RecordRPC(req.Method, err, time.Since(started).Seconds())
	if err != nil {
		rpcErr := errorToRPC(err)
		s.log.Warnw("rpc request failed", "method", req.Method, "code", rpcErr.Code, "error", err)
		writeJSON(w, http.StatusOK, &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
		return
	}
	writeJSON(w, http.StatusOK, NewResponse(req.ID, result))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, req *Request) error {
	if !s.card.Capabilities.Streaming {
		err := pkgerrors.Wrap(pkgerrors.ErrUnsupportedOperation, "agent does not support streaming")
		writeJSON(w, http.StatusOK, &Response{JSONRPC: "2.0", ID: req.ID, Error: errorToRPC(err)})
		return err
	}

	var params MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeInvalidParams, "invalid message/stream params"))
		return err
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, NewErrorResponse(req.ID, CodeInternalError, "streaming is not supported by this connection"))
		return nil
	}

	sse := newSSEWriter(w, flusher, req.ID)
	err := s.handler.OnMessageStream(r.Context(), params, sse.Send)
	if err != nil {
		// If no frame went out yet, fail the request as plain JSON.
		if !sse.started {
			rpcErr := errorToRPC(err)
			writeJSON(w, http.StatusOK, &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
			return err
		}
		sse.SendError(errorToRPC(err))
	}
	return err
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		claims, err := s.jwt.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
