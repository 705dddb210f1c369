package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"farmchain/native/common"
	"farmchain/native/farming"
	"farmchain/observability"
	"farmchain/state"
)

const (
	defaultRateLimit = rate.Limit(20)
	defaultBurst     = 40
)

// Server exposes the farming ledger over JSON-RPC 2.0. All state-changing
// methods are serialised behind one mutex so the engine observes a single
// totally ordered operation stream.
type Server struct {
	engine  *farming.Engine
	manager *state.Manager
	metrics *observability.FarmingMetrics
	log     *slog.Logger

	authToken string
	now       func() time.Time
	pauses    *common.PauseSet

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	// opMu serialises handler execution; the engine is not re-entrant.
	opMu sync.Mutex
}

// NewServer wires the server to the engine and its persistence manager. The
// admin bearer token is read from FARMD_RPC_TOKEN; when unset, privileged
// methods are rejected outright.
func NewServer(engine *farming.Engine, manager *state.Manager) *Server {
	return &Server{
		engine:    engine,
		manager:   manager,
		metrics:   observability.Farming(),
		log:       slog.Default(),
		authToken: strings.TrimSpace(os.Getenv("FARMD_RPC_TOKEN")),
		now:       time.Now,
		limiters:  make(map[string]*rate.Limiter),
		limit:     defaultRateLimit,
		burst:     defaultBurst,
	}
}

// SetAuthToken overrides the bearer token used for privileged methods.
func (s *Server) SetAuthToken(token string) {
	s.authToken = strings.TrimSpace(token)
}

// SetPauses wires the pause set toggled by farm_setPaused. The same set must
// be installed on the engine for the toggle to take effect.
func (s *Server) SetPauses(p *common.PauseSet) {
	s.pauses = p
}

// SetRateLimit adjusts the per-source request budget.
func (s *Server) SetRateLimit(limit rate.Limit, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	s.burst = burst
	s.limiters = make(map[string]*rate.Limiter)
}

// Router assembles the HTTP surface: the JSON-RPC endpoint at the root plus
// health and metrics endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the router until the listener fails or ctx is cancelled, then
// drains in-flight requests before returning.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down JSON-RPC server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps the engine's error taxonomy onto JSON-RPC error
// codes and HTTP statuses.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, farming.ErrAuthorization):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, farming.ErrValidation):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, common.ErrModulePaused), errors.Is(err, common.ErrReentrantCall):
		writeError(w, http.StatusServiceUnavailable, id, codePaused, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func (s *Server) allowSource(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[source] = limiter
	}
	return limiter.Allow()
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.allowSource(clientSource(r)) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "request rate exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	started := s.now()
	handlerErr := s.dispatch(w, r, req)
	s.metrics.Observe(req.Method, s.now().Sub(started), handlerErr)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	switch req.Method {
	case "farm_deposit":
		return s.handleDeposit(w, req)
	case "farm_withdraw":
		return s.handleWithdraw(w, req)
	case "farm_harvest":
		return s.handleHarvest(w, req)
	case "farm_emergencyWithdraw":
		return s.handleEmergencyWithdraw(w, req)
	case "farm_pendingReward":
		return s.handlePendingReward(w, req)
	case "farm_getPool":
		return s.handleGetPool(w, req)
	case "farm_listPools":
		return s.handleListPools(w, req)
	case "farm_getPosition":
		return s.handleGetPosition(w, req)
	case "farm_getBalance":
		return s.handleGetBalance(w, req)
	case "farm_createPool":
		return s.authorized(w, r, req, s.handleCreatePool)
	case "farm_updatePoolSchedule":
		return s.authorized(w, r, req, s.handleUpdatePoolSchedule)
	case "farm_setPoolFees":
		return s.authorized(w, r, req, s.handleSetPoolFees)
	case "farm_closePool":
		return s.authorized(w, r, req, s.handleClosePool)
	case "farm_massUpdate":
		return s.authorized(w, r, req, s.handleMassUpdate)
	case "farm_addReward":
		return s.authorized(w, r, req, s.handleAddReward)
	case "farm_emergencyStop":
		return s.authorized(w, r, req, s.handleEmergencyStop)
	case "farm_setAdmin":
		return s.authorized(w, r, req, s.handleSetAdmin)
	case "farm_setHarvestSplit":
		return s.authorized(w, r, req, s.handleSetHarvestSplit)
	case "farm_setPaused":
		return s.authorized(w, r, req, s.handleSetPaused)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return fmt.Errorf("method not found: %s", req.Method)
	}
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request, req *RPCRequest, next func(http.ResponseWriter, *RPCRequest) error) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	return next(w, req)
}

// syncClock feeds wall-clock seconds into the engine before a state-changing
// call. The engine ignores values that would move its clock backwards.
func (s *Server) syncClock() {
	now := s.now().Unix()
	if now > 0 {
		s.engine.SetClock(uint64(now))
	}
}
