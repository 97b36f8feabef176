package mockgw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tengw/internal/ethsign"
	"tengw/internal/logging"
	"tengw/shared"
)

const (
	maxRequestBody  = 1 << 20
	tokenCleanupDiv = 10
	shutdownTimeout = 5 * time.Second
)

// tokenState is what the gateway knows about a joined token.
type tokenState struct {
	accounts []common.Address // authenticated accounts in order
}

// Server is the mock gateway. Create it with New, mount Handler or call ListenAndServe,
// and Close it to stop the background goroutines.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics
	tokens  *TTLCache[tokenState]
	joins   *fixedWindow
	started time.Time

	mu     sync.Mutex // guards ledger
	ledger *ledger

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New validates cfg and creates a server. The expiry sweeper is not running until Start.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mock gateway config: %w", err)
	}
	cleanup := cfg.TokenTTL / tokenCleanupDiv
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &Server{
		cfg:     cfg,
		logger:  logging.OrNop(logger).Named("mockgw"),
		metrics: newMetrics(),
		tokens:  NewTTLCache[tokenState](cfg.TokenTTL, cfg.MaxTokens, cleanup),
		joins:   newFixedWindow(cfg.JoinRateLimit, cfg.JoinRateWindow),
		started: time.Now(),
		ledger:  newLedger(),
		stop:    make(chan struct{}),
	}, nil
}

// Handler returns the HTTP routes of the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /v1/join/{$}", s.middleware("join", http.HandlerFunc(s.handleJoin)))
	mux.Handle("POST /v1/authenticate/{$}", s.middleware("authenticate", http.HandlerFunc(s.handleAuthenticate)))
	mux.Handle("POST /v1/{$}", s.middleware("rpc", http.HandlerFunc(s.handleRPC)))
	mux.Handle("GET /health", s.middleware("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("POST /admin/fund", s.middleware("fund", http.HandlerFunc(s.handleFund)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start launches the expiry sweeper.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.sweepLoop()
}

// Close stops the sweeper and the token cache cleanup.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.stop)
		s.tokens.Close()
	})
	s.wg.Wait()
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Start()
	defer s.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.logger.Info("Mock gateway listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int64("chain_id", s.cfg.ChainID),
		zap.Duration("expiry_window", s.cfg.ExpiryWindow),
		zap.Int("join_rate_limit", s.cfg.JoinRateLimit),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("Mock gateway stopped")
	return nil
}

// Fund credits addr with amount wei.
func (s *Server) Fund(addr common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.credit(addr, amount)
}

// BalanceOf returns the balance of addr in wei.
func (s *Server) BalanceOf(addr common.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.balance(addr)
}

// SessionKeyCount returns the number of live session keys.
func (s *Server) SessionKeyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger.sessionKeys)
}

// SweepExpired returns deposits made before now - ExpiryWindow to their funders.
func (s *Server) SweepExpired(now time.Time) (int, *big.Int) {
	s.mu.Lock()
	refunds, total := s.ledger.expire(now.Add(-s.cfg.ExpiryWindow))
	s.mu.Unlock()

	if refunds > 0 {
		wei, _ := new(big.Float).SetInt(total).Float64()
		s.metrics.fundsExpired.Add(wei)
		s.metrics.expiryRefunds.Add(float64(refunds))
		s.logger.Info("Expired session key funds returned",
			zap.Int("refunds", refunds),
			zap.String("wei", total.String()),
		)
	}
	return refunds, total
}

func (s *Server) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.SweepExpired(now)
		}
	}
}

type ctxKey struct{}

func requestLogger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// middleware tags each request with an id, records metrics and logs the outcome.
func (s *Server) middleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)

		logger := s.logger.With(zap.String("request_id", id), zap.String("endpoint", endpoint))
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger))

		// Wrap ResponseWriter to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		status := fmt.Sprintf("%d", rw.statusCode)
		s.metrics.httpRequestsTotal.WithLabelValues(endpoint, r.Method, status).Inc()
		s.metrics.httpRequestDuration.WithLabelValues(endpoint, r.Method).Observe(duration.Seconds())

		logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", duration),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	if !s.joins.Allow() {
		s.metrics.joinsRateLimited.Inc()
		writeText(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	buf := make([]byte, shared.TokenHexLength/2)
	if _, err := rand.Read(buf); err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	token := hex.EncodeToString(buf)
	if !s.tokens.Add(token, tokenState{}) {
		logger.Warn("Token store full", zap.Int("size", s.tokens.Size()))
		writeText(w, http.StatusServiceUnavailable, "too many tokens")
		return
	}

	logger.Debug("Token issued", zap.String("token", token))
	writeText(w, http.StatusOK, token)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	token := r.URL.Query().Get("token")
	if !s.tokens.Contains(token) {
		writeText(w, http.StatusUnauthorized, "unknown token")
		return
	}

	var req shared.AuthRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !shared.IsValidAddress(req.Address) {
		writeText(w, http.StatusBadRequest, "invalid address")
		return
	}
	addr := common.HexToAddress(req.Address)

	if err := ethsign.VerifyAuthentication(token, s.cfg.ChainID, req.Signature, addr); err != nil {
		s.metrics.authentications.WithLabelValues("rejected").Inc()
		logger.Info("Authentication rejected", zap.String("address", addr.Hex()), zap.Error(err))
		writeText(w, http.StatusOK, "invalid signature")
		return
	}

	s.tokens.Update(token, func(st tokenState) tokenState {
		if !slices.Contains(st.accounts, addr) {
			st.accounts = append(slices.Clone(st.accounts), addr)
		}
		return st
	})
	s.metrics.authentications.WithLabelValues("success").Inc()
	logger.Info("Account authenticated", zap.String("address", addr.Hex()))
	writeText(w, http.StatusOK, shared.AuthSuccessBody)
}

// rpcRequest keeps params raw so each method decodes its own arguments.
type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	token := r.URL.Query().Get("token")
	state, ok := s.tokens.Get(token)
	if !ok {
		writeText(w, http.StatusUnauthorized, "unknown token")
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, shared.JSONRPCResponse{
			JSONRPC: shared.JSONRPCVersion,
			Error:   &shared.JSONRPCError{Code: shared.RPCCodeParseError, Message: "parse error"},
		})
		return
	}

	resp := shared.JSONRPCResponse{JSONRPC: shared.JSONRPCVersion, ID: req.ID}
	result, rpcErr := s.dispatch(token, state, req.Method, req.Params)
	if rpcErr == nil {
		raw, err := json.Marshal(result)
		if err != nil {
			rpcErr = &shared.JSONRPCError{Code: shared.RPCCodeInternal, Message: err.Error()}
		} else {
			resp.Result = raw
		}
	}

	outcome := "ok"
	if rpcErr != nil {
		outcome = "error"
		resp.Error = rpcErr
		resp.Result = nil
		logger.Debug("RPC call failed", zap.String("method", req.Method), zap.Int("code", rpcErr.Code), zap.String("message", rpcErr.Message))
	}
	s.metrics.rpcCalls.WithLabelValues(req.Method, outcome).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"uptime":       time.Since(s.started).String(),
		"chain_id":     s.cfg.ChainID,
		"tokens":       s.tokens.Size(),
		"session_keys": s.SessionKeyCount(),
	}
	writeJSON(w, http.StatusOK, response)
}

// FundRequest is the body of POST /admin/fund. Amount is in whole units ("1.5").
type FundRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req FundRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !shared.IsValidAddress(req.Address) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}
	wei, err := shared.EthToWei(req.Amount)
	if err != nil || shared.ValidateAmount(wei) != nil || wei.Sign() == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	addr := common.HexToAddress(req.Address)
	s.Fund(addr, wei)
	balance := s.BalanceOf(addr)

	requestLogger(r, s.logger).Info("Account funded",
		zap.String("address", addr.Hex()),
		zap.String("wei", wei.String()),
		zap.String("balance_eth", shared.FormatWeiToEth(balance)),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"address":     addr.Hex(),
		"balance_wei": balance.String(),
	})
}
