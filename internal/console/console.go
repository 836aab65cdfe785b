// Package console is an optional, host-side, read-only debug HTTP server
// exposing pkg/tic.View over a single endpoint behind a static JWT bearer
// check. It never runs inside the sandbox and is not reachable from a tic
// program, so it carries none of the evaluator's restrictions. Grounded on
// nakama's server/console.go (gorilla/mux + gorilla/handlers request
// routing, a JWT bearer scheme lifted from session_auth.go's
// authenticateToken/HS256 pattern) scaled down from nakama's gRPC-gateway
// console to a single plain HTTP handler, since this module has nothing
// like nakama's full console API surface to expose.
package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/pkg/tic"
)

// Server is a read-only debug console over one Versioned store.
type Server struct {
	logger     *zap.Logger
	store      *state.Versioned
	hmacSecret []byte
	httpServer *http.Server
}

// Config holds the console's listen address and signing secret.
type Config struct {
	Addr       string
	HMACSecret []byte
}

// New builds a console Server for st, routed through gorilla/mux with
// gorilla/handlers request logging and recovery, the way
// StartConsoleServer wires nakama's grpcGatewayRouter.
func New(cfg Config, st *state.Versioned, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger, store: st, hmacSecret: cfg.HMACSecret}

	router := mux.NewRouter()
	router.HandleFunc("/v1/view", s.authMiddleware(s.handleView)).Methods(http.MethodGet)

	handler := handlers.LoggingHandler(zapWriter{logger}, router)
	handler = handlers.RecoveryHandler()(handler)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}
	return s
}

// ListenAndServe blocks serving the console until the process stops it or
// the listener errors.
func (s *Server) ListenAndServe() error {
	s.logger.Info("console listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// IssueToken mints a console bearer token for subject, the same HS256/
// MapClaims shape as nakama's authenticationService token issuance.
func IssueToken(hmacSecret []byte, subject string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().UTC().Add(ttl).Unix(),
		"jti": uuid.Must(uuid.NewV4()).String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(hmacSecret)
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.hmacSecret, nil
		})
		if err != nil || !token.Valid {
			s.logger.Warn("console token rejected", zap.Error(err))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	focus := tic.Focus(r.URL.Query().Get("focus"))
	if focus == "" {
		focus = tic.FocusFull
	}
	maxTokens := 0
	if raw := r.URL.Query().Get("max_tokens"); raw != "" {
		fmt.Sscanf(raw, "%d", &maxTokens)
	}

	out, err := tic.View(s.store, focus, maxTokens)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// value.Value's concrete types have no custom MarshalJSON, so
	// composite values (List/Map/Set) serialize as their raw struct shape
	// rather than native JSON arrays/objects; good enough for a debug
	// console, not a wire contract.
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("failed to encode view response", zap.Error(err))
	}
}

// zapWriter adapts a *zap.Logger to the io.Writer gorilla/handlers.
// LoggingHandler wants for its Apache-style access log line.
type zapWriter struct{ logger *zap.Logger }

func (z zapWriter) Write(p []byte) (int, error) {
	z.logger.Info("console access", zap.String("line", strings.TrimSuffix(string(p), "\n")))
	return len(p), nil
}
