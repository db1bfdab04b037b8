// Package api implements the HTTP surface (§6): chat, cross-chain intent
// CRUD, and the capability-listing endpoints. Routing, CORS, and the
// request-logging middleware are adapted from the teacher's
// api/server.go, switched from gorilla/mux's usual net/http logging to
// zerolog and generalized from the transaction-explanation routes to
// this domain's chat and cross-chain surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/txplain/tradeintent/internal/apperr"
	"github.com/txplain/tradeintent/internal/chat"
	"github.com/txplain/tradeintent/internal/crosschain"
	"github.com/txplain/tradeintent/internal/models"
)

// Server is the HTTP front end binding the chat pipeline and the
// cross-chain intent service to the routes of §6.
type Server struct {
	router    *mux.Router
	chat      *chat.Pipeline
	crosschain *crosschain.Service
	address   string
	inboundToken string
	server    *http.Server
}

// NewServer builds the router and wires every handler (§6 HTTP surface).
func NewServer(address string, chatPipeline *chat.Pipeline, crosschainSvc *crosschain.Service, inboundToken string) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		chat:         chatPipeline,
		crosschain:   crosschainSvc,
		address:      address,
		inboundToken: inboundToken,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/chat", s.handleChat).Methods("POST")
	s.router.HandleFunc("/chat/stream", s.handleChatStream).Methods("POST")

	s.router.HandleFunc("/cross-chain/intents", s.handleCreateIntent).Methods("POST")
	s.router.HandleFunc("/cross-chain/intents", s.handleListIntents).Methods("GET")
	s.router.HandleFunc("/cross-chain/intents/{id}", s.handleGetIntent).Methods("GET")
	s.router.HandleFunc("/cross-chain/intents/{id}/cancel", s.handleCancelIntent).Methods("POST")
	s.router.HandleFunc("/cross-chain/intents/{id}/refund", s.handleRefundIntent).Methods("POST")
	s.router.HandleFunc("/cross-chain/inbound", s.handleInbound).Methods("POST")
	s.router.HandleFunc("/cross-chain/networks", s.handleNetworks).Methods("GET")
	s.router.HandleFunc("/cross-chain/connectors", s.handleConnectors).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.CodeInvalidInput, "invalid request body"))
		return
	}

	resp, err := s.chat.Chat(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.CodeInvalidInput, "invalid request body"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, apperr.New(apperr.CodeStreamError, "streaming not supported by this response writer"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := s.chat.Stream(r.Context(), req)
	for ev := range events {
		writeSSEEvent(w, ev)
		flusher.Flush()
	}
}

func writeSSEEvent(w http.ResponseWriter, ev chat.Event) {
	if ev.Name == "comment" {
		fmt.Fprintf(w, ": %v\n\n", ev.Data)
		return
	}
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req models.CrossChainIntentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.CodeInvalidInput, "invalid request body"))
		return
	}

	intent, err := s.crosschain.CreateAndDispatch(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	intent, err := s.crosschain.GetIntent(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleListIntents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	intents := s.crosschain.ListIntents(q.Get("session_id"), models.IntentState(q.Get("state")))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"intents": intents, "count": len(intents)})
}

func (s *Server) handleCancelIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	intent, err := s.crosschain.CancelIntent(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleRefundIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	intent, err := s.crosschain.RefundIntent(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	if s.inboundToken == "" {
		s.writeError(w, apperr.New(apperr.CodeNotReady, "CROSSCHAIN_INBOUND_TOKEN is not configured"))
		return
	}
	if r.Header.Get("x-crosschain-auth") != s.inboundToken {
		s.writeError(w, apperr.New(apperr.CodeUnauthorized, "invalid x-crosschain-auth header"))
		return
	}

	var req models.CrossChainInboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.CodeInvalidInput, "invalid request body"))
		return
	}

	intent, applied, err := s.crosschain.ApplyVerifiedInbound(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"applied": applied, "intent": intent})
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"networks": crosschain.Networks()})
}

func (s *Server) handleConnectors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"connectors": crosschain.Connectors()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError renders the §7 error envelope, mapping an *apperr.Error to
// its declared status and falling back to a generic 500 internal_error
// for anything else so raw Go error strings never leak to clients.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if ae, ok := apperr.As(err); ok {
		log.Warn().Str("code", string(ae.Code)).Err(err).Msg("request failed")
		s.writeJSON(w, ae.Status(), map[string]interface{}{"code": ae.Code, "message": ae.Message})
		return
	}
	log.Error().Err(err).Msg("unhandled internal error")
	s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"code":    apperr.CodeInternalError,
		"message": "internal error",
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-crosschain-auth")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request handled")
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

// Flush proxies to the underlying ResponseWriter's Flusher so the SSE
// handler's type assertion on http.Flusher succeeds through the logging
// middleware wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Start runs the HTTP server. WriteTimeout is intentionally left unset:
// /chat/stream holds connections open for STREAM_TOTAL_TIMEOUT_SECONDS,
// which can exceed a fixed per-connection write deadline.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("address", s.address).Msg("starting trading-intent API server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down trading-intent API server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
