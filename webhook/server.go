// Package webhook exposes the coach over HTTP for the Twilio WhatsApp
// webhook. It adapts form-encoded inbound messages to coach turns and
// delivers the resulting reply through the configured sender.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/momentumhq/momentum/coach"
	"github.com/momentumhq/momentum/logging"
	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/store"
)

// Options configures the Server.
type Options struct {
	// TurnTimeout bounds a single inbound turn end to end, model calls
	// included.
	TurnTimeout time.Duration

	// ConfigCheck reports whether required external configuration is
	// present. A nil check counts as healthy.
	ConfigCheck func() error

	Logger logging.Logger
}

// Server routes webhook traffic to a Coach.
type Server struct {
	coach       *coach.Coach
	sender      messaging.Sender
	records     store.Store
	turnTimeout time.Duration
	configCheck func() error
	logger      logging.Logger
	router      *mux.Router
}

// NewServer constructs a Server with its routes registered.
func NewServer(c *coach.Coach, sender messaging.Sender, records store.Store, optFns ...func(o *Options)) *Server {
	opts := Options{
		TurnTimeout: 120 * time.Second,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		coach:       c,
		sender:      sender,
		records:     records,
		turnTimeout: opts.TurnTimeout,
		configCheck: opts.ConfigCheck,
		logger:      opts.Logger,
		router:      mux.NewRouter(),
	}

	s.router.HandleFunc("/whatsapp/webhook", s.handleInbound).Methods(http.MethodPost)
	s.router.HandleFunc("/whatsapp/proof-request", s.handleProofRequest).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	return s
}

// Router returns the configured HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// handleInbound accepts the Twilio form payload (From, Body), runs one coach
// turn and delivers the reply. Every failure, malformed payload included, is
// logged and reported as an error status in a 200 body so Twilio does not
// retry the inbound message; raw errors never reach the caller.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.Warn("webhook.payload.malformed", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "detail": "malformed form payload"})
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" || body == "" {
		s.logger.Warn("webhook.payload.incomplete", "from", from)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "detail": "missing From or Body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.turnTimeout)
	defer cancel()

	reply, err := s.coach.HandleInbound(ctx, from, body)
	if err != nil {
		s.logger.Error("webhook.turn.failed", "from", from, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	if reply != "" {
		if _, err := s.sender.Send(ctx, from, reply); err != nil {
			s.logger.Error("webhook.delivery.failed", "from", from, "error", err)
			writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type proofRequestPayload struct {
	Address string `json:"address"`
	FlowID  string `json:"flow_id,omitempty"`
}

// handleProofRequest triggers the proof-submission flow for an account with
// an active commitment. Used by the scheduler that drives verification
// windows.
func (s *Server) handleProofRequest(w http.ResponseWriter, r *http.Request) {
	var payload proofRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "detail": "missing address"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.turnTimeout)
	defer cancel()

	receipt, err := s.coach.RequestProofForm(ctx, payload.Address, payload.FlowID)
	if err != nil {
		s.logger.Error("webhook.proof_request.failed", "address", payload.Address, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message_id": receipt.MessageID})
}

// handleHealth is the liveness probe: is the process serving at all.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "momentum",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady is the readiness probe: can the service handle requests. It
// pings the record store and validates the configured channel; any failing
// check turns the response into a 503 so the instance is pulled from rotation.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	if err := s.records.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
	} else {
		checks["database"] = "healthy"
	}
	if s.configCheck != nil {
		if err := s.configCheck(); err != nil {
			checks["config"] = "unhealthy: " + err.Error()
		} else {
			checks["config"] = "healthy"
		}
	} else {
		checks["config"] = "healthy"
	}

	for _, status := range checks {
		if status != "healthy" {
			s.logger.Warn("webhook.readiness.failed", "checks", fmt.Sprintf("%v", checks))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "checks": checks})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
