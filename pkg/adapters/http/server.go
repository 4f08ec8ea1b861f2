package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/internal/presentation/graph"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Sessions is the session manager the server drives.
type Sessions interface {
	Start(ctx context.Context, sessionID string) (string, *domain.Outcome, error)
	Invoke(ctx context.Context, sessionID, name string, args map[string]any) (*domain.Outcome, error)
	Record(ctx context.Context, sessionID string, msgs ...domain.Message) error
	Get(ctx context.Context, sessionID string) (*domain.FlowContext, error)
	Tools(sessionID string) ([]registry.Tool, error)
	End(ctx context.Context, sessionID string) error
}

// FlowInspector exposes the static flow graph.
type FlowInspector interface {
	Flow() *domain.Flow
	Edges() []domain.Edge
}

// Server serves the function-call contract.
type Server struct {
	sessions Sessions
	flow     FlowInspector
	streams  *StreamManager
	limiter  *rateLimiter
	metrics  http.Handler
	maxInput int
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit limits each client IP to rps requests per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newRateLimiter(rps, burst)
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxInputSize bounds the content of recorded messages.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewServer creates a server over the session manager and flow.
func NewServer(sessions Sessions, flow FlowInspector, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		flow:     flow,
		maxInput: DefaultMaxInputSize,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.limiter != nil {
		r.Use(s.limiter.middleware(s.logger))
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/flow/graph", s.GetGraph)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.EndSession)
			r.Post("/invoke", s.Invoke)
			r.Post("/messages", s.RecordMessages)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

// -- Payloads --

type errorBody struct {
	Error string `json:"error"`
}

type startRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// InvokeRequest is the body of POST /sessions/{id}/invoke.
type InvokeRequest struct {
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Response is the success or failure payload of the function-call contract.
type Response struct {
	OK        bool            `json:"ok"`
	SessionID string          `json:"session_id"`
	Outcome   *domain.Outcome `json:"outcome,omitempty"`
	Failure   *domain.Failure `json:"failure,omitempty"`
}

// SessionView is the body of GET /sessions/{id}.
type SessionView struct {
	SessionID string              `json:"session_id"`
	Live      bool                `json:"live"`
	Context   *domain.FlowContext `json:"context"`
	Functions []registry.Tool     `json:"functions,omitempty"`
}

type messagesRequest struct {
	Messages []domain.Message `json:"messages"`
}

type graphView struct {
	InitialNode string        `json:"initial_node"`
	Nodes       []string      `json:"nodes"`
	Edges       []domain.Edge `json:"edges"`
}

// -- Handlers --

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "intakeflow-http",
		"version": strings.TrimSpace(intakeflow.Version),
		"flow":    s.flow.Flow().Name,
	})
}

// GetGraph handles GET /flow/graph. ?format=mermaid returns a Mermaid flowchart,
// with ?session_id= overlaying that session's path.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	flow, edges := s.flow.Flow(), s.flow.Edges()

	if r.URL.Query().Get("format") != "mermaid" {
		writeJSON(w, http.StatusOK, graphView{
			InitialNode: flow.InitialNode,
			Nodes:       graph.Order(flow, edges),
			Edges:       edges,
		})
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		fc, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, id, err)
			return
		}
		overlay = &graph.GraphOverlay{VisitedNodes: fc.History, CurrentNode: fc.CurrentNodeID}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(flow, edges, overlay)))
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
			s.logger.Warn("StartSession: Invalid request body", "err", err)
			return
		}
	}

	id, outcome, err := s.sessions.Start(r.Context(), strings.TrimSpace(body.SessionID))
	if err != nil {
		s.writeError(w, body.SessionID, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{OK: true, SessionID: id, Outcome: outcome})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	fc, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	view := SessionView{SessionID: id, Context: fc}
	if tools, err := s.sessions.Tools(id); err == nil {
		view.Live = true
		view.Functions = tools
	}
	writeJSON(w, http.StatusOK, view)
}

// Invoke handles POST /sessions/{id}/invoke.
func (s *Server) Invoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var body InvokeRequest
	if err := decodeBody(w, r, &body); err != nil || body.Function == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must be {\"function\": name, \"arguments\": {...}}"})
		return
	}

	outcome, err := s.sessions.Invoke(r.Context(), id, body.Function, body.Arguments)
	if err != nil {
		s.logger.Debug("Invocation rejected", "session_id", id, "function", body.Function, "err", err)
		s.writeError(w, id, err)
		return
	}

	if outcome.Changes != nil {
		if data, err := json.Marshal(outcome.Changes); err == nil {
			s.streams.Broadcast(id, string(data))
		}
	}
	if outcome.Ended {
		s.streams.Close(id)
	}
	writeJSON(w, http.StatusOK, Response{OK: true, SessionID: id, Outcome: outcome})
}

// RecordMessages handles POST /sessions/{id}/messages.
func (s *Server) RecordMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var body messagesRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	for i, m := range body.Messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("message %d: role must be user or assistant", i)})
			return
		}
		clean, err := SanitizeInput(m.Content, s.maxInput)
		if err != nil {
			s.logger.Warn("RecordMessages: Input rejected", "session_id", id, "err", err, "size", len(m.Content))
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("message %d: %v", i, err)})
			return
		}
		body.Messages[i].Content = clean
	}

	if err := s.sessions.Record(r.Context(), id, body.Messages...); err != nil {
		s.writeError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndSession handles DELETE /sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.End(r.Context(), id); err != nil {
		s.writeError(w, id, err)
		return
	}
	s.streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Each event is the
// JSON context diff of one successful invocation.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := s.sessions.Tools(id); err != nil {
		s.writeError(w, id, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	s.logger.Info("SSE: Subscribing to session updates", "session_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

// statusFor maps a failure to an HTTP status.
func statusFor(err error, kind domain.FailureKind) int {
	switch kind {
	case domain.FailureIllegalFunction:
		return http.StatusConflict
	case domain.FailureSchemaValidation, domain.FailureDomainValidation, domain.FailureMissingContact:
		return http.StatusUnprocessableEntity
	case domain.FailureBackendUnavailable:
		return http.StatusServiceUnavailable
	case domain.FailureSession:
		if errors.Is(err, domain.ErrSessionNotFound) {
			return http.StatusNotFound
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, sessionID string, err error) {
	if errors.Is(err, context.Canceled) && !errors.Is(err, domain.ErrSessionClosed) {
		// Client went away.
		return
	}
	failure := domain.Classify(err)
	status := statusFor(err, failure.Kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "session_id", sessionID, "err", err)
	}
	if sessionID != "" {
		if fc, gerr := s.sessions.Get(context.Background(), sessionID); gerr == nil {
			failure.NodeID = fc.CurrentNodeID
		}
	}
	writeJSON(w, status, Response{OK: false, SessionID: sessionID, Failure: &failure})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
