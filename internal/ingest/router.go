package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stagecap/internal/logging"
	"stagecap/internal/services"
	"stagecap/internal/session"
)

const maxBodyBytes = 4 << 20

// Sink receives decoded messages. *session.Runner satisfies it.
type Sink interface {
	Submit(ctx context.Context, in session.Incoming) error
	SubmitConsole(ctx context.Context, line session.ConsoleLine) error
	Status() session.Status
}

// Message is the wire form of one playback event.
type Message struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RouterOption adds routes to the ingest router.
type RouterOption func(chi.Router)

// WithHandler mounts h at pattern for GET requests, such as a metrics endpoint.
func WithHandler(pattern string, h http.Handler) RouterOption {
	return func(r chi.Router) { r.Method(http.MethodGet, pattern, h) }
}

// NewRouter builds the ingest routes.
func NewRouter(sink Sink, logger *slog.Logger, opts ...RouterOption) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &handlers{sink: sink, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlate)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", h.status)
	r.Post("/events", h.events)
	r.Post("/console", h.console)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type handlers struct {
	sink   Sink
	logger *slog.Logger
}

type acceptedResponse struct {
	Accepted int `json:"accepted"`
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.sink.Status())
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	messages, err := decodeMessages(body)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	for i, msg := range messages {
		if err := h.sink.Submit(r.Context(), session.Incoming{Kind: msg.Kind, Data: msg.Data}); err != nil {
			h.submitFailed(w, r, i, err)
			return
		}
	}
	writeJSON(w, h.logger, http.StatusAccepted, acceptedResponse{Accepted: len(messages)})
}

func (h *handlers) console(w http.ResponseWriter, r *http.Request) {
	var line session.ConsoleLine
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&line); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid console line: "+err.Error())
		return
	}
	if err := h.sink.SubmitConsole(r.Context(), line); err != nil {
		h.submitFailed(w, r, 0, err)
		return
	}
	writeJSON(w, h.logger, http.StatusAccepted, acceptedResponse{Accepted: 1})
}

func (h *handlers) submitFailed(w http.ResponseWriter, r *http.Request, accepted int, err error) {
	if errors.Is(err, session.ErrClosed) {
		writeJSON(w, h.logger, http.StatusGone, map[string]any{"error": "session finished", "accepted": accepted})
		return
	}
	logging.WarnWithContext(logging.WithContext(r.Context(), h.logger), "event submission failed", "ingest_submit_failed",
		logging.Error(err),
		logging.Int("accepted", accepted),
		logging.String(logging.FieldImpact, "remaining events in the request were dropped"),
	)
	writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "accepted": accepted})
}

// decodeMessages accepts a single message object or an array of them.
func decodeMessages(body []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	var messages []Message
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, errors.New("invalid event array: " + err.Error())
		}
	} else {
		var msg Message
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, errors.New("invalid event: " + err.Error())
		}
		messages = []Message{msg}
	}
	for i := range messages {
		messages[i].Kind = strings.TrimSpace(messages[i].Kind)
		if messages[i].Kind == "" {
			return nil, errors.New("event kind is required")
		}
	}
	return messages, nil
}

// correlate copies the chi request id into the context for logging.
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logging.WithContext(r.Context(), logger).Debug("ingest request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}
