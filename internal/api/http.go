package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talkflow/webhookq/internal/metrics"
	"github.com/talkflow/webhookq/internal/queue"
	"github.com/talkflow/webhookq/internal/queue/processor"
	"github.com/talkflow/webhookq/internal/queue/store"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type Server struct {
	store   store.Store
	proc    *processor.Processor
	wake    func()
	addr    string
	timeout time.Duration
}

// NewServer wires the receiver and processor-trigger endpoints. wake is
// called after each successful insert to schedule background processing
// without blocking the webhook response; nil disables the trigger.
func NewServer(addr string, s store.Store, proc *processor.Processor, wake func()) *http.Server {
	srv := &Server{
		store:   s,
		proc:    proc,
		wake:    wake,
		addr:    addr,
		timeout: 30 * time.Second,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(srv.timeout))

	// Preflight OPTIONS is answered here with no side effect.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// receiver: POST /webhook
	r.Post("/webhook", srv.handleWebhook)

	// processor trigger: POST /process
	r.Post("/process", srv.handleProcess)

	return &http.Server{
		Addr:    srv.addr,
		Handler: r,
	}
}

type webhookResponse struct {
	Success   bool   `json:"success"`
	Queued    bool   `json:"queued"`
	Duplicate bool   `json:"duplicate,omitempty"`
	TimeMS    int64  `json:"time_ms"`
	Error     string `json:"error,omitempty"`
}

type processResponse struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	TimeMS    int64  `json:"time_ms"`
	Error     string `json:"error,omitempty"`
}

// ---------- Handlers ----------

// handleWebhook durably records the payload before anything else happens,
// then acks quickly; processing is never awaited here.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := readBody(r, maxBodyBytes)
	if err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}

	// An empty delivery is a benign no-op, not an error.
	if len(bytes.TrimSpace(body)) == 0 {
		writeJSON(w, http.StatusOK, &webhookResponse{
			Success: true,
			Queued:  false,
			TimeMS:  time.Since(start).Milliseconds(),
		})
		return
	}

	entry, err := queue.NewEntry(body)
	if err != nil {
		metrics.WebhooksRejected.Inc()
		httpError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}

	_, inserted, err := s.store.Insert(r.Context(), entry)
	if err != nil {
		// the provider retries on 5xx, so a lost insert is recoverable
		httpError(w, http.StatusInternalServerError, "queue insert failed: %v", err)
		return
	}

	if inserted {
		metrics.WebhooksReceived.WithLabelValues(entry.EventType).Inc()
		if s.wake != nil {
			s.wake()
		}
	} else {
		metrics.WebhooksDeduplicated.Inc()
	}

	writeJSON(w, http.StatusOK, &webhookResponse{
		Success:   true,
		Queued:    inserted,
		Duplicate: !inserted,
		TimeMS:    time.Since(start).Milliseconds(),
	})
}

// handleProcess runs one synchronous processor pass, for timer-based
// invocation and operator use.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	res, err := s.proc.ProcessOnce(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "process failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, &processResponse{
		Success:   true,
		Processed: res.Processed,
		Failed:    res.Failed,
		TimeMS:    time.Since(start).Milliseconds(),
	})
}

// ---------- helpers ----------

func readBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	lr := io.LimitReader(r.Body, limit+1)

	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("failed to read body")
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("payload too large")
	}
	return b, nil
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
