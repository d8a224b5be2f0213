package advisor

import (
	"context"
	"sync"

	"stockcast/internal/domain"
	"stockcast/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Handle owns the process-wide backend. Initialization is lazy, runs under a
// mutex, and is retried on the next use after a failure.
type Handle struct {
	name    string
	factory Factory
	metrics *metrics.Recorder

	mu        sync.Mutex
	backend   Backend
	lastErr   error
	initCount int
}

// Status is what /api/llm-status reports.
type Status struct {
	Backend     string `json:"backend"`
	Initialized bool   `json:"initialized"`
	LastError   string `json:"last_error,omitempty"`
	InitCount   int    `json:"init_count"`
}

func NewHandle(name string, factory Factory, m *metrics.Recorder) *Handle {
	return &Handle{name: name, factory: factory, metrics: m}
}

// Get returns the live backend, initializing it if needed.
func (h *Handle) Get(ctx context.Context) (Backend, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.backend != nil {
		return h.backend, nil
	}

	backend, err := h.factory(ctx)
	if err != nil {
		h.lastErr = err
		h.metrics.LLMInit(h.name, false)
		log.Warn().Err(err).Str("backend", h.name).Msg("analysis backend init failed")
		return nil, &domain.BackendUnavailableError{Backend: h.name, Err: err}
	}

	h.backend = backend
	h.lastErr = nil
	h.initCount++
	h.metrics.LLMInit(h.name, true)
	log.Info().Str("backend", backend.Name()).Int("init_count", h.initCount).Msg("analysis backend initialized")
	return backend, nil
}

// Reset drops a backend that failed mid-call so the next use reconnects.
func (h *Handle) Reset(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backend = nil
	h.lastErr = cause
}

func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := Status{
		Backend:     h.name,
		Initialized: h.backend != nil,
		InitCount:   h.initCount,
	}
	if h.lastErr != nil {
		st.LastError = h.lastErr.Error()
	}
	return st
}
