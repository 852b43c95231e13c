package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/src-herald/store"
)

type Handlers struct {
	store    *store.Store
	reporter CycleReporter
	started  time.Time
}

// HandleRoot answers external uptime pings with a constant 200 body.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("src-herald is alive"))
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	if h.store == nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests. Ready means the store is
// loaded and the engine has completed at least one cycle.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, _ *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"store", func() error {
			if h.store == nil {
				return fmt.Errorf("run store not loaded")
			}
			return nil
		}},
		{"sync_cycle", func() error {
			if h.reporter == nil || h.reporter.LastCycle().IsZero() {
				return fmt.Errorf("no sync cycle completed yet")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a JSON summary of tracked runs and sync progress.
func (h *Handlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	counts := map[string]int{}
	tracked := 0
	if h.store != nil {
		for status, n := range h.store.StatusCounts() {
			counts[string(status)] = n
		}
		tracked = h.store.Len()
	}
	lastCycle := ""
	if h.reporter != nil {
		if t := h.reporter.LastCycle(); !t.IsZero() {
			lastCycle = t.UTC().Format(time.RFC3339)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tracked":        tracked,
		"by_status":      counts,
		"last_cycle":     lastCycle,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}
