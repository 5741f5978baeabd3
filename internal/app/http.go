package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatsync/pkg/engine"
	"chatsync/pkg/models"
)

// setupRoutes registers the ops and ingest endpoints.
func (a *App) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.HandleFunc("/statusz", a.statuszHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", a.ingestHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/events/batch", a.ingestBatchHandler).Methods(http.MethodPost)
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !a.store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + a.version + `"}`))
}

// statuszHandler exposes queue depth and connectivity for operators.
func (a *App) statuszHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"online":         a.engine.Online(),
		"intake_len":     a.intake.Len(),
		"intake_cap":     a.intake.Cap(),
		"intake_dropped": a.intake.Dropped(),
	})
}

// ingestHandler accepts a single event object and enqueues it without
// blocking; a full queue answers 429 so the sender can back off.
func (a *App) ingestHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if err := a.intake.TryEnqueue(body); err != nil {
		if errors.Is(err, engine.ErrIntakeFull) {
			http.Error(w, "intake full", http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ingestBatchHandler accepts a JSON array of events and enqueues them
// in order, blocking until the queue has room.
func (a *App) ingestBatchHandler(w http.ResponseWriter, r *http.Request) {
	var events []*models.ChatEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<20)).Decode(&events); err != nil {
		http.Error(w, "decode events", http.StatusBadRequest)
		return
	}
	if err := a.intake.EnqueueEvents(r.Context(), events...); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// startHTTP builds the router, starts the HTTP server in a goroutine
// and returns a channel that will contain any server error.
func (a *App) startHTTP() <-chan error {
	r := mux.NewRouter()
	a.setupRoutes(r)

	a.srv = &http.Server{Addr: a.addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		err := a.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	return errCh
}
