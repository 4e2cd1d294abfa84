package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
	"github.com/tailored-agentic-units/bund/scheduler"
)

const (
	EventRequest observability.EventType = "devtools.request"
	EventServe   observability.EventType = "devtools.serve"
)

// Option configures an Inspector.
type Option func(*Inspector)

// WithSignals sets how many recent signals are kept.
func WithSignals(n int) Option {
	return func(i *Inspector) { i.signals = newSignalLog(n) }
}

// WithObserver sets the observer receiving request events.
func WithObserver(o observability.Observer) Option {
	return func(i *Inspector) {
		if o != nil {
			i.observer = o
		}
	}
}

// WithLoop runs dispatches requested over HTTP as tasks on loop and waits
// for them, so they are ordered with the loop's other work. The loop must
// be running.
func WithLoop(loop *scheduler.Loop) Option {
	return func(i *Inspector) { i.loop = loop }
}

// Inspector exposes a root over HTTP.
type Inspector struct {
	root     *bundle.Combined
	signals  *signalLog
	observer observability.Observer
	loop     *scheduler.Loop
	router   *mux.Router
	unsub    func()
}

// New subscribes to root and builds the router.
func New(root *bundle.Combined, opts ...Option) *Inspector {
	i := &Inspector{
		root:     root,
		signals:  newSignalLog(100),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(i)
	}

	i.unsub = root.OnChange(func(sig bundle.Signal, _ *bundle.Bundle) {
		i.signals.add(sig)
	})

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", i.state).Methods(http.MethodGet)
	api.HandleFunc("/bundles", i.listBundles).Methods(http.MethodGet)
	api.HandleFunc("/bundles/{key}", i.bundleDetails).Methods(http.MethodGet)
	api.HandleFunc("/bundles/{key}/selectors/{name}", i.selectValue).Methods(http.MethodGet)
	api.HandleFunc("/bundles/{key}/actions/{action}", i.dispatch).Methods(http.MethodPost)
	api.HandleFunc("/signals", i.listSignals).Methods(http.MethodGet)
	api.Use(i.observe)
	i.router = r

	return i
}

// Handler returns the HTTP handler.
func (i *Inspector) Handler() http.Handler {
	return i.router
}

// Close stops recording signals.
func (i *Inspector) Close() {
	i.unsub()
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (i *Inspector) Serve(ctx context.Context, addr string, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("devtools listen %s: %w", addr, err)
	}

	srv := &http.Server{Handler: i.router, ReadHeaderTimeout: 5 * time.Second}

	observability.Emit(ctx, i.observer, observability.Event{
		Type:   EventServe,
		Level:  observability.LevelInfo,
		Source: "devtools",
		Data:   map[string]any{"addr": ln.Addr().String()},
	})
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (i *Inspector) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		observability.Emit(r.Context(), i.observer, observability.Event{
			Type:   EventRequest,
			Level:  observability.LevelVerbose,
			Source: "devtools",
			Data: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": rw.status,
			},
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// BundleSummary describes a bundle in listings.
type BundleSummary struct {
	Key       string                 `json:"key"`
	ID        string                 `json:"id"`
	Actions   []string               `json:"actions"`
	Selectors []string               `json:"selectors"`
	Metrics   bundle.MetricsSnapshot `json:"metrics"`
}

// BundleDetails adds state to a BundleSummary.
type BundleDetails struct {
	BundleSummary
	State        any `json:"state"`
	InitialState any `json:"initial_state"`
}

func summarize(b *bundle.Bundle) BundleSummary {
	return BundleSummary{
		Key:       b.Key(),
		ID:        b.ID(),
		Actions:   b.ActionNames(),
		Selectors: b.SelectorNames(),
		Metrics:   b.Metrics(),
	}
}

func (i *Inspector) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, i.root.State())
}

func (i *Inspector) listBundles(w http.ResponseWriter, _ *http.Request) {
	leaves := i.root.Bundles()
	out := make([]BundleSummary, len(leaves))
	for n, b := range leaves {
		out[n] = summarize(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (i *Inspector) lookup(w http.ResponseWriter, r *http.Request) (*bundle.Bundle, bool) {
	b, err := i.root.Bundle(mux.Vars(r)["key"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return b, true
}

func (i *Inspector) bundleDetails(w http.ResponseWriter, r *http.Request) {
	b, ok := i.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BundleDetails{
		BundleSummary: summarize(b),
		State:         b.State(),
		InitialState:  b.InitialState(),
	})
}

func (i *Inspector) selectValue(w http.ResponseWriter, r *http.Request) {
	b, ok := i.lookup(w, r)
	if !ok {
		return
	}

	v, err := b.Select(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": v})
}

func (i *Inspector) dispatch(w http.ResponseWriter, r *http.Request) {
	b, ok := i.lookup(w, r)
	if !ok {
		return
	}
	action := mux.Vars(r)["action"]

	// An empty body, with or without a known length, means no arguments.
	var args []any
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must be a JSON array of arguments: %w", err))
		return
	}

	if err := i.run(r.Context(), func() error { return b.Dispatch(action, args...) }); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"state": b.State()})
}

// run executes fn directly, or as a loop task when a loop is configured.
func (i *Inspector) run(ctx context.Context, fn func() error) error {
	if i.loop == nil {
		return fn()
	}

	done := make(chan error, 1)
	i.loop.Schedule(func() { done <- fn() })

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Inspector) listSignals(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if s := r.URL.Query().Get("since"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid since: %w", err))
			return
		}
		since = n
	}
	writeJSON(w, http.StatusOK, i.signals.since(since))
}

func statusFor(err error) int {
	var herr *bundle.HandlerError
	switch {
	case errors.Is(err, bundle.ErrUnknownAction), errors.Is(err, bundle.ErrUnknownSelector):
		return http.StatusNotFound
	case errors.As(err, &herr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
