package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Sternrassler/cat-slideshow/pkg/carousel"
	"github.com/Sternrassler/cat-slideshow/pkg/client"
	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/Sternrassler/cat-slideshow/pkg/metrics"
	"github.com/Sternrassler/cat-slideshow/pkg/pagination"
	"github.com/Sternrassler/cat-slideshow/pkg/prefetch"
	"github.com/Sternrassler/cat-slideshow/pkg/prefs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a slideshow session behind an HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	return cmd
}

// runServe opens every dependency, restores the persisted selection and
// serves until ctx is done.
func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := logging.NewLogger("server")

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	api, err := newAPIClient(cfg, rdb)
	if err != nil {
		return err
	}
	defer api.Close()

	store, err := openPrefs(cfg, rdb)
	if err != nil {
		return err
	}
	defer store.Close()

	g, gctx := errgroup.WithContext(ctx)

	loader := prefetch.NewHTTPLoader(&http.Client{Timeout: cfg.Prefetch.ImageTimeout}, cfg.API.UserAgent)
	session, err := carousel.Open(gctx, api.ImageSource(), loader, cfg.SessionOptions())
	if err != nil {
		return err
	}
	defer session.Close()

	s := newServer(api, session, store, logger)
	s.restoreSelection(gctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("Starting slideshow server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		for state := range session.Changes() {
			logger.Debug().
				Str("key", state.Key).
				Int("current", state.CurrentIndex).
				Int("visible", state.VisibleIndex).
				Int("max", state.MaxIndex).
				Msg("Carousel state changed")
		}
		return nil
	})

	return g.Wait()
}

// server exposes a carousel session over HTTP.
type server struct {
	api     *client.Client
	session *carousel.Session
	store   prefs.Store
	logger  zerolog.Logger

	mu     sync.Mutex
	breeds []client.Breed
}

func newServer(api *client.Client, session *carousel.Session, store prefs.Store, logger zerolog.Logger) *server {
	return &server{
		api:     api,
		session: session,
		store:   store,
		logger:  logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/breeds", s.breedsHandler)
	mux.HandleFunc("GET /api/state", s.stateHandler)
	mux.HandleFunc("POST /api/select", s.selectHandler)
	mux.HandleFunc("POST /api/next", s.moveHandler(s.session.Next))
	mux.HandleFunc("POST /api/previous", s.moveHandler(s.session.Previous))
	return mux
}

// loadBreeds returns the breed list, fetching it once it is needed.
func (s *server) loadBreeds(ctx context.Context) ([]client.Breed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.breeds != nil {
		return s.breeds, nil
	}
	breeds, err := s.api.Breeds(ctx)
	if err != nil {
		return nil, err
	}
	s.breeds = breeds
	return breeds, nil
}

// restoreSelection selects the persisted breed, or all breeds when it is no
// longer offered or the breed list is unavailable.
func (s *server) restoreSelection(ctx context.Context) {
	appCfg, err := prefs.LoadAppConfig(ctx, s.store)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load preferences")
	}

	breeds, err := s.loadBreeds(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load breeds")
	}

	key := prefs.ResolveSelection(appCfg, breeds)
	s.logger.Info().Str("breed", key).Msg("Restoring selection")
	s.session.Select(key)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.api.Ping(ctx); err != nil {
		http.Error(w, fmt.Sprintf("cache unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "READY")
}

func (s *server) breedsHandler(w http.ResponseWriter, r *http.Request) {
	breeds, err := s.loadBreeds(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("breed request failed: %v", err), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, client.BreedOptions(breeds))
}

// stateResponse is the carousel state with the items it points at.
type stateResponse struct {
	carousel.State
	CanNext     bool             `json:"canNext"`
	CanPrevious bool             `json:"canPrevious"`
	Loading     bool             `json:"loading"`
	PageStatus  string           `json:"pageStatus,omitempty"`
	Failed      bool             `json:"failed"`
	Current     *pagination.Item `json:"current,omitempty"`
	Visible     *pagination.Item `json:"visible,omitempty"`
}

func (s *server) snapshot(state carousel.State) stateResponse {
	resp := stateResponse{
		State:       state,
		CanNext:     state.CanNext(),
		CanPrevious: state.CanPrevious(),
		Loading:     state.Loading(),
	}
	if status, ok := s.session.PageStatusAt(state.CurrentIndex); ok {
		resp.PageStatus = status.String()
		resp.Failed = status == pagination.PageError
	}
	if s.session.ImageStatus(state.CurrentIndex) == prefetch.Error {
		resp.Failed = true
	}
	if item, ok := s.session.CurrentItem(); ok {
		resp.Current = &item
	}
	if item, ok := s.session.VisibleItem(); ok {
		resp.Visible = &item
	}
	return resp
}

func (s *server) stateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snapshot(s.session.State()))
}

func (s *server) selectHandler(w http.ResponseWriter, r *http.Request) {
	breed := r.URL.Query().Get("breed")
	if breed == "" {
		http.Error(w, "missing breed parameter", http.StatusBadRequest)
		return
	}

	if breed != client.AllBreeds {
		breeds, err := s.loadBreeds(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("breed request failed: %v", err), http.StatusBadGateway)
			return
		}
		if prefs.ResolveSelection(prefs.AppConfig{SelectedBreedID: breed}, breeds) != breed {
			http.Error(w, fmt.Sprintf("unknown breed %q", breed), http.StatusBadRequest)
			return
		}
	}

	state := s.session.Select(breed)
	s.logger.Info().Str("breed", breed).Msg("Selection changed")

	if err := prefs.SaveAppConfig(r.Context(), s.store, prefs.AppConfig{SelectedBreedID: breed}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist selection")
	}
	s.writeJSON(w, http.StatusOK, s.snapshot(state))
}

func (s *server) moveHandler(move func() carousel.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.snapshot(move()))
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}
