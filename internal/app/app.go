// Package app wires configuration into the backend client, session store,
// share publishers and web server, and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/config"
	"github.com/Adda-Baaj/khobor-desk/internal/crawler"
	"github.com/Adda-Baaj/khobor-desk/internal/logger"
	"github.com/Adda-Baaj/khobor-desk/internal/state"
	"github.com/Adda-Baaj/khobor-desk/internal/web"
	"github.com/Adda-Baaj/khobor-desk/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
	"github.com/Adda-Baaj/khobor-desk/pkg/publishers"
)

const (
	minSweepInterval = time.Minute
	maxSweepInterval = 10 * time.Minute
)

// Application holds the wired components of a running desk.
type Application struct {
	cfg        config.Config
	log        logger.Logger
	backend    *newsapi.Client
	store      *state.Store
	dispatcher *publishers.Dispatcher
	web        *web.Server
	now        func() time.Time
}

// NewBackend builds the news API client described by cfg.
func NewBackend(cfg config.Config, log logger.Logger) (*newsapi.Client, error) {
	return newsapi.NewClient(newsapi.Options{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		AITimeout: cfg.Backend.AITimeout,
		Log:       logger.Ensure(log).With("component", "newsapi"),
	})
}

// New builds every component. Close releases them.
func New(ctx context.Context, cfg config.Config, log logger.Logger) (*Application, error) {
	log = logger.Ensure(log)

	backend, err := NewBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.State)
	if err != nil {
		return nil, err
	}

	dispatcher, err := publishers.LoadDispatcher(ctx, cfg.Publishers.File, log.With("component", "publishers"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load publishers: %w", err)
	}

	opts := web.Options{
		Backend:       backend,
		Store:         store,
		Sharer:        dispatcher,
		Log:           log.With("component", "web"),
		SecureCookies: cfg.Server.SecureCookies,
		SessionTTL:    cfg.State.TTL,
	}
	if cfg.Enrich.Enabled {
		client := httpclient.NewRestyClient(cfg.Enrich.Timeout, httpclient.WithUserAgent("khobor-desk/1.0"))
		opts.Enricher = crawler.NewScraper(client, log.With("component", "crawler"), cfg.Enrich.Delay)
	}

	srv, err := web.New(opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log.InfoObj("application configured", "app_configured", map[string]any{
		"backend":    cfg.Backend.BaseURL,
		"state_path": cfg.State.Path,
		"enrich":     cfg.Enrich.Enabled,
		"sharing":    dispatcher.Enabled(),
	})

	return &Application{
		cfg:        cfg,
		log:        log,
		backend:    backend,
		store:      store,
		dispatcher: dispatcher,
		web:        srv,
		now:        time.Now,
	}, nil
}

func openStore(cfg config.StateConfig) (*state.Store, error) {
	if cfg.Path == "" {
		return state.NewMemory(), nil
	}
	store, err := state.OpenBolt(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return store, nil
}

// Handler returns the web handler.
func (a *Application) Handler() http.Handler { return a.web.Handler() }

// Run serves HTTP on the configured address until ctx is cancelled, then shuts
// down gracefully within the shutdown timeout.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.janitor(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		a.log.InfoObj("http server listening", "server_start", map[string]any{"addr": ln.Addr().String()})
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.log.InfoObj("http server shutting down", "server_stop", nil)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// janitor prunes session state older than the TTL until ctx ends.
func (a *Application) janitor(ctx context.Context) {
	interval := min(max(a.cfg.State.TTL/4, minSweepInterval), maxSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep()
		}
	}
}

func (a *Application) sweep() {
	n, err := a.store.Prune(a.now().Add(-a.cfg.State.TTL))
	if err != nil {
		a.log.WarnObj("state prune failed", "state_prune_error", map[string]any{"error": err.Error()})
		return
	}
	if n > 0 {
		a.log.DebugObj("state pruned", "state_pruned", map[string]any{"removed": n})
	}
}

// Close releases the session store and flushes the logger.
func (a *Application) Close() error {
	err := a.store.Close()
	_ = a.log.Sync()
	return err
}
