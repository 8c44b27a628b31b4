package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/janpfeifer/MemoryPairs/internal/config"
	"github.com/janpfeifer/MemoryPairs/internal/frontend"
	"github.com/janpfeifer/MemoryPairs/internal/game"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

const defaultShutdownTimeout = 5 * time.Second

// Run starts the server and blocks until the context is canceled.
// If started is not nil, the server state is sent to it once it's listening.
func Run(ctx context.Context, cfg config.Config, results ResultStore, started chan<- *ServerState) error {
	// Initialize global client state for server-side prerendering without panic
	frontend.InitState()

	serverState := NewServerState(results)

	// Register go-app routes so the server knows how to prerender them
	app.Route("/", func() app.Composer { return &frontend.Board{} })

	// The web assets and the compiled webassembly
	// are served natively by the go-app framework
	h := &app.Handler{
		Name:        "Memory Pairs",
		Title:       "Memory Pairs",
		Description: "Find all the pairs before the time runs out",
		Version:     game.Version,
		Env:         cfg.Game.Env(),
		Styles: []string{
			"/web/css/main.css",
		},
	}

	router := chi.NewRouter()
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Get("/ws", serverState.HandleWS)
	router.Get("/api/scores", serverState.handleScores)
	router.Handle("/web/*", http.StripPrefix("/web/", http.FileServer(http.Dir("web/"))))
	router.Handle("/*", h)

	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", addr, err)
	}
	serverState.Address = listener.Addr().String()
	srv := &http.Server{
		Handler: router,
		// Websocket handlers outlive Shutdown, they stop with the context instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		klog.Infof("Server started on %s", serverState.Address)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()

		// Graceful shutdown with a bounded timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		klog.Infof("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	if started != nil {
		started <- serverState
	}
	return eg.Wait()
}
