package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/Emixee/intimacy-play-sub001/internal/api"
	"github.com/Emixee/intimacy-play-sub001/internal/catalog"
	"github.com/Emixee/intimacy-play-sub001/internal/config"
	"github.com/Emixee/intimacy-play-sub001/internal/database"
	"github.com/Emixee/intimacy-play-sub001/internal/game"
	"github.com/Emixee/intimacy-play-sub001/internal/hub"
	"github.com/Emixee/intimacy-play-sub001/internal/lifecycle"
	"github.com/Emixee/intimacy-play-sub001/internal/selection"
	"github.com/Emixee/intimacy-play-sub001/internal/websocket"
	pkgdatabase "github.com/Emixee/intimacy-play-sub001/pkg/database"
)

// Application wires all components in dependency order:
// Catalog → Store → Hub → Engine → Services → API/WebSocket → HTTP.
type Application struct {
	config     *config.Config
	store      *database.Store
	watchHub   *hub.Hub
	httpServer *http.Server
}

// logCleaner is the default media-cleanup collaborator: the real cleanup
// pipeline lives outside this service, so terminations are only logged.
type logCleaner struct{}

func (logCleaner) CleanupSession(ctx context.Context, code string) error {
	log.Printf("Media cleanup requested for session %s", code)
	return nil
}

// NewApplication creates an application instance with all components
// initialized.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool := catalog.Default()
	if cfg.Catalog.Path != "" {
		loaded, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load challenge catalog: %w", err)
		}
		pool = loaded
		log.Printf("Loaded challenge catalog: %d templates from %s", pool.Len(), cfg.Catalog.Path)
	}

	dbConfig := &pkgdatabase.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
	}
	store, err := database.NewStore(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	watchHub := hub.New()
	store.SetNotifier(watchHub)

	engine := selection.New(pool.Templates())
	lifecycleService := lifecycle.NewService(store, engine)
	gameService := game.NewService(store, engine, logCleaner{})

	apiServer := api.NewServer(lifecycleService, gameService, store)
	wsHandler := websocket.NewHandler(store, watchHub)

	root := http.NewServeMux()
	root.Handle("/api/", apiServer)
	root.Handle("/health", apiServer)
	root.Handle("/ws", wsHandler)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(root)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      corsHandler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      store,
		watchHub:   watchHub,
		httpServer: httpServer,
	}, nil
}

// Start begins serving. The hub starts first so store writes publish from
// the very first request.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting playsrv on %s", app.httpServer.Addr)

	if err := app.watchHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watch hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.watchHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("playsrv started")
		return nil
	case <-ctx.Done():
		_ = app.watchHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: HTTP → Hub → Store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down playsrv")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.watchHub.Stop(); err != nil {
		log.Printf("Watch hub shutdown error: %v", err)
	}
	if err := app.store.Close(); err != nil {
		log.Printf("Session store shutdown error: %v", err)
	}

	log.Printf("playsrv shutdown complete")
	return nil
}
