package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/raaihank/llm-humanizer/internal/bootstrap"
	"github.com/raaihank/llm-humanizer/internal/config"
	"github.com/raaihank/llm-humanizer/internal/history"
	"github.com/raaihank/llm-humanizer/internal/logger"
	"github.com/raaihank/llm-humanizer/internal/server"
	"github.com/raaihank/llm-humanizer/internal/websocket"
	"go.uber.org/zap"
)

var (
	version = server.Version
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("LLM-Humanizer %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck(*configPath)
		return
	}

	// Load configuration
	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting LLM-Humanizer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.String("config", loader.ConfigFileUsed()),
		zap.Int("port", cfg.Server.Port),
	)

	if err := run(loader, cfg, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

// run wires the components and blocks until shutdown
func run(loader *config.Loader, cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := bootstrap.Build(ctx, cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to build humanizer: %w", err)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(&cfg.History, log.WithComponent("history").Logger)
		if err != nil {
			comps.Close()
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
	}

	var hub *websocket.Hub
	hubDone := make(chan struct{})
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub(bootstrap.HubConfig(cfg.WebSocket), log.WithComponent("websocket").Logger)
		go func() {
			hub.Run(ctx)
			close(hubDone)
		}()
	} else {
		close(hubDone)
	}

	srv, err := server.New(cfg, server.Options{
		Humanizer: comps.Humanizer,
		Cache:     comps.Cache,
		History:   store,
		Hub:       hub,
	}, log)
	if err != nil {
		comps.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	reloader := &reloader{current: comps, server: srv, log: log, drain: cfg.Server.ShutdownTimeout}
	defer reloader.close()
	if err := loader.Watch(reloader.apply, func(err error) {
		log.Error("Configuration reload failed, keeping current settings", zap.Error(err))
	}); err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		log.Warn("Configuration watch disabled", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start(ctx)
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		cancel()
		<-hubDone
		return err
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	srv.BroadcastStatus("shutting down")

	// Give outstanding requests the configured time to complete
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stopCancel()

	err = srv.Stop(stopCtx)
	cancel()
	<-hubDone
	if err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	log.Info("Server shutdown complete")
	return nil
}

// reloader rebuilds the humanizer when the config file changes. Server,
// history and websocket settings need a restart.
type reloader struct {
	mu      sync.Mutex
	current *bootstrap.Components
	server  *server.Server
	log     *logger.Logger
	drain   time.Duration
}

func (r *reloader) apply(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comps, err := bootstrap.Build(context.Background(), cfg, r.log.Logger)
	if err != nil {
		r.log.Error("Failed to rebuild humanizer, keeping current one", zap.Error(err))
		return
	}

	if err := r.log.SetLevel(cfg.Logging.Level); err != nil {
		r.log.Warn("Ignoring log level change", zap.Error(err))
	}

	r.server.Reload(comps.Humanizer, comps.Cache, cfg.Humanizer)

	// in-flight requests may still hold the old cache
	old := r.current
	r.current = comps
	time.AfterFunc(r.drain, func() {
		if err := old.Close(); err != nil {
			r.log.Warn("Failed to close previous cache", zap.Error(err))
		}
	})
}

func (r *reloader) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.current.Close(); err != nil {
		r.log.Warn("Failed to close cache", zap.Error(err))
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(configPath string) {
	port := config.GetDefaults().Server.Port
	if cfg, err := config.Load(configPath); err == nil {
		port = cfg.Server.Port
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	url := "http://" + net.JoinHostPort("localhost", strconv.Itoa(port)) + "/health"
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
