package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/image-editor-mcp/internal/config"
	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
	"github.com/ironsheep/image-editor-mcp/internal/server"
	"github.com/ironsheep/image-editor-mcp/internal/storage"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Logs go to stderr; stdout is for MCP protocol
	logger := config.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)
	logger.Debug("image editor MCP server starting",
		"version", Version, "build_time", BuildTime, "commit", GitCommit)

	loader := imaging.NewLoader(imaging.LoaderOptions{
		Origin:   cfg.Origin,
		Timeout:  cfg.FetchTimeout,
		MaxBytes: cfg.MaxDownloadBytes,
		Logger:   logger,
	})

	var store storage.Storage
	if cfg.StoragePath != "" {
		local, err := storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.StoragePath,
			BaseURL:  cfg.StorageURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("storage initialization failed: %w", err)
		}
		store = local
	}

	manager := editor.NewManager(editor.ManagerOptions{
		Loader:       loader,
		Storage:      store,
		HistoryLimit: cfg.HistoryLimit,
		Limits: imaging.Limits{
			MaxDimension: cfg.MaxDimension,
			MaxPixels:    cfg.MaxPixels,
		},
		Logger: logger,
	})

	if cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics endpoint started", "address", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics endpoint shutdown error", "error", err)
			}
		}()
	}

	srv := server.New(server.Options{
		Manager: manager,
		Logger:  logger,
		Version: Version,
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Debug("image editor MCP server stopped")
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-editor-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("image-editor-mcp - MCP server for image editing sessions")
			fmt.Println()
			fmt.Println("Usage: image-editor-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  IMAGE_EDITOR_CONFIG=editor.toml        Optional TOML config file")
			fmt.Println("  IMAGE_EDITOR_ENV=development           Text logs instead of JSON")
			fmt.Println("  IMAGE_EDITOR_LOG_LEVEL=debug           Enable debug logging")
			fmt.Println("  IMAGE_EDITOR_ORIGIN=https://host       Origin sent on remote image fetches")
			fmt.Println("  IMAGE_EDITOR_FETCH_TIMEOUT=30s         Remote fetch timeout")
			fmt.Println("  IMAGE_EDITOR_MAX_DOWNLOAD_BYTES=25MB   Remote image size limit")
			fmt.Println("  IMAGE_EDITOR_HISTORY_LIMIT=0           Max history entries per session (0 = unbounded)")
			fmt.Println("  IMAGE_EDITOR_MAX_DIMENSION=16384       Max edit output width or height")
			fmt.Println("  IMAGE_EDITOR_MAX_PIXELS=100000000      Max edit output pixel count")
			fmt.Println("  IMAGE_EDITOR_STORAGE_PATH=dir          Directory for saved images")
			fmt.Println("  IMAGE_EDITOR_STORAGE_URL=url           Base URL for saved images")
			fmt.Println("  IMAGE_EDITOR_METRICS_ADDR=host:port    Serve Prometheus metrics")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Pre-config failures still go to stderr
	log.SetOutput(os.Stderr)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
