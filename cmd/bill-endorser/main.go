package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/remedykit/bill-endorser/internal/config"
	"github.com/remedykit/bill-endorser/internal/contract"
	"github.com/remedykit/bill-endorser/internal/doctext"
	"github.com/remedykit/bill-endorser/internal/endorse"
	"github.com/remedykit/bill-endorser/internal/remedy"
	"github.com/remedykit/bill-endorser/internal/server"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process-wide structured logger.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// runServer blocks until a shutdown signal arrives or the server fails.
func runServer(ctx context.Context, cancel context.CancelFunc, srv *server.Server, logger *slog.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("Received signal, initiating graceful shutdown", slog.String("signal", sig.String()))
		cancel()

		if err := <-serverErrCh; err != nil {
			logger.Error("Server shutdown with error", slog.String("error", err.Error()))
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("Server stopped successfully")
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg)
	if cfg.IsDebug() {
		logger.Debug("Starting with configuration", slog.String("config", cfg.String()))
	}

	// Build the pipeline. A missing signing key is tolerated at startup; the
	// endorse operation reports it as a configuration error instead.
	var ocrEngine doctext.OCREngine
	if cfg.OCREnabled {
		ocrEngine = doctext.NewTesseractEngine()
	}
	extractor := doctext.NewExtractor(ocrEngine)

	var signer *endorse.Signer
	keyPEM, err := cfg.PrivateKey()
	if err != nil {
		log.Fatalf("Failed to read private key: %v", err)
	}
	if keyPEM != "" {
		signer, err = endorse.NewSigner([]byte(keyPEM))
		if err != nil {
			log.Fatalf("Failed to load private key: %v", err)
		}
	} else {
		logger.Warn("No signing key configured; endorse operations will fail until one is provided")
	}

	endorseSvc := endorse.NewService(
		cfg.UploadsDir,
		cfg.OverlayConfigPath,
		cfg.EndorserID,
		extractor,
		signer,
		remedy.NewLogger(cfg.RemedyLogDir),
		logger,
	)
	scanner := contract.NewScanner(extractor)

	srv := server.New(cfg, endorseSvc, scanner, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runServer(ctx, cancel, srv, logger)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Bill Endorser\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
