package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-ocr/internal/logging"
	"github.com/zombor/receipt-ocr/internal/metrics"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/validity"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-ocr")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "receipt-ocr.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./documents", "Storage directory path")
		engineName    = fs.StringLong("ocr-engine", "tesseract", "OCR engine: 'tesseract', 'gemini', 'ollama' or 'pdftext'")
		tesseractLang = fs.StringLong("tesseract-lang", "eng", "Tesseract language code(s)")
		renderDPI     = fs.IntLong("render-dpi", ocr.DefaultDPI, "Resolution used to rasterize PDF pages")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		ocrTimeout    = fs.DurationLong("ocr-timeout", receipt.DefaultOCRTimeout, "Deadline for a single OCR call")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat     = fs.StringLong("log-format", "text", "Log format: text or json")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := logging.Setup(os.Stderr, *logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, serverConfig{
		port:        *port,
		dbPath:      *dbPath,
		storagePath: *storagePath,
		ocrTimeout:  *ocrTimeout,
		auth:        receipt.BasicAuth{Username: *authUser, Password: *authPass},
		engine: ocr.Config{
			Engine:        *engineName,
			TesseractLang: *tesseractLang,
			DPI:           float64(*renderDPI),
			GeminiKey:     *geminiKey,
			GeminiModel:   *geminiModel,
			OllamaURL:     *ollamaURL,
			OllamaModel:   *ollamaModel,
		},
	}); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

type serverConfig struct {
	port        int
	dbPath      string
	storagePath string
	ocrTimeout  time.Duration
	auth        receipt.BasicAuth
	engine      ocr.Config
}

func run(ctx context.Context, cfg serverConfig) error {
	slog.Info("Initializing database...", "path", cfg.dbPath)
	db, err := receipt.NewBoltDB(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	engine, err := ocr.New(ctx, cfg.engine)
	if err != nil {
		return fmt.Errorf("initializing OCR engine: %w", err)
	}
	defer engine.Close()

	slog.Info("Initializing storage...", "path", cfg.storagePath)
	store, err := receipt.NewLocalStorage(cfg.storagePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	service := receipt.NewService(db, engine, store, validity.NewGate())
	service.SetOCRTimeout(cfg.ocrTimeout)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	mux := http.NewServeMux()
	server := receipt.NewServerWithMux(service, cfg.auth, mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cfg.auth.Username != "" || cfg.auth.Password != "" {
		slog.Info("Basic auth enabled", "user", cfg.auth.Username)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
