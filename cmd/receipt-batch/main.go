// Command receipt-batch processes every stored document that has no receipt yet.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-ocr/internal/logging"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/validity"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receipt-batch")
	var (
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
		concurrency   = fs.IntLong("concurrency", 2, "Number of documents processed at once")
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

	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	engine, err := ocr.New(ctx, ocr.Config{
		Engine:        *engineName,
		TesseractLang: *tesseractLang,
		DPI:           float64(*renderDPI),
		GeminiKey:     *geminiKey,
		GeminiModel:   *geminiModel,
		OllamaURL:     *ollamaURL,
		OllamaModel:   *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := receipt.NewService(db, engine, store, validity.NewGate())
	service.SetOCRTimeout(*ocrTimeout)

	result, err := service.ProcessPending(ctx, *concurrency)
	slog.Info("Batch finished",
		"processed", result.Processed,
		"invalid", result.Invalid,
		"failed", result.Failed,
	)
	if err != nil {
		slog.Error("Batch aborted", "error", err)
		os.Exit(1)
	}
	if result.Failed > 0 {
		os.Exit(2)
	}
}
