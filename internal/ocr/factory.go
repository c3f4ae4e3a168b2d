package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Config selects and configures an Engine
type Config struct {
	Engine        string // tesseract, gemini, ollama or pdftext
	TesseractLang string
	DPI           float64
	GeminiKey     string // Falls back to GEMINI_API_KEY
	GeminiModel   string
	OllamaURL     string
	OllamaModel   string
}

// New builds the engine named by cfg.Engine
func New(ctx context.Context, cfg Config) (Engine, error) {
	switch cfg.Engine {
	case "", "tesseract":
		slog.Info("Initializing Tesseract engine...", "language", cfg.TesseractLang, "dpi", cfg.DPI)
		return NewTesseract(cfg.TesseractLang, cfg.DPI), nil
	case "gemini":
		apiKey := cfg.GeminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini engine...", "model", cfg.GeminiModel)
		return NewGemini(ctx, apiKey, cfg.GeminiModel, cfg.DPI)
	case "ollama":
		slog.Info("Initializing Ollama engine...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.DPI), nil
	case "pdftext":
		slog.Info("Initializing PDF text layer engine...")
		return NewPDFText(), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q: valid engines are tesseract, gemini, ollama and pdftext", cfg.Engine)
	}
}
