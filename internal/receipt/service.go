package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/receipt-ocr/internal/extraction"
	"github.com/zombor/receipt-ocr/internal/metrics"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/validity"
)

// DefaultOCRTimeout bounds a single OCR call when none is configured
const DefaultOCRTimeout = 2 * time.Minute

// supportedContentTypes lists the upload formats the validity check understands
var supportedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/heic":      true,
	"image/heif":      true,
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// IDGenerator generates unique IDs for documents and receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles document upload, validation and field extraction
type Service struct {
	db          DB
	engine      ocr.Engine
	storage     Storage
	checker     validity.Checker
	idGenerator IDGenerator
	timeSource  TimeSource
	ocrTimeout  time.Duration
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, engine ocr.Engine, storage Storage, checker validity.Checker) *Service {
	return NewServiceWithDeps(db, engine, storage, checker, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, engine ocr.Engine, storage Storage, checker validity.Checker, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		engine:      engine,
		storage:     storage,
		checker:     checker,
		idGenerator: idGen,
		timeSource:  timeSrc,
		ocrTimeout:  DefaultOCRTimeout,
	}
}

// SetOCRTimeout changes the deadline applied to each OCR call
func (s *Service) SetOCRTimeout(d time.Duration) {
	if d > 0 {
		s.ocrTimeout = d
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_ ")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "document"
	}

	ext = unsafeFilenameChars.ReplaceAllString(ext[min(1, len(ext)):], "")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// normalizeContentType lowercases a content type and drops its parameters
func normalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	return contentType
}

// UploadDocument stores the file and records an unvalidated document for it
func (s *Service) UploadDocument(filename string, data []byte, contentType string) (*Document, error) {
	contentType = normalizeContentType(contentType)
	if !supportedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	storedName := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	savedPath, err := s.storage.Save(storedName, data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	doc := &Document{
		ID:          id,
		FileName:    storedName,
		FilePath:    savedPath,
		FileSize:    int64(len(data)),
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveDocument(doc); err != nil {
		// Clean up file if database save fails
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete orphaned file", "file_path", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("saving document to database: %w", err)
	}

	slog.Info("Document uploaded", "document_id", id, "file_name", storedName, "file_size", len(data))
	return doc, nil
}

// ValidateDocument runs the validity check on a stored document and records the verdict
func (s *Service) ValidateDocument(ctx context.Context, fileName string) (*Document, error) {
	doc, err := s.db.GetDocumentByName(fileName)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	data, err := s.storage.Get(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading document file: %w", err)
	}

	if err := s.validate(doc, data); err != nil {
		return nil, err
	}
	return doc, nil
}

// validate applies a fresh verdict to doc and persists it
func (s *Service) validate(doc *Document, data []byte) error {
	verdict := s.checker.Check(data, doc.ContentType)
	metrics.ObserveValidation(verdict.Valid)

	now := s.timeSource.Now()
	doc.IsValid = verdict.Valid
	doc.InvalidReason = ""
	if !verdict.Valid {
		doc.InvalidReason = verdict.Reason
	}
	doc.ValidatedAt = &now
	doc.UpdatedAt = now

	if err := s.db.SaveDocument(doc); err != nil {
		return fmt.Errorf("saving validation result: %w", err)
	}

	if verdict.Valid {
		slog.Info("Document is valid", "document_id", doc.ID, "file_name", doc.FileName)
	} else {
		slog.Warn("Document is invalid", "document_id", doc.ID, "file_name", doc.FileName, "reason", verdict.Reason)
	}
	return nil
}

// ProcessDocument runs OCR and field extraction for a document and stores the
// resulting receipt. Documents that were never checked are validated first.
// Every call produces a new receipt; earlier receipts for the same document are kept.
func (s *Service) ProcessDocument(ctx context.Context, fileName string) (*Receipt, error) {
	doc, err := s.db.GetDocumentByName(fileName)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return s.process(ctx, doc)
}

func (s *Service) process(ctx context.Context, doc *Document) (*Receipt, error) {
	data, err := s.storage.Get(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading document file: %w", err)
	}

	if !doc.Validated() {
		if err := s.validate(doc, data); err != nil {
			return nil, err
		}
	}
	if !doc.IsValid {
		metrics.Extractions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, &InvalidDocumentError{Reason: doc.InvalidReason}
	}

	raw, err := s.recognize(ctx, doc, data)
	if err != nil {
		metrics.Extractions.WithLabelValues(metrics.OutcomeOCRFailed).Inc()
		slog.Error("Failed to recognize text",
			"document_id", doc.ID,
			"content_type", doc.ContentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	// Normalize only fails when no line survives trimming
	text, err := extraction.Normalize(raw)
	if err != nil {
		metrics.Extractions.WithLabelValues(metrics.OutcomeEmptyText).Inc()
		slog.Warn("OCR produced no text", "document_id", doc.ID)
		return nil, ErrOCREmpty
	}

	fields := extraction.Extract(text)
	for _, name := range fields.Defaulted() {
		metrics.FieldDefaults.WithLabelValues(name).Inc()
	}

	now := s.timeSource.Now()
	receipt := &Receipt{
		ID:            s.idGenerator.Generate(),
		DocumentID:    doc.ID,
		FilePath:      doc.FilePath,
		MerchantName:  fields.Merchant,
		TotalAmount:   fields.Total.Round(2),
		PurchasedAt:   fields.PurchasedAt,
		Currency:      fields.Currency,
		PaymentMethod: fields.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	doc.IsProcessed = true
	doc.UpdatedAt = now

	if err := s.db.CommitExtraction(doc, receipt); err != nil {
		metrics.Extractions.WithLabelValues(metrics.OutcomePersistFailed).Inc()
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	metrics.Extractions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	slog.Info("Receipt extracted",
		"document_id", doc.ID,
		"receipt_id", receipt.ID,
		"merchant", receipt.MerchantName,
		"total", receipt.TotalAmount.StringFixed(2),
		"defaulted_fields", fields.Defaulted(),
	)
	return receipt, nil
}

// recognize makes the single OCR call for a run, bounded by the OCR timeout
func (s *Service) recognize(ctx context.Context, doc *Document, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()
	return s.engine.RecognizeText(ctx, data, doc.ContentType)
}

// BatchResult summarizes a ProcessPending run
type BatchResult struct {
	Processed int
	Invalid   int
	Failed    int
}

// ProcessPending processes every document that has no receipt yet, running up to
// concurrency documents at once. Per-document failures are logged and counted;
// only cancellation of ctx aborts the batch.
func (s *Service) ProcessPending(ctx context.Context, concurrency int) (BatchResult, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return BatchResult{}, fmt.Errorf("listing documents: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	var processed, invalid, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, doc := range docs {
		if doc.IsProcessed {
			continue
		}
		if doc.Validated() && !doc.IsValid {
			invalid.Add(1)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			_, err := s.process(gctx, doc)
			var invalidErr *InvalidDocumentError
			switch {
			case err == nil:
				processed.Add(1)
			case errors.As(err, &invalidErr):
				invalid.Add(1)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				failed.Add(1)
				slog.Error("Failed to process document", "document_id", doc.ID, "file_name", doc.FileName, "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	result := BatchResult{
		Processed: int(processed.Load()),
		Invalid:   int(invalid.Load()),
		Failed:    int(failed.Load()),
	}
	if err != nil {
		return result, fmt.Errorf("processing pending documents: %w", err)
	}
	return result, nil
}

// GetDocument retrieves a document by its stored file name
func (s *Service) GetDocument(fileName string) (*Document, error) {
	doc, err := s.db.GetDocumentByName(fileName)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents
func (s *Service) ListDocuments() ([]*Document, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}
