package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadSize caps multipart uploads (high-resolution phone photos included)
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, err error) {
	var invalidErr *InvalidDocumentError
	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrReceiptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusBadRequest, invalidErr.Error())
	case errors.Is(err, ErrOCREmpty), errors.Is(err, ErrUnsupportedContentType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// contentTypeFromExt guesses a content type when the client did not send one
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// fileNameRequest is the body accepted by the validate and process endpoints
type fileNameRequest struct {
	FileName string `json:"file_name"`
}

// decodeFileName reads the file_name from a JSON body, writing a 400 when absent
func decodeFileName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req fileNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	req.FileName = strings.TrimSpace(req.FileName)
	if req.FileName == "" {
		writeError(w, http.StatusBadRequest, "file_name is required")
		return "", false
	}
	return req.FileName, true
}

// handleUpload stores a document for later validation and processing
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was provided in the 'file' field")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExt(header.Filename)
	}

	doc, err := s.service.UploadDocument(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error uploading document", "filename", header.Filename, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":   "File uploaded successfully",
		"file_name": doc.FileName,
		"file_path": doc.FilePath,
	})
}

// handleValidate runs the validity check for a stored document
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	fileName, ok := decodeFileName(w, r)
	if !ok {
		return
	}

	doc, err := s.service.ValidateDocument(r.Context(), fileName)
	if err != nil {
		slog.Error("Error validating document", "file_name", fileName, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_name":      doc.FileName,
		"is_valid":       doc.IsValid,
		"invalid_reason": doc.InvalidReason,
	})
}

// handleProcess extracts receipt fields from a stored document
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	fileName, ok := decodeFileName(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.ProcessDocument(r.Context(), fileName)
	if err != nil {
		slog.Error("Error processing document", "file_name", fileName, "error", err)
		writeServiceError(w, err)
		return
	}

	var date *string
	if receipt.PurchasedAt != nil {
		d := receipt.PurchasedAt.Format("2006-01-02")
		date = &d
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Receipt processed successfully",
		"receipt_id":     receipt.ID,
		"merchant":       receipt.MerchantName,
		"amount":         json.Number(receipt.TotalAmount.StringFixed(2)),
		"currency":       receipt.Currency,
		"payment_method": receipt.PaymentMethod,
		"date":           date,
	})
}

// handleListDocuments returns every uploaded document
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListDocuments()
	if err != nil {
		slog.Error("Error listing documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleListReceipts returns all receipts, newest first
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Receipt ID required")
		return
	}

	receipt, err := s.service.GetReceipt(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
