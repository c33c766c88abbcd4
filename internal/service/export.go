package service

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/rowflow/internal/archive"
	"github.com/mmynk/rowflow/internal/csvlog"
	"github.com/mmynk/rowflow/internal/ledger"
	"github.com/mmynk/rowflow/internal/middleware"
)

// ExportHandler serves the caller's partition as a CSV download.
// It must run behind middleware.RequireBearer.
type ExportHandler struct {
	ledger *ledger.Ledger
	logger *slog.Logger
	now    func() time.Time
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(l *ledger.Ledger, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{ledger: l, logger: logger, now: time.Now}
}

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	storageID := middleware.GetStorageID(r.Context())
	if storageID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	entries, err := h.ledger.ReadAll(r.Context(), storageID)
	if err != nil {
		h.logger.Error("Failed to read entries for export", "storage_id", storageID, "error", err)
		http.Error(w, "failed to read log", http.StatusInternalServerError)
		return
	}

	// Buffer so a write failure can still produce a 500.
	var buf bytes.Buffer
	if err := csvlog.WriteLog(&buf, entries); err != nil {
		h.logger.Error("Failed to encode export", "storage_id", storageID, "error", err)
		http.Error(w, "failed to encode log", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.ExportFilename(h.now())))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("Export write failed", "storage_id", storageID, "error", err)
		return
	}
	h.logger.Info("Log exported", "storage_id", storageID, "entries", len(entries))
}
