package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/straydogstrength/specsheetflow/internal/models"
	"github.com/straydogstrength/specsheetflow/internal/services"
)

var (
	runtime *services.Runtime
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleGeneratePDF", handleGeneratePDF)
}

func main() {}

// handleGeneratePDF renders and uploads a single spec sheet from the payload
// as-is, without touching the catalog or the persisted records. Used for
// layout previews and backfills.
func handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.GeneratePDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.Product.Title == "" {
		http.Error(w, "Bad Request: missing product title", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runtime.Config.SyncTimeout)
	defer cancel()

	logCtx := slog.With("sku", req.Product.SKU, "title", req.Product.Title)
	data, err := runtime.Generator.Generate(ctx, req.Product)
	if err != nil {
		logCtx.Error("Document generation failed", "error", err)
		http.Error(w, "Internal Server Error: generation failed", http.StatusInternalServerError)
		return
	}

	key := runtime.Objects.PDFObjectKey(req.Product.Title+" "+req.Product.SKU, time.Now())
	url, err := runtime.Objects.UploadPDF(ctx, key, data)
	if err != nil {
		logCtx.Error("Document upload failed", "error", err, "key", key)
		http.Error(w, "Internal Server Error: upload failed", http.StatusInternalServerError)
		return
	}
	logCtx.Info("Document generated and uploaded.", "key", key, "bytes", len(data))

	w.Header().Set("Content-Type", "application/json")
	res := models.GeneratePDFResponse{Status: "success", URL: url, Key: key}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "key", key)
	}
}
