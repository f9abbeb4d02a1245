package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/straydogstrength/specsheetflow/internal/models"
	"github.com/straydogstrength/specsheetflow/internal/services"
)

const (
	signatureHeader = "X-Shopify-Hmac-Sha256"
	topicHeader     = "X-Shopify-Topic"
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

	functions.HTTP("HandleProductWebhook", handleProductWebhook)
}

func main() {}

// handleProductWebhook verifies the webhook signature, routes by topic, and
// runs a full product sync for product create/update events.
func handleProductWebhook(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		slog.Warn("Webhook carried no readable body", "error", err)
		http.Error(w, "Bad Request: missing body", http.StatusBadRequest)
		return
	}

	// Signature check comes before any other processing.
	if !verifySignature(body, r.Header.Get(signatureHeader), runtime.Config.WebhookSecret) {
		slog.Warn("Webhook signature missing or invalid")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topic := r.Header.Get(topicHeader)
	switch topic {
	case "products/update", "products/create":
	default:
		// Unrecognized topics are acknowledged so the upstream does not
		// retry them forever.
		slog.Info("Ignoring webhook topic", "topic", topic)
		w.WriteHeader(http.StatusOK)
		return
	}

	var raw models.RawProduct
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("Could not decode webhook payload", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if raw.ID.IsZero() {
		slog.Warn("Webhook payload has no product id")
		http.Error(w, "Bad Request: missing product id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runtime.Config.SyncTimeout)
	defer cancel()

	result, err := runtime.Syncer.Sync(ctx, raw)
	writeSyncResult(w, result, err)
}

// verifySignature checks the HMAC-SHA256 signature over the raw body. A
// request without a signature never passes.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func writeSyncResult(w http.ResponseWriter, result *models.SyncResult, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
		slog.Error("Failed to write response", "error", encErr)
	}
}
