package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

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

	functions.HTTP("HandleManualSync", handleManualSync)
}

func main() {}

// handleManualSync runs the same pipeline as the webhook entry point but
// takes the raw product payload directly, for operator-triggered syncs.
func handleManualSync(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	if !authorized(r, runtime.Config.ManualToken) {
		slog.Warn("Manual sync called without a valid token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var raw models.RawProduct
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if raw.ID.IsZero() {
		http.Error(w, "Bad Request: missing product id", http.StatusBadRequest)
		return
	}

	// Dry runs only aggregate and compare, so they get the tighter budget.
	var result *models.SyncResult
	var err error
	if r.URL.Query().Get("dryRun") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), runtime.Config.AggregateTimeout)
		defer cancel()
		result, err = runtime.Syncer.Preview(ctx, raw)
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), runtime.Config.SyncTimeout)
		defer cancel()
		result, err = runtime.Syncer.Sync(ctx, raw)
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
		slog.Error("Failed to write response", "error", encErr, "productId", raw.ID.String())
	}
}

// authorized checks the bearer token when one is configured. An unset token
// leaves the endpoint open, which is only acceptable behind IAM.
func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}
