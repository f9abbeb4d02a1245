package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
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

	functions.CloudEvent("SyncRequested", syncRequested)
}

// main is required by the Go Functions Framework.
func main() {}

// pubSubMessage is the envelope Eventarc wraps around a Pub/Sub push. Data is
// base64-decoded by the JSON unmarshaler.
type pubSubMessage struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

// syncRequested handles queued sync requests published to the sync topic,
// running the same pipeline as the HTTP entry points.
func syncRequested(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var msg pubSubMessage
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		slog.Error("Failed to unmarshal event envelope", "error", err)
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	var event models.SyncRequestedEvent
	if err := json.Unmarshal(msg.Message.Data, &event); err != nil {
		slog.Error("Failed to unmarshal sync request", "error", err, "data", string(msg.Message.Data))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	if event.Product.ID.IsZero() {
		// A malformed message must not be redelivered forever.
		slog.Warn("Sync request carries no product id, dropping", "reason", event.Reason)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, runtime.Config.SyncTimeout)
	defer cancel()

	result, err := runtime.Syncer.Sync(ctx, event.Product)
	if err != nil {
		return err
	}
	slog.Info("Queued sync finished.", "productId", result.ProductID, "status", result.Status, "reason", event.Reason)
	return nil
}
