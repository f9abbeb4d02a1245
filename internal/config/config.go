package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/straydogstrength/specsheetflow/internal/gcp"
)

// Config holds all configuration shared by the entry-point functions. Retry
// and timeout values are operationally tunable; the defaults mirror the
// deployed configuration.
type Config struct {
	ProjectID  string
	Collection string

	ShopDomain  string
	APIVersion  string
	AccessToken string

	WebhookSecret string
	ManualToken   string

	PDFBucket    string
	AssetsBucket string

	SiteURL string

	FileURLRetryAttempts int
	FileURLRetryDelay    time.Duration
	SyncTimeout          time.Duration
	AggregateTimeout     time.Duration
}

// Load reads and validates the environment. Secrets needed by a given entry
// point are validated again at that entry point; Load only requires what every
// function needs.
func Load() (*Config, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	shopDomain := gcp.GetEnv("SHOP_DOMAIN", "")
	if shopDomain == "" {
		return nil, fmt.Errorf("SHOP_DOMAIN environment variable must be set")
	}

	pdfBucket := gcp.GetEnv("PDF_BUCKET", "")
	if pdfBucket == "" {
		return nil, fmt.Errorf("PDF_BUCKET environment variable must be set")
	}

	cfg := &Config{
		ProjectID:            projectID,
		Collection:           gcp.GetEnv("FIRESTORE_COLLECTION", "products"),
		ShopDomain:           shopDomain,
		APIVersion:           gcp.GetEnv("SHOP_API_VERSION", "2024-07"),
		AccessToken:          gcp.GetEnv("SHOP_ACCESS_TOKEN", ""),
		WebhookSecret:        gcp.GetEnv("WEBHOOK_SECRET", ""),
		ManualToken:          gcp.GetEnv("MANUAL_SYNC_TOKEN", ""),
		PDFBucket:            pdfBucket,
		AssetsBucket:         gcp.GetEnv("ASSETS_BUCKET", pdfBucket),
		SiteURL:              gcp.GetEnv("SITE_URL", "STRAYDOGSTRENGTH.COM"),
		FileURLRetryAttempts: envInt("FILE_URL_RETRY_ATTEMPTS", 3),
		FileURLRetryDelay:    envSeconds("FILE_URL_RETRY_DELAY_SECONDS", 2),
		SyncTimeout:          envSeconds("SYNC_TIMEOUT_SECONDS", 900),
		AggregateTimeout:     envSeconds("AGGREGATE_TIMEOUT_SECONDS", 60),
	}
	return cfg, nil
}

func envInt(key string, fallback int) int {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
