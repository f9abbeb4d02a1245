package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PROJECT_ID", "sds-prod")
	t.Setenv("SHOP_DOMAIN", "example.myshopify.com")
	t.Setenv("PDF_BUCKET", "sds-pdfs")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Collection != "products" {
		t.Errorf("expected default collection products, got %q", cfg.Collection)
	}
	if cfg.APIVersion != "2024-07" {
		t.Errorf("unexpected default api version: %q", cfg.APIVersion)
	}
	if cfg.AssetsBucket != "sds-pdfs" {
		t.Errorf("assets bucket must default to the pdf bucket, got %q", cfg.AssetsBucket)
	}
	if cfg.SiteURL != "STRAYDOGSTRENGTH.COM" {
		t.Errorf("unexpected default site url: %q", cfg.SiteURL)
	}
	if cfg.FileURLRetryAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.FileURLRetryAttempts)
	}
	if cfg.FileURLRetryDelay != 2*time.Second {
		t.Errorf("expected 2s retry delay, got %s", cfg.FileURLRetryDelay)
	}
	if cfg.SyncTimeout != 900*time.Second {
		t.Errorf("expected 900s sync timeout, got %s", cfg.SyncTimeout)
	}
	if cfg.AggregateTimeout != 60*time.Second {
		t.Errorf("expected 60s aggregate timeout, got %s", cfg.AggregateTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FIRESTORE_COLLECTION", "catalog")
	t.Setenv("ASSETS_BUCKET", "sds-assets")
	t.Setenv("FILE_URL_RETRY_ATTEMPTS", "5")
	t.Setenv("FILE_URL_RETRY_DELAY_SECONDS", "1")
	t.Setenv("SYNC_TIMEOUT_SECONDS", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Collection != "catalog" {
		t.Errorf("collection override ignored: %q", cfg.Collection)
	}
	if cfg.AssetsBucket != "sds-assets" {
		t.Errorf("assets bucket override ignored: %q", cfg.AssetsBucket)
	}
	if cfg.FileURLRetryAttempts != 5 || cfg.FileURLRetryDelay != time.Second {
		t.Errorf("retry overrides ignored: %d/%s", cfg.FileURLRetryAttempts, cfg.FileURLRetryDelay)
	}
	if cfg.SyncTimeout != 2*time.Minute {
		t.Errorf("timeout override ignored: %s", cfg.SyncTimeout)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	cases := []string{"PROJECT_ID", "SHOP_DOMAIN", "PDF_BUCKET"}
	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")
			if _, err := Load(); err == nil {
				t.Errorf("expected an error with %s unset", missing)
			}
		})
	}
}

func TestEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("FILE_URL_RETRY_ATTEMPTS", "not-a-number")
	if got := envInt("FILE_URL_RETRY_ATTEMPTS", 3); got != 3 {
		t.Errorf("expected fallback 3, got %d", got)
	}

	t.Setenv("FILE_URL_RETRY_ATTEMPTS", "-2")
	if got := envInt("FILE_URL_RETRY_ATTEMPTS", 3); got != 3 {
		t.Errorf("negative values must fall back, got %d", got)
	}
}
