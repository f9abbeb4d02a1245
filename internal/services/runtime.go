package services

import (
	"context"
	"fmt"

	"github.com/straydogstrength/specsheetflow/internal/config"
	"github.com/straydogstrength/specsheetflow/internal/gcp"
	"github.com/straydogstrength/specsheetflow/internal/pdf"
	"github.com/straydogstrength/specsheetflow/internal/shopify"
	"github.com/straydogstrength/specsheetflow/internal/store"
)

// Runtime wires config, clients, and services together once per function
// instance. Every entry point builds one lazily and reuses it across
// invocations.
type Runtime struct {
	Config    *config.Config
	Catalog   *shopify.Client
	Store     *store.Store
	Generator *pdf.Generator
	Objects   *gcp.PDFStore
	Syncer    *Syncer
}

// NewRuntime loads configuration and constructs the full service graph.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fsClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	objects, err := gcp.NewPDFStore(ctx, cfg.PDFBucket, cfg.AssetsBucket)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	catalog := shopify.NewClient(cfg.ShopDomain, cfg.APIVersion, cfg.AccessToken)
	recordStore := store.New(fsClient, cfg.Collection)
	generator := pdf.NewGenerator(objects, pdf.NewHTTPImageFetcher(), cfg.SiteURL)
	aggregator := NewAggregator(catalog, cfg.AccessToken)
	syncer := NewSyncer(aggregator, recordStore, catalog, generator, objects, cfg.FileURLRetryAttempts, cfg.FileURLRetryDelay)

	return &Runtime{
		Config:    cfg,
		Catalog:   catalog,
		Store:     recordStore,
		Generator: generator,
		Objects:   objects,
		Syncer:    syncer,
	}, nil
}
