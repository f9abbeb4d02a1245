package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/straydogstrength/specsheetflow/internal/models"
	"github.com/straydogstrength/specsheetflow/internal/shopify"
)

// CatalogAPI is the slice of the catalog client the aggregator consumes.
type CatalogAPI interface {
	FetchVariant(ctx context.Context, variantID string) (models.Variant, error)
	FetchMainImageURL(ctx context.Context, productID string) (string, error)
	FetchSpecs(ctx context.Context, productID string) ([]models.Spec, error)
	FetchFeatures(ctx context.Context, productID string) ([]models.Feature, error)
	FetchPDFMetafield(ctx context.Context, productID string) (*shopify.Metafield, error)
	ResolveFileURL(ctx context.Context, fileID string) (string, error)
}

// Aggregator builds a normalized ProductRecord from a raw webhook payload by
// enriching it through the catalog API. Every enrichment step fails softly:
// the failure is recorded on the record and aggregation continues with
// whatever data is available. Only a missing access credential aborts.
type Aggregator struct {
	catalog     CatalogAPI
	accessToken string
}

func NewAggregator(catalog CatalogAPI, accessToken string) *Aggregator {
	return &Aggregator{catalog: catalog, accessToken: accessToken}
}

// Aggregate assembles the record for one raw product payload.
func (a *Aggregator) Aggregate(ctx context.Context, raw models.RawProduct) (*models.ProductRecord, error) {
	if a.accessToken == "" {
		return nil, fmt.Errorf("catalog access token is not configured")
	}
	productID := raw.ID.String()
	if productID == "" {
		return nil, fmt.Errorf("raw product payload has no id")
	}

	logCtx := slog.With("productId", productID, "title", raw.Title)
	logCtx.Info("Starting aggregation.")

	record := &models.ProductRecord{
		ProductID:   productID,
		Title:       raw.Title,
		Description: raw.BodyHTML,
		Status:      raw.Status,
	}
	recordErr := func(stage string, err error) {
		logCtx.Warn("Enrichment step failed, continuing with partial data", "stage", stage, "error", err)
		record.Errors = append(record.Errors, models.SyncError{Stage: stage, Message: err.Error()})
	}

	// --- 1. Enrich variants ---
	for _, rv := range raw.Variants {
		v, err := a.catalog.FetchVariant(ctx, rv.ID.String())
		if err != nil {
			recordErr("variant "+rv.ID.String(), err)
			// Fall back to the payload's own variant data.
			v = models.Variant{ID: rv.ID.String(), SKU: rv.SKU}
		} else if v.SKU == "" {
			v.SKU = rv.SKU
		}
		record.Variants = append(record.Variants, v)
	}

	// --- 2. Denormalize the SKU from the first enriched variant ---
	if len(record.Variants) > 0 {
		record.SKU = record.Variants[0].SKU
	}

	// --- 3. Main product image ---
	imageURL, err := a.catalog.FetchMainImageURL(ctx, productID)
	if err != nil && !shopify.IsNotFound(err) {
		recordErr("main image", err)
	}
	record.MainImageURL = imageURL

	// --- 4. Specs metaobject ---
	specs, err := a.catalog.FetchSpecs(ctx, productID)
	if err != nil {
		recordErr("specs", err)
	}
	record.Specs = specs

	// --- 5. Features ---
	features, err := a.catalog.FetchFeatures(ctx, productID)
	if err != nil {
		recordErr("features", err)
	}
	record.Features = features

	// --- 6. Existing document link ---
	meta, err := a.catalog.FetchPDFMetafield(ctx, productID)
	if err != nil {
		recordErr("pdf link", err)
	} else if meta != nil {
		url, err := a.catalog.ResolveFileURL(ctx, meta.Value)
		if err != nil && !shopify.IsNotFound(err) {
			recordErr("pdf link url", err)
		}
		record.PDF = &models.PDFLink{ID: meta.Value, URL: url}
	}

	logCtx.Info("Aggregation complete.",
		"variantCount", len(record.Variants),
		"specCount", len(record.Specs),
		"featureCount", len(record.Features),
		"errorCount", len(record.Errors))
	return record, nil
}
