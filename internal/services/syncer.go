package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/straydogstrength/specsheetflow/internal/models"
	"github.com/straydogstrength/specsheetflow/internal/shopify"
)

// DocumentGenerator renders one spec sheet to PDF bytes.
type DocumentGenerator interface {
	Generate(ctx context.Context, in models.SheetInput) ([]byte, error)
}

// ObjectStore uploads finished documents. gcp.PDFStore satisfies this.
type ObjectStore interface {
	PDFObjectKey(title string, now time.Time) string
	UploadPDF(ctx context.Context, key string, data []byte) (string, error)
}

// RecordStore is the persistence surface the orchestrator drives.
type RecordStore interface {
	Get(ctx context.Context, productID string) (*models.ProductRecord, error)
	Replace(ctx context.Context, record *models.ProductRecord) error
	SetPDFLink(ctx context.Context, productID string, link models.PDFLink) error
	SetVariantPDFLink(ctx context.Context, productID, variantID, url string) error
}

// FileAPI is the slice of the catalog client used for remote file handling.
type FileAPI interface {
	CreateFile(ctx context.Context, sourceURL, altText string) (string, error)
	DeleteFile(ctx context.Context, fileID string) (shopify.DeleteFileResult, error)
	SetProductPDFLink(ctx context.Context, productID, fileID string) (shopify.MetafieldSetResult, error)
	ResolveFileURL(ctx context.Context, fileID string) (string, error)
}

// Syncer drives one end-to-end product sync: aggregate, detect changes,
// replace persisted state, generate and upload documents, link them back.
// One Syncer handles one invocation at a time; variant documents for the
// same product are always processed sequentially so link writes never race.
type Syncer struct {
	aggregator    *Aggregator
	store         RecordStore
	files         FileAPI
	generator     DocumentGenerator
	objects       ObjectStore
	retryAttempts int
	retryDelay    time.Duration
}

func NewSyncer(aggregator *Aggregator, store RecordStore, files FileAPI, generator DocumentGenerator, objects ObjectStore, retryAttempts int, retryDelay time.Duration) *Syncer {
	return &Syncer{
		aggregator:    aggregator,
		store:         store,
		files:         files,
		generator:     generator,
		objects:       objects,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// Sync runs the pipeline for one raw product payload. The returned result
// always carries a status and message; per-document outcomes, including
// failures scoped to a single variant sheet, are listed individually.
func (s *Syncer) Sync(ctx context.Context, raw models.RawProduct) (*models.SyncResult, error) {
	productID := raw.ID.String()
	logCtx := slog.With("productId", productID)
	logCtx.Info("Starting product sync.")

	// --- 1. Aggregate ---
	record, err := s.aggregator.Aggregate(ctx, raw)
	if err != nil {
		return &models.SyncResult{Status: "error", Message: fmt.Sprintf("aggregation failed: %v", err), ProductID: productID}, err
	}

	// --- 2. Compare against persisted state ---
	persisted, err := s.store.Get(ctx, record.ProductID)
	if err != nil {
		return &models.SyncResult{Status: "error", Message: fmt.Sprintf("loading persisted record failed: %v", err), ProductID: productID}, err
	}
	if !HasChanged(record, persisted) {
		logCtx.Info("No changes detected, skipping regeneration.")
		return &models.SyncResult{Status: "success", Message: "no changes detected", ProductID: productID, Changed: false}, nil
	}

	// --- 3. Full replace of persisted state ---
	if err := s.store.Replace(ctx, record); err != nil {
		return &models.SyncResult{Status: "error", Message: fmt.Sprintf("persisting record failed: %v", err), ProductID: productID, Changed: true}, err
	}

	// --- 4. Main document ---
	var documents []models.DocumentResult
	documents = append(documents, s.produceMainDocument(ctx, logCtx, record))

	// --- 5. Variant documents, sequential ---
	if len(record.Variants) > 1 {
		for _, v := range record.Variants {
			documents = append(documents, s.produceVariantDocument(ctx, logCtx, record, v))
		}
	}

	result := &models.SyncResult{ProductID: productID, Changed: true, Documents: documents}
	failed := 0
	for _, d := range documents {
		if d.Status != "success" {
			failed++
		}
	}
	switch {
	case failed == 0:
		result.Status = "success"
		result.Message = fmt.Sprintf("synced %d document(s)", len(documents))
	case failed < len(documents):
		result.Status = "partial"
		result.Message = fmt.Sprintf("synced %d of %d document(s)", len(documents)-failed, len(documents))
	default:
		result.Status = "error"
		result.Message = "all document generations failed"
	}
	logCtx.Info("Product sync finished.", "status", result.Status, "documents", len(documents), "failed", failed)
	return result, nil
}

// Preview aggregates and runs change detection without writing anything,
// for operators checking whether a sync would regenerate documents.
func (s *Syncer) Preview(ctx context.Context, raw models.RawProduct) (*models.SyncResult, error) {
	productID := raw.ID.String()

	record, err := s.aggregator.Aggregate(ctx, raw)
	if err != nil {
		return &models.SyncResult{Status: "error", Message: fmt.Sprintf("aggregation failed: %v", err), ProductID: productID}, err
	}
	persisted, err := s.store.Get(ctx, record.ProductID)
	if err != nil {
		return &models.SyncResult{Status: "error", Message: fmt.Sprintf("loading persisted record failed: %v", err), ProductID: productID}, err
	}

	result := &models.SyncResult{Status: "success", ProductID: productID, Changed: HasChanged(record, persisted)}
	if result.Changed {
		result.Message = "sync would regenerate documents"
	} else {
		result.Message = "no changes detected"
	}
	return result, nil
}

// produceMainDocument generates, uploads, registers, and links the product's
// main sheet. Any failure is scoped to this document.
func (s *Syncer) produceMainDocument(ctx context.Context, logCtx *slog.Logger, record *models.ProductRecord) models.DocumentResult {
	in := record.SheetInput()
	res := models.DocumentResult{Target: "main", SKU: in.SKU}

	url, err := s.generateAndUpload(ctx, in)
	if err != nil {
		logCtx.Error("Main document failed", "error", err)
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	fileID, err := s.files.CreateFile(ctx, url, in.Title)
	if err != nil {
		logCtx.Error("Registering main document failed", "error", err)
		res.Status = "error"
		res.Error = fmt.Sprintf("registering file: %v", err)
		return res
	}

	resolvedURL, err := s.resolveFileURL(ctx, fileID)
	if err != nil {
		logCtx.Error("Resolving main document URL failed", "error", err, "fileId", fileID)
		res.Status = "error"
		res.Error = fmt.Sprintf("resolving file url: %v", err)
		return res
	}

	// Drop the previously registered remote file before linking the new one.
	if record.PDF != nil && record.PDF.ID != "" {
		del, err := s.files.DeleteFile(ctx, record.PDF.ID)
		if err != nil {
			logCtx.Warn("Deleting previous remote file failed", "error", err, "fileId", record.PDF.ID)
		}
		for _, uerr := range del.Errors {
			logCtx.Warn("Previous remote file deletion reported an error", "message", uerr.Message)
		}
	}

	if _, err := s.files.SetProductPDFLink(ctx, record.ProductID, fileID); err != nil {
		logCtx.Error("Writing catalog link metafield failed", "error", err)
		res.Status = "error"
		res.Error = fmt.Sprintf("writing catalog link: %v", err)
		return res
	}
	link := models.PDFLink{ID: fileID, URL: resolvedURL}
	if err := s.store.SetPDFLink(ctx, record.ProductID, link); err != nil {
		logCtx.Error("Writing persisted link failed", "error", err)
		res.Status = "error"
		res.Error = fmt.Sprintf("writing persisted link: %v", err)
		return res
	}

	record.PDF = &link
	res.Status = "success"
	res.URL = resolvedURL
	return res
}

// produceVariantDocument generates and uploads one variant sheet and records
// its URL on the persisted variant row.
func (s *Syncer) produceVariantDocument(ctx context.Context, logCtx *slog.Logger, record *models.ProductRecord, v models.Variant) models.DocumentResult {
	res := models.DocumentResult{Target: "variant " + v.ID, SKU: v.SKU}

	url, err := s.generateAndUpload(ctx, record.VariantSheetInput(v))
	if err != nil {
		logCtx.Error("Variant document failed", "variantId", v.ID, "error", err)
		res.Status = "error"
		res.Error = err.Error()
		return res
	}
	if err := s.store.SetVariantPDFLink(ctx, record.ProductID, v.ID, url); err != nil {
		logCtx.Error("Writing variant link failed", "variantId", v.ID, "error", err)
		res.Status = "error"
		res.Error = fmt.Sprintf("writing variant link: %v", err)
		return res
	}

	res.Status = "success"
	res.URL = url
	return res
}

func (s *Syncer) generateAndUpload(ctx context.Context, in models.SheetInput) (string, error) {
	data, err := s.generator.Generate(ctx, in)
	if err != nil {
		return "", err
	}
	key := s.objects.PDFObjectKey(in.Title+" "+in.SKU, time.Now())
	url, err := s.objects.UploadPDF(ctx, key, data)
	if err != nil {
		return "", err
	}
	return url, nil
}

// resolveFileURL polls the catalog until the freshly registered file has a
// servable URL. The first attempt is also delayed: registration never
// resolves instantly.
func (s *Syncer) resolveFileURL(ctx context.Context, fileID string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		select {
		case <-time.After(s.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		url, err := s.files.ResolveFileURL(ctx, fileID)
		if err == nil && url != "" {
			return url, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("file has no url yet")
		}
		slog.Debug("File URL not ready", "fileId", fileID, "attempt", attempt, "error", lastErr)
	}
	return "", fmt.Errorf("file url not resolvable after %d attempts: %w", s.retryAttempts, lastErr)
}
