package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/straydogstrength/specsheetflow/internal/models"
	"github.com/straydogstrength/specsheetflow/internal/shopify"
)

// fakeRecordStore keeps records in memory and counts writes.
type fakeRecordStore struct {
	records      map[string]*models.ProductRecord
	replaceCalls int
	variantLinks map[string]string
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		records:      make(map[string]*models.ProductRecord),
		variantLinks: make(map[string]string),
	}
}

func (s *fakeRecordStore) Get(_ context.Context, productID string) (*models.ProductRecord, error) {
	return s.records[productID], nil
}

func (s *fakeRecordStore) Replace(_ context.Context, record *models.ProductRecord) error {
	s.replaceCalls++
	clone := *record
	s.records[record.ProductID] = &clone
	return nil
}

func (s *fakeRecordStore) SetPDFLink(_ context.Context, productID string, link models.PDFLink) error {
	if r, ok := s.records[productID]; ok {
		r.PDF = &link
	}
	return nil
}

func (s *fakeRecordStore) SetVariantPDFLink(_ context.Context, productID, variantID, url string) error {
	s.variantLinks[productID+"/"+variantID] = url
	return nil
}

// fakeFileAPI registers files and controls URL resolvability.
type fakeFileAPI struct {
	created      int
	deleted      []string
	linkedFileID string
	resolveAfter int // calls before ResolveFileURL succeeds
	resolveCalls int
}

func (f *fakeFileAPI) CreateFile(_ context.Context, sourceURL, _ string) (string, error) {
	f.created++
	return fmt.Sprintf("gid://shopify/GenericFile/%d", f.created), nil
}

func (f *fakeFileAPI) DeleteFile(_ context.Context, fileID string) (shopify.DeleteFileResult, error) {
	f.deleted = append(f.deleted, fileID)
	return shopify.DeleteFileResult{DeletedIDs: []string{fileID}}, nil
}

func (f *fakeFileAPI) SetProductPDFLink(_ context.Context, _, fileID string) (shopify.MetafieldSetResult, error) {
	f.linkedFileID = fileID
	return shopify.MetafieldSetResult{Success: true}, nil
}

func (f *fakeFileAPI) ResolveFileURL(_ context.Context, fileID string) (string, error) {
	f.resolveCalls++
	if f.resolveCalls <= f.resolveAfter {
		return "", nil
	}
	return "https://files.example/" + fileID, nil
}

// fakeGenerator renders a placeholder document, failing for chosen SKUs.
type fakeGenerator struct {
	failSKUs  map[string]bool
	generated []string
}

func (g *fakeGenerator) Generate(_ context.Context, in models.SheetInput) ([]byte, error) {
	if g.failSKUs[in.SKU] {
		return nil, fmt.Errorf("layout failure for %s", in.SKU)
	}
	g.generated = append(g.generated, in.SKU)
	return []byte("%PDF-fake " + in.SKU), nil
}

// fakeObjectStore records uploads.
type fakeObjectStore struct {
	uploads map[string][]byte
}

func (o *fakeObjectStore) PDFObjectKey(title string, _ time.Time) string {
	return "pdfs/" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_")) + ".pdf"
}

func (o *fakeObjectStore) UploadPDF(_ context.Context, key string, data []byte) (string, error) {
	if o.uploads == nil {
		o.uploads = make(map[string][]byte)
	}
	o.uploads[key] = data
	return "https://storage.example/" + key, nil
}

func syncFixture(failSKUs map[string]bool, resolveAfter int) (*Syncer, *fakeRecordStore, *fakeFileAPI, *fakeGenerator) {
	catalog := &fakeCatalog{
		variants: map[string]models.Variant{
			"501": {ID: "501", Title: "10 inch", SKU: "LB-10"},
			"502": {ID: "502", Title: "12 inch", SKU: "LB-12"},
		},
		imageURL: "https://img.example/log.png",
		specs:    []models.Spec{{Key: "header", Value: "x"}, {Key: "diameter", Value: "10 in"}},
	}
	store := newFakeRecordStore()
	files := &fakeFileAPI{resolveAfter: resolveAfter}
	gen := &fakeGenerator{failSKUs: failSKUs}
	objects := &fakeObjectStore{}
	agg := NewAggregator(catalog, "token")
	syncer := NewSyncer(agg, store, files, gen, objects, 3, time.Millisecond)
	return syncer, store, files, gen
}

func TestSyncFullRun(t *testing.T) {
	syncer, store, files, gen := syncFixture(nil, 0)

	result, err := syncer.Sync(context.Background(), rawProduct())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.Status != "success" || !result.Changed {
		t.Errorf("unexpected result: %+v", result)
	}

	// Main sheet plus one per variant.
	if len(result.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d: %+v", len(result.Documents), result.Documents)
	}
	if len(gen.generated) != 3 {
		t.Errorf("expected 3 generations, got %v", gen.generated)
	}
	if files.created != 1 {
		t.Errorf("only the main sheet registers a remote file, created=%d", files.created)
	}
	if files.linkedFileID == "" {
		t.Error("main document was never linked back to the catalog")
	}

	record := store.records["101"]
	if record == nil {
		t.Fatal("record was not persisted")
	}
	if record.PDF == nil || record.PDF.ID != files.linkedFileID {
		t.Errorf("persisted link does not match catalog link: %+v", record.PDF)
	}
	if len(store.variantLinks) != 2 {
		t.Errorf("expected 2 variant links, got %v", store.variantLinks)
	}
}

func TestSyncSecondRunIsIdempotent(t *testing.T) {
	syncer, store, _, _ := syncFixture(nil, 0)

	if _, err := syncer.Sync(context.Background(), rawProduct()); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	result, err := syncer.Sync(context.Background(), rawProduct())
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	if result.Changed {
		t.Error("second run with identical data must detect no change")
	}
	if len(result.Documents) != 0 {
		t.Errorf("no documents should be generated on an unchanged run: %+v", result.Documents)
	}
	if store.replaceCalls != 1 {
		t.Errorf("expected exactly one replace, got %d", store.replaceCalls)
	}
}

func TestSyncVariantFailureIsIsolated(t *testing.T) {
	syncer, store, _, _ := syncFixture(map[string]bool{"LB-12": true}, 0)

	result, err := syncer.Sync(context.Background(), rawProduct())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.Status != "partial" {
		t.Errorf("expected partial status, got %q", result.Status)
	}

	var failed, succeeded int
	for _, d := range result.Documents {
		if d.Status == "success" {
			succeeded++
		} else {
			failed++
			if d.Error == "" {
				t.Errorf("failed document must carry an error message: %+v", d)
			}
		}
	}
	if failed != 1 || succeeded != 2 {
		t.Errorf("expected 1 failed and 2 succeeded, got %d/%d", failed, succeeded)
	}
	if len(store.variantLinks) != 1 {
		t.Errorf("only the surviving variant gets a link, got %v", store.variantLinks)
	}
}

func TestSyncRetryExhaustionFailsOnlyMainDocument(t *testing.T) {
	// The file URL never resolves within the 3 configured attempts.
	syncer, _, files, _ := syncFixture(nil, 99)

	result, err := syncer.Sync(context.Background(), rawProduct())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.Status != "partial" {
		t.Errorf("expected partial status, got %q", result.Status)
	}
	if files.resolveCalls != 3 {
		t.Errorf("expected exactly 3 resolve attempts, got %d", files.resolveCalls)
	}

	for _, d := range result.Documents {
		switch d.Target {
		case "main":
			if d.Status != "error" {
				t.Errorf("main document should have failed: %+v", d)
			}
		default:
			if d.Status != "success" {
				t.Errorf("variant documents must not be affected: %+v", d)
			}
		}
	}
}

func TestPreviewNeverWrites(t *testing.T) {
	syncer, store, files, gen := syncFixture(nil, 0)

	result, err := syncer.Preview(context.Background(), rawProduct())
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if !result.Changed {
		t.Error("a never-synced product must preview as changed")
	}
	if store.replaceCalls != 0 || files.created != 0 || len(gen.generated) != 0 {
		t.Error("preview must not persist, generate, or register anything")
	}

	// After a real sync the preview flips to unchanged.
	if _, err := syncer.Sync(context.Background(), rawProduct()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	result, err = syncer.Preview(context.Background(), rawProduct())
	if err != nil {
		t.Fatalf("second preview failed: %v", err)
	}
	if result.Changed {
		t.Error("preview after an identical sync must report unchanged")
	}
}

func TestSyncSingleVariantProducesOnlyMainDocument(t *testing.T) {
	syncer, _, _, gen := syncFixture(nil, 0)

	raw := rawProduct()
	raw.Variants = raw.Variants[:1]
	result, err := syncer.Sync(context.Background(), raw)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(result.Documents) != 1 || result.Documents[0].Target != "main" {
		t.Errorf("single-variant products get only the main sheet: %+v", result.Documents)
	}
	if len(gen.generated) != 1 {
		t.Errorf("expected one generation, got %v", gen.generated)
	}
}
