package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/straydogstrength/specsheetflow/internal/models"
)

// Subcollection names under each product document.
const (
	variantsCol = "variants"
	featuresCol = "features"
	specsCol    = "specs"
)

// PersistenceError wraps a failed datastore operation with the operation
// name for error reports.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store persists ProductRecords in Firestore. Each product is one document
// with variants, features, and specs as subcollections so a product removal
// cascades over everything it owns.
type Store struct {
	client     *firestore.Client
	collection string
}

func New(client *firestore.Client, collection string) *Store {
	return &Store{client: client, collection: collection}
}

type variantDoc struct {
	ID       string `firestore:"id"`
	Title    string `firestore:"title"`
	SKU      string `firestore:"sku"`
	PDFLink  string `firestore:"pdfLink"`
	Position int    `firestore:"position"`
}

type featureDoc struct {
	Title    string `firestore:"title"`
	ImageURL string `firestore:"imageUrl"`
	Position int    `firestore:"position"`
}

type specDoc struct {
	Key      string `firestore:"key"`
	Value    string `firestore:"value"`
	Position int    `firestore:"position"`
}

func (s *Store) productRef(productID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(productID)
}

// Get loads the persisted record for productID, including its owned rows.
// A missing record returns (nil, nil).
func (s *Store) Get(ctx context.Context, productID string) (*models.ProductRecord, error) {
	ref := s.productRef(productID)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get product", Err: err}
	}

	var record models.ProductRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, &PersistenceError{Op: "decode product", Err: err}
	}
	record.ProductID = productID

	variants, err := s.loadVariants(ctx, ref)
	if err != nil {
		return nil, err
	}
	record.Variants = variants

	features, err := s.loadFeatures(ctx, ref)
	if err != nil {
		return nil, err
	}
	record.Features = features

	specs, err := s.loadSpecs(ctx, ref)
	if err != nil {
		return nil, err
	}
	record.Specs = specs

	return &record, nil
}

func (s *Store) loadVariants(ctx context.Context, ref *firestore.DocumentRef) ([]models.Variant, error) {
	iter := ref.Collection(variantsCol).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []models.Variant
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &PersistenceError{Op: "list variants", Err: err}
		}
		var doc variantDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, &PersistenceError{Op: "decode variant", Err: err}
		}
		out = append(out, models.Variant{ID: doc.ID, Title: doc.Title, SKU: doc.SKU, PDFLink: doc.PDFLink})
	}
	return out, nil
}

func (s *Store) loadFeatures(ctx context.Context, ref *firestore.DocumentRef) ([]models.Feature, error) {
	iter := ref.Collection(featuresCol).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []models.Feature
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &PersistenceError{Op: "list features", Err: err}
		}
		var doc featureDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, &PersistenceError{Op: "decode feature", Err: err}
		}
		out = append(out, models.Feature{Title: doc.Title, ImageURL: doc.ImageURL})
	}
	return out, nil
}

func (s *Store) loadSpecs(ctx context.Context, ref *firestore.DocumentRef) ([]models.Spec, error) {
	iter := ref.Collection(specsCol).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []models.Spec
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &PersistenceError{Op: "list specs", Err: err}
		}
		var doc specDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, &PersistenceError{Op: "decode spec", Err: err}
		}
		out = append(out, models.Spec{Key: doc.Key, Value: doc.Value})
	}
	return out, nil
}

// Replace removes whatever is persisted for the record's product and writes
// the new aggregate in full. There is no partial merge: stale variants,
// features, and specs never survive a replace.
func (s *Store) Replace(ctx context.Context, record *models.ProductRecord) error {
	if record.ProductID == "" {
		return &PersistenceError{Op: "replace product", Err: fmt.Errorf("record has no product id")}
	}
	if err := s.Delete(ctx, record.ProductID); err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	ref := s.productRef(record.ProductID)
	if _, err := ref.Set(ctx, record); err != nil {
		return &PersistenceError{Op: "write product", Err: err}
	}

	for i, v := range record.Variants {
		doc := variantDoc{ID: v.ID, Title: v.Title, SKU: v.SKU, PDFLink: v.PDFLink, Position: i}
		if _, err := ref.Collection(variantsCol).Doc(v.ID).Set(ctx, doc); err != nil {
			return &PersistenceError{Op: "write variant", Err: err}
		}
	}
	for i, f := range record.Features {
		doc := featureDoc{Title: f.Title, ImageURL: f.ImageURL, Position: i}
		if _, err := ref.Collection(featuresCol).Doc(fmt.Sprintf("%04d", i)).Set(ctx, doc); err != nil {
			return &PersistenceError{Op: "write feature", Err: err}
		}
	}
	for i, sp := range record.Specs {
		doc := specDoc{Key: sp.Key, Value: sp.Value, Position: i}
		if _, err := ref.Collection(specsCol).Doc(fmt.Sprintf("%04d", i)).Set(ctx, doc); err != nil {
			return &PersistenceError{Op: "write spec", Err: err}
		}
	}
	return nil
}

// Delete removes the product document and every row it owns. Deleting a
// product that was never persisted is a no-op.
func (s *Store) Delete(ctx context.Context, productID string) error {
	ref := s.productRef(productID)
	for _, col := range []string{variantsCol, featuresCol, specsCol} {
		if err := s.deleteCollection(ctx, ref.Collection(col)); err != nil {
			return err
		}
	}
	if _, err := ref.Delete(ctx); err != nil {
		return &PersistenceError{Op: "delete product", Err: err}
	}
	return nil
}

func (s *Store) deleteCollection(ctx context.Context, col *firestore.CollectionRef) error {
	iter := col.DocumentRefs(ctx)
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return &PersistenceError{Op: "list " + col.ID, Err: err}
		}
		if _, err := ref.Delete(ctx); err != nil {
			return &PersistenceError{Op: "delete " + col.ID, Err: err}
		}
	}
}

// SetPDFLink attaches the generated document reference to the persisted
// product after a successful upload.
func (s *Store) SetPDFLink(ctx context.Context, productID string, link models.PDFLink) error {
	_, err := s.productRef(productID).Update(ctx, []firestore.Update{
		{Path: "pdf", Value: link},
	})
	if err != nil {
		return &PersistenceError{Op: "set pdf link", Err: err}
	}
	return nil
}

// SetVariantPDFLink records the per-variant document URL.
func (s *Store) SetVariantPDFLink(ctx context.Context, productID, variantID, url string) error {
	_, err := s.productRef(productID).Collection(variantsCol).Doc(variantID).Update(ctx, []firestore.Update{
		{Path: "pdfLink", Value: url},
	})
	if err != nil {
		return &PersistenceError{Op: "set variant pdf link", Err: err}
	}
	return nil
}
