package models

import "time"

// ProductRecord is the normalized aggregate the whole pipeline operates on:
// one catalog product plus its variants, features and specs, persistence-ready.
type ProductRecord struct {
	ProductID    string      `firestore:"productId" json:"productId"`
	Title        string      `firestore:"title" json:"title"`
	SKU          string      `firestore:"mainSku" json:"sku"`
	Description  string      `firestore:"description" json:"description"`
	MainImageURL string      `firestore:"mainImageUrl,omitempty" json:"mainImageUrl,omitempty"`
	Status       string      `firestore:"status" json:"status"`
	Variants     []Variant   `firestore:"-" json:"variants"`
	Features     []Feature   `firestore:"-" json:"features"`
	Specs        []Spec      `firestore:"-" json:"specs"`
	PDF          *PDFLink    `firestore:"pdf,omitempty" json:"pdf,omitempty"`
	Errors       []SyncError `firestore:"errors,omitempty" json:"errors,omitempty"`
	CreatedAt    time.Time   `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Variant is one purchasable variant of a product. PDFLink is empty until a
// variant spec sheet has been generated and registered upstream.
type Variant struct {
	ID      string `firestore:"variantId" json:"id"`
	Title   string `firestore:"title" json:"title"`
	SKU     string `firestore:"sku" json:"sku"`
	PDFLink string `firestore:"pdfLink,omitempty" json:"pdfLink,omitempty"`
}

// Feature is a highlighted product feature tile (capped at 3 by upstream
// convention).
type Feature struct {
	Title    string `firestore:"title" json:"title"`
	ImageURL string `firestore:"image,omitempty" json:"imageUrl,omitempty"`
}

// Spec is one key/value row of the product's specification metaobject.
// The key "target_product" is an upstream sentinel and is never rendered.
type Spec struct {
	Key   string `firestore:"key" json:"key"`
	Value string `firestore:"value" json:"value"`
}

// PDFLink references the generated main document: the upstream file ID and its
// resolvable URL.
type PDFLink struct {
	ID  string `firestore:"id" json:"id"`
	URL string `firestore:"url" json:"url"`
}

// SyncError records one non-fatal enrichment failure. The aggregator
// accumulates these instead of aborting; callers decide presentation.
type SyncError struct {
	Stage   string `firestore:"stage" json:"stage"`
	Message string `firestore:"message" json:"message"`
}

// SheetInput is the projection of a ProductRecord handed to the layout
// engine: everything a single spec sheet needs. Variant sheets reuse the
// product's shared fields with the SKU overridden.
type SheetInput struct {
	Title        string    `json:"title"`
	SKU          string    `json:"sku"`
	Description  string    `json:"description"`
	MainImageURL string    `json:"mainImageUrl,omitempty"`
	Specs        []Spec    `json:"specs,omitempty"`
	Features     []Feature `json:"features,omitempty"`
}

// SheetInput builds the layout-engine projection for the main product.
func (p *ProductRecord) SheetInput() SheetInput {
	return SheetInput{
		Title:        p.Title,
		SKU:          p.SKU,
		Description:  p.Description,
		MainImageURL: p.MainImageURL,
		Specs:        p.Specs,
		Features:     p.Features,
	}
}

// VariantSheetInput builds the projection for one variant's sheet: shared
// title/specs/description/features, variant SKU.
func (p *ProductRecord) VariantSheetInput(v Variant) SheetInput {
	in := p.SheetInput()
	in.SKU = v.SKU
	return in
}
