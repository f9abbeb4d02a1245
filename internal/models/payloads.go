package models

import (
	"encoding/json"
	"strconv"
)

// These structs define the JSON payloads exchanged with the upstream catalog
// platform and between the entry-point functions and their callers.

// RawProduct is the product payload carried by an upstream webhook or handed
// directly to the manual-sync entry point. IDs arrive numeric from webhooks
// and as strings from manual triggers, so they decode through FlexID.
type RawProduct struct {
	ID       FlexID       `json:"id"`
	Title    string       `json:"title"`
	Handle   string       `json:"handle"`
	BodyHTML string       `json:"body_html"`
	Status   string       `json:"status"`
	AdminGID string       `json:"admin_graphql_api_id"`
	Variants []RawVariant `json:"variants"`
}

// RawVariant is the variant stub inside a webhook payload.
type RawVariant struct {
	ID  FlexID `json:"id"`
	SKU string `json:"sku"`
}

// FlexID decodes either a JSON number or a JSON string into its string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = FlexID(s)
	return nil
}

func (f FlexID) String() string { return string(f) }

// IsZero reports whether the ID is absent or a literal zero.
func (f FlexID) IsZero() bool {
	if f == "" {
		return true
	}
	n, err := strconv.ParseInt(string(f), 10, 64)
	return err == nil && n == 0
}

// DocumentResult reports the outcome of one generated document (main product
// or one variant) within a sync run. Partial success must be observable in the
// response payload, not just in logs.
type DocumentResult struct {
	Target string `json:"target"`
	SKU    string `json:"sku,omitempty"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SyncResult is the response body of one sync invocation.
type SyncResult struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	ProductID string           `json:"productId,omitempty"`
	Changed   bool             `json:"changed"`
	Documents []DocumentResult `json:"documents,omitempty"`
}

// GeneratePDFRequest is the input of the one-shot generate-pdf function.
type GeneratePDFRequest struct {
	Product SheetInput `json:"product"`
}

// GeneratePDFResponse is its output.
type GeneratePDFResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Key    string `json:"key"`
}

// SyncRequestedEvent is the Pub/Sub message payload of the sync-requested
// CloudEvent entry point (Eventarc wraps it in MessagePublishedData).
type SyncRequestedEvent struct {
	Product RawProduct `json:"product"`
	Reason  string     `json:"reason,omitempty"`
}
