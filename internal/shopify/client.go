package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"github.com/straydogstrength/specsheetflow/internal/models"
)

// UpstreamError reports a transport, HTTP or GraphQL failure from the catalog
// API. Recoverable during aggregation, fatal during initial validation.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NotFoundError reports that an expected entity (image, file URL, metaobject)
// is absent upstream. Treated as "feature unavailable", never fatal during
// aggregation.
type NotFoundError struct {
	Op      string
	Subject string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog %s: %s not found", e.Op, e.Subject)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

const (
	metafieldNamespace = "custom"
	specsKey           = "specs"
	featuresKey        = "product_features"
	pdfLinkKey         = "pdf_link"
	featureTitleField  = "feature_title"
	featureImageField  = "feature_image"
	maxFeatures        = 3
)

// Metafield is a resolved metafield reference.
type Metafield struct {
	ID    string
	Value string
}

// UserError is a field-scoped error the catalog API returns inside an
// otherwise successful mutation response.
type UserError struct {
	Field   json.RawMessage `json:"field"`
	Message string          `json:"message"`
}

// DeleteFileResult reports a file deletion. Partial failure is surfaced in
// Errors, never as a Go error.
type DeleteFileResult struct {
	DeletedIDs []string
	Errors     []UserError
}

// MetafieldSetResult reports a metafield upsert.
type MetafieldSetResult struct {
	Success    bool
	Metafields []MetafieldNode
	Errors     []UserError
}

// MetafieldNode is one metafield echoed back by a mutation.
type MetafieldNode struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// Client issues typed queries against the catalog admin GraphQL endpoint and
// returns normalized, nullable-safe results. Untyped JSON never leaves this
// package.
type Client struct {
	gql         *graphql.Client
	accessToken string
}

// NewClient creates a catalog client for one shop. The access token is sent
// per request; construction never fails on missing credentials because the
// aggregator validates them first.
func NewClient(shopDomain, apiVersion, accessToken string) *Client {
	domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(shopDomain, "https://"), "http://"), "/")
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, apiVersion)
	return newClientWithEndpoint(endpoint, accessToken)
}

func newClientWithEndpoint(endpoint, accessToken string) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		gql:         graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
		accessToken: accessToken,
	}
}

// run executes one request with the access-token header and maps any failure
// to an UpstreamError tagged with the operation name.
func (c *Client) run(ctx context.Context, op, query string, vars map[string]interface{}, out interface{}) error {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	if err := c.gql.Run(ctx, req, out); err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	return nil
}

func productGID(productID string) string {
	return "gid://shopify/Product/" + productID
}

func variantGID(variantID string) string {
	return "gid://shopify/ProductVariant/" + variantID
}

// FetchVariant fetches one variant with its linked document URL. A missing
// pdf_link metafield (or a link that is not yet resolvable) yields an empty
// PDFLink, not an error.
func (c *Client) FetchVariant(ctx context.Context, variantID string) (models.Variant, error) {
	var resp struct {
		ProductVariant *struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			SKU     string `json:"sku"`
			PDFLink *struct {
				Value string `json:"value"`
			} `json:"pdfLink"`
		} `json:"productVariant"`
	}
	vars := map[string]interface{}{
		"namespace": metafieldNamespace,
		"key":       pdfLinkKey,
		"ownerId":   variantGID(variantID),
	}
	if err := c.run(ctx, "fetchVariant", VariantQuery, vars, &resp); err != nil {
		return models.Variant{}, err
	}
	if resp.ProductVariant == nil {
		return models.Variant{}, &NotFoundError{Op: "fetchVariant", Subject: "variant " + variantID}
	}

	v := models.Variant{
		ID:    resp.ProductVariant.ID,
		Title: resp.ProductVariant.Title,
		SKU:   resp.ProductVariant.SKU,
	}
	if resp.ProductVariant.PDFLink != nil && resp.ProductVariant.PDFLink.Value != "" {
		url, err := c.ResolveFileURL(ctx, resp.ProductVariant.PDFLink.Value)
		if err != nil && !IsNotFound(err) {
			return models.Variant{}, err
		}
		v.PDFLink = url
	}
	return v, nil
}

// FetchMainImageURL fetches the product's first image URL.
func (c *Client) FetchMainImageURL(ctx context.Context, productID string) (string, error) {
	var resp struct {
		Product *struct {
			Images struct {
				Edges []struct {
					Node struct {
						URL string `json:"url"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"images"`
		} `json:"product"`
	}
	vars := map[string]interface{}{"productId": productGID(productID)}
	if err := c.run(ctx, "fetchMainImage", ProductImageQuery, vars, &resp); err != nil {
		return "", err
	}
	if resp.Product == nil || len(resp.Product.Images.Edges) == 0 || resp.Product.Images.Edges[0].Node.URL == "" {
		return "", &NotFoundError{Op: "fetchMainImage", Subject: "product image"}
	}
	return resp.Product.Images.Edges[0].Node.URL, nil
}

type productMetafieldResponse struct {
	Product *struct {
		Metafield *struct {
			ID    string `json:"id"`
			Value string `json:"value"`
			Type  string `json:"type"`
		} `json:"metafield"`
	} `json:"product"`
}

func (c *Client) fetchProductMetafield(ctx context.Context, op, productID, key string) (*Metafield, error) {
	var resp productMetafieldResponse
	vars := map[string]interface{}{
		"productId": productGID(productID),
		"namespace": metafieldNamespace,
		"key":       key,
	}
	if err := c.run(ctx, op, ProductMetafieldQuery, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Product == nil || resp.Product.Metafield == nil || resp.Product.Metafield.Value == "" {
		return nil, nil
	}
	return &Metafield{ID: resp.Product.Metafield.ID, Value: resp.Product.Metafield.Value}, nil
}

// MetaobjectField is one field of a resolved metaobject.
type MetaobjectField struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FetchMetaobject resolves a metaobject ID to its fields.
func (c *Client) FetchMetaobject(ctx context.Context, metaobjectID string) ([]MetaobjectField, error) {
	var resp struct {
		Metaobject *struct {
			DisplayName string            `json:"displayName"`
			Fields      []MetaobjectField `json:"fields"`
		} `json:"metaobject"`
	}
	vars := map[string]interface{}{"id": metaobjectID}
	if err := c.run(ctx, "fetchMetaobject", MetaobjectQuery, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Metaobject == nil {
		return nil, &NotFoundError{Op: "fetchMetaobject", Subject: metaobjectID}
	}
	return resp.Metaobject.Fields, nil
}

// FetchSpecs returns the product's spec rows, or nil (and no error) when no
// specs metafield is set.
func (c *Client) FetchSpecs(ctx context.Context, productID string) ([]models.Spec, error) {
	mf, err := c.fetchProductMetafield(ctx, "fetchSpecs", productID, specsKey)
	if err != nil {
		return nil, err
	}
	if mf == nil {
		return nil, nil
	}
	fields, err := c.FetchMetaobject(ctx, mf.Value)
	if err != nil {
		return nil, err
	}
	specs := make([]models.Spec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, models.Spec{Key: f.Key, Value: f.Value})
	}
	return specs, nil
}

// FetchFeatures resolves the product's feature metaobjects (at most the first
// 3 listed IDs) to title/image pairs. An absent metafield yields an empty
// slice.
func (c *Client) FetchFeatures(ctx context.Context, productID string) ([]models.Feature, error) {
	mf, err := c.fetchProductMetafield(ctx, "fetchFeatures", productID, featuresKey)
	if err != nil {
		return nil, err
	}
	if mf == nil {
		return []models.Feature{}, nil
	}

	var featureIDs []string
	if err := json.Unmarshal([]byte(mf.Value), &featureIDs); err != nil {
		return nil, &UpstreamError{Op: "fetchFeatures", Err: fmt.Errorf("malformed feature id list: %w", err)}
	}
	if len(featureIDs) > maxFeatures {
		featureIDs = featureIDs[:maxFeatures]
	}

	features := make([]models.Feature, 0, len(featureIDs))
	for _, id := range featureIDs {
		fields, err := c.FetchMetaobject(ctx, id)
		if err != nil {
			return nil, err
		}
		var feature models.Feature
		for _, f := range fields {
			switch f.Key {
			case featureTitleField:
				feature.Title = f.Value
			case featureImageField:
				url, err := c.FetchMediaImageURL(ctx, f.Value)
				if err != nil {
					return nil, err
				}
				feature.ImageURL = url
			}
		}
		features = append(features, feature)
	}
	return features, nil
}

// FetchMediaImageURL resolves a MediaImage node ID to its image URL.
func (c *Client) FetchMediaImageURL(ctx context.Context, mediaImageID string) (string, error) {
	var resp struct {
		Node *struct {
			ID    string `json:"id"`
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"node"`
	}
	vars := map[string]interface{}{"id": mediaImageID}
	if err := c.run(ctx, "fetchMediaImage", MediaImageQuery, vars, &resp); err != nil {
		return "", err
	}
	if resp.Node == nil || resp.Node.Image == nil || resp.Node.Image.URL == "" {
		return "", &NotFoundError{Op: "fetchMediaImage", Subject: mediaImageID}
	}
	return resp.Node.Image.URL, nil
}

// FetchPDFMetafield returns the product's pdf_link metafield, or nil when none
// is set.
func (c *Client) FetchPDFMetafield(ctx context.Context, productID string) (*Metafield, error) {
	return c.fetchProductMetafield(ctx, "fetchPdfMetafield", productID, pdfLinkKey)
}

// ResolveFileURL resolves a GenericFile node ID to its direct URL. A freshly
// created file may not be resolvable yet; that surfaces as a NotFoundError.
func (c *Client) ResolveFileURL(ctx context.Context, fileID string) (string, error) {
	var resp struct {
		Node *struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"node"`
	}
	vars := map[string]interface{}{"fileId": fileID}
	if err := c.run(ctx, "resolveFileUrl", FileURLQuery, vars, &resp); err != nil {
		return "", err
	}
	if resp.Node == nil || resp.Node.URL == "" {
		return "", &NotFoundError{Op: "resolveFileUrl", Subject: fileID}
	}
	return resp.Node.URL, nil
}

// CreateFile registers a remote file from a source URL and returns its ID.
func (c *Client) CreateFile(ctx context.Context, sourceURL, altText string) (string, error) {
	var resp struct {
		FileCreate *struct {
			Files []struct {
				ID string `json:"id"`
			} `json:"files"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"fileCreate"`
	}
	vars := map[string]interface{}{
		"files": map[string]interface{}{
			"alt":            altText,
			"contentType":    "FILE",
			"originalSource": sourceURL,
		},
	}
	if err := c.run(ctx, "createFile", FileCreateMutation, vars, &resp); err != nil {
		return "", err
	}
	if resp.FileCreate == nil {
		return "", &UpstreamError{Op: "createFile", Err: fmt.Errorf("empty fileCreate response")}
	}
	if len(resp.FileCreate.UserErrors) > 0 {
		return "", &UpstreamError{Op: "createFile", Err: fmt.Errorf("%s", resp.FileCreate.UserErrors[0].Message)}
	}
	if len(resp.FileCreate.Files) == 0 {
		return "", &UpstreamError{Op: "createFile", Err: fmt.Errorf("no file in fileCreate response")}
	}
	return resp.FileCreate.Files[0].ID, nil
}

// DeleteFile deletes a registered file. Partial failures are reported in the
// result, never as an error; the caller inspects Errors.
func (c *Client) DeleteFile(ctx context.Context, fileID string) (DeleteFileResult, error) {
	var resp struct {
		FileDelete *struct {
			DeletedFileIDs []string    `json:"deletedFileIds"`
			UserErrors     []UserError `json:"userErrors"`
		} `json:"fileDelete"`
	}
	vars := map[string]interface{}{"input": []string{fileID}}
	if err := c.run(ctx, "deleteFile", FileDeleteMutation, vars, &resp); err != nil {
		return DeleteFileResult{}, err
	}
	if resp.FileDelete == nil {
		return DeleteFileResult{}, nil
	}
	return DeleteFileResult{
		DeletedIDs: resp.FileDelete.DeletedFileIDs,
		Errors:     resp.FileDelete.UserErrors,
	}, nil
}

// SetProductPDFLink upserts the product's pdf_link metafield to reference
// fileID. The upsert is idempotent upstream.
func (c *Client) SetProductPDFLink(ctx context.Context, productID, fileID string) (MetafieldSetResult, error) {
	var resp struct {
		MetafieldsSet *struct {
			Metafields []MetafieldNode `json:"metafields"`
			UserErrors []UserError     `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	vars := map[string]interface{}{
		"metafields": []map[string]interface{}{
			{
				"ownerId":   productGID(productID),
				"namespace": metafieldNamespace,
				"key":       pdfLinkKey,
				"type":      "file_reference",
				"value":     fileID,
			},
		},
	}
	if err := c.run(ctx, "setProductPdfLink", MetafieldsSetMutation, vars, &resp); err != nil {
		return MetafieldSetResult{}, err
	}
	if resp.MetafieldsSet == nil {
		return MetafieldSetResult{}, &UpstreamError{Op: "setProductPdfLink", Err: fmt.Errorf("empty metafieldsSet response")}
	}
	if len(resp.MetafieldsSet.UserErrors) > 0 {
		return MetafieldSetResult{
			Success: false,
			Errors:  resp.MetafieldsSet.UserErrors,
		}, &UpstreamError{Op: "setProductPdfLink", Err: fmt.Errorf("%s", resp.MetafieldsSet.UserErrors[0].Message)}
	}
	return MetafieldSetResult{
		Success:    true,
		Metafields: resp.MetafieldsSet.Metafields,
	}, nil
}
