package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// newTestClient points a Client at a local server. The handler returns the
// raw JSON body for one GraphQL request.
func newTestClient(t *testing.T, handler func(req gqlRequest) string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "test-token" {
			t.Errorf("missing or wrong access token header: %q", got)
		}
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding graphql request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(handler(req))); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return newClientWithEndpoint(srv.URL, "test-token")
}

func TestFetchVariantWithLinkedFile(t *testing.T) {
	client := newTestClient(t, func(req gqlRequest) string {
		switch {
		case strings.Contains(req.Query, "productVariant("):
			if req.Variables["ownerId"] != "gid://shopify/ProductVariant/501" {
				t.Errorf("unexpected ownerId: %v", req.Variables["ownerId"])
			}
			return `{"data":{"productVariant":{"id":"gid://shopify/ProductVariant/501","title":"10 inch","sku":"LB-10","pdfLink":{"value":"gid://shopify/GenericFile/9"}}}}`
		case strings.Contains(req.Query, "GenericFile"):
			return `{"data":{"node":{"id":"gid://shopify/GenericFile/9","url":"https://files.example/v.pdf"}}}`
		default:
			t.Errorf("unexpected query: %s", req.Query)
			return `{"data":{}}`
		}
	})

	v, err := client.FetchVariant(context.Background(), "501")
	if err != nil {
		t.Fatalf("FetchVariant returned error: %v", err)
	}
	if v.SKU != "LB-10" || v.PDFLink != "https://files.example/v.pdf" {
		t.Errorf("unexpected variant: %+v", v)
	}
}

func TestFetchVariantMissing(t *testing.T) {
	client := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"productVariant":null}}`
	})

	_, err := client.FetchVariant(context.Background(), "999")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFetchSpecs(t *testing.T) {
	client := newTestClient(t, func(req gqlRequest) string {
		switch {
		case strings.Contains(req.Query, "metafield(namespace:"):
			return `{"data":{"product":{"metafield":{"id":"mf1","value":"gid://shopify/Metaobject/7","type":"metaobject_reference"}}}}`
		case strings.Contains(req.Query, "metaobject("):
			return `{"data":{"metaobject":{"displayName":"Specs","fields":[{"key":"weight","type":"single_line_text_field","value":"185 lb"},{"key":"finish","type":"single_line_text_field","value":"powder coat"}]}}}`
		default:
			t.Errorf("unexpected query: %s", req.Query)
			return `{"data":{}}`
		}
	})

	specs, err := client.FetchSpecs(context.Background(), "101")
	if err != nil {
		t.Fatalf("FetchSpecs returned error: %v", err)
	}
	if len(specs) != 2 || specs[0].Key != "weight" || specs[1].Value != "powder coat" {
		t.Errorf("unexpected specs: %+v", specs)
	}
}

func TestFetchSpecsAbsentMetafield(t *testing.T) {
	client := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"product":{"metafield":null}}}`
	})

	specs, err := client.FetchSpecs(context.Background(), "101")
	if err != nil {
		t.Fatalf("an absent metafield is not an error: %v", err)
	}
	if specs != nil {
		t.Errorf("expected nil specs, got %+v", specs)
	}
}

func TestFetchFeaturesCapsAtThree(t *testing.T) {
	metaobjectCalls := 0
	client := newTestClient(t, func(req gqlRequest) string {
		switch {
		case strings.Contains(req.Query, "metafield(namespace:"):
			return `{"data":{"product":{"metafield":{"id":"mf2","value":"[\"gid://m/1\",\"gid://m/2\",\"gid://m/3\",\"gid://m/4\"]","type":"list.metaobject_reference"}}}}`
		case strings.Contains(req.Query, "metaobject("):
			metaobjectCalls++
			return `{"data":{"metaobject":{"displayName":"Feature","fields":[{"key":"feature_title","type":"single_line_text_field","value":"Knurling"},{"key":"feature_image","type":"file_reference","value":"gid://shopify/MediaImage/5"}]}}}`
		case strings.Contains(req.Query, "MediaImage"):
			return `{"data":{"node":{"id":"gid://shopify/MediaImage/5","image":{"url":"https://img.example/f.png"}}}}`
		default:
			t.Errorf("unexpected query: %s", req.Query)
			return `{"data":{}}`
		}
	})

	features, err := client.FetchFeatures(context.Background(), "101")
	if err != nil {
		t.Fatalf("FetchFeatures returned error: %v", err)
	}
	if len(features) != 3 {
		t.Errorf("expected the feature list capped at 3, got %d", len(features))
	}
	if metaobjectCalls != 3 {
		t.Errorf("expected 3 metaobject lookups, got %d", metaobjectCalls)
	}
	if features[0].Title != "Knurling" || features[0].ImageURL != "https://img.example/f.png" {
		t.Errorf("unexpected feature: %+v", features[0])
	}
}

func TestCreateFileUserErrors(t *testing.T) {
	client := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"fileCreate":{"files":[],"userErrors":[{"field":["files"],"message":"source url unreachable"}]}}}`
	})

	_, err := client.CreateFile(context.Background(), "https://storage.example/x.pdf", "x")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !strings.Contains(ue.Error(), "source url unreachable") {
		t.Errorf("user error message lost: %v", ue)
	}
}

func TestResolveFileURLNotReady(t *testing.T) {
	client := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"node":{"id":"gid://shopify/GenericFile/9","url":""}}}`
	})

	_, err := client.ResolveFileURL(context.Background(), "gid://shopify/GenericFile/9")
	if !IsNotFound(err) {
		t.Fatalf("an unresolvable file must surface as NotFoundError, got %v", err)
	}
}

func TestGraphQLErrorsMapToUpstreamError(t *testing.T) {
	client := newTestClient(t, func(gqlRequest) string {
		return `{"errors":[{"message":"Throttled"}]}`
	})

	_, err := client.FetchMainImageURL(context.Background(), "101")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Op != "fetchMainImage" {
		t.Errorf("operation tag lost: %q", ue.Op)
	}
}

func TestDeleteFilePartialFailure(t *testing.T) {
	client := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"fileDelete":{"deletedFileIds":[],"userErrors":[{"field":["fileIds"],"message":"File is referenced"}]}}}`
	})

	res, err := client.DeleteFile(context.Background(), "gid://shopify/GenericFile/9")
	if err != nil {
		t.Fatalf("partial delete failure must not be an error: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "File is referenced" {
		t.Errorf("expected the failure in the result, got %+v", res)
	}
}
