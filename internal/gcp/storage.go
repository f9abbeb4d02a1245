package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// UploadError reports a failed object-storage write. It is fatal for the
// document being uploaded but not for the rest of the sync run.
type UploadError struct {
	Object string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Object, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PDFStore writes generated documents to a bucket and serves the static layout
// assets (fonts, logo) the generator embeds.
type PDFStore struct {
	client       *storage.Client
	pdfBucket    string
	assetsBucket string
}

// NewPDFStore creates a PDFStore writing documents to pdfBucket and reading
// assets from assetsBucket.
func NewPDFStore(ctx context.Context, pdfBucket, assetsBucket string) (*PDFStore, error) {
	if pdfBucket == "" || assetsBucket == "" {
		return nil, fmt.Errorf("pdfBucket and assetsBucket must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &PDFStore{client: client, pdfBucket: pdfBucket, assetsBucket: assetsBucket}, nil
}

// PDFObjectKey builds a collision-resistant object key for one generated
// document: pdfs/<title-slug>_<unix-timestamp>_<random>.pdf.
func PDFObjectKey(title string, now time.Time) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Join(strings.Fields(slug), "_")
	if slug == "" {
		slug = "sheet"
	}
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("pdfs/%s_%d_%s.pdf", slug, now.Unix(), suffix)
}

// PDFObjectKey is the method form used through the uploader interface.
func (s *PDFStore) PDFObjectKey(title string, now time.Time) string {
	return PDFObjectKey(title, now)
}

// UploadPDF writes the document bytes under key with bounded retries and a
// doubling backoff, and returns the object's public URL. The conditional
// writer keeps a retried attempt from clobbering a write that actually landed.
func (s *PDFStore) UploadPDF(ctx context.Context, key string, data []byte) (string, error) {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			w := s.client.Bucket(s.pdfBucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
			w.ContentType = "application/pdf"

			if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to storage failed: %w", err)
			}
			if err := w.Close(); err != nil {
				if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
					// A previous attempt finished after its deadline fired.
					return nil
				}
				return fmt.Errorf("failed to finalize storage write: %w", err)
			}
			return nil
		}()

		if err == nil {
			return s.PublicURL(key), nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"object", key,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "object", key, "error", ctx.Err())
			return "", &UploadError{Object: key, Err: ctx.Err()}
		}
	}
	slog.Error("Upload failed after all retries.", "object", key, "error", lastErr)
	return "", &UploadError{Object: key, Err: lastErr}
}

// PublicURL returns the plain HTTPS URL of an uploaded object.
func (s *PDFStore) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.pdfBucket, key)
}

// SignedURL issues a V4 signed URL for expiring retrieval of a document.
func (s *PDFStore) SignedURL(key string, expiry time.Duration) (string, error) {
	url, err := s.client.Bucket(s.pdfBucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %s: %w", key, err)
	}
	return url, nil
}

// ReadAsset streams one static asset (font, logo) from the assets bucket.
func (s *PDFStore) ReadAsset(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.assetsBucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.assetsBucket, name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.assetsBucket, name, err)
	}
	return data, nil
}

// Delete removes one uploaded document. Missing objects are not an error; a
// retried sync may have cleaned up already.
func (s *PDFStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.pdfBucket).Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
