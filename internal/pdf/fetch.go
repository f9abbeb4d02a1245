package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxImageBytes bounds how much of a remote image is read into memory.
const maxImageBytes = 20 << 20

// ImageFetcher retrieves a remote image and reports its format as one of the
// type strings the PDF backend understands ("PNG", "JPG", "GIF").
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, imageType string, err error)
}

// HTTPImageFetcher fetches images over plain HTTP GET.
type HTTPImageFetcher struct {
	Client *http.Client
}

func NewHTTPImageFetcher() *HTTPImageFetcher {
	return &HTTPImageFetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building image request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading image body: %w", err)
	}

	imgType, err := imageTypeFor(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, "", err
	}
	return data, imgType, nil
}

// imageTypeFor resolves the backend image type from the response content type,
// falling back to content sniffing when the header is absent or generic.
func imageTypeFor(contentType string, data []byte) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}

	switch ct {
	case "image/png":
		return "PNG", nil
	case "image/jpeg", "image/jpg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image content type %q", ct)
	}
}

// decodeImageMeta sniffs the backend image type and pixel dimensions of raw
// image bytes.
func decodeImageMeta(data []byte) (imgType string, w, h int, err error) {
	imgType, err = imageTypeFor("", data)
	if err != nil {
		return "", 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("decoding image header: %w", err)
	}
	return imgType, cfg.Width, cfg.Height, nil
}

// fetchedImage is an image resolved ahead of layout. Width and Height are
// the pixel dimensions from the image header; layout only uses their ratio.
type fetchedImage struct {
	Data   []byte
	Type   string
	Width  int
	Height int
}

// prefetchImages resolves all remote images for a sheet concurrently. Each
// URL fails independently; failures are returned keyed by URL so the layout
// can skip the affected element and the caller can log them. The returned
// maps never share a key.
func prefetchImages(ctx context.Context, fetcher ImageFetcher, urls []string) (map[string]fetchedImage, map[string]error) {
	images := make(map[string]fetchedImage)
	failures := make(map[string]error)
	if fetcher == nil || len(urls) == 0 {
		return images, failures
	}

	// Dedupe so a URL shared between the hero and a feature tile is fetched
	// once.
	seen := make(map[string]struct{}, len(urls))

	type result struct {
		url string
		img fetchedImage
		err error
	}
	results := make(chan result, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		g.Go(func() error {
			data, imgType, err := fetcher.Fetch(ctx, url)
			results <- result{url: url, img: fetchedImage{Data: data, Type: imgType}, err: err}
			return nil
		})
	}
	// Workers never return errors; failures travel through the channel.
	_ = g.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			failures[res.url] = res.err
			continue
		}
		// Reject undecodable data here so a corrupt image skips its layout
		// element instead of failing the whole document.
		cfg, _, err := image.DecodeConfig(bytes.NewReader(res.img.Data))
		if err != nil {
			failures[res.url] = fmt.Errorf("decoding image header: %w", err)
			continue
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			failures[res.url] = fmt.Errorf("image has degenerate dimensions %dx%d", cfg.Width, cfg.Height)
			continue
		}
		res.img.Width = cfg.Width
		res.img.Height = cfg.Height
		images[res.url] = res.img
	}
	return images, failures
}
