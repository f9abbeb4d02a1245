package pdf

import (
	"context"
	"fmt"
)

// Asset object names within the assets bucket.
const (
	fontRegularAsset  = "assets/fonts/Teko-Regular.ttf"
	fontSemiBoldAsset = "assets/fonts/Teko-SemiBold.ttf"
	logoAsset         = "assets/SD-header-logo.png"
)

// AssetSource reads a named object from the shared assets bucket.
// gcp.PDFStore satisfies this.
type AssetSource interface {
	ReadAsset(ctx context.Context, name string) ([]byte, error)
}

// AssetLoadError wraps a failure to fetch a font or logo asset. Callers treat
// it as non-fatal: the sheet renders with fallback fonts and without the
// logo.
type AssetLoadError struct {
	Asset string
	Err   error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("loading asset %q: %v", e.Asset, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// sheetAssets holds everything loaded from the assets bucket for one render.
// Nil slices mean the asset was unavailable.
type sheetAssets struct {
	FontRegular  []byte
	FontSemiBold []byte
	Logo         []byte
}

// loadSheetAssets fetches the brand fonts and logo. Each asset fails
// independently; the first error per asset is returned alongside whatever
// loaded so the caller can log and degrade.
func loadSheetAssets(ctx context.Context, src AssetSource) (*sheetAssets, []error) {
	assets := &sheetAssets{}
	if src == nil {
		return assets, nil
	}

	var errs []error
	load := func(name string, dst *[]byte) {
		data, err := src.ReadAsset(ctx, name)
		if err != nil {
			errs = append(errs, &AssetLoadError{Asset: name, Err: err})
			return
		}
		*dst = data
	}

	load(fontRegularAsset, &assets.FontRegular)
	load(fontSemiBoldAsset, &assets.FontSemiBold)
	load(logoAsset, &assets.Logo)
	return assets, errs
}
