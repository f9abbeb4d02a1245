package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/straydogstrength/specsheetflow/internal/models"
)

// Brand palette.
var (
	brandRed  = [3]int{204, 32, 38}
	lightGray = [3]int{229, 229, 229}
)

const (
	brandFontFamily    = "Teko"
	fallbackFontFamily = "Helvetica"
)

// DocumentGenerationError reports a failure while assembling or serializing a
// spec sheet. Asset and image problems never surface here; only structural
// failures of the document itself do.
type DocumentGenerationError struct {
	Stage string
	Err   error
}

func (e *DocumentGenerationError) Error() string {
	return fmt.Sprintf("generating document (%s): %v", e.Stage, e.Err)
}

func (e *DocumentGenerationError) Unwrap() error { return e.Err }

// Generator renders single-page A4 product spec sheets. It is stateless and
// safe for concurrent use; all per-document state lives in the render.
type Generator struct {
	assets  AssetSource
	fetcher ImageFetcher
	siteURL string
}

// NewGenerator builds a Generator. assets may be nil, in which case every
// sheet renders with the fallback font and no logo.
func NewGenerator(assets AssetSource, fetcher ImageFetcher, siteURL string) *Generator {
	return &Generator{assets: assets, fetcher: fetcher, siteURL: siteURL}
}

// Generate renders one spec sheet and returns the finished PDF bytes. Missing
// or broken images and assets degrade the layout without failing the
// document; a structural failure returns a DocumentGenerationError.
func (g *Generator) Generate(ctx context.Context, in models.SheetInput) ([]byte, error) {
	logCtx := slog.With("component", "pdf-generator", "sku", in.SKU)

	var urls []string
	if in.MainImageURL != "" {
		urls = append(urls, in.MainImageURL)
	}
	for _, f := range in.Features {
		if f.ImageURL != "" {
			urls = append(urls, f.ImageURL)
		}
	}
	images, imgFailures := prefetchImages(ctx, g.fetcher, urls)
	for url, err := range imgFailures {
		logCtx.Warn("Image unavailable, skipping its layout element", "url", url, "error", err)
	}

	assets, assetErrs := loadSheetAssets(ctx, g.assets)
	for _, err := range assetErrs {
		logCtx.Warn("Asset unavailable, degrading layout", "error", err)
	}

	r := newSheetRender(assets, images, g.siteURL)
	if r.family == fallbackFontFamily && assets.FontRegular != nil {
		logCtx.Warn("Brand font could not be embedded, using fallback font")
	}

	r.drawHeader(in.SKU, assets.Logo)
	r.drawTitle(in.Title, r.hasImage(in.MainImageURL))
	r.drawHero(in.MainImageURL)

	r.st.beginColumns()
	r.drawSpecs(in.Specs)
	r.drawDescription(in.Description)

	r.drawFeatures(in.Features)
	r.drawFooter()

	if err := r.pdf.Error(); err != nil {
		return nil, &DocumentGenerationError{Stage: "render", Err: err}
	}

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, &DocumentGenerationError{Stage: "serialize", Err: err}
	}

	if err := validateDocument(buf.Bytes()); err != nil {
		return nil, &DocumentGenerationError{Stage: "validate", Err: err}
	}
	return buf.Bytes(), nil
}

// validateDocument runs a relaxed structural check over the finished bytes so
// a malformed sheet is caught before upload.
func validateDocument(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(bytes.NewReader(data), conf)
}

// sheetRender holds the drawing state for a single document.
type sheetRender struct {
	pdf        *fpdf.Fpdf
	family     string
	st         *layoutState
	images     map[string]fetchedImage
	registered map[string]struct{}
	siteURL    string
}

func newSheetRender(assets *sheetAssets, images map[string]fetchedImage, siteURL string) *sheetRender {
	pdf, family := newDocument(assets)
	return &sheetRender{
		pdf:        pdf,
		family:     family,
		st:         newLayoutState(),
		images:     images,
		registered: make(map[string]struct{}),
		siteURL:    siteURL,
	}
}

// newDocument creates the single-page canvas, embedding the brand fonts when
// available. Font embedding errors are sticky in the backend, so on failure
// the document is rebuilt from scratch around the core fallback font.
func newDocument(assets *sheetAssets) (*fpdf.Fpdf, string) {
	blank := func() *fpdf.Fpdf {
		doc := fpdf.NewCustom(&fpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "pt",
			Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
		})
		doc.SetAutoPageBreak(false, 0)
		doc.SetMargins(0, 0, 0)
		doc.AddPage()
		return doc
	}

	if assets != nil && assets.FontRegular != nil {
		doc := blank()
		doc.AddUTF8FontFromBytes(brandFontFamily, "", assets.FontRegular)
		if assets.FontSemiBold != nil {
			doc.AddUTF8FontFromBytes(brandFontFamily, "B", assets.FontSemiBold)
		}
		if doc.Ok() {
			return doc, brandFontFamily
		}
	}
	return blank(), fallbackFontFamily
}

func (r *sheetRender) hasImage(url string) bool {
	_, ok := r.images[url]
	return ok
}

// text draws s with its baseline at the given from-bottom y.
func (r *sheetRender) text(x, y, size float64, s string) {
	r.pdf.SetFont(r.family, "", size)
	r.pdf.Text(x, toTop(y), s)
}

func (r *sheetRender) textWidth(size float64, s string) float64 {
	r.pdf.SetFont(r.family, "", size)
	return r.pdf.GetStringWidth(s)
}

// placeImage registers the image under its URL on first use and draws it with
// its top edge at the given top-down y.
func (r *sheetRender) placeImage(name string, img fetchedImage, x, topY, w, h float64) {
	opts := fpdf.ImageOptions{ImageType: img.Type}
	if _, ok := r.registered[name]; !ok {
		r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		r.registered[name] = struct{}{}
	}
	r.pdf.ImageOptions(name, x, topY, w, h, false, opts, 0, "")
}

// drawHeader paints the red band, the right-aligned SKU/year line, and the
// logo on the left.
func (r *sheetRender) drawHeader(sku string, logo []byte) {
	r.pdf.SetFillColor(brandRed[0], brandRed[1], brandRed[2])
	r.pdf.Rect(0, 0, pageWidth, headerHeight, "F")

	line := fmt.Sprintf("YEAR: %d", time.Now().Year())
	if sku != "" {
		line = "SKU:" + sku + " | " + line
	}
	r.pdf.SetTextColor(255, 255, 255)
	w := r.textWidth(headerFontSize, line)
	r.text(pageWidth-w-marginX, pageHeight-32, headerFontSize, line)
	r.pdf.SetTextColor(0, 0, 0)

	if len(logo) == 0 {
		return
	}
	imgType, imgW, imgH, err := decodeImageMeta(logo)
	if err != nil {
		return
	}
	img := fetchedImage{Data: logo, Type: imgType, Width: imgW, Height: imgH}

	h := float64(img.Height)
	w = float64(img.Width)
	if h > logoMaxHeight {
		w *= logoMaxHeight / h
		h = logoMaxHeight
	}
	r.placeImage("header-logo", img, marginX, (headerHeight-h)/2, w, h)
}

// drawTitle wraps the product title under the header. The wrap budget
// narrows when a hero image shares the top of the page.
func (r *sheetRender) drawTitle(title string, hasHero bool) {
	maxW := pageWidth - 2*marginX
	if hasHero {
		maxW = pageWidth * 0.45
	}
	width := func(s string) float64 { return r.textWidth(titleFontSize, s) }
	for _, line := range WrapText(width, title, maxW) {
		r.text(marginX, r.st.CursorY, titleFontSize, line)
		r.st.CursorY -= titleLineSpacing
	}
}

// drawHero places the main product image on the right at half page width and
// drops the cursor below it.
func (r *sheetRender) drawHero(url string) {
	img, ok := r.images[url]
	if url == "" || !ok {
		return
	}
	w := pageWidth*0.5 - 10
	h := w * float64(img.Height) / float64(img.Width)
	x := pageWidth - w - marginX
	r.placeImage(url, img, x, 70, w, h)
	r.st.CursorY = pageHeight - headerHeight - h - 20
}

// specTableRows filters the raw spec list down to printable rows. The first
// entry is a header artifact of the upstream metaobject and internal keys are
// never shown.
func specTableRows(specs []models.Spec) []models.Spec {
	if len(specs) <= 1 {
		return nil
	}
	var rows []models.Spec
	for _, s := range specs[1:] {
		if s.Key == "target_product" {
			continue
		}
		rows = append(rows, s)
	}
	return rows
}

// formatSpecKey turns a snake_case key into Title Case for display.
func formatSpecKey(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

// formatSpecValue maps boolean flags to reader-facing values.
func formatSpecValue(key, value string) string {
	if key == "made_in_usa" {
		if value == "true" {
			return "Yes"
		}
		return "No"
	}
	return value
}

// drawSpecs renders the SPECS heading and the two-column key/value table in
// the left column. An empty row set still renders the heading.
func (r *sheetRender) drawSpecs(specs []models.Spec) {
	if len(specs) == 0 {
		return
	}
	r.st.LeftColumnY += 50
	r.text(marginX, r.st.LeftColumnY, titleFontSize, "SPECS")
	r.st.LeftColumnY -= 50

	colWidth := (leftColumnWidth() - 50) / 2
	r.pdf.SetDrawColor(brandRed[0], brandRed[1], brandRed[2])
	r.pdf.SetLineWidth(1)

	rows := specTableRows(specs)
	for _, row := range rows {
		lineY := toTop(r.st.LeftColumnY + specRowHeight)
		r.pdf.Line(marginX, lineY, marginX+colWidth*2, lineY)

		textY := r.st.LeftColumnY + specRowHeight/2.0 - 6
		r.text(marginX+specCellInset, textY, bodyFontSize, formatSpecKey(row.Key))
		r.text(marginX+colWidth+specCellInset, textY, bodyFontSize, formatSpecValue(row.Key, row.Value))

		r.st.LeftColumnY -= specRowHeight
	}
	if len(rows) > 0 {
		lineY := toTop(r.st.LeftColumnY + specRowHeight)
		r.pdf.Line(marginX, lineY, marginX+colWidth*2, lineY)
	}
}

// drawDescription sanitizes the description HTML and flows it down the right
// column, paragraph by paragraph.
func (r *sheetRender) drawDescription(raw string) {
	if raw == "" {
		return
	}
	text := SanitizeDescription(raw)
	paragraphs := Paragraphs(text)
	if len(paragraphs) == 0 {
		return
	}

	r.st.RightColumnY -= 50
	colX := rightColumnX()
	colWidth := pageWidth - colX - marginX
	width := func(s string) float64 { return r.textWidth(bodyFontSize, s) }

	for _, paragraph := range paragraphs {
		for _, line := range WrapText(width, paragraph, colWidth) {
			r.text(colX, r.st.RightColumnY, bodyFontSize, line)
			r.st.RightColumnY -= bodyLineHeight
		}
		r.st.RightColumnY -= bodyLineHeight / 2
	}
}

// drawFeatures lays out up to one row of feature tiles: image on top,
// caption centered beneath. A feature whose image is unavailable is skipped
// entirely.
func (r *sheetRender) drawFeatures(features []models.Feature) {
	if len(features) == 0 {
		return
	}
	r.st.CursorY -= 200
	r.text(marginX, r.st.CursorY, titleFontSize, "FEATURES")
	r.st.CursorY -= 30

	for i, feature := range features {
		if feature.ImageURL == "" {
			continue
		}
		img, ok := r.images[feature.ImageURL]
		if !ok {
			continue
		}

		column := i % featuresPerRow
		x := marginX + float64(column)*(featureTileW+featureGap)

		w := float64(featureTileW)
		h := w * float64(img.Height) / float64(img.Width)
		r.placeImage(feature.ImageURL, img, x, toTop(r.st.CursorY), w, h)

		if feature.Title != "" {
			capW := r.textWidth(bodyFontSize, feature.Title)
			capX := x + (featureTileW-capW)/2
			r.text(capX, r.st.CursorY-h-20, bodyFontSize, feature.Title)
		}
	}
	r.st.CursorY -= 40
}

// drawFooter paints the gray bar along the bottom edge with the site name
// centered inside it.
func (r *sheetRender) drawFooter() {
	r.pdf.SetFillColor(lightGray[0], lightGray[1], lightGray[2])
	r.pdf.Rect(0, toTop(footerHeight), pageWidth, footerHeight, "F")

	site := r.siteURL
	if site == "" {
		return
	}
	w := r.textWidth(bodyFontSize, site)
	r.text((pageWidth-w)/2, 9, bodyFontSize, site)
}
