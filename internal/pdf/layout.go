package pdf

// Page geometry in PDF points (A4 portrait). All vertical cursor positions
// are measured from the bottom edge of the page and only ever decrease as
// content flows downward; drawing code converts to top-down coordinates at
// the last moment.
const (
	pageWidth  = 595.28
	pageHeight = 841.89

	headerHeight = 50
	footerHeight = 30
	marginX      = 20

	titleFontSize  = 30
	bodyFontSize   = 16
	headerFontSize = 14

	titleLineSpacing = 45
	bodyLineHeight   = 20

	logoMaxHeight = 35

	specRowHeight  = 25
	specCellInset  = 10
	featureTileW   = 170
	featureGap     = 20
	featuresPerRow = 3
)

// layoutState tracks the vertical flow of the sheet. CursorY drives the
// single-column sections (title, hero, features); once the two-column region
// begins, LeftColumnY and RightColumnY advance independently.
type layoutState struct {
	CursorY      float64
	LeftColumnY  float64
	RightColumnY float64
}

func newLayoutState() *layoutState {
	return &layoutState{CursorY: pageHeight - 135}
}

// beginColumns seeds both column cursors from the shared cursor. The columns
// are independent from here on; nothing below the two-column region reads
// them again.
func (st *layoutState) beginColumns() {
	st.LeftColumnY = st.CursorY + 20
	st.RightColumnY = st.CursorY + 20
}

// leftColumnWidth is the horizontal extent of the specs column; the
// description column starts just left of its right edge.
func leftColumnWidth() float64 { return pageWidth * 0.5 }

func rightColumnX() float64 { return leftColumnWidth() - 10 }

// toTop converts a from-bottom Y coordinate to the top-down coordinate system
// the drawing backend uses.
func toTop(y float64) float64 { return pageHeight - y }
