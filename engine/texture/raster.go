package texture

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Colors shared by the foreground and background layouts.
var (
	CardColor        = color.RGBA{R: 18, G: 18, B: 18, A: 255}
	ImageErrorColor  = color.RGBA{R: 42, G: 24, B: 24, A: 255}
	OverlayColor     = color.RGBA{A: 140} // rgba(0,0,0,0.55)
	textColor        = [4]float64{0.95, 0.95, 0.95, 1}
	mutedTextColor   = [4]float64{0.95, 0.95, 0.95, 0.6}
	pillColor        = [4]float64{1, 1, 1, 0.12}
	badgeColor       = [4]float64{0.93, 0.33, 0.24, 0.9}
	borderColor      = [4]float64{1, 1, 1, 0.08}
	errorTextColor   = [4]float64{1, 0.42, 0.42, 1}
	backgroundScale  = 2.0
	imageErrorString = "Image Error"
)

// fonts holds the font sources shared by every raster of a generator.
type fonts struct {
	regular *text.FontSource
	bold    *text.FontSource
}

func (f *fonts) close() {
	if f.regular != nil {
		f.regular.Close()
	}
	if f.bold != nil {
		f.bold.Close()
	}
}

// layout holds the pixel metrics of a square canvas of the given edge.
type layout struct {
	edge        float64
	padding     float64
	headerSize  float64
	tagSize     float64
	pillPadX    float64
	pillPadY    float64
	pillGap     float64
	borderWidth float64
}

func newLayout(edge int) layout {
	e := float64(edge)
	return layout{
		edge:        e,
		padding:     e * 0.04,
		headerSize:  e * 0.03,
		tagSize:     e * 0.022,
		pillPadX:    e * 0.015,
		pillPadY:    e * 0.008,
		pillGap:     e * 0.01,
		borderWidth: math.Max(1, e*0.002),
	}
}

// pillHeight is the height of one tag badge.
func (l layout) pillHeight() float64 {
	return l.tagSize + 2*l.pillPadY
}

// imageArea returns the rectangle left for the card image between header and tag row.
func (l layout) imageArea() (x, y, w, h float64) {
	top := l.padding*2 + l.headerSize
	bottom := l.edge - l.padding*2 - l.pillHeight()
	return l.padding, top, l.edge - 2*l.padding, math.Max(0, bottom-top)
}

// FitRect scales a srcW x srcH image to fit inside the w x h box at (x, y), preserving the
// aspect ratio and centering on both axes.
//
// Returns:
//   - dx, dy, dw, dh: the destination rectangle
func FitRect(srcW, srcH int, x, y, w, h float64) (dx, dy, dw, dh float64) {
	if srcW <= 0 || srcH <= 0 || w <= 0 || h <= 0 {
		return x, y, 0, 0
	}
	scale := math.Min(w/float64(srcW), h/float64(srcH))
	dw, dh = float64(srcW)*scale, float64(srcH)*scale
	return x + (w-dw)/2, y + (h-dh)/2, dw, dh
}

// CoverRect scales a srcW x srcH image to cover an edge x edge square at factor times the
// minimum cover scale, centered.
//
// Returns:
//   - dx, dy, dw, dh: the destination rectangle
func CoverRect(srcW, srcH int, edge, factor float64) (dx, dy, dw, dh float64) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0, 0, 0
	}
	scale := math.Max(edge/float64(srcW), edge/float64(srcH)) * factor
	dw, dh = float64(srcW)*scale, float64(srcH)*scale
	return (edge - dw) / 2, (edge - dh) / 2, dw, dh
}

// newCanvas allocates the raster surface, converting allocation panics into ErrRasterUnavailable.
func newCanvas(edge int) (dc *gg.Context, err error) {
	if edge <= 0 {
		return nil, fmt.Errorf("%w: edge %d", ErrRasterUnavailable, edge)
	}
	defer func() {
		if r := recover(); r != nil {
			dc, err = nil, fmt.Errorf("%w: %v", ErrRasterUnavailable, r)
		}
	}()
	return gg.NewContext(edge, edge), nil
}

func setColor(dc *gg.Context, c [4]float64) {
	dc.SetRGBA(c[0], c[1], c[2], c[3])
}

func fillColor(dc *gg.Context, c color.RGBA) {
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
}

// truncate shortens s with an ellipsis until it measures no wider than maxWidth.
func truncate(dc *gg.Context, s string, maxWidth float64) string {
	if w, _ := dc.MeasureString(s); w <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			return candidate
		}
	}
	return ""
}

// rasterizeForeground draws the front content layer of a card.
//
// Parameters:
//   - edge: canvas edge in pixels
//   - card: the card record
//   - img: the decoded card image, nil when loading failed
//   - f: the font sources
//   - lang: the language used to uppercase the description
//
// Returns:
//   - image.Image: the raster
//   - error: ErrRasterUnavailable if the surface could not be created
func rasterizeForeground(edge int, card common.CardRecord, img image.Image, f *fonts, lang language.Tag) (image.Image, error) {
	dc, err := newCanvas(edge)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	l := newLayout(edge)

	fillColor(dc, CardColor)
	dc.DrawRectangle(0, 0, l.edge, l.edge)
	dc.Fill()

	// Header: client top-left, uppercased description top-right.
	header := f.bold.Face(l.headerSize)
	dc.SetFont(header)
	setColor(dc, textColor)
	baseline := l.padding + l.headerSize
	dc.DrawString(truncate(dc, card.Client, l.edge/2-l.padding), l.padding, baseline)

	desc := truncate(dc, cases.Upper(lang).String(card.Description), l.edge/2)
	if desc != "" {
		w, _ := dc.MeasureString(desc)
		setColor(dc, mutedTextColor)
		dc.DrawString(desc, l.edge-l.padding-w, baseline)
	}

	// Image, or the error placeholder.
	ax, ay, aw, ah := l.imageArea()
	if img != nil {
		b := img.Bounds()
		dx, dy, dw, dh := FitRect(b.Dx(), b.Dy(), ax, ay, aw, ah)
		if dw > 0 && dh > 0 {
			dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
				X:             dx,
				Y:             dy,
				DstWidth:      dw,
				DstHeight:     dh,
				Interpolation: gg.InterpBilinear,
			})
		}
	} else {
		fillColor(dc, ImageErrorColor)
		dc.DrawRectangle(ax, ay, aw, ah)
		dc.Fill()
		dc.SetFont(f.bold.Face(l.headerSize * 1.5))
		setColor(dc, errorTextColor)
		dc.DrawStringAnchored(imageErrorString, ax+aw/2, ay+ah/2, 0.5, 0.5)
	}

	// Tag row bottom-left; the optional badge leads the row.
	tagFace := f.regular.Face(l.tagSize)
	dc.SetFont(tagFace)
	pillY := l.edge - l.padding - l.pillHeight()
	x := l.padding
	labels := card.Tags
	if card.Badge != "" {
		labels = append([]string{card.Badge}, card.Tags...)
	}
	for i, tag := range labels {
		w, _ := dc.MeasureString(tag)
		pillW := w + 2*l.pillPadX
		if x+pillW > l.edge*0.7 {
			break
		}
		if i == 0 && card.Badge != "" {
			setColor(dc, badgeColor)
		} else {
			setColor(dc, pillColor)
		}
		dc.DrawRoundedRectangle(x, pillY, pillW, l.pillHeight(), l.pillHeight()/2)
		dc.Fill()
		setColor(dc, textColor)
		dc.DrawString(tag, x+l.pillPadX, pillY+l.pillPadY+l.tagSize*0.8)
		x += pillW + l.pillGap
	}

	// Date bottom-right.
	if card.Date != "" {
		w, _ := dc.MeasureString(card.Date)
		setColor(dc, mutedTextColor)
		dc.DrawString(card.Date, l.edge-l.padding-w, pillY+l.pillPadY+l.tagSize*0.8)
	}

	// Border frame.
	setColor(dc, borderColor)
	dc.SetLineWidth(l.borderWidth)
	half := l.borderWidth / 2
	dc.DrawRectangle(half, half, l.edge-l.borderWidth, l.edge-l.borderWidth)
	dc.Stroke()

	return toRGBA(dc.Image()), nil
}

// rasterizeBackground draws the hover-reveal layer: the image at twice its cover scale under
// the dark overlay, or the overlay alone when the image is missing. No blur is applied here.
//
// Parameters:
//   - edge: canvas edge in pixels
//   - img: the decoded card image, nil when loading failed
//
// Returns:
//   - image.Image: the raster
//   - error: ErrRasterUnavailable if the surface could not be created
func rasterizeBackground(edge int, img image.Image) (image.Image, error) {
	dc, err := newCanvas(edge)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	e := float64(edge)
	if img != nil {
		b := img.Bounds()
		dx, dy, dw, dh := CoverRect(b.Dx(), b.Dy(), e, backgroundScale)
		if dw > 0 && dh > 0 {
			dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
				X:             dx,
				Y:             dy,
				DstWidth:      dw,
				DstHeight:     dh,
				Interpolation: gg.InterpBilinear,
			})
		}
	}
	fillColor(dc, OverlayColor)
	dc.DrawRectangle(0, 0, e, e)
	dc.Fill()

	return toRGBA(dc.Image()), nil
}
