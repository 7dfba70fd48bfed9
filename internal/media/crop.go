package media

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultMaxPixels bounds decoded uploads and crop canvases (50 megapixels).
const DefaultMaxPixels int64 = 50_000_000

var (
	// ErrEmptyCrop is returned when a crop resolves to less than one pixel.
	ErrEmptyCrop = errors.New("media: crop area is empty")
	// ErrCropTooLarge is returned when the output canvas exceeds the pixel budget.
	ErrCropTooLarge = errors.New("media: crop canvas too large")
)

// CropRect is a crop rectangle in displayed-image pixels.
type CropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CropParams describes a crop made against a scaled on-screen preview.
// ScaleX and ScaleY convert displayed pixels to natural pixels; PixelRatio is
// the device pixel ratio. Rotation (degrees) and Zoom apply about the centre of
// the output canvas. Zero scale, ratio and zoom mean 1.
type CropParams struct {
	Rect       CropRect `json:"rect"`
	ScaleX     float64  `json:"scale_x"`
	ScaleY     float64  `json:"scale_y"`
	PixelRatio float64  `json:"pixel_ratio"`
	Rotation   float64  `json:"rotation"`
	Zoom       float64  `json:"zoom"`
}

func orOne(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

func (p CropParams) normalized() CropParams {
	p.ScaleX = orOne(p.ScaleX)
	p.ScaleY = orOne(p.ScaleY)
	p.PixelRatio = orOne(p.PixelRatio)
	p.Zoom = orOne(p.Zoom)
	return p
}

// CanvasSize is the output size in device pixels:
// floor(w*scaleX*ratio) x floor(h*scaleY*ratio).
func (p CropParams) CanvasSize() (int, int) {
	p = p.normalized()
	w := int(math.Floor(p.Rect.Width * p.ScaleX * p.PixelRatio))
	h := int(math.Floor(p.Rect.Height * p.ScaleY * p.PixelRatio))
	return w, h
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Within clamps the crop rectangle to a source of w x h natural pixels.
// Portions of the rectangle that fall outside the source are dropped.
func (p CropParams) Within(w, h int) CropParams {
	p = p.normalized()
	r := p.Rect
	if r.X < 0 {
		r.Width += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.Height += r.Y
		r.Y = 0
	}
	r.Width = math.Min(r.Width, float64(w)/p.ScaleX-r.X)
	r.Height = math.Min(r.Height, float64(h)/p.ScaleY-r.Y)
	p.Rect = r
	return p
}

// transform maps source pixels onto the output canvas. In canvas units the
// crop origin lands on (0,0); rotation and zoom pivot on the canvas centre and
// the whole canvas is then scaled by the pixel ratio.
func (p CropParams) transform(srcMin image.Point) f64.Aff3 {
	p = p.normalized()
	ox := p.Rect.X*p.ScaleX + float64(srcMin.X)
	oy := p.Rect.Y*p.ScaleY + float64(srcMin.Y)
	cx := p.Rect.Width * p.ScaleX / 2
	cy := p.Rect.Height * p.ScaleY / 2

	rad := p.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	k := p.PixelRatio * p.Zoom

	// dst = ratio * (C + zoom*R*(src - O - C))
	a00, a01 := k*cos, -k*sin
	a10, a11 := k*sin, k*cos
	px, py := ox+cx, oy+cy
	tx := p.PixelRatio*cx - (a00*px + a01*py)
	ty := p.PixelRatio*cy - (a10*px + a11*py)
	return f64.Aff3{a00, a01, tx, a10, a11, ty}
}

// Crop renders the selected region of src onto a new canvas, limited to
// DefaultMaxPixels.
func Crop(src image.Image, p CropParams) (*image.RGBA, error) {
	return CropWithin(src, p, DefaultMaxPixels)
}

// CropWithin is Crop with an explicit pixel budget for the output canvas.
// The crop rectangle is clamped to the bounds of src first.
func CropWithin(src image.Image, p CropParams, maxPixels int64) (*image.RGBA, error) {
	r := p.Rect
	if !finite(r.X) || !finite(r.Y) || !finite(r.Width) || !finite(r.Height) {
		return nil, ErrEmptyCrop
	}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, ErrEmptyCrop
	}
	b := src.Bounds()
	p = p.Within(b.Dx(), b.Dy())
	if p.Rect.Width <= 0 || p.Rect.Height <= 0 {
		return nil, fmt.Errorf("%w: outside the source", ErrEmptyCrop)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if fw, fh := p.Rect.Width*p.ScaleX*p.PixelRatio, p.Rect.Height*p.ScaleY*p.PixelRatio; fw*fh > float64(maxPixels) {
		return nil, fmt.Errorf("%w: %.0fx%.0f", ErrCropTooLarge, fw, fh)
	}
	w, h := p.CanvasSize()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyCrop, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Transform(dst, p.transform(b.Min), src, b, draw.Over, nil)
	return dst, nil
}
