package imaging

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Operation is one edit applied by Apply. The concrete types are Crop,
// Resize, Rotate and Flip.
type Operation interface {
	// Name is the lower-case verb used in logs, metrics and messages.
	Name() string
	validate() error
	// size returns the output dimensions for a w x h source.
	size(w, h int) (int, int)
	apply(src *image.NRGBA) *image.NRGBA
}

// Limits bounds the surface an operation may allocate.
type Limits struct {
	// MaxDimension caps the output width and height.
	MaxDimension int

	// MaxPixels caps the output width times height.
	MaxPixels int64
}

// DefaultLimits allow outputs up to 16384 pixels on a side and 100
// megapixels in total.
var DefaultLimits = Limits{
	MaxDimension: 16384,
	MaxPixels:    100_000_000,
}

func (l Limits) check(op string, w, h int) error {
	if l.MaxDimension > 0 && (w > l.MaxDimension || h > l.MaxDimension) {
		return invalidf(op, "output %dx%d exceeds the maximum dimension %d", w, h, l.MaxDimension)
	}
	if l.MaxPixels > 0 && int64(w)*int64(h) > l.MaxPixels {
		return invalidf(op, "output %dx%d exceeds the maximum of %d pixels", w, h, l.MaxPixels)
	}
	return nil
}

// Crop copies the rectangle (X, Y, Width, Height) of the source into a new
// surface of exactly Width x Height. Areas outside the source stay transparent.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resize scales the source to exactly Width x Height. The two axes scale
// independently.
type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rotate turns the source clockwise by Degrees about its center onto a canvas
// just large enough to hold every corner.
type Rotate struct {
	Degrees float64 `json:"degrees"`
}

// FlipDirection selects the mirror axis of a Flip.
type FlipDirection string

const (
	FlipHorizontal FlipDirection = "horizontal"
	FlipVertical   FlipDirection = "vertical"
)

// Flip mirrors the source. Horizontal mirrors across the vertical center
// axis, vertical across the horizontal one.
type Flip struct {
	Direction FlipDirection `json:"direction"`
}

// Apply runs op against src under DefaultLimits and returns a new Raster.
// src is never modified.
//
// Parameters are validated before any pixels are touched; a rejected
// operation returns a *TransformError wrapping ErrInvalidParameter.
func Apply(ctx context.Context, src *Raster, op Operation) (*Raster, error) {
	return DefaultLimits.Apply(ctx, src, op)
}

// Apply runs op against src, rejecting outputs larger than l allows.
func (l Limits) Apply(ctx context.Context, src *Raster, op Operation) (*Raster, error) {
	if op == nil {
		return nil, invalidf("apply", "no operation")
	}
	if err := op.validate(); err != nil {
		return nil, err
	}
	w, h := op.size(src.Width(), src.Height())
	if err := l.check(op.Name(), w, h); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrap(op.apply(src.img)), nil
}

func (Crop) Name() string { return "crop" }

func (c Crop) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return invalidf("crop", "width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.X < 0 || c.Y < 0 {
		return invalidf("crop", "origin must be non-negative, got (%d,%d)", c.X, c.Y)
	}
	return nil
}

func (c Crop) size(int, int) (int, int) { return c.Width, c.Height }

func (c Crop) apply(src *image.NRGBA) *image.NRGBA {
	canvas := imaging.New(c.Width, c.Height, color.Transparent)
	// Paste clips to the canvas, so out-of-bounds regions keep the
	// transparent fill.
	return imaging.Paste(canvas, src, image.Pt(-c.X, -c.Y))
}

func (Resize) Name() string { return "resize" }

func (r Resize) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return invalidf("resize", "width and height must be positive, got %dx%d", r.Width, r.Height)
	}
	return nil
}

func (r Resize) size(int, int) (int, int) { return r.Width, r.Height }

func (r Resize) apply(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == r.Width && b.Dy() == r.Height {
		return imaging.Clone(src)
	}
	return imaging.Resize(src, r.Width, r.Height, imaging.Lanczos)
}

func (Rotate) Name() string { return "rotate" }

func (r Rotate) validate() error {
	if math.IsNaN(r.Degrees) || math.IsInf(r.Degrees, 0) {
		return invalidf("rotate", "degrees must be finite, got %v", r.Degrees)
	}
	return nil
}

func (r Rotate) size(w, h int) (int, int) { return RotatedSize(w, h, r.Degrees) }

func (r Rotate) apply(src *image.NRGBA) *image.NRGBA {
	deg := math.Mod(r.Degrees, 360)
	if deg < 0 {
		deg += 360
	}

	// Quarter turns are exact pixel permutations. imaging rotates
	// counter-clockwise, so a clockwise quarter turn is Rotate270.
	switch deg {
	case 0:
		return imaging.Clone(src)
	case 90:
		return imaging.Rotate270(src)
	case 180:
		return imaging.Rotate180(src)
	case 270:
		return imaging.Rotate90(src)
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dw, dh := RotatedSize(w, h, r.Degrees)

	theta := deg * math.Pi / 180
	sin, cos := math.Sincos(theta)
	sw, sh := float64(w)/2, float64(h)/2
	cw, ch := float64(dw)/2, float64(dh)/2

	// Source to destination: move the source center to the origin, turn
	// clockwise in y-down space, then move the origin to the canvas center.
	s2d := f64.Aff3{
		cos, -sin, cw - cos*sw + sin*sh,
		sin, cos, ch - sin*sw - cos*sh,
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	xdraw.BiLinear.Transform(dst, s2d, src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// RotatedSize returns the canvas size that bounds a w x h rectangle rotated
// by degrees: floor(w|cos|+h|sin|) x floor(h|cos|+w|sin|).
func RotatedSize(w, h int, degrees float64) (int, int) {
	theta := degrees * math.Pi / 180
	sin, cos := math.Abs(math.Sin(theta)), math.Abs(math.Cos(theta))
	fw, fh := float64(w), float64(h)
	nw := int(math.Floor(fw*cos + fh*sin))
	nh := int(math.Floor(fh*cos + fw*sin))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func (Flip) Name() string { return "flip" }

func (f Flip) validate() error {
	switch f.Direction {
	case FlipHorizontal, FlipVertical:
		return nil
	default:
		return invalidf("flip", "direction must be %q or %q, got %q", FlipHorizontal, FlipVertical, f.Direction)
	}
}

func (Flip) size(w, h int) (int, int) { return w, h }

func (f Flip) apply(src *image.NRGBA) *image.NRGBA {
	if f.Direction == FlipVertical {
		return imaging.FlipV(src)
	}
	return imaging.FlipH(src)
}
