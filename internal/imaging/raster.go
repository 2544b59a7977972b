package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const pngDataPrefix = "data:image/png;base64,"

// Raster is a decoded pixel surface. It is never modified after creation;
// every transform produces a new Raster.
type Raster struct {
	img *image.NRGBA
}

// NewRaster copies img into a new Raster anchored at (0,0).
func NewRaster(img image.Image) *Raster {
	return &Raster{img: imaging.Clone(img)}
}

// wrap adopts an NRGBA produced inside this package without copying it.
func wrap(img *image.NRGBA) *Raster {
	return &Raster{img: img}
}

// Width is the natural width in pixels.
func (r *Raster) Width() int { return r.img.Bounds().Dx() }

// Height is the natural height in pixels.
func (r *Raster) Height() int { return r.img.Bounds().Dy() }

// Image exposes the pixels as a read-only image.Image.
func (r *Raster) Image() image.Image { return r.img }

// At returns the color at (x, y).
func (r *Raster) At(x, y int) color.Color { return r.img.At(x, y) }

// EncodePNG encodes the raster as PNG.
func (r *Raster) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeLocator encodes the raster into the self-contained PNG data URI form.
// PNG is lossless, so loading the result yields identical dimensions and pixels.
func EncodeLocator(r *Raster) (Locator, error) {
	data, err := r.EncodePNG()
	if err != nil {
		return "", err
	}
	return Locator(pngDataPrefix + base64.StdEncoding.EncodeToString(data)), nil
}
