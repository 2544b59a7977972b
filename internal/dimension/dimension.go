// Package dimension tracks the natural size of the current head image and
// derives the width/height pair fed into resize and crop operations.
package dimension

import (
	"math"

	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// State is the user-adjustable target size.
type State struct {
	Width           int  `json:"width"`
	Height          int  `json:"height"`
	LockAspectRatio bool `json:"lock_aspect_ratio"`
}

// Controller mirrors the natural dimensions of the head image.
//
// Width and Height start at the natural size and are then adjusted with
// SetWidth/SetHeight. When the aspect lock is on, setting one side derives
// the other from the natural aspect ratio captured at the last OnHeadChanged.
//
// Controller is not safe for concurrent use.
type Controller struct {
	state         State
	naturalWidth  int
	naturalHeight int
}

// New creates a controller with the given aspect lock and no head yet.
func New(lock bool) *Controller {
	return &Controller{state: State{LockAspectRatio: lock}}
}

// OnHeadChanged resets Width and Height to r's natural dimensions. The aspect
// lock is left as is.
func (c *Controller) OnHeadChanged(r *imaging.Raster) {
	c.naturalWidth = r.Width()
	c.naturalHeight = r.Height()
	c.state.Width = c.naturalWidth
	c.state.Height = c.naturalHeight
}

// SetWidth sets the target width, deriving the height when locked.
func (c *Controller) SetWidth(w int) {
	c.state.Width = w
	if c.locked() {
		c.state.Height = int(math.Round(float64(w) / c.aspect()))
	}
}

// SetHeight sets the target height, deriving the width when locked.
func (c *Controller) SetHeight(h int) {
	c.state.Height = h
	if c.locked() {
		c.state.Width = int(math.Round(float64(h) * c.aspect()))
	}
}

// ToggleLock sets the aspect lock. It does not recompute dimensions.
func (c *Controller) ToggleLock(lock bool) {
	c.state.LockAspectRatio = lock
}

// State returns the current target size.
func (c *Controller) State() State { return c.state }

// Natural returns the natural dimensions of the head.
func (c *Controller) Natural() (int, int) { return c.naturalWidth, c.naturalHeight }

// ResizeOperation returns a Resize to the current target size.
func (c *Controller) ResizeOperation() imaging.Resize {
	return imaging.Resize{Width: c.state.Width, Height: c.state.Height}
}

// ResizeForWidth returns the Resize that SetWidth(w) would produce without
// changing the controller state.
func (c *Controller) ResizeForWidth(w int) imaging.Resize {
	next := *c
	next.SetWidth(w)
	return next.ResizeOperation()
}

// ResizeForHeight returns the Resize that SetHeight(h) would produce without
// changing the controller state.
func (c *Controller) ResizeForHeight(h int) imaging.Resize {
	next := *c
	next.SetHeight(h)
	return next.ResizeOperation()
}

// CropFromPercent converts a crop rectangle given in percent of the head's
// natural dimensions into pixels.
func (c *Controller) CropFromPercent(x, y, w, h float64) imaging.Crop {
	nw, nh := float64(c.naturalWidth), float64(c.naturalHeight)
	return imaging.Crop{
		X:      int(math.Round(x / 100 * nw)),
		Y:      int(math.Round(y / 100 * nh)),
		Width:  int(math.Round(w / 100 * nw)),
		Height: int(math.Round(h / 100 * nh)),
	}
}

// locked reports whether derivation applies. Without a known head there is
// no aspect to derive from.
func (c *Controller) locked() bool {
	return c.state.LockAspectRatio && c.naturalWidth > 0 && c.naturalHeight > 0
}

func (c *Controller) aspect() float64 {
	return float64(c.naturalWidth) / float64(c.naturalHeight)
}
