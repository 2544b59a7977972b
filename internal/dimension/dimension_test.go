package dimension

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

func raster(w, h int) *imaging.Raster {
	return imaging.NewRaster(image.NewNRGBA(image.Rect(0, 0, w, h)))
}

func TestController_AspectLockDerivation(t *testing.T) {
	c := New(true)
	c.OnHeadChanged(raster(800, 400))

	c.SetWidth(400)
	assert.Equal(t, State{Width: 400, Height: 200, LockAspectRatio: true}, c.State())

	c.SetHeight(100)
	assert.Equal(t, State{Width: 200, Height: 100, LockAspectRatio: true}, c.State())
}

func TestController_AspectLockRounds(t *testing.T) {
	c := New(true)
	c.OnHeadChanged(raster(300, 200))

	c.SetWidth(100) // 100 / 1.5 = 66.67
	assert.Equal(t, 67, c.State().Height)

	c.SetHeight(33) // 33 * 1.5 = 49.5
	assert.Equal(t, 50, c.State().Width)
}

func TestController_Unlocked(t *testing.T) {
	c := New(false)
	c.OnHeadChanged(raster(800, 400))

	c.SetWidth(123)
	c.SetHeight(45)
	assert.Equal(t, State{Width: 123, Height: 45}, c.State())
}

func TestController_OnHeadChangedKeepsLock(t *testing.T) {
	c := New(false)
	c.OnHeadChanged(raster(10, 10))
	c.ToggleLock(true)
	c.SetWidth(5)

	c.OnHeadChanged(raster(64, 32))
	assert.Equal(t, State{Width: 64, Height: 32, LockAspectRatio: true}, c.State())

	w, h := c.Natural()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
}

func TestController_ToggleLockDoesNotRecompute(t *testing.T) {
	c := New(false)
	c.OnHeadChanged(raster(800, 400))
	c.SetWidth(100)
	c.SetHeight(100)

	c.ToggleLock(true)
	assert.Equal(t, State{Width: 100, Height: 100, LockAspectRatio: true}, c.State())
}

func TestController_LockWithoutHeadDoesNotDivideByZero(t *testing.T) {
	c := New(true)
	c.SetWidth(100)
	c.SetHeight(50)
	assert.Equal(t, State{Width: 100, Height: 50, LockAspectRatio: true}, c.State())
}

func TestController_ResizeOperation(t *testing.T) {
	c := New(true)
	c.OnHeadChanged(raster(800, 400))
	c.SetWidth(400)
	assert.Equal(t, imaging.Resize{Width: 400, Height: 200}, c.ResizeOperation())
}

func TestController_CropFromPercentUsesNaturalDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		x, y, cw, ch float64
		want         imaging.Crop
	}{
		{"full 512", 512, 512, 0, 0, 100, 100, imaging.Crop{X: 0, Y: 0, Width: 512, Height: 512}},
		{"quarter of 1024x768", 1024, 768, 50, 50, 50, 50, imaging.Crop{X: 512, Y: 384, Width: 512, Height: 384}},
		{"rounded", 333, 333, 10, 10, 33, 33, imaging.Crop{X: 33, Y: 33, Width: 110, Height: 110}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(false)
			c.OnHeadChanged(raster(tt.w, tt.h))
			assert.Equal(t, tt.want, c.CropFromPercent(tt.x, tt.y, tt.cw, tt.ch))
		})
	}
}

func TestController_ResizeForSideLeavesState(t *testing.T) {
	c := New(true)
	c.OnHeadChanged(raster(800, 400))

	assert.Equal(t, imaging.Resize{Width: 400, Height: 200}, c.ResizeForWidth(400))
	assert.Equal(t, imaging.Resize{Width: 200, Height: 100}, c.ResizeForHeight(100))
	assert.Equal(t, State{Width: 800, Height: 400, LockAspectRatio: true}, c.State())
}
