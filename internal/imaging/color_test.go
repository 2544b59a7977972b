package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestSampleColor(t *testing.T) {
	r := NewRaster(createInMemoryImage(100, 100, color.RGBA{255, 128, 64, 255}))

	result, err := SampleColor(r, 50, 50)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}

	if result.Hex != "#ff8040" {
		t.Errorf("Hex: got %s, want #ff8040", result.Hex)
	}

	if result.RGBA.R != 255 || result.RGBA.G != 128 || result.RGBA.B != 64 || result.RGBA.A != 255 {
		t.Errorf("RGBA: got (%d,%d,%d,%d), want (255,128,64,255)",
			result.RGBA.R, result.RGBA.G, result.RGBA.B, result.RGBA.A)
	}
	if result.X != 50 || result.Y != 50 {
		t.Errorf("coordinates: got (%d,%d), want (50,50)", result.X, result.Y)
	}
}

func TestSampleColor_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		color   color.RGBA
		wantHex string
		wantHue int
		wantL   int
	}{
		{"pure red", color.RGBA{255, 0, 0, 255}, "#ff0000", 0, 50},
		{"pure green", color.RGBA{0, 255, 0, 255}, "#00ff00", 120, 50},
		{"pure blue", color.RGBA{0, 0, 255, 255}, "#0000ff", 240, 50},
		{"white", color.RGBA{255, 255, 255, 255}, "#ffffff", 0, 100},
		{"black", color.RGBA{0, 0, 0, 255}, "#000000", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRaster(createInMemoryImage(10, 10, tt.color))
			result, err := SampleColor(r, 5, 5)
			if err != nil {
				t.Fatalf("SampleColor failed: %v", err)
			}
			if result.Hex != tt.wantHex {
				t.Errorf("Hex: got %s, want %s", result.Hex, tt.wantHex)
			}
			if result.HSL.H != tt.wantHue {
				t.Errorf("Hue: got %d, want %d", result.HSL.H, tt.wantHue)
			}
			if result.HSL.L != tt.wantL {
				t.Errorf("Lightness: got %d, want %d", result.HSL.L, tt.wantL)
			}
		})
	}
}

func TestSampleColor_Transparent(t *testing.T) {
	r := NewRaster(image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	result, err := SampleColor(r, 0, 0)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if result.RGBA != (RGBAColor{}) {
		t.Errorf("transparent pixel: got %+v, want all zero", result.RGBA)
	}
}

func TestSampleColor_Pattern(t *testing.T) {
	r := NewRaster(createPatternImage(100, 100))

	tests := []struct {
		x, y    int
		wantHex string
	}{
		{10, 10, "#ff0000"},
		{90, 10, "#00ff00"},
		{10, 90, "#0000ff"},
		{90, 90, "#ffffff"},
	}
	for _, tt := range tests {
		result, err := SampleColor(r, tt.x, tt.y)
		if err != nil {
			t.Fatalf("SampleColor(%d,%d) failed: %v", tt.x, tt.y, err)
		}
		if result.Hex != tt.wantHex {
			t.Errorf("(%d,%d): got %s, want %s", tt.x, tt.y, result.Hex, tt.wantHex)
		}
	}
}

func TestSampleColor_OutOfBounds(t *testing.T) {
	r := NewRaster(createInMemoryImage(100, 100, color.White))

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 50},
		{"negative y", 50, -1},
		{"x too large", 100, 50},
		{"y too large", 50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SampleColor(r, tt.x, tt.y); err == nil {
				t.Errorf("SampleColor(%d, %d) should fail", tt.x, tt.y)
			}
		})
	}
}
