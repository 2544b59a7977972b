package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// createInMemoryImage creates an in-memory test image filled with c.
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant.
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// createTestImage writes a solid PNG into a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-image.png")
	if err := os.WriteFile(path, encodePNG(t, createInMemoryImage(width, height, c)), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func newTestLoader(opts LoaderOptions) *Loader {
	return NewLoader(opts)
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	r := NewRaster(createInMemoryImage(4, 4, color.White))
	cache.put("a.png", r)
	cache.put("b.png", r)

	cache.Evict("a.png")
	if _, ok := cache.get("a.png"); ok {
		t.Error("Evict did not remove image from cache")
	}
	// Should not panic
	cache.Evict("/nonexistent/path")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}
}

func TestLoader_LoadFile(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	imgPath := createTestImage(t, 100, 60, color.RGBA{255, 0, 0, 255})

	r1, err := l.Load(context.Background(), Locator(imgPath))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r1.Width() != 100 || r1.Height() != 60 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x60", r1.Width(), r1.Height())
	}

	// Second load should return cached raster
	r2, err := l.Load(context.Background(), Locator("file://"+imgPath))
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if r2.Width() != 100 {
		t.Errorf("file:// form: got width %d, want 100", r2.Width())
	}
	r3, _ := l.Load(context.Background(), Locator(imgPath))
	if r1 != r3 {
		t.Error("second Load did not return cached raster")
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := newTestLoader(LoaderOptions{})

	_, err := l.Load(context.Background(), "/nonexistent/path/to/image.png")
	if !IsDecodeError(err) {
		t.Errorf("missing file: expected DecodeError, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = l.Load(context.Background(), Locator(bad))
	if !IsDecodeError(err) {
		t.Errorf("corrupt file: expected DecodeError, got %v", err)
	}
}

func TestLoader_LoadDataURI(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	data := encodePNG(t, createPatternImage(16, 8))
	loc := Locator("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))

	r, err := l.Load(context.Background(), loc)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Width() != 16 || r.Height() != 8 {
		t.Errorf("unexpected dimensions: got %dx%d, want 16x8", r.Width(), r.Height())
	}
	if l.Cache().Len() != 0 {
		t.Error("data URIs must not be cached")
	}

	tests := []Locator{
		"data:image/png;base64",
		"data:image/png;base64,@@@",
		"data:image/png;base64," + Locator(base64.StdEncoding.EncodeToString([]byte("garbage"))),
	}
	for _, bad := range tests {
		if _, err := l.Load(context.Background(), bad); !IsDecodeError(err) {
			t.Errorf("%q: expected DecodeError, got %v", bad, err)
		}
	}
}

func TestLoader_LoadHandle(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	h := l.Handles().Create(encodePNG(t, createInMemoryImage(12, 34, color.Black)))

	r, err := l.Load(context.Background(), h)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Width() != 12 || r.Height() != 34 {
		t.Errorf("unexpected dimensions: got %dx%d, want 12x34", r.Width(), r.Height())
	}

	l.Handles().Release(h)
	_, err = l.Load(context.Background(), h)
	if !errors.Is(err, ErrHandleNotFound) {
		t.Errorf("released handle: got %v, want ErrHandleNotFound", err)
	}
}

func TestLoader_UnsupportedLocator(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	for _, loc := range []Locator{"", "ftp://example.com/a.png"} {
		_, err := l.Load(context.Background(), loc)
		if !errors.Is(err, ErrUnsupportedLocator) {
			t.Errorf("%q: got %v, want ErrUnsupportedLocator", loc, err)
		}
	}
}

func TestLoader_LoadCancelled(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Load(ctx, Locator(createTestImage(t, 2, 2, color.White)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestLoader_FetchRemote(t *testing.T) {
	body := encodePNG(t, createInMemoryImage(20, 10, color.White))

	tests := []struct {
		name       string
		allow      string
		status     int
		body       []byte
		maxBytes   int64
		wantErr    error
		wantDecode bool
	}{
		{name: "exact origin", allow: "https://editor.test", status: http.StatusOK, body: body},
		{name: "wildcard", allow: "*", status: http.StatusOK, body: body},
		{name: "no header", allow: "", status: http.StatusOK, body: body, wantErr: ErrCrossOriginBlocked},
		{name: "other origin", allow: "https://other.test", status: http.StatusOK, body: body, wantErr: ErrCrossOriginBlocked},
		{name: "not found", allow: "*", status: http.StatusNotFound, body: nil, wantDecode: true},
		{name: "too large", allow: "*", status: http.StatusOK, body: body, maxBytes: 10, wantErr: ErrTooLarge},
		{name: "corrupt", allow: "*", status: http.StatusOK, body: []byte("nope"), wantDecode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOrigin atomic.Value
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOrigin.Store(r.Header.Get("Origin"))
				if tt.allow != "" {
					w.Header().Set("Access-Control-Allow-Origin", tt.allow)
				}
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			}))
			defer srv.Close()

			l := newTestLoader(LoaderOptions{
				Origin:   "https://editor.test",
				Client:   srv.Client(),
				MaxBytes: tt.maxBytes,
			})
			r, err := l.Load(context.Background(), Locator(srv.URL+"/img.png"))

			if origin, _ := gotOrigin.Load().(string); origin != "https://editor.test" {
				t.Errorf("Origin header: got %q, want https://editor.test", origin)
			}

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				if r != nil {
					t.Error("no pixels may be returned on failure")
				}
			case tt.wantDecode:
				if !IsDecodeError(err) {
					t.Fatalf("got %v, want DecodeError", err)
				}
			default:
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if r.Width() != 20 || r.Height() != 10 {
					t.Errorf("unexpected dimensions: got %dx%d", r.Width(), r.Height())
				}
			}
		})
	}
}

func TestLoader_FetchSameOrigin(t *testing.T) {
	body := encodePNG(t, createInMemoryImage(5, 5, color.White))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") != "" {
			t.Errorf("same-origin request carried Origin %q", r.Header.Get("Origin"))
		}
		w.Write(body)
	}))
	defer srv.Close()

	l := newTestLoader(LoaderOptions{Origin: srv.URL, Client: srv.Client()})
	if _, err := l.Load(context.Background(), Locator(srv.URL+"/a.png")); err != nil {
		t.Fatalf("same-origin Load failed: %v", err)
	}
}

func TestLoader_FetchNoOriginConfigured(t *testing.T) {
	body := encodePNG(t, createInMemoryImage(6, 4, color.White))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Origin"]; ok {
			t.Errorf("request carried an Origin header %q", r.Header.Get("Origin"))
		}
		w.Write(body)
	}))
	defer srv.Close()

	l := newTestLoader(LoaderOptions{Client: srv.Client()})
	r, err := l.Load(context.Background(), Locator(srv.URL+"/a.png"))
	if err != nil {
		t.Fatalf("Load without an origin failed: %v", err)
	}
	if r.Width() != 6 || r.Height() != 4 {
		t.Errorf("got %dx%d, want 6x4", r.Width(), r.Height())
	}
}

func TestLoader_RemoteIsCached(t *testing.T) {
	var hits atomic.Int32
	body := encodePNG(t, createInMemoryImage(5, 5, color.White))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Write(body)
	}))
	defer srv.Close()

	l := newTestLoader(LoaderOptions{Client: srv.Client()})
	loc := Locator(srv.URL + "/a.png")
	for i := 0; i < 3; i++ {
		if _, err := l.Load(context.Background(), loc); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected one fetch, got %d", hits.Load())
	}
}

func TestLoader_ConcurrentAccess(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(context.Background(), Locator(imgPath)); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})

	info, err := LoadImageInfo(context.Background(), l, Locator(imgPath))
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 200 {
		t.Errorf("Width: got %d, want 200", info.Width)
	}
	if info.Height != 150 {
		t.Errorf("Height: got %d, want 150", info.Height)
	}
	if info.Kind != "file" {
		t.Errorf("Kind: got %s, want file", info.Kind)
	}
	if !info.SelfContained {
		t.Error("file locators are self-contained")
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	l := newTestLoader(LoaderOptions{})
	_, err := LoadImageInfo(context.Background(), l, "/nonexistent/image.png")
	if err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}

func TestEncodeLocator_RoundTrip(t *testing.T) {
	src := NewRaster(createPatternImage(9, 7))
	loc, err := EncodeLocator(src)
	if err != nil {
		t.Fatalf("EncodeLocator failed: %v", err)
	}
	if loc.Kind() != KindData || !loc.SelfContained() {
		t.Fatalf("EncodeLocator produced %v locator", loc.Kind())
	}

	r, err := newTestLoader(LoaderOptions{}).Load(context.Background(), loc)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for y := 0; y < 7; y++ {
		for x := 0; x < 9; x++ {
			if r.img.NRGBAAt(x, y) != src.img.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) changed after round trip", x, y)
			}
		}
	}
}
