package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-editor-mcp/internal/metrics"
)

// ImageCache provides thread-safe caching of decoded images for persistent
// locators (files and remote URLs) to avoid redundant reads and downloads.
//
// Data URIs and transient handles are never cached: the former carry their
// own bytes and the latter may be freed at any time.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
type ImageCache struct {
	mu     sync.RWMutex
	images map[Locator]*Raster
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[Locator]*Raster),
	}
}

func (c *ImageCache) get(loc Locator) (*Raster, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.images[loc]
	return r, ok
}

func (c *ImageCache) put(loc Locator, r *Raster) {
	c.mu.Lock()
	c.images[loc] = r
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[Locator]*Raster)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache. Unknown locators are ignored.
func (c *ImageCache) Evict(loc Locator) {
	c.mu.Lock()
	delete(c.images, loc)
	c.mu.Unlock()
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Origin is sent as the Origin header on remote fetches and compared with
	// the Access-Control-Allow-Origin response header.
	Origin string

	// Client performs remote fetches. Defaults to an http.Client with Timeout.
	Client *http.Client

	// Timeout bounds a single remote fetch when Client is nil.
	Timeout time.Duration

	// MaxBytes caps the size of a remote body. Zero means no limit.
	MaxBytes int64

	// Handles resolves transient locators. A store is created when nil.
	Handles *HandleStore

	// Cache holds decoded persistent images. A cache is created when nil.
	Cache *ImageCache

	Logger *slog.Logger
}

// Loader resolves any Locator into a Raster.
//
// Load blocks the calling goroutine until the bytes are fetched and decoded;
// ctx bounds the wait. Loader is safe for concurrent use.
type Loader struct {
	origin   string
	client   *http.Client
	maxBytes int64
	handles  *HandleStore
	cache    *ImageCache
	logger   *slog.Logger
}

// NewLoader creates a Loader from opts, filling in defaults.
func NewLoader(opts LoaderOptions) *Loader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	handles := opts.Handles
	if handles == nil {
		handles = NewHandleStore()
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewImageCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		origin:   strings.TrimSuffix(opts.Origin, "/"),
		client:   client,
		maxBytes: opts.MaxBytes,
		handles:  handles,
		cache:    cache,
		logger:   logger,
	}
}

// Handles returns the store backing transient locators.
func (l *Loader) Handles() *HandleStore { return l.handles }

// Cache returns the decoded-image cache.
func (l *Loader) Cache() *ImageCache { return l.cache }

// Load resolves and decodes loc.
//
// Every failure is returned as a *DecodeError. A remote image refused by the
// cross-origin check carries ErrCrossOriginBlocked as its cause.
func (l *Loader) Load(ctx context.Context, loc Locator) (*Raster, error) {
	kind := loc.Kind()
	r, err := l.load(ctx, loc, kind)
	if err != nil {
		metrics.ImageLoadsTotal.WithLabelValues(kind.String(), "error").Inc()
		l.logger.Debug("image load failed", "locator", loc.Redacted(), "kind", kind.String(), "error", err)
		return nil, &DecodeError{Locator: loc, Err: err}
	}
	metrics.ImageLoadsTotal.WithLabelValues(kind.String(), "success").Inc()
	return r, nil
}

func (l *Loader) load(ctx context.Context, loc Locator, kind LocatorKind) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case KindHandle:
		data, err := l.handles.bytes(loc)
		if err != nil {
			return nil, err
		}
		return decode(bytes.NewReader(data))

	case KindData:
		data, err := decodeDataURI(string(loc))
		if err != nil {
			return nil, err
		}
		return decode(bytes.NewReader(data))

	case KindRemote:
		if r, ok := l.cache.get(loc); ok {
			return r, nil
		}
		r, err := l.fetch(ctx, string(loc))
		if err != nil {
			return nil, err
		}
		l.cache.put(loc, r)
		return r, nil

	case KindFile:
		if r, ok := l.cache.get(loc); ok {
			return r, nil
		}
		f, err := os.Open(loc.path())
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()
		r, err := decode(f)
		if err != nil {
			return nil, err
		}
		l.cache.put(loc, r)
		return r, nil

	default:
		return nil, ErrUnsupportedLocator
	}
}

// fetch downloads a remote image in CORS mode.
func (l *Loader) fetch(ctx context.Context, rawURL string) (*Raster, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	crossOrigin := l.isCrossOrigin(req.URL)
	if crossOrigin {
		req.Header.Set("Origin", l.origin)
		req.Header.Set("Sec-Fetch-Mode", "cors")
	}
	req.Header.Set("Accept", "image/*")

	l.logger.Debug("downloading image", "url", rawURL, "cross_origin", crossOrigin)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch image: unexpected status %d", resp.StatusCode)
	}
	if crossOrigin && !l.allowsOrigin(resp.Header.Get("Access-Control-Allow-Origin")) {
		return nil, ErrCrossOriginBlocked
	}

	body := io.Reader(resp.Body)
	if l.maxBytes > 0 {
		body = io.LimitReader(resp.Body, l.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, ErrTooLarge
	}
	return decode(bytes.NewReader(data))
}

// isCrossOrigin reports whether u needs the CORS check. Without a configured
// origin there is nothing to compare against and every URL is fetched
// directly.
func (l *Loader) isCrossOrigin(u *url.URL) bool {
	if l.origin == "" {
		return false
	}
	return !strings.EqualFold(u.Scheme+"://"+u.Host, l.origin)
}

func (l *Loader) allowsOrigin(header string) bool {
	header = strings.TrimSpace(header)
	if header == "*" {
		return true
	}
	return l.origin != "" && strings.EqualFold(strings.TrimSuffix(header, "/"), l.origin)
}

// decode reads an image and normalizes it into a Raster.
func decode(r io.Reader) (*Raster, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return wrap(nrgba), nil
	}
	return NewRaster(img), nil
}

// decodeDataURI extracts the payload of a data URI. Both base64 and
// percent-encoded payloads are accepted.
func decodeDataURI(s string) ([]byte, error) {
	rest := strings.TrimPrefix(s, dataPrefix)
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: data URI has no payload", ErrUnsupportedLocator)
	}
	meta, payload := rest[:comma], rest[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape payload: %w", err)
	}
	return []byte(data), nil
}

// ImageInfo describes a loaded image.
type ImageInfo struct {
	// Width is the natural width in pixels.
	Width int `json:"width"`

	// Height is the natural height in pixels.
	Height int `json:"height"`

	// Kind is the locator kind: "handle", "data", "remote" or "file".
	Kind string `json:"kind"`

	// SelfContained reports whether the locator can be persisted.
	SelfContained bool `json:"self_contained"`
}

// LoadImageInfo loads loc and reports its natural dimensions.
func LoadImageInfo(ctx context.Context, l *Loader, loc Locator) (*ImageInfo, error) {
	r, err := l.Load(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &ImageInfo{
		Width:         r.Width(),
		Height:        r.Height(),
		Kind:          loc.Kind().String(),
		SelfContained: loc.SelfContained(),
	}, nil
}
