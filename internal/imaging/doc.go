// Package imaging provides the raster side of the editor: resolving image
// locators into decoded pixel surfaces, the geometric transforms applied to
// them, and the encoding of results back into self-contained locators.
//
// All operations work on Raster values anchored at (0,0) where X increases
// rightward and Y increases downward.
//
// # Locators
//
// A Locator is either a transient "blob:" handle registered in a HandleStore,
// or one of the self-contained forms: a PNG/JPEG/... data URI, an http(s) URL
// or a filesystem path. Loader.Load accepts all of them. Results are always
// re-encoded with EncodeLocator into a PNG data URI so they outlive the
// session that produced them.
//
// # Cross-Origin Fetches
//
// Remote images on a different origin are requested with an Origin header and
// are only decoded when the response admits that origin through
// Access-Control-Allow-Origin. A refused image fails with a *DecodeError whose
// cause is ErrCrossOriginBlocked.
//
// # Transforms
//
// Apply runs one Operation (Crop, Resize, Rotate, Flip) and returns a new
// Raster; the input is never modified and every call allocates its own output
// surface. Invalid parameters are rejected with a *TransformError before any
// pixels are touched:
//   - Crop: exact Width x Height output, out-of-bounds area transparent
//   - Resize: exact Width x Height output, axes scaled independently
//   - Rotate: clockwise, canvas floor(w|cos|+h|sin|) x floor(h|cos|+w|sin|)
//   - Flip: mirror, dimensions unchanged
//
// # Thread Safety
//
// Loader, HandleStore and ImageCache are safe for concurrent use. Raster
// values are immutable and may be shared freely.
package imaging
