package imaging

import (
	"strings"
)

// Locator is a string reference to image bytes.
//
// Four forms are recognized:
//   - "blob:<id>"            transient handle, valid only inside this process
//   - "data:image/...;base64" self-contained encoded image
//   - "http://", "https://"  externally hosted image
//   - "file://<path>" or a bare filesystem path
//
// Only the transient form is tied to the current process; every other form
// can be persisted and dereferenced later.
type Locator string

// LocatorKind classifies a Locator by how its bytes are reached.
type LocatorKind int

const (
	KindUnknown LocatorKind = iota
	KindHandle
	KindData
	KindRemote
	KindFile
)

const (
	handlePrefix = "blob:"
	dataPrefix   = "data:"
	filePrefix   = "file://"
)

// String returns the kind name used in tool results.
func (k LocatorKind) String() string {
	switch k {
	case KindHandle:
		return "handle"
	case KindData:
		return "data"
	case KindRemote:
		return "remote"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Kind classifies the locator.
func (l Locator) Kind() LocatorKind {
	s := string(l)
	switch {
	case s == "":
		return KindUnknown
	case strings.HasPrefix(s, handlePrefix):
		return KindHandle
	case strings.HasPrefix(s, dataPrefix):
		return KindData
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return KindRemote
	case strings.HasPrefix(s, filePrefix):
		return KindFile
	case strings.Contains(s, "://"):
		return KindUnknown
	default:
		return KindFile
	}
}

// SelfContained reports whether the locator survives the end of the session
// that produced it.
func (l Locator) SelfContained() bool {
	k := l.Kind()
	return k == KindData || k == KindRemote || k == KindFile
}

// Redacted returns a short form suitable for logs and error messages. Data
// URIs are truncated to their media type header.
func (l Locator) Redacted() string {
	s := string(l)
	if l.Kind() == KindData {
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[:i] + ",…"
		}
	}
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}

func (l Locator) path() string {
	return strings.TrimPrefix(string(l), filePrefix)
}
