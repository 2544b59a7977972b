// Package history keeps the ordered chain of images produced by an editing
// session.
//
// Index 0 is the original image and the last element is the head, the image
// currently shown and edited. The chain only grows by Append and only shrinks
// by Undo; it always holds at least one entry once Reset has been called.
//
// Every entry must be a self-contained locator. A transient handle would stop
// resolving once its producer released it, so Append and Reset refuse them.
package history

import (
	"errors"
	"fmt"

	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

var (
	// ErrHistoryUnderflow is returned by Undo when only the original remains.
	ErrHistoryUnderflow = errors.New("nothing to undo")

	// ErrEmptyHistory is returned by Head when the history was never Reset.
	ErrEmptyHistory = errors.New("history is empty")

	// ErrTransientLocator is returned when a transient handle is offered as
	// an entry.
	ErrTransientLocator = errors.New("history entries must be self-contained locators")
)

// History is an append-and-undo sequence of image locators.
//
// History is not safe for concurrent use; the owning session serializes
// access to it.
type History struct {
	entries []imaging.Locator
	limit   int
}

// Option configures a History.
type Option func(*History)

// WithLimit caps the number of entries. When the cap is exceeded the oldest
// edit (index 1) is dropped; the original at index 0 is always kept. Values
// below 2 disable the cap.
func WithLimit(n int) Option {
	return func(h *History) {
		if n >= 2 {
			h.limit = n
		}
	}
}

// New creates a history holding only original.
func New(original imaging.Locator, opts ...Option) (*History, error) {
	h := &History{}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.Reset(original); err != nil {
		return nil, err
	}
	return h, nil
}

// Reset discards every entry and starts over from loc.
func (h *History) Reset(loc imaging.Locator) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	h.entries = []imaging.Locator{loc}
	return nil
}

// Append pushes loc as the new head.
func (h *History) Append(loc imaging.Locator) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	h.entries = append(h.entries, loc)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append(h.entries[:1], h.entries[2:]...)
	}
	return nil
}

// Undo removes the head and returns the entry that becomes the new head.
func (h *History) Undo() (imaging.Locator, error) {
	if len(h.entries) <= 1 {
		return "", ErrHistoryUnderflow
	}
	h.entries[len(h.entries)-1] = ""
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], nil
}

// Head returns the most recent entry.
func (h *History) Head() (imaging.Locator, error) {
	if len(h.entries) == 0 {
		return "", ErrEmptyHistory
	}
	return h.entries[len(h.entries)-1], nil
}

// Original returns the first entry.
func (h *History) Original() (imaging.Locator, error) {
	if len(h.entries) == 0 {
		return "", ErrEmptyHistory
	}
	return h.entries[0], nil
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return len(h.entries) > 1 }

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []imaging.Locator {
	out := make([]imaging.Locator, len(h.entries))
	copy(out, h.entries)
	return out
}

func checkLocator(loc imaging.Locator) error {
	if !loc.SelfContained() {
		return fmt.Errorf("%w: got %s locator", ErrTransientLocator, loc.Kind())
	}
	return nil
}
