// Package editor runs image-editing sessions: it feeds the head of a
// session's history through the transform engine, records the results and
// keeps the target dimensions in step with the current image.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/image-editor-mcp/internal/dimension"
	"github.com/ironsheep/image-editor-mcp/internal/history"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
	"github.com/ironsheep/image-editor-mcp/internal/metrics"
	"github.com/ironsheep/image-editor-mcp/internal/storage"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Loader *imaging.Loader

	// Storage receives saved heads. Save fails with ErrNoStorage when nil.
	Storage storage.Storage

	// HistoryLimit caps each session's history depth. Zero is unbounded.
	HistoryLimit int

	// Limits bounds edit outputs. imaging.DefaultLimits applies when zero.
	Limits imaging.Limits

	// Hooks are installed on every session.
	Hooks Hooks

	Logger *slog.Logger
}

// Manager owns the open sessions, keyed by ID.
//
// Manager is safe for concurrent use.
type Manager struct {
	loader       *imaging.Loader
	store        storage.Storage
	historyLimit int
	limits       imaging.Limits
	hooks        Hooks
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// SaveResult describes a persisted head.
type SaveResult struct {
	SessionID string          `json:"session_id"`
	Key       string          `json:"key"`
	URL       string          `json:"url"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Head      imaging.Locator `json:"-"`
}

// NewManager creates a Manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	loader := opts.Loader
	if loader == nil {
		loader = imaging.NewLoader(imaging.LoaderOptions{Logger: logger})
	}
	limits := opts.Limits
	if limits == (imaging.Limits{}) {
		limits = imaging.DefaultLimits
	}
	return &Manager{
		loader:       loader,
		store:        opts.Storage,
		historyLimit: opts.HistoryLimit,
		limits:       limits,
		hooks:        opts.Hooks,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

// Loader returns the loader shared by all sessions.
func (m *Manager) Loader() *imaging.Loader { return m.loader }

// Open starts a session on loc.
//
// The image is decoded first. A transient handle is re-encoded into a
// self-contained locator, which becomes the original in the new history.
func (m *Manager) Open(ctx context.Context, loc imaging.Locator, lockAspectRatio bool) (*Session, error) {
	r, err := m.loader.Load(ctx, loc)
	if err != nil {
		return nil, &OperationError{Op: "open", Err: err}
	}

	original := loc
	if !loc.SelfContained() {
		original, err = imaging.EncodeLocator(r)
		if err != nil {
			return nil, &OperationError{Op: "open", Err: err}
		}
	}

	h, err := history.New(original, history.WithLimit(m.historyLimit))
	if err != nil {
		return nil, &OperationError{Op: "open", Err: err}
	}
	dims := dimension.New(lockAspectRatio)
	dims.OnHeadChanged(r)

	id := uuid.NewString()
	s := newSession(id, m.loader, m.limits, h, dims, m.hooks, m.logger)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	m.logger.Info("editing session opened",
		"session_id", id,
		"locator_kind", loc.Kind().String(),
		"width", r.Width(),
		"height", r.Height(),
	)
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close ends a session and discards its history.
func (m *Manager) Close(id string) error {
	s, ok := m.remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.close()
	m.logger.Info("editing session closed", "session_id", id)
	return nil
}

func (m *Manager) remove(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		metrics.SessionsActive.Dec()
	}
	return s, ok
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Save writes the session head to storage as PNG and ends the session.
// On failure the session stays open with its history intact.
func (m *Manager) Save(ctx context.Context, id string) (*SaveResult, error) {
	if m.store == nil {
		return nil, &OperationError{Op: "save", Err: ErrNoStorage}
	}
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	key := storage.SavedImageKey(id)
	var url string
	head, r, err := s.Save(ctx, func(ctx context.Context, _ imaging.Locator, r *imaging.Raster) error {
		data, err := r.EncodePNG()
		if err != nil {
			return err
		}
		if err := m.store.Put(ctx, key, bytes.NewReader(data), false); err != nil {
			return err
		}
		url, err = m.store.URL(key)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.remove(id)

	metrics.SessionsSaved.Inc()
	m.logger.Info("editing session saved", "session_id", id, "key", key)

	return &SaveResult{
		SessionID: id,
		Key:       key,
		URL:       url,
		Width:     r.Width(),
		Height:    r.Height(),
		Head:      head,
	}, nil
}
