package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ironsheep/image-editor-mcp/internal/dimension"
	"github.com/ironsheep/image-editor-mcp/internal/history"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
	"github.com/ironsheep/image-editor-mcp/internal/metrics"
)

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	SessionID       string            `json:"session_id"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Target          dimension.State   `json:"target"`
	LockAspectRatio bool              `json:"lock_aspect_ratio"`
	HistoryLength   int               `json:"history_length"`
	CanUndo         bool              `json:"can_undo"`
	Busy            bool              `json:"busy"`
	Head            imaging.Locator   `json:"head,omitempty"`
	History         []imaging.Locator `json:"history,omitempty"`
}

// Hooks are called after the session state changes. They run on the
// goroutine that issued the change, after the change is committed.
type Hooks struct {
	// OnHistoryChange receives the new history length and head after every
	// successful edit or undo.
	OnHistoryChange func(length int, head imaging.Locator)

	// OnSave receives the head handed off by Save.
	OnSave func(head imaging.Locator)
}

// Session is one editing session over a single source image.
//
// Edits, undos and saves are serialized: a call waits until the one before it
// has committed its result, so every operation sees the head produced by the
// previous one. A waiting call can give up through its context; a running
// call always completes.
type Session struct {
	id     string
	loader *imaging.Loader
	limits imaging.Limits
	logger *slog.Logger
	hooks  Hooks

	sem    *semaphore.Weighted
	busy   atomic.Bool
	closed atomic.Bool

	mu      sync.Mutex
	history *history.History
	dims    *dimension.Controller
}

func newSession(id string, loader *imaging.Loader, limits imaging.Limits, h *history.History, dims *dimension.Controller, hooks Hooks, logger *slog.Logger) *Session {
	return &Session{
		id:      id,
		loader:  loader,
		limits:  limits,
		logger:  logger.With("session_id", id),
		hooks:   hooks,
		sem:     semaphore.NewWeighted(1),
		history: h,
		dims:    dims,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Busy reports whether an operation is in flight. Callers use it to disable
// further edit triggers.
func (s *Session) Busy() bool { return s.busy.Load() }

// Apply transforms the current head with op and appends the result.
//
// On failure the history is left untouched and an *OperationError naming the
// operation is returned.
func (s *Session) Apply(ctx context.Context, op imaging.Operation) (*Snapshot, error) {
	name := "edit"
	if op != nil {
		name = op.Name()
	}

	if err := s.begin(ctx); err != nil {
		return nil, &OperationError{Op: name, Err: err}
	}
	defer s.release()

	start := time.Now()
	snap, err := s.apply(context.WithoutCancel(ctx), op)
	metrics.EditDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EditsTotal.WithLabelValues(name, "error").Inc()
		s.logger.Warn("edit failed", "operation", name, "error", err)
		return nil, &OperationError{Op: name, Err: err}
	}
	metrics.EditsTotal.WithLabelValues(name, "success").Inc()
	s.logger.Debug("edit applied", "operation", name,
		"width", snap.Width, "height", snap.Height, "history_length", snap.HistoryLength)
	return snap, nil
}

func (s *Session) apply(ctx context.Context, op imaging.Operation) (*Snapshot, error) {
	s.mu.Lock()
	head, err := s.history.Head()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	src, err := s.loader.Load(ctx, head)
	if err != nil {
		return nil, err
	}
	out, err := s.limits.Apply(ctx, src, op)
	if err != nil {
		return nil, err
	}
	loc, err := imaging.EncodeLocator(out)
	if err != nil {
		return nil, err
	}
	// Dimensions are taken from the decoded result, not from the transform.
	decoded, err := s.loader.Load(ctx, loc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := s.history.Append(loc); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.dims.OnHeadChanged(decoded)
	snap := s.snapshotLocked(false)
	s.mu.Unlock()

	s.notifyHistory(snap)
	return snap, nil
}

// Undo drops the head and makes the previous image current. It fails with
// history.ErrHistoryUnderflow (wrapped) when only the original remains.
func (s *Session) Undo(ctx context.Context) (*Snapshot, error) {
	if err := s.begin(ctx); err != nil {
		return nil, &OperationError{Op: "undo", Err: err}
	}
	defer s.release()

	snap, err := s.undo(context.WithoutCancel(ctx))
	if err != nil {
		metrics.UndoTotal.WithLabelValues("error").Inc()
		return nil, &OperationError{Op: "undo", Err: err}
	}
	metrics.UndoTotal.WithLabelValues("success").Inc()
	s.notifyHistory(snap)
	return snap, nil
}

func (s *Session) undo(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	if !s.history.CanUndo() {
		s.mu.Unlock()
		return nil, history.ErrHistoryUnderflow
	}
	entries := s.history.Entries()
	s.mu.Unlock()

	// Decode the entry that becomes head before popping, so a failed decode
	// leaves the history as it was.
	prev := entries[len(entries)-2]
	decoded, err := s.loader.Load(ctx, prev)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.history.Undo(); err != nil {
		return nil, err
	}
	s.dims.OnHeadChanged(decoded)
	return s.snapshotLocked(false), nil
}

// Save runs persist on the current head and then closes the session. The
// session stays held until persist returns, so calls queued behind Save fail
// with ErrSessionNotFound instead of editing a head that was already saved.
// OnSave fires only after persist succeeds; on failure the session stays open.
func (s *Session) Save(ctx context.Context, persist func(ctx context.Context, head imaging.Locator, r *imaging.Raster) error) (imaging.Locator, *imaging.Raster, error) {
	if err := s.begin(ctx); err != nil {
		return "", nil, &OperationError{Op: "save", Err: err}
	}
	defer s.release()

	ctx = context.WithoutCancel(ctx)
	head, r, err := s.HeadRaster(ctx)
	if err != nil {
		return "", nil, &OperationError{Op: "save", Err: err}
	}
	if err := persist(ctx, head, r); err != nil {
		return "", nil, &OperationError{Op: "save", Err: err}
	}
	s.closed.Store(true)

	if s.hooks.OnSave != nil {
		s.hooks.OnSave(head)
	}
	return head, r, nil
}

// Head returns the current head locator.
func (s *Session) Head() (imaging.Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Head()
}

// HeadRaster returns the current head together with its decoded pixels.
func (s *Session) HeadRaster(ctx context.Context) (imaging.Locator, *imaging.Raster, error) {
	head, err := s.Head()
	if err != nil {
		return "", nil, err
	}
	r, err := s.loader.Load(ctx, head)
	if err != nil {
		return "", nil, err
	}
	return head, r, nil
}

// History returns a copy of all history entries, oldest first.
func (s *Session) History() []imaging.Locator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Snapshot returns the current state. Locators of every entry are included
// when withHistory is true.
func (s *Session) Snapshot(withHistory bool) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(withHistory)
}

// Dimensions returns the target size tracked for resize.
func (s *Session) Dimensions() dimension.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims.State()
}

// SetWidth adjusts the target width, deriving the height when locked.
func (s *Session) SetWidth(w int) dimension.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dims.SetWidth(w)
	return s.dims.State()
}

// SetHeight adjusts the target height, deriving the width when locked.
func (s *Session) SetHeight(h int) dimension.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dims.SetHeight(h)
	return s.dims.State()
}

// ToggleLock turns the aspect-ratio lock on or off.
func (s *Session) ToggleLock(lock bool) dimension.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dims.ToggleLock(lock)
	return s.dims.State()
}

// ResizeOperation returns a Resize to the current target size.
func (s *Session) ResizeOperation() imaging.Resize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims.ResizeOperation()
}

// ResizeForWidth returns a Resize to width w, deriving the height when
// locked. The target size is left unchanged.
func (s *Session) ResizeForWidth(w int) imaging.Resize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims.ResizeForWidth(w)
}

// ResizeForHeight returns a Resize to height h, deriving the width when
// locked. The target size is left unchanged.
func (s *Session) ResizeForHeight(h int) imaging.Resize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims.ResizeForHeight(h)
}

// CropFromPercent converts a percentage rectangle against the head's natural
// dimensions.
func (s *Session) CropFromPercent(x, y, w, h float64) imaging.Crop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims.CropFromPercent(x, y, w, h)
}

func (s *Session) acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.busy.Store(true)
	return nil
}

// begin acquires the session and fails once it has been closed.
func (s *Session) begin(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	if s.closed.Load() {
		s.release()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s.id)
	}
	return nil
}

// close marks the session ended. Calls already running finish; later ones
// fail with ErrSessionNotFound.
func (s *Session) close() {
	s.closed.Store(true)
}

func (s *Session) release() {
	s.busy.Store(false)
	s.sem.Release(1)
}

func (s *Session) snapshotLocked(withHistory bool) *Snapshot {
	head, _ := s.history.Head()
	w, h := s.dims.Natural()
	state := s.dims.State()
	snap := &Snapshot{
		SessionID:       s.id,
		Width:           w,
		Height:          h,
		Target:          state,
		LockAspectRatio: state.LockAspectRatio,
		HistoryLength:   s.history.Len(),
		CanUndo:         s.history.CanUndo(),
		Busy:            s.busy.Load(),
		Head:            head,
	}
	if withHistory {
		snap.History = s.history.Entries()
	}
	return snap
}

func (s *Session) notifyHistory(snap *Snapshot) {
	if s.hooks.OnHistoryChange != nil {
		s.hooks.OnHistoryChange(snap.HistoryLength, snap.Head)
	}
}
