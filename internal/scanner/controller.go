// Package scanner orchestrates one teacher's scan session: it turns a
// stream of decoded QR reads into rate-limited, deduplicated mark calls
// against the attendance ledger, and manages the lifecycle of the camera
// source feeding it.
package scanner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fop-attendance-api/internal/models"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

// State of the session's camera source.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Source is an open camera feed handle. Close must release the underlying
// capture resource; leaking handles keeps the device busy.
type Source interface {
	ID() string
	Label() string
	Close() error
}

// SourceOpener opens camera sources by ID. An empty ID selects the default.
type SourceOpener interface {
	Open(ctx context.Context, id string) (Source, error)
}

// Marker is the ledger call a successful scan resolves into.
type Marker interface {
	Mark(ctx context.Context, recordID, teacherID, rawQR string) (*models.Attendee, error)
}

// Config tunes session behaviour.
type Config struct {
	// DebounceWindow treats a repeat of the same raw text within the window
	// as a camera re-read of one physical scan event.
	DebounceWindow time.Duration
	// OpenRetries bounds attempts when opening or switching a source.
	OpenRetries int
	// OpenBackoff is the initial retry delay; it doubles per attempt.
	OpenBackoff time.Duration
}

// Controller owns the state of a single scan session. Scan handling is
// serialized: one scan completes (success or failure) before the next is
// admitted. Source teardown is immediate and independent of any in-flight
// mark call.
type Controller struct {
	cfg    Config
	marker Marker
	opener SourceOpener
	logger *zap.Logger
	now    func() time.Time

	recordID  string
	teacherID string

	// scanMu is the in-flight guard; mu protects all other state.
	scanMu sync.Mutex
	mu     sync.Mutex

	state   State
	source  Source
	lastErr error

	processed map[string]struct{}
	lastRaw   string
	lastSeen  time.Time
	results   []models.Attendee
}

// NewController builds a controller bound to one record and teacher.
func NewController(marker Marker, opener SourceOpener, recordID, teacherID string, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = time.Second
	}
	if cfg.OpenRetries <= 0 {
		cfg.OpenRetries = 3
	}
	if cfg.OpenBackoff <= 0 {
		cfg.OpenBackoff = 250 * time.Millisecond
	}
	return &Controller{
		cfg:       cfg,
		marker:    marker,
		opener:    opener,
		logger:    logger,
		now:       time.Now,
		recordID:  recordID,
		teacherID: teacherID,
		state:     StateIdle,
		processed: make(map[string]struct{}),
	}
}

// Start opens the requested source and readies the session. Starting clears
// any state left from a previous run.
func (c *Controller) Start(ctx context.Context, sourceID string) error {
	c.mu.Lock()
	if c.state == StateLoading || c.state == StateReady {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "scan session already active")
	}
	c.state = StateLoading
	c.mu.Unlock()

	source, err := c.openWithRetry(ctx, sourceID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open camera source")
	}

	c.source = source
	c.state = StateReady
	c.lastErr = nil
	c.resetScanState()
	c.logger.Info("scan session ready", zap.String("record_id", c.recordID), zap.String("source", source.Label()))
	return nil
}

// Switch swaps the active source for another. The processed set survives a
// switch: changing cameras mid-session must not re-admit students. On
// failure the session lands in the error state with no open source.
func (c *Controller) Switch(ctx context.Context, sourceID string) error {
	c.mu.Lock()
	if c.state != StateReady && c.state != StateError {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrValidation, "scan session is not active")
	}
	old := c.source
	c.source = nil
	c.state = StateLoading
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Warn("failed to close camera source", zap.Error(err))
		}
	}

	source, err := c.openWithRetry(ctx, sourceID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to switch camera source")
	}

	c.source = source
	c.state = StateReady
	c.lastErr = nil
	return nil
}

// Stop tears the session down: the source is released immediately and all
// scan state is cleared. An in-flight mark is left to complete against the
// ledger rather than being cancelled, so the row store never sees a
// half-written operation; its result is simply discarded.
func (c *Controller) Stop() error {
	c.mu.Lock()
	source := c.source
	c.source = nil
	c.state = StateIdle
	c.lastErr = nil
	c.resetScanState()
	c.mu.Unlock()

	if source != nil {
		return source.Close()
	}
	return nil
}

// HandleScan processes one decoded camera read. Returns (nil, nil) when the
// scan was dropped by the debounce or the processed set. Ledger failures
// are returned to the caller but never stop the session: the raw text is
// re-admitted so a retry remains possible.
func (c *Controller) HandleScan(ctx context.Context, raw string) (*models.Attendee, error) {
	if raw == "" {
		return nil, nil
	}

	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "scan session is not ready")
	}

	now := c.now()
	if raw == c.lastRaw && now.Sub(c.lastSeen) < c.cfg.DebounceWindow {
		c.lastSeen = now
		c.mu.Unlock()
		return nil, nil
	}
	c.lastRaw = raw
	c.lastSeen = now

	if _, done := c.processed[raw]; done {
		c.mu.Unlock()
		return nil, nil
	}
	c.processed[raw] = struct{}{}
	recordID, teacherID := c.recordID, c.teacherID
	c.mu.Unlock()

	// The ledger independently re-checks duplicates; the processed set only
	// saves redundant round trips.
	attendee, err := c.marker.Mark(ctx, recordID, teacherID, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		delete(c.processed, raw)
		return nil, err
	}
	if c.state == StateReady {
		c.results = append([]models.Attendee{*attendee}, c.results...)
	}
	return attendee, nil
}

// State reports the source lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SourceLabel names the active source, or "" when none is open.
func (c *Controller) SourceLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil {
		return ""
	}
	return c.source.Label()
}

// RecordID returns the record this session marks against.
func (c *Controller) RecordID() string {
	return c.recordID
}

// TeacherID returns the owning teacher.
func (c *Controller) TeacherID() string {
	return c.teacherID
}

// Results returns the confirmation list, most recent first.
func (c *Controller) Results() []models.Attendee {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Attendee, len(c.results))
	copy(out, c.results)
	return out
}

func (c *Controller) resetScanState() {
	c.processed = make(map[string]struct{})
	c.lastRaw = ""
	c.lastSeen = time.Time{}
	c.results = nil
}

func (c *Controller) openWithRetry(ctx context.Context, sourceID string) (Source, error) {
	delay := c.cfg.OpenBackoff
	var lastErr error
	for attempt := 0; attempt < c.cfg.OpenRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		source, err := c.opener.Open(ctx, sourceID)
		if err == nil {
			return source, nil
		}
		lastErr = err
		c.logger.Warn("camera source open failed",
			zap.String("source_id", sourceID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, lastErr
}
