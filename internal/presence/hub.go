// Package presence tracks who is in an edit session right now — their
// active tool and cursor — and the per-asset activity feed. All of it is
// ephemeral collaboration metadata: it never touches version history and
// never drives state transitions elsewhere.
package presence

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoedit-backend/internal/models"
)

// Policy defaults. Tunable through env in main.go, not contractual.
const (
	DefaultInactivityTimeout = 30 * time.Second
	DefaultActivityRetention = 100
	DefaultPruneInterval     = 10 * time.Second

	// Per-subscriber buffer. A consumer that falls this far behind
	// starts losing frames — delivery is at-most-once.
	subscriberBuffer = 64
)

// FrameType tags a pushed frame.
type FrameType string

const (
	FramePresence FrameType = "presence"
	FrameActivity FrameType = "activity"
	FrameLeave    FrameType = "leave"
)

// Frame is the push envelope delivered to subscribers.
type Frame struct {
	Type     FrameType             `json:"type"`
	Presence *models.PresenceEntry `json:"presence,omitempty"`
	Activity *models.ActivityEvent `json:"activity,omitempty"`
	UserID   string                `json:"user_id,omitempty"`
}

// Config tunes hub housekeeping.
type Config struct {
	InactivityTimeout time.Duration
	ActivityRetention int
	PruneInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.ActivityRetention <= 0 {
		c.ActivityRetention = DefaultActivityRetention
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = DefaultPruneInterval
	}
	return c
}

// Subscription is one consumer of a room's frames.
type Subscription struct {
	Frames chan Frame

	hub     *Hub
	assetID uuid.UUID
}

// Close detaches the subscription from its room.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.assetID, s)
}

type room struct {
	entries map[string]models.PresenceEntry
	feed    []models.ActivityEvent // oldest first, bounded
	subs    map[*Subscription]bool
}

// Hub fans presence updates and activity events out to room subscribers
// and prunes entries that have gone quiet.
type Hub struct {
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time

	mu          sync.RWMutex
	rooms       map[uuid.UUID]*room
	nextEventID int64
}

// NewHub creates a hub. Pass a nil logger to discard hub logs.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "presence"),
		clock:  time.Now,
		rooms:  make(map[uuid.UUID]*room),
	}
}

func (h *Hub) roomLocked(assetID uuid.UUID) *room {
	r, ok := h.rooms[assetID]
	if !ok {
		r = &room{
			entries: make(map[string]models.PresenceEntry),
			subs:    make(map[*Subscription]bool),
		}
		h.rooms[assetID] = r
	}
	return r
}

// Subscribe attaches a consumer to an asset's room.
func (h *Hub) Subscribe(assetID uuid.UUID) *Subscription {
	sub := &Subscription{
		Frames:  make(chan Frame, subscriberBuffer),
		hub:     h,
		assetID: assetID,
	}
	h.mu.Lock()
	h.roomLocked(assetID).subs[sub] = true
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(assetID uuid.UUID, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[assetID]
	if !ok {
		return
	}
	delete(r.subs, sub)
	if idleRoom(r) {
		delete(h.rooms, assetID)
	}
}

// idleRoom reports whether a room holds nothing worth keeping. A
// non-empty feed keeps the room alive: activity is bounded by the
// retention count only, never discarded because the room went quiet.
func idleRoom(r *room) bool {
	return len(r.subs) == 0 && len(r.entries) == 0 && len(r.feed) == 0
}

func broadcastLocked(r *room, f Frame) {
	for sub := range r.subs {
		select {
		case sub.Frames <- f:
		default:
			// Slow consumer: drop rather than block the hub.
		}
	}
}

// UpdatePresence upserts a collaborator's entry — called on join, on
// every tool switch and on cursor moves. Last write wins per user.
func (h *Hub) UpdatePresence(assetID uuid.UUID, userID string, tool models.Tool, cursor models.CursorPosition) models.PresenceEntry {
	entry := models.PresenceEntry{
		UserID:      userID,
		CurrentTool: tool,
		Cursor:      cursor,
		LastSeenAt:  h.clock(),
	}
	h.mu.Lock()
	r := h.roomLocked(assetID)
	r.entries[userID] = entry
	broadcastLocked(r, Frame{Type: FramePresence, Presence: &entry})
	h.mu.Unlock()
	return entry
}

// Leave drops a collaborator's entry immediately (clean disconnect; the
// reaper handles the unclean ones).
func (h *Hub) Leave(assetID uuid.UUID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[assetID]
	if !ok {
		return
	}
	if _, ok := r.entries[userID]; !ok {
		return
	}
	delete(r.entries, userID)
	broadcastLocked(r, Frame{Type: FrameLeave, UserID: userID})
}

// Entries returns the live collaborators for an asset.
func (h *Hub) Entries(assetID uuid.UUID) []models.PresenceEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[assetID]
	if !ok {
		return nil
	}
	out := make([]models.PresenceEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Record appends an activity event to the asset's feed and pushes it to
// subscribers. The feed is bounded: oldest events fall off past the
// retention count.
func (h *Hub) Record(assetID uuid.UUID, actorID, kind, summary string) models.ActivityEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextEventID++
	ev := models.ActivityEvent{
		ID:        h.nextEventID,
		ActorID:   actorID,
		Kind:      kind,
		Summary:   summary,
		Timestamp: h.clock(),
	}
	r := h.roomLocked(assetID)
	r.feed = append(r.feed, ev)
	if over := len(r.feed) - h.cfg.ActivityRetention; over > 0 {
		r.feed = append(r.feed[:0:0], r.feed[over:]...)
	}
	broadcastLocked(r, Frame{Type: FrameActivity, Activity: &ev})
	return ev
}

// Feed returns the activity feed most-recent-first.
func (h *Hub) Feed(assetID uuid.UUID) []models.ActivityEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[assetID]
	if !ok {
		return nil
	}
	out := make([]models.ActivityEvent, len(r.feed))
	for i, ev := range r.feed {
		out[len(r.feed)-1-i] = ev
	}
	return out
}

// Prune removes entries whose last activity is older than the inactivity
// timeout. Housekeeping only — staleness is never surfaced as an error.
func (h *Hub) Prune() int {
	cutoff := h.clock().Add(-h.cfg.InactivityTimeout)

	h.mu.Lock()
	defer h.mu.Unlock()

	pruned := 0
	for assetID, r := range h.rooms {
		for userID, e := range r.entries {
			if e.LastSeenAt.Before(cutoff) {
				delete(r.entries, userID)
				broadcastLocked(r, Frame{Type: FrameLeave, UserID: userID})
				pruned++
			}
		}
		if idleRoom(r) {
			delete(h.rooms, assetID)
		}
	}
	return pruned
}

// Run drives the prune loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := h.Prune(); n > 0 {
				h.logger.Debug("pruned stale presence entries", "count", n)
			}
		}
	}
}
