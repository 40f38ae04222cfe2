package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const historyBufferSize = 3

// HistoryEntry is one departed node in the rolling trail.
type HistoryEntry struct {
	NodeID        uuid.UUID
	NarrativeText string
	Timestamp     time.Time
}

// HistoryBuffer keeps a short per-user trail of the nodes most recently
// departed from, pushed at the moment a transition leaves a node. It is an
// in-memory recency aid only: it is never persisted, and losing it costs
// nothing because the ancestor walk over the durable tree covers continuity
// after a restart.
type HistoryBuffer struct {
	mu      sync.Mutex
	size    int
	buffers map[uuid.UUID][]HistoryEntry
}

func NewHistoryBuffer() *HistoryBuffer {
	return &HistoryBuffer{
		size:    historyBufferSize,
		buffers: make(map[uuid.UUID][]HistoryEntry),
	}
}

// Push appends the departed node for the user, evicting the oldest entry
// once the buffer holds more than its fixed size.
func (h *HistoryBuffer) Push(userID uuid.UUID, entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := append(h.buffers[userID], entry)
	if len(buf) > h.size {
		buf = buf[len(buf)-h.size:]
	}
	h.buffers[userID] = buf
}

// Recent returns a copy of the user's trail, oldest first.
func (h *HistoryBuffer) Recent(userID uuid.UUID) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := h.buffers[userID]
	out := make([]HistoryEntry, len(buf))
	copy(out, buf)
	return out
}

// Narratives returns just the narrative texts of the trail, oldest first,
// the shape the generation request consumes.
func (h *HistoryBuffer) Narratives(userID uuid.UUID) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := h.buffers[userID]
	if len(buf) == 0 {
		return nil
	}
	out := make([]string, len(buf))
	for i, entry := range buf {
		out[i] = entry.NarrativeText
	}
	return out
}

// Clear drops the user's trail, used when a new story starts.
func (h *HistoryBuffer) Clear(userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.buffers, userID)
}
