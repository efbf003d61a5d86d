package chatclient

import "sync"

// UnreadTracker keeps per-room unread counters for one client. Counters are
// derived locally from the message stream: a message from someone else, in a
// room that is not the active view, counts as unread until the room is
// opened. Nothing here is shared with the server or other devices.
type UnreadTracker struct {
	mu     sync.Mutex
	selfID string
	active string
	counts map[string]int
}

// NewUnreadTracker create an UnreadTracker for the given user.
func NewUnreadTracker(selfID string) *UnreadTracker {
	return &UnreadTracker{
		selfID: selfID,
		counts: make(map[string]int),
	}
}

// SetActiveRoom marks roomKey as the room currently on screen and clears its
// counter. Pass "" when no room is focused.
func (t *UnreadTracker) SetActiveRoom(roomKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = roomKey
	if roomKey != "" {
		delete(t.counts, roomKey)
	}
}

// Observe feeds one received message into the tracker.
func (t *UnreadTracker) Observe(roomKey, senderID string) {
	if roomKey == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if senderID == t.selfID || roomKey == t.active {
		return
	}
	t.counts[roomKey]++
}

// MarkRead clears the counter for a room without focusing it.
func (t *UnreadTracker) MarkRead(roomKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, roomKey)
}

// Count returns the unread count for one room.
func (t *UnreadTracker) Count(roomKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[roomKey]
}

// Counts returns a copy of all non-zero counters.
func (t *UnreadTracker) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
