package chatclient

import (
	"os"
	"testing"

	"supply_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func TestUnreadTracker_CountsOtherRooms(t *testing.T) {
	tr := NewUnreadTracker("vendor-1")
	tr.SetActiveRoom("geo-12.9,77.6")

	tr.Observe("order-ord-1", "supplier-1")
	tr.Observe("order-ord-1", "supplier-1")
	tr.Observe("geo-12.9,77.6", "vendor-2")

	assert.Equal(t, 2, tr.Count("order-ord-1"))
	// the active room never accrues unread
	assert.Equal(t, 0, tr.Count("geo-12.9,77.6"))
}

func TestUnreadTracker_OwnMessagesDoNotCount(t *testing.T) {
	tr := NewUnreadTracker("vendor-1")
	tr.Observe("order-ord-1", "vendor-1")
	assert.Equal(t, 0, tr.Count("order-ord-1"))
}

func TestUnreadTracker_FocusClearsCounter(t *testing.T) {
	tr := NewUnreadTracker("vendor-1")
	tr.Observe("order-ord-1", "supplier-1")
	tr.Observe("order-ord-1", "supplier-1")
	assert.Equal(t, 2, tr.Count("order-ord-1"))

	tr.SetActiveRoom("order-ord-1")
	assert.Equal(t, 0, tr.Count("order-ord-1"))

	// messages arriving while focused stay read
	tr.Observe("order-ord-1", "supplier-1")
	assert.Equal(t, 0, tr.Count("order-ord-1"))

	// unfocusing resumes counting
	tr.SetActiveRoom("")
	tr.Observe("order-ord-1", "supplier-1")
	assert.Equal(t, 1, tr.Count("order-ord-1"))
}

func TestUnreadTracker_MarkRead(t *testing.T) {
	tr := NewUnreadTracker("vendor-1")
	tr.Observe("order-ord-1", "supplier-1")
	tr.Observe("geo-12.9,77.6", "vendor-2")

	tr.MarkRead("order-ord-1")
	assert.Equal(t, 0, tr.Count("order-ord-1"))
	assert.Equal(t, 1, tr.Count("geo-12.9,77.6"))
}

func TestUnreadTracker_CountsSnapshot(t *testing.T) {
	tr := NewUnreadTracker("vendor-1")
	tr.Observe("order-ord-1", "supplier-1")
	tr.Observe("geo-12.9,77.6", "vendor-2")
	tr.Observe("geo-12.9,77.6", "vendor-3")

	counts := tr.Counts()
	assert.Equal(t, map[string]int{"order-ord-1": 1, "geo-12.9,77.6": 2}, counts)

	// the snapshot is detached from the tracker
	counts["order-ord-1"] = 99
	assert.Equal(t, 1, tr.Count("order-ord-1"))
}

func TestUnreadTracker_IgnoresEmptyRoomKey(t *testing.T) {
	tr := NewUnreadTracker("vendor-1")
	tr.Observe("", "supplier-1")
	assert.Empty(t, tr.Counts())
}
