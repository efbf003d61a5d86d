package app

import (
	"context"
	"os"
	"testing"
	"time"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func newTestHub() *Hub {
	// nil transport delivers locally and synchronously
	return NewHub(nil, 2*time.Second, 3*time.Second)
}

func TestHubJoin_CountsDistinctUsers(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.GeoRoomKey(12.94, 77.61)

	connA := newRecorderConn()
	count, err := hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	connB := newRecorderConn()
	count, err = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	// second device of the same user joins: member count unchanged
	connA2 := newRecorderConn()
	count, err = hub.Join(ctx, connA2, roomKey, "vendor-1", "Ravi")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, hub.ActiveCount(roomKey))
}

func TestHubJoin_Validation(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()

	_, err := hub.Join(ctx, newRecorderConn(), domain.FallbackGeoRoomKey, "", "Nameless")
	assert.ErrorIs(t, err, domain.ErrMissingUserID)

	_, err = hub.Join(ctx, newRecorderConn(), "", "vendor-1", "Ravi")
	assert.ErrorIs(t, err, domain.ErrMissingRoomKey)
}

func TestHubJoin_RejoinIsNoOp(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	before := connB.countEvent(domain.EventUserJoined)
	count, err := hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	// no duplicate join notice for a connection already in the room
	assert.Equal(t, before, connB.countEvent(domain.EventUserJoined))
}

func TestHubJoin_NotifiesOthersNotJoiner(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")

	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	assert.Equal(t, 1, connA.countEvent(domain.EventUserJoined))
	assert.Equal(t, 1, connA.countEvent(domain.EventActiveUsersUpdate))
	// the joiner hears about itself from the join confirmation, not the room
	assert.Equal(t, 0, connB.countEvent(domain.EventUserJoined))
	assert.Equal(t, 0, connB.countEvent(domain.EventActiveUsersUpdate))
}

func TestHubLeave_Idempotent(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	hub.Leave(ctx, connA, roomKey)
	hub.Leave(ctx, connA, roomKey)
	hub.Leave(ctx, connA, roomKey)

	assert.Equal(t, 1, hub.ActiveCount(roomKey))
	assert.Equal(t, 1, connB.countEvent(domain.EventUserLeft))
	assert.False(t, hub.IsMember(connA, roomKey))
}

func TestHubLeave_UnknownRoomOrStranger(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	// leaving a room that does not exist
	hub.Leave(ctx, newRecorderConn(), "geo-0.0,0.0")

	connA := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")

	// a connection that never joined leaves: nothing changes
	hub.Leave(ctx, newRecorderConn(), roomKey)
	assert.Equal(t, 1, hub.ActiveCount(roomKey))
}

func TestHubLeave_MultiDeviceUserStaysUntilLastConnection(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connA2 := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connA2, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	hub.Leave(ctx, connA, roomKey)
	assert.Equal(t, 2, hub.ActiveCount(roomKey))
	assert.Equal(t, 0, connB.countEvent(domain.EventUserLeft))

	hub.Leave(ctx, connA2, roomKey)
	assert.Equal(t, 1, hub.ActiveCount(roomKey))
	assert.Equal(t, 1, connB.countEvent(domain.EventUserLeft))
}

func TestHubDisconnect_CleansEveryRoom(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	geoKey := domain.FallbackGeoRoomKey
	orderKey := domain.OrderRoomKey("ord-1")

	connA := newRecorderConn()
	_, _ = hub.Join(ctx, connA, geoKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connA, orderKey, "vendor-1", "Ravi")

	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connB, geoKey, "vendor-2", "Meena")
	_, _ = hub.Join(ctx, connB, orderKey, "vendor-2", "Meena")

	hub.Disconnect(ctx, connA)

	assert.Equal(t, 1, hub.ActiveCount(geoKey))
	assert.Equal(t, 1, hub.ActiveCount(orderKey))
	assert.False(t, hub.IsMember(connA, geoKey))
	assert.False(t, hub.IsMember(connA, orderKey))
	assert.Equal(t, 1, connB.countEvent(domain.EventUserLeft))
	assert.Equal(t, 1, connB.countEvent(domain.EventUserLeftOrderChat))

	// a second disconnect is harmless
	hub.Disconnect(ctx, connA)
	assert.Equal(t, 1, hub.ActiveCount(geoKey))
}

func TestHubBroadcast_ExceptUserSkipsAllTheirConnections(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connA2 := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connA2, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	resp := domain.WSResponse{Event: "probe", Success: true}
	hub.Broadcast(ctx, roomKey, resp, "vendor-1")

	assert.Equal(t, 0, connA.countEvent("probe"))
	assert.Equal(t, 0, connA2.countEvent("probe"))
	assert.Equal(t, 1, connB.countEvent("probe"))

	// empty except means everyone, both devices included
	hub.Broadcast(ctx, roomKey, resp, "")
	assert.Equal(t, 1, connA.countEvent("probe"))
	assert.Equal(t, 1, connA2.countEvent("probe"))
	assert.Equal(t, 2, connB.countEvent("probe"))
}

func TestHubSetTyping_StartRefreshStop(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, 50*time.Millisecond, 3*time.Second)
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", true)
	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", true)
	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", false)

	// typing notices go to the other members only
	assert.Equal(t, 3, connB.countEvent(domain.EventUserTyping))
	assert.Equal(t, 0, connA.countEvent(domain.EventUserTyping))

	// explicit stop already fired; the timer must not fire a second one
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 3, connB.countEvent(domain.EventUserTyping))
}

func TestHubSetTyping_TTLExpiryEmitsSingleStop(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, 30*time.Millisecond, 3*time.Second)
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", true)
	time.Sleep(100 * time.Millisecond)

	// one started and one expired-stop
	assert.Equal(t, 2, connB.countEvent(domain.EventUserTyping))

	// stop after expiry finds no typing state and stays silent
	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", false)
	assert.Equal(t, 2, connB.countEvent(domain.EventUserTyping))
}

func TestHubSetTyping_StopWithoutStartIsSilent(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", false)
	assert.Equal(t, 0, connB.countEvent(domain.EventUserTyping))
}

func TestHubSetTyping_NonMemberIsIgnored(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")

	// a user who never joined the room cannot broadcast typing into it
	hub.SetTyping(ctx, roomKey, "vendor-99", "Eve", true)
	assert.Equal(t, 0, connA.countEvent(domain.EventUserTyping))
}

func TestHubSetTyping_OrderRoomRequiresMembership(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.OrderRoomKey("ord-9")

	buyer := newRecorderConn()
	seller := newRecorderConn()
	_, _ = hub.Join(ctx, buyer, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, seller, roomKey, "supplier-1", "Farm Fresh")

	// a stranger who was never admitted to the order room stays silent
	hub.SetTyping(ctx, roomKey, "vendor-99", "Eve", true)
	assert.Equal(t, 0, buyer.countEvent(domain.EventOrderChatUserTyping))
	assert.Equal(t, 0, seller.countEvent(domain.EventOrderChatUserTyping))

	hub.SetTyping(ctx, roomKey, "supplier-1", "Farm Fresh", true)
	assert.Equal(t, 1, buyer.countEvent(domain.EventOrderChatUserTyping))
}

func TestHubSetTyping_LeaveDropsTypingQuietly(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, 30*time.Millisecond, 3*time.Second)
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "vendor-2", "Meena")

	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", true)
	hub.Leave(ctx, connA, roomKey)

	typingBefore := connB.countEvent(domain.EventUserTyping)
	time.Sleep(100 * time.Millisecond)
	// the stopped timer never fires a stop for a user who already left
	assert.Equal(t, typingBefore, connB.countEvent(domain.EventUserTyping))
}

func TestHubOrderRoom_UsesOrderEvents(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.OrderRoomKey("ord-9")

	connA := newRecorderConn()
	connB := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	_, _ = hub.Join(ctx, connB, roomKey, "supplier-1", "Farm Fresh")

	assert.Equal(t, 1, connA.countEvent(domain.EventUserJoinedOrderChat))
	assert.Equal(t, 0, connA.countEvent(domain.EventUserJoined))

	hub.SetTyping(ctx, roomKey, "supplier-1", "Farm Fresh", true)
	assert.Equal(t, 1, connA.countEvent(domain.EventOrderChatUserTyping))

	hub.Leave(ctx, connB, roomKey)
	assert.Equal(t, 1, connA.countEvent(domain.EventUserLeftOrderChat))
}

func TestHubEmptyRoomIsDropped(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	roomKey := domain.FallbackGeoRoomKey

	connA := newRecorderConn()
	_, _ = hub.Join(ctx, connA, roomKey, "vendor-1", "Ravi")
	hub.Leave(ctx, connA, roomKey)

	assert.Equal(t, 0, hub.ActiveCount(roomKey))
	// typing into a dropped room is a no-op
	hub.SetTyping(ctx, roomKey, "vendor-1", "Ravi", true)
	assert.Empty(t, connA.Frames())
}
