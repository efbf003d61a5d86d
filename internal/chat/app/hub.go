package app

import (
	"context"
	"sync"
	"time"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/internal/chat/repository"
	"supply_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ClientConn is the write side of one connected client. The websocket
// handler wraps the real socket; tests substitute a recorder.
type ClientConn interface {
	WriteResponse(resp domain.WSResponse) error
}

// Hub owns all volatile room state for this node: which connections are in
// which rooms, per-room presence counts and typing timers. Everything here
// dies with the process; durable state lives in the message store.
type Hub struct {
	transport   repository.RoomTransport
	locationTTL time.Duration
	orderTTL    time.Duration

	mu    sync.RWMutex
	rooms map[string]*room
	conns map[ClientConn]map[string]struct{}
}

type member struct {
	userID   string
	userName string
}

type room struct {
	key     string
	members map[ClientConn]member
	// users holds connection counts per user id; len(users) is the
	// room's active-user count
	users     map[string]int
	typing    map[string]*typingState
	cancelSub context.CancelFunc
}

type typingState struct {
	userName string
	timer    *time.Timer
}

// NewHub create a Hub over the given room transport.
func NewHub(transport repository.RoomTransport, locationTTL, orderTTL time.Duration) *Hub {
	return &Hub{
		transport:   transport,
		locationTTL: locationTTL,
		orderTTL:    orderTTL,
		rooms:       make(map[string]*room),
		conns:       make(map[ClientConn]map[string]struct{}),
	}
}

// Join adds conn to the room and returns the updated active-user count.
// Membership and presence are written together or not at all. The first
// connection of a user triggers userJoined plus an activeUsersUpdate to the
// other members; the joiner itself gets the count from the caller.
func (h *Hub) Join(ctx context.Context, conn ClientConn, roomKey, userID, userName string) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingUserID
	}
	if roomKey == "" {
		return 0, domain.ErrMissingRoomKey
	}

	h.mu.Lock()
	rm, ok := h.rooms[roomKey]
	if !ok {
		rm = &room{
			key:     roomKey,
			members: make(map[ClientConn]member),
			users:   make(map[string]int),
			typing:  make(map[string]*typingState),
		}
		h.rooms[roomKey] = rm
		h.subscribeRoom(rm)
	}

	if _, rejoined := rm.members[conn]; rejoined {
		count := len(rm.users)
		h.mu.Unlock()
		return count, nil
	}

	firstJoin := rm.users[userID] == 0
	rm.members[conn] = member{userID: userID, userName: userName}
	rm.users[userID]++

	if h.conns[conn] == nil {
		h.conns[conn] = make(map[string]struct{})
	}
	h.conns[conn][roomKey] = struct{}{}

	count := len(rm.users)
	h.mu.Unlock()

	if firstJoin {
		kind, _ := domain.KindOfRoomKey(roomKey)
		event := domain.EventUserJoined
		if kind == domain.RoomKindOrder {
			event = domain.EventUserJoinedOrderChat
		}
		h.Broadcast(ctx, roomKey, domain.WSResponse{
			Event:   event,
			Success: true,
			Payload: map[string]interface{}{
				"userId":   userID,
				"userName": userName,
				"roomKey":  roomKey,
			},
		}, userID)
		h.broadcastCount(ctx, roomKey, count, userID)
	}

	return count, nil
}

// Leave removes conn from the room. Leaving a room the connection never
// joined is a no-op, not an error, so disconnect cleanup and duplicate leave
// frames can never double-broadcast.
func (h *Hub) Leave(ctx context.Context, conn ClientConn, roomKey string) {
	h.mu.Lock()
	rm, ok := h.rooms[roomKey]
	if !ok {
		h.mu.Unlock()
		return
	}
	mb, ok := rm.members[conn]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(rm.members, conn)
	if joined := h.conns[conn]; joined != nil {
		delete(joined, roomKey)
		if len(joined) == 0 {
			delete(h.conns, conn)
		}
	}

	rm.users[mb.userID]--
	lastLeave := rm.users[mb.userID] <= 0
	if lastLeave {
		delete(rm.users, mb.userID)
		// a vanished user stops typing by definition; drop the timer quietly
		if ts, ok := rm.typing[mb.userID]; ok {
			ts.timer.Stop()
			delete(rm.typing, mb.userID)
		}
	}

	count := len(rm.users)
	if len(rm.members) == 0 {
		h.dropRoomLocked(rm)
	}
	h.mu.Unlock()

	if lastLeave {
		kind, _ := domain.KindOfRoomKey(roomKey)
		event := domain.EventUserLeft
		if kind == domain.RoomKindOrder {
			event = domain.EventUserLeftOrderChat
		}
		h.Broadcast(ctx, roomKey, domain.WSResponse{
			Event:   event,
			Success: true,
			Payload: map[string]interface{}{
				"userId":  mb.userID,
				"roomKey": roomKey,
			},
		}, mb.userID)
		h.broadcastCount(ctx, roomKey, count, mb.userID)
	}
}

// Disconnect runs the leave bookkeeping for every room the connection was a
// member of. Safe to call more than once.
func (h *Hub) Disconnect(ctx context.Context, conn ClientConn) {
	h.mu.RLock()
	joined := make([]string, 0, len(h.conns[conn]))
	for roomKey := range h.conns[conn] {
		joined = append(joined, roomKey)
	}
	h.mu.RUnlock()

	for _, roomKey := range joined {
		h.Leave(ctx, conn, roomKey)
	}
}

// ActiveCount returns the room's current distinct-user count.
func (h *Hub) ActiveCount(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rm, ok := h.rooms[roomKey]; ok {
		return len(rm.users)
	}
	return 0
}

// IsMember reports whether conn currently belongs to the room.
func (h *Hub) IsMember(conn ClientConn, roomKey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[conn][roomKey]
	return ok
}

// SetTyping handles a typing signal. true broadcasts typing-started to the
// other members and arms (or refreshes) the expiry timer; false or expiry
// emits exactly one typing-stopped. State is per (room, user) and transient.
func (h *Hub) SetTyping(ctx context.Context, roomKey, userID, userName string, isTyping bool) {
	if userID == "" || roomKey == "" {
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[roomKey]
	if !ok {
		h.mu.Unlock()
		return
	}
	// only members may signal typing; joining is where order rooms check
	// buyer/seller authorization, so the gate also covers those
	if rm.users[userID] == 0 {
		h.mu.Unlock()
		return
	}

	if isTyping {
		ttl := h.typingTTL(roomKey)
		if ts, ok := rm.typing[userID]; ok {
			ts.timer.Reset(ttl)
		} else {
			rm.typing[userID] = &typingState{
				userName: userName,
				timer: time.AfterFunc(ttl, func() {
					h.expireTyping(roomKey, userID)
				}),
			}
		}
		h.mu.Unlock()
		h.broadcastTyping(ctx, roomKey, userID, userName, true)
		return
	}

	ts, ok := rm.typing[userID]
	if !ok {
		// already stopped (explicitly or by TTL); never emit a second stop
		h.mu.Unlock()
		return
	}
	ts.timer.Stop()
	delete(rm.typing, userID)
	h.mu.Unlock()
	h.broadcastTyping(ctx, roomKey, userID, ts.userName, false)
}

func (h *Hub) expireTyping(roomKey, userID string) {
	h.mu.Lock()
	rm, ok := h.rooms[roomKey]
	if !ok {
		h.mu.Unlock()
		return
	}
	ts, ok := rm.typing[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(rm.typing, userID)
	h.mu.Unlock()

	h.broadcastTyping(context.Background(), roomKey, userID, ts.userName, false)
}

func (h *Hub) typingTTL(roomKey string) time.Duration {
	if kind, ok := domain.KindOfRoomKey(roomKey); ok && kind == domain.RoomKindOrder {
		return h.orderTTL
	}
	return h.locationTTL
}

func (h *Hub) broadcastTyping(ctx context.Context, roomKey, userID, userName string, isTyping bool) {
	kind, _ := domain.KindOfRoomKey(roomKey)
	event := domain.EventUserTyping
	if kind == domain.RoomKindOrder {
		event = domain.EventOrderChatUserTyping
	}
	h.Broadcast(ctx, roomKey, domain.WSResponse{
		Event:   event,
		Success: true,
		Payload: map[string]interface{}{
			"userId":    userID,
			"userName":  userName,
			"isTyping":  isTyping,
			"timestamp": time.Now().UnixMilli(),
		},
	}, userID)
}

func (h *Hub) broadcastCount(ctx context.Context, roomKey string, count int, exceptUserID string) {
	h.Broadcast(ctx, roomKey, domain.WSResponse{
		Event:   domain.EventActiveUsersUpdate,
		Success: true,
		Payload: map[string]interface{}{
			"roomKey":     roomKey,
			"activeCount": count,
		},
	}, exceptUserID)
}

// Broadcast fans a frame out to the room through the transport. The node's
// own subscription delivers it to local members, so local and remote members
// see the identical order. exceptUserID skips that user's connections on
// delivery (empty means everyone, sender included).
func (h *Hub) Broadcast(ctx context.Context, roomKey string, resp domain.WSResponse, exceptUserID string) {
	env := domain.RoomEnvelope{
		RoomKey:      roomKey,
		ExceptUserID: exceptUserID,
		Resp:         resp,
	}
	if h.transport == nil {
		h.deliverLocal(env)
		return
	}
	if err := h.transport.Publish(ctx, env); err != nil {
		logger.Log.Error("room transport publish failed",
			zap.String("roomKey", roomKey), zap.String("event", resp.Event), zap.Error(err))
	}
}

// deliverLocal writes the frame to this node's members of the room. Writes
// are fire-and-forget; a dead socket surfaces on its own read loop.
func (h *Hub) deliverLocal(env domain.RoomEnvelope) {
	h.mu.RLock()
	rm, ok := h.rooms[env.RoomKey]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]ClientConn, 0, len(rm.members))
	for conn, mb := range rm.members {
		if env.ExceptUserID != "" && mb.userID == env.ExceptUserID {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteResponse(env.Resp); err != nil {
			logger.Log.Errorf("room broadcast write failed:", err,
				zap.String("roomKey", env.RoomKey), zap.String("event", env.Resp.Event))
		}
	}
}

// subscribeRoom wires this node into the room's transport channel. Called
// with h.mu held when the room is created; cancelled when it empties.
func (h *Hub) subscribeRoom(rm *room) {
	if h.transport == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelSub = cancel
	if err := h.transport.Subscribe(ctx, rm.key, h.deliverLocal); err != nil {
		logger.Log.Error("room transport subscribe failed",
			zap.String("roomKey", rm.key), zap.Error(err))
	}
}

func (h *Hub) dropRoomLocked(rm *room) {
	for _, ts := range rm.typing {
		ts.timer.Stop()
	}
	if rm.cancelSub != nil {
		rm.cancelSub()
	}
	delete(h.rooms, rm.key)
}
