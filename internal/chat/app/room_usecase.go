package app

import (
	"context"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/internal/chat/repository"
	"supply_chat_service/pkg/token"
)

// RoomUseCase resolves chat contexts to room keys and runs join/leave
// through the hub, with order-room authorization in front.
type RoomUseCase struct {
	hub       *Hub
	orderRepo repository.OrderRepository
}

// NewRoomUseCase init room use case
func NewRoomUseCase(hub *Hub, orderRepo repository.OrderRepository) *RoomUseCase {
	return &RoomUseCase{
		hub:       hub,
		orderRepo: orderRepo,
	}
}

// ResolveLocationRoom maps client coordinates to a geo room key; nil or
// unusable coordinates land in the public fallback room.
func (uc *RoomUseCase) ResolveLocationRoom(coords *domain.Coordinates) string {
	if coords == nil {
		return domain.FallbackGeoRoomKey
	}
	return domain.GeoRoomKey(coords.Lat, coords.Lng)
}

// JoinLocation joins conn to the geo room for coords and returns the room
// key plus the updated active-user count.
func (uc *RoomUseCase) JoinLocation(ctx context.Context, conn ClientConn, userID, userName string, coords *domain.Coordinates) (string, int, error) {
	roomKey := uc.ResolveLocationRoom(coords)
	count, err := uc.hub.Join(ctx, conn, roomKey, userID, userName)
	if err != nil {
		return "", 0, err
	}
	return roomKey, count, nil
}

// LeaveLocation leaves the geo room for coords. Idempotent.
func (uc *RoomUseCase) LeaveLocation(ctx context.Context, conn ClientConn, coords *domain.Coordinates) string {
	roomKey := uc.ResolveLocationRoom(coords)
	uc.hub.Leave(ctx, conn, roomKey)
	return roomKey
}

// JoinOrderChat joins conn to the order's private room. Only the recorded
// buyer or seller gets in; a rejected join creates no presence entry.
func (uc *RoomUseCase) JoinOrderChat(ctx context.Context, conn ClientConn, userID, userName, role, orderID string) (string, int, error) {
	if err := uc.AuthorizeOrder(ctx, orderID, userID, role); err != nil {
		return "", 0, err
	}

	roomKey := domain.OrderRoomKey(orderID)
	count, err := uc.hub.Join(ctx, conn, roomKey, userID, userName)
	if err != nil {
		return "", 0, err
	}
	return roomKey, count, nil
}

// LeaveOrderChat leaves the order room. Idempotent, and deliberately skips
// the order lookup: leaving a room you are not in is a no-op anyway.
func (uc *RoomUseCase) LeaveOrderChat(ctx context.Context, conn ClientConn, orderID string) string {
	roomKey := domain.OrderRoomKey(orderID)
	uc.hub.Leave(ctx, conn, roomKey)
	return roomKey
}

// AuthorizeOrder checks that userID may use the order's chat thread.
func (uc *RoomUseCase) AuthorizeOrder(ctx context.Context, orderID, userID, role string) error {
	if role == string(token.RoleGuest) {
		return domain.ErrGuestOrderChat
	}
	if orderID == "" {
		return domain.ErrMissingOrderID
	}
	return authorizeOrderAccess(ctx, uc.orderRepo, orderID, userID)
}
