package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWSRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  WSRequest
		want error
	}{
		{"join location no coords", WSRequest{Action: ActionJoinLocation}, nil},
		{"send message ok", WSRequest{Action: ActionSendMessage, Message: "hi"}, nil},
		{"send message empty", WSRequest{Action: ActionSendMessage, Message: "   "}, ErrEmptyMessage},
		{"send message too long", WSRequest{Action: ActionSendMessage, Message: strings.Repeat("a", MaxMessageLength+1)}, ErrMessageTooLong},
		{"multibyte message within bound", WSRequest{Action: ActionSendMessage, Message: strings.Repeat("अ", 400)}, nil},
		{"multibyte message at bound", WSRequest{Action: ActionSendMessage, Message: strings.Repeat("अ", MaxMessageLength)}, nil},
		{"multibyte message too long", WSRequest{Action: ActionSendMessage, Message: strings.Repeat("अ", MaxMessageLength+1)}, ErrMessageTooLong},
		{"order action without order id", WSRequest{Action: ActionJoinOrderChat}, ErrMissingOrderID},
		{"order send without order id", WSRequest{Action: ActionSendOrderChatMessage, Message: "hi"}, ErrMissingOrderID},
		{"order send ok", WSRequest{Action: ActionSendOrderChatMessage, OrderID: "ord-1", Message: "hi"}, nil},
		{"order typing ok", WSRequest{Action: ActionOrderChatTyping, OrderID: "ord-1", IsTyping: true}, nil},
		{"unknown action", WSRequest{Action: "dance"}, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestIsOrderAction(t *testing.T) {
	assert.True(t, (&WSRequest{Action: ActionJoinOrderChat}).IsOrderAction())
	assert.True(t, (&WSRequest{Action: ActionOrderChatTyping}).IsOrderAction())
	assert.False(t, (&WSRequest{Action: ActionSendMessage}).IsOrderAction())
	assert.False(t, (&WSRequest{Action: ActionTyping}).IsOrderAction())
}

func TestNewMessageEvent_PicksEventByRoomKind(t *testing.T) {
	geoMsg := ChatMessage{ID: "m1", RoomKey: GeoRoomKey(12.94, 77.61), SenderID: "u1", Content: "hi", CreatedAt: 1}
	resp := NewMessageEvent(geoMsg)
	assert.Equal(t, EventReceiveMessage, resp.Event)
	assert.True(t, resp.Success)
	assert.Equal(t, "hi", resp.Payload["message"])
	assert.Equal(t, "u1", resp.Payload["senderId"])

	orderMsg := ChatMessage{ID: "m2", RoomKey: OrderRoomKey("ord-1"), SenderID: "u1", Content: "hi", CreatedAt: 2}
	assert.Equal(t, EventReceiveOrderChatMessage, NewMessageEvent(orderMsg).Event)
}

func TestNewErrorEvent(t *testing.T) {
	resp := NewErrorEvent(false, ErrEmptyMessage)
	assert.Equal(t, EventError, resp.Event)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrEmptyMessage.Error(), resp.Error)

	resp = NewErrorEvent(true, ErrNotOrderParticipant)
	assert.Equal(t, EventOrderChatError, resp.Event)
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsValidation(ErrEmptyMessage))
	assert.True(t, IsValidation(ErrInvalidPage))
	assert.False(t, IsValidation(ErrOrderNotFound))

	assert.True(t, IsAuthorization(ErrOrderNotFound))
	assert.True(t, IsAuthorization(ErrGuestOrderChat))
	assert.False(t, IsAuthorization(ErrEmptyMessage))
	assert.False(t, IsAuthorization(ErrDisconnected))
}

func TestOrderIsParticipant(t *testing.T) {
	order := Order{ID: "ord-1", BuyerID: "vendor-1", SellerID: "supplier-1"}
	assert.True(t, order.IsParticipant("vendor-1"))
	assert.True(t, order.IsParticipant("supplier-1"))
	assert.False(t, order.IsParticipant("stranger"))
	assert.False(t, order.IsParticipant(""))
}
