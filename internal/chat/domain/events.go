package domain

import (
	"strings"
	"unicode/utf8"
)

// Action is a websocket request action. Every inbound frame carries exactly
// one action tag; the fields it may use are fixed per action and validated at
// the boundary before any room state is touched.
type Action string

const (
	// ActionJoinLocation websocket action joinLocation
	ActionJoinLocation Action = "joinLocation"
	// ActionLeaveLocation websocket action leaveLocation
	ActionLeaveLocation Action = "leaveLocation"
	// ActionSendMessage websocket action sendMessage
	ActionSendMessage Action = "sendMessage"
	// ActionTyping websocket action typing
	ActionTyping Action = "typing"

	// ActionJoinOrderChat websocket action joinOrderChat
	ActionJoinOrderChat Action = "joinOrderChat"
	// ActionLeaveOrderChat websocket action leaveOrderChat
	ActionLeaveOrderChat Action = "leaveOrderChat"
	// ActionSendOrderChatMessage websocket action sendOrderChatMessage
	ActionSendOrderChatMessage Action = "sendOrderChatMessage"
	// ActionOrderChatTyping websocket action orderChatTyping
	ActionOrderChatTyping Action = "orderChatTyping"
)

// Server-to-client event names.
const (
	// EventReceiveMessage new message in a location room
	EventReceiveMessage = "receiveMessage"
	// EventReceiveOrderChatMessage new message in an order room
	EventReceiveOrderChatMessage = "receiveOrderChatMessage"
	// EventActiveUsersCount sent to a client right after it joins
	EventActiveUsersCount = "activeUsersCount"
	// EventActiveUsersUpdate sent to remaining members on join/leave
	EventActiveUsersUpdate = "activeUsersUpdate"
	// EventUserJoined someone entered a location room
	EventUserJoined = "userJoined"
	// EventUserLeft someone left a location room
	EventUserLeft = "userLeft"
	// EventUserJoinedOrderChat someone entered an order room
	EventUserJoinedOrderChat = "userJoinedOrderChat"
	// EventUserLeftOrderChat someone left an order room
	EventUserLeftOrderChat = "userLeftOrderChat"
	// EventUserTyping typing state change in a location room
	EventUserTyping = "userTyping"
	// EventOrderChatUserTyping typing state change in an order room
	EventOrderChatUserTyping = "orderChatUserTyping"
	// EventError room-level error for a location action
	EventError = "error"
	// EventOrderChatError room-level error for an order action
	EventOrderChatError = "orderChatError"
)

// Coordinates is the raw client location attached to location-chat actions.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WSRequest is the single inbound frame shape, tagged by Action. Identity
// (user id, display name) comes from the authenticated session, never from
// the frame.
type WSRequest struct {
	Action      Action       `json:"action"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	OrderID     string       `json:"orderId,omitempty"`
	Message     string       `json:"message,omitempty"`
	IsTyping    bool         `json:"isTyping,omitempty"`
}

// Validate checks the fields the action requires. It never touches room
// state, so a rejected frame leaves nothing behind.
func (r *WSRequest) Validate() error {
	switch r.Action {
	case ActionJoinLocation, ActionLeaveLocation, ActionTyping:
		return nil
	case ActionSendMessage:
		return validateBody(r.Message)
	case ActionJoinOrderChat, ActionLeaveOrderChat, ActionOrderChatTyping:
		if r.OrderID == "" {
			return ErrMissingOrderID
		}
		return nil
	case ActionSendOrderChatMessage:
		if r.OrderID == "" {
			return ErrMissingOrderID
		}
		return validateBody(r.Message)
	default:
		return ErrUnknownAction
	}
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// IsOrderAction reports whether the action targets an order room. Error and
// typing events pick their order-chat variants from this.
func (r *WSRequest) IsOrderAction() bool {
	switch r.Action {
	case ActionJoinOrderChat, ActionLeaveOrderChat, ActionSendOrderChatMessage, ActionOrderChatTyping:
		return true
	}
	return false
}

// WSResponse is one outbound frame.
type WSResponse struct {
	Event   string                 `json:"event"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// RoomEnvelope wraps a response for the room transport so every node can
// apply the same sender-exclusion rule when delivering to its local members.
type RoomEnvelope struct {
	RoomKey string `json:"room_key"`
	// ExceptUserID connections of this user are skipped on delivery
	// (typing and join/leave notices go to "all other members")
	ExceptUserID string     `json:"except_user_id,omitempty"`
	Resp         WSResponse `json:"resp"`
}

// NewMessageEvent builds the fan-out frame for a persisted message.
func NewMessageEvent(msg ChatMessage) WSResponse {
	event := EventReceiveMessage
	if kind, ok := KindOfRoomKey(msg.RoomKey); ok && kind == RoomKindOrder {
		event = EventReceiveOrderChatMessage
	}
	return WSResponse{
		Event:   event,
		Success: true,
		Payload: map[string]interface{}{
			"id":         msg.ID,
			"roomKey":    msg.RoomKey,
			"senderId":   msg.SenderID,
			"senderName": msg.SenderName,
			"message":    msg.Content,
			"createdAt":  msg.CreatedAt,
		},
	}
}

// NewErrorEvent builds a targeted error frame. orderChat selects the
// order-chat error event name.
func NewErrorEvent(orderChat bool, err error) WSResponse {
	event := EventError
	if orderChat {
		event = EventOrderChatError
	}
	return WSResponse{
		Event:   event,
		Success: false,
		Error:   err.Error(),
		Payload: map[string]interface{}{"message": err.Error()},
	}
}
