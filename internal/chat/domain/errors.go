package domain

import "errors"

// Validation errors. Rejected synchronously, never persisted or broadcast.
var (
	// ErrEmptyMessage message body empty or whitespace-only
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong message body over MaxMessageLength
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	// ErrMissingUserID join without an authenticated or guest identity
	ErrMissingUserID = errors.New("missing user id")
	// ErrMissingRoomKey operation without a room key
	ErrMissingRoomKey = errors.New("missing room key")
	// ErrMissingOrderID order-chat action without an order id
	ErrMissingOrderID = errors.New("missing order id")
	// ErrUnknownAction unrecognized websocket action tag
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidPage history page below 1
	ErrInvalidPage = errors.New("page must be >= 1")
)

// Authorization errors. No room state is created on rejection.
var (
	// ErrOrderNotFound order id does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotOrderParticipant requester is neither buyer nor seller
	ErrNotOrderParticipant = errors.New("not a participant of this order")
	// ErrGuestOrderChat guests may only use location chat
	ErrGuestOrderChat = errors.New("order chat requires a signed-in account")
)

// Transport / client-state errors.
var (
	// ErrDisconnected send or typing attempted while the connection is down
	ErrDisconnected = errors.New("connection is offline")
)

// IsValidation reports whether err is one of the validation sentinels.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong),
		errors.Is(err, ErrMissingUserID),
		errors.Is(err, ErrMissingRoomKey),
		errors.Is(err, ErrMissingOrderID),
		errors.Is(err, ErrUnknownAction),
		errors.Is(err, ErrInvalidPage):
		return true
	}
	return false
}

// IsAuthorization reports whether err is one of the authorization sentinels.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrNotOrderParticipant) ||
		errors.Is(err, ErrGuestOrderChat)
}
