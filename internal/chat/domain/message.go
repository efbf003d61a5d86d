package domain

// MaxMessageLength is the server-side bound on a chat message body, counted
// in characters, not bytes. The web client trims at the same length; the
// server enforces it authoritatively.
const MaxMessageLength = 1000

// ChatMessage is one persisted chat message. Immutable once created; the
// server assigns ID and CreatedAt at persistence time and the store keeps a
// strictly time-ordered append-only sequence per room.
type ChatMessage struct {
	ID         string `bson:"_id" json:"id"`
	RoomKey    string `bson:"room_key" json:"roomKey"`
	SenderID   string `bson:"sender_id" json:"senderId"`
	SenderName string `bson:"sender_name" json:"senderName"`
	Content    string `bson:"content" json:"message"`
	// CreatedAt unix milliseconds, strictly increasing within a room
	CreatedAt int64 `bson:"created_at" json:"createdAt"`
}

// HistoryPage is one page of past messages. Page 1 holds the newest
// messages; inside a page messages run oldest-first so the client can
// prepend them directly.
type HistoryPage struct {
	RoomKey  string        `json:"roomKey"`
	Page     int           `json:"page"`
	Messages []ChatMessage `json:"messages"`
	HasMore  bool          `json:"hasMore"`
}

// Order is the slice of an order record the chat service needs: who may join
// the order's private room. The order-management service owns everything else.
type Order struct {
	ID       string `json:"id"`
	BuyerID  string `json:"buyerId"`
	SellerID string `json:"sellerId"`
	Status   string `json:"status"`
}

// IsParticipant reports whether userID is the buyer or the seller.
func (o *Order) IsParticipant(userID string) bool {
	return userID != "" && (userID == o.BuyerID || userID == o.SellerID)
}
