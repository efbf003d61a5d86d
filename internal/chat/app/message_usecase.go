package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/internal/chat/repository"
	"supply_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventSink receives a copy of every persisted message for the analytics
// stream. *kafka.Writer satisfies it; nil disables emission.
type EventSink interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SendMessageUseCase is the message router: validate, persist, fan out. All
// sends for one room pass through that room's lock, which is the single
// linearization point the ordering guarantee hangs on.
type SendMessageUseCase struct {
	msgRepo   repository.MessageRepository
	orderRepo repository.OrderRepository
	hub       *Hub
	sink      EventSink

	mu    sync.Mutex
	rooms map[string]*roomSendState
}

// roomSendState serializes sends and keeps timestamps strictly increasing
// within one room, so store order always equals delivery order.
type roomSendState struct {
	mu     sync.Mutex
	lastTS int64
}

// NewSendMessageUseCase init create message use case
func NewSendMessageUseCase(
	msgRepo repository.MessageRepository,
	orderRepo repository.OrderRepository,
	hub *Hub,
	sink EventSink,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		msgRepo:   msgRepo,
		orderRepo: orderRepo,
		hub:       hub,
		sink:      sink,
		rooms:     make(map[string]*roomSendState),
	}
}

// Execute routes one message: reject bad input, persist with a
// server-assigned id and timestamp, then fan out to every member of the room
// including the sender (the sender's echo replaces its optimistic copy). A
// failed persist is never broadcast.
func (uc *SendMessageUseCase) Execute(ctx context.Context, roomKey, senderID, senderName, content string) (*domain.ChatMessage, error) {
	if senderID == "" {
		return nil, domain.ErrMissingUserID
	}
	kind, ok := domain.KindOfRoomKey(roomKey)
	if !ok {
		return nil, domain.ErrMissingRoomKey
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}

	if kind == domain.RoomKindOrder {
		orderID, _ := domain.OrderIDFromRoomKey(roomKey)
		if err := authorizeOrderAccess(ctx, uc.orderRepo, orderID, senderID); err != nil {
			return nil, err
		}
	}

	state := uc.roomState(roomKey)
	state.mu.Lock()
	defer state.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts <= state.lastTS {
		ts = state.lastTS + 1
	}
	state.lastTS = ts

	msg := domain.ChatMessage{
		ID:         uuid.New().String(),
		RoomKey:    roomKey,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  ts,
	}

	if err := uc.msgRepo.Insert(ctx, &msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	uc.hub.Broadcast(ctx, roomKey, domain.NewMessageEvent(msg), "")
	uc.emit(msg)

	return &msg, nil
}

func (uc *SendMessageUseCase) roomState(roomKey string) *roomSendState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	state, ok := uc.rooms[roomKey]
	if !ok {
		state = &roomSendState{}
		uc.rooms[roomKey] = state
	}
	return state
}

// emit pushes the persisted message onto the analytics stream without
// blocking the send path.
func (uc *SendMessageUseCase) emit(msg domain.ChatMessage) {
	if uc.sink == nil {
		return
	}
	go func() {
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Log.Errorf("marshal message event failed:", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := uc.sink.WriteMessages(ctx, kafka.Message{
			Key:   []byte(msg.RoomKey),
			Value: data,
		}); err != nil {
			logger.Log.Error("emit message event failed",
				zap.String("roomKey", msg.RoomKey), zap.Error(err))
		}
	}()
}

// authorizeOrderAccess allows only the order's buyer or seller into its chat.
func authorizeOrderAccess(ctx context.Context, orders repository.OrderRepository, orderID, userID string) error {
	order, err := orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.IsParticipant(userID) {
		return domain.ErrNotOrderParticipant
	}
	return nil
}
