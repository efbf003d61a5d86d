package app

import (
	"context"
	"time"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/internal/chat/repository"
)

// HistoryUseCase serves paginated backlog for a room. Reads are independent
// of the live message path: persisted messages are immutable, so concurrent
// loads need no coordination.
type HistoryUseCase struct {
	msgRepo     repository.MessageRepository
	orderRepo   repository.OrderRepository
	pageSize    int
	readTimeout time.Duration
}

// NewHistoryUseCase init history use case
func NewHistoryUseCase(msgRepo repository.MessageRepository, orderRepo repository.OrderRepository, pageSize int, readTimeout time.Duration) *HistoryUseCase {
	return &HistoryUseCase{
		msgRepo:     msgRepo,
		orderRepo:   orderRepo,
		pageSize:    pageSize,
		readTimeout: readTimeout,
	}
}

// LoadHistory returns page N of a room's history, newest page first,
// oldest-first inside the page. A room with no messages yields an empty page
// rather than an error, so clients can load right after join. The read is
// bounded by the configured timeout instead of hanging on a slow store.
func (uc *HistoryUseCase) LoadHistory(ctx context.Context, roomKey string, page int) (*domain.HistoryPage, error) {
	if _, ok := domain.KindOfRoomKey(roomKey); !ok {
		return nil, domain.ErrMissingRoomKey
	}
	if page < 1 {
		return nil, domain.ErrInvalidPage
	}

	ctx, cancel := context.WithTimeout(ctx, uc.readTimeout)
	defer cancel()

	messages, hasMore, err := uc.msgRepo.FindRecent(ctx, roomKey, page, uc.pageSize)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	return &domain.HistoryPage{
		RoomKey:  roomKey,
		Page:     page,
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// LoadOrderHistory is LoadHistory for an order thread, gated on the
// requester being the order's buyer or seller.
func (uc *HistoryUseCase) LoadOrderHistory(ctx context.Context, orderID, userID string, page int) (*domain.HistoryPage, error) {
	if orderID == "" {
		return nil, domain.ErrMissingOrderID
	}
	if err := authorizeOrderAccess(ctx, uc.orderRepo, orderID, userID); err != nil {
		return nil, err
	}
	return uc.LoadHistory(ctx, domain.OrderRoomKey(orderID), page)
}
