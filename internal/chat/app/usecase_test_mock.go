package app

import (
	"context"
	"sync"

	"supply_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock insert msg
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindRecent mock find recent msg page
func (m *MockMessageRepository) FindRecent(ctx context.Context, roomKey string, page, pageSize int) ([]domain.ChatMessage, bool, error) {
	args := m.Called(ctx, roomKey, page, pageSize)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

// MockOrderRepository Mock OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

// FindByID mock find order by order id
func (m *MockOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventSink Mock EventSink
type MockEventSink struct {
	mock.Mock
}

// WriteMessages mock kafka writer
func (m *MockEventSink) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

// recorderConn collects every frame written to one fake client connection.
type recorderConn struct {
	mu     sync.Mutex
	frames []domain.WSResponse
}

func newRecorderConn() *recorderConn {
	return &recorderConn{}
}

func (c *recorderConn) WriteResponse(resp domain.WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, resp)
	return nil
}

// Frames returns a snapshot of everything written so far.
func (c *recorderConn) Frames() []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WSResponse, len(c.frames))
	copy(out, c.frames)
	return out
}

// Events returns just the event names, in write order.
func (c *recorderConn) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Event)
	}
	return out
}

func (c *recorderConn) countEvent(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		if f.Event == event {
			n++
		}
	}
	return n
}
