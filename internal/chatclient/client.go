package chatclient

import (
	"encoding/json"
	"sync"
	"time"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/pkg/config"
	"supply_chat_service/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the client connection state. Offline means the supervisor spent
// its retry budget; recovering from it takes an explicit Connect call.
type State string

const (
	// StateDisconnected before Connect or after Close
	StateDisconnected State = "disconnected"
	// StateConnected socket up, sends allowed
	StateConnected State = "connected"
	// StateReconnecting supervisor is retrying
	StateReconnecting State = "reconnecting"
	// StateOffline retry budget exhausted, waiting for manual retry
	StateOffline State = "offline"
)

// Conn is the minimal socket surface the client needs; *websocket.Conn from
// gorilla satisfies it and tests substitute a fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens one websocket connection.
type Dialer interface {
	Dial(url string) (Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// Options configures a Client.
type Options struct {
	// URL full websocket URL including the auth query parameter
	URL    string
	UserID string

	// ReconnectAttempts/ReconnectDelay bound the supervisor; zero values
	// fall back to the service defaults
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// Dialer defaults to gorilla/websocket
	Dialer Dialer

	// OnEvent receives every server frame after unread bookkeeping
	OnEvent func(resp domain.WSResponse)
	// OnStateChange observes connection state transitions
	OnStateChange func(state State)
}

// Client is the single owned connection manager for one user session: one
// socket, explicit lifecycle, join-state memory for reconnects and local
// unread counters. It replaces any notion of an ambient shared socket.
type Client struct {
	opts   Options
	unread *UnreadTracker

	mu     sync.Mutex
	conn   Conn
	state  State
	closed bool
	// joined remembers the join frame per room key; the server forgets
	// membership on disconnect, so rejoin works from this map alone
	joined map[string]domain.WSRequest
}

// NewClient create a Client. Call Connect to bring the socket up.
func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = gorillaDialer{}
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = config.DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = config.DefaultReconnectDelay
	}
	return &Client{
		opts:   opts,
		unread: NewUnreadTracker(opts.UserID),
		state:  StateDisconnected,
		joined: make(map[string]domain.WSRequest),
	}
}

// NewClientFromConfig create a Client whose reconnection policy comes from
// the service configuration.
func NewClientFromConfig(opts Options, cc config.ClientConfig) *Client {
	opts.ReconnectAttempts = cc.ReconnectAttempts
	opts.ReconnectDelay = cc.ReconnectDelay
	return NewClient(opts)
}

// Unread exposes the client's unread counters.
func (c *Client) Unread() *UnreadTracker {
	return c.unread
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the server and starts the read loop. Also the manual retry
// entry point after the supervisor gave up.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.mu.Unlock()

	conn, err := c.opts.Dialer.Dial(c.opts.URL)
	if err != nil {
		c.setState(StateOffline)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	go c.readLoop(conn)
	return nil
}

// Close tears the session down for good; no reconnection follows.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	c.setState(StateDisconnected)

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// JoinLocation joins the geo room for the given coordinates.
func (c *Client) JoinLocation(coords *domain.Coordinates) error {
	req := domain.WSRequest{Action: domain.ActionJoinLocation, Coordinates: coords}
	roomKey := resolveGeo(coords)
	if err := c.send(req); err != nil {
		return err
	}
	c.mu.Lock()
	c.joined[roomKey] = req
	c.mu.Unlock()
	return nil
}

// LeaveLocation leaves the geo room for the given coordinates.
func (c *Client) LeaveLocation(coords *domain.Coordinates) error {
	roomKey := resolveGeo(coords)
	c.mu.Lock()
	delete(c.joined, roomKey)
	c.mu.Unlock()
	return c.send(domain.WSRequest{Action: domain.ActionLeaveLocation, Coordinates: coords})
}

// JoinOrderChat joins the private room for an order.
func (c *Client) JoinOrderChat(orderID string) error {
	req := domain.WSRequest{Action: domain.ActionJoinOrderChat, OrderID: orderID}
	if err := c.send(req); err != nil {
		return err
	}
	c.mu.Lock()
	c.joined[domain.OrderRoomKey(orderID)] = req
	c.mu.Unlock()
	return nil
}

// LeaveOrderChat leaves the private room for an order.
func (c *Client) LeaveOrderChat(orderID string) error {
	c.mu.Lock()
	delete(c.joined, domain.OrderRoomKey(orderID))
	c.mu.Unlock()
	return c.send(domain.WSRequest{Action: domain.ActionLeaveOrderChat, OrderID: orderID})
}

// SendLocationMessage sends to the geo room. Fails immediately with
// ErrDisconnected while the socket is down; nothing is queued.
func (c *Client) SendLocationMessage(coords *domain.Coordinates, message string) error {
	return c.send(domain.WSRequest{
		Action:      domain.ActionSendMessage,
		Coordinates: coords,
		Message:     message,
	})
}

// SendOrderMessage sends to an order room.
func (c *Client) SendOrderMessage(orderID, message string) error {
	return c.send(domain.WSRequest{
		Action:  domain.ActionSendOrderChatMessage,
		OrderID: orderID,
		Message: message,
	})
}

// SetTyping signals typing state to the geo room.
func (c *Client) SetTyping(coords *domain.Coordinates, isTyping bool) error {
	return c.send(domain.WSRequest{
		Action:      domain.ActionTyping,
		Coordinates: coords,
		IsTyping:    isTyping,
	})
}

// SetOrderTyping signals typing state to an order room.
func (c *Client) SetOrderTyping(orderID string, isTyping bool) error {
	return c.send(domain.WSRequest{
		Action:   domain.ActionOrderChatTyping,
		OrderID:  orderID,
		IsTyping: isTyping,
	})
}

func (c *Client) send(req domain.WSRequest) error {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if state != StateConnected || conn == nil {
		return domain.ErrDisconnected
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			c.supervise()
			return
		}

		var resp domain.WSResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Log.Errorf("client frame decode error:", err)
			continue
		}
		c.observe(resp)
		if c.opts.OnEvent != nil {
			c.opts.OnEvent(resp)
		}
	}
}

// observe feeds message events into the unread tracker before the app sees
// them.
func (c *Client) observe(resp domain.WSResponse) {
	switch resp.Event {
	case domain.EventReceiveMessage, domain.EventReceiveOrderChatMessage:
		roomKey, _ := resp.Payload["roomKey"].(string)
		senderID, _ := resp.Payload["senderId"].(string)
		c.unread.Observe(roomKey, senderID)
	}
}

// supervise is the reconnection supervisor: bounded retries with a fixed
// delay, then rejoin every room this client considered itself a member of.
// The server dropped those memberships on disconnect, so the join sequence
// is replayed from local state. Exhausting the budget parks the client in
// StateOffline for a manual retry.
func (c *Client) supervise() {
	c.setState(StateReconnecting)

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		time.Sleep(c.opts.ReconnectDelay)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.opts.Dialer.Dial(c.opts.URL)
		if err != nil {
			logger.Log.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		c.mu.Lock()
		c.conn = conn
		rejoins := make([]domain.WSRequest, 0, len(c.joined))
		for _, req := range c.joined {
			rejoins = append(rejoins, req)
		}
		c.mu.Unlock()
		c.setState(StateConnected)

		for _, req := range rejoins {
			if err := c.send(req); err != nil {
				logger.Log.Errorf("rejoin failed:", err)
			}
		}

		go c.readLoop(conn)
		return
	}

	c.setState(StateOffline)
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(state)
	}
}

func resolveGeo(coords *domain.Coordinates) string {
	if coords == nil {
		return domain.FallbackGeoRoomKey
	}
	return domain.GeoRoomKey(coords.Lat, coords.Lng)
}
