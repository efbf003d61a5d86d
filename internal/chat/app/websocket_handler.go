package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/pkg/logger"
	"supply_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const pingInterval = 1 * time.Minute

// ChatWebsocketHandler owns the websocket entry point and dispatches frames
// to the use cases.
type ChatWebsocketHandler struct {
	roomUC    *RoomUseCase
	messageUC *SendMessageUseCase
	hub       *Hub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	roomUC *RoomUseCase,
	messageUC *SendMessageUseCase,
	hub *Hub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		roomUC:    roomUC,
		messageUC: messageUC,
		hub:       hub,
	}
}

// wsConn wraps the fiber websocket connection behind ClientConn. The mutex
// serializes writes: room fan-out, ping and direct replies share one socket.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteResponse(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *wsConn) writeControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// HandleConnection is the websocket connection entry point. It reads frames
// until the transport drops, then runs the full disconnect bookkeeping so no
// membership leaks.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	userName, _ := conn.Locals(middlewares.TokenUserName).(string)
	role, _ := conn.Locals(middlewares.TokenRole).(string)
	logger.Log.Info("websocket connected",
		zap.String("userID", userID), zap.String("role", role))

	client := &wsConn{conn: conn}
	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		cancel()
		h.hub.Disconnect(ctx, client)
		logger.Log.Info("websocket closed", zap.String("userID", userID))
		conn.Close()
	}()

	// fiber answers close/ping/pong frames itself; the handlers below only
	// surface them for logging
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("websocket close frame:", conn.RemoteAddr())
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		return client.writeControl(websocket.PongMessage, []byte(appData))
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := client.writeControl(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("userID", userID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			h.sendError(client, false, domain.ErrUnknownAction)
			continue
		}
		h.dispatch(ctx, client, userID, userName, role, message)
	}
}

// dispatch decodes one inbound frame and runs its action. Every failure is
// answered only on the originating connection, never broadcast.
func (h *ChatWebsocketHandler) dispatch(ctx context.Context, client *wsConn, userID, userName, role string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("frame decode error:", err)
		h.sendError(client, false, domain.ErrUnknownAction)
		return
	}

	if err := req.Validate(); err != nil {
		h.sendError(client, req.IsOrderAction(), err)
		return
	}

	switch req.Action {
	case domain.ActionJoinLocation:
		roomKey, count, err := h.roomUC.JoinLocation(ctx, client, userID, userName, req.Coordinates)
		if err != nil {
			h.sendError(client, false, err)
			return
		}
		h.sendJoined(client, roomKey, count)

	case domain.ActionLeaveLocation:
		h.roomUC.LeaveLocation(ctx, client, req.Coordinates)

	case domain.ActionJoinOrderChat:
		roomKey, count, err := h.roomUC.JoinOrderChat(ctx, client, userID, userName, role, req.OrderID)
		if err != nil {
			h.sendError(client, true, err)
			return
		}
		h.sendJoined(client, roomKey, count)

	case domain.ActionLeaveOrderChat:
		h.roomUC.LeaveOrderChat(ctx, client, req.OrderID)

	case domain.ActionSendMessage:
		roomKey := h.roomUC.ResolveLocationRoom(req.Coordinates)
		if _, err := h.messageUC.Execute(ctx, roomKey, userID, userName, req.Message); err != nil {
			h.sendError(client, false, err)
		}

	case domain.ActionSendOrderChatMessage:
		roomKey := domain.OrderRoomKey(req.OrderID)
		if _, err := h.messageUC.Execute(ctx, roomKey, userID, userName, req.Message); err != nil {
			h.sendError(client, true, err)
		}

	case domain.ActionTyping:
		roomKey := h.roomUC.ResolveLocationRoom(req.Coordinates)
		h.hub.SetTyping(ctx, roomKey, userID, userName, req.IsTyping)

	case domain.ActionOrderChatTyping:
		roomKey := domain.OrderRoomKey(req.OrderID)
		h.hub.SetTyping(ctx, roomKey, userID, userName, req.IsTyping)

	default:
		h.sendError(client, false, domain.ErrUnknownAction)
	}
}

// sendJoined confirms a join to the joiner with the room key and the current
// active-user count; the other members got their update from the hub.
func (h *ChatWebsocketHandler) sendJoined(client *wsConn, roomKey string, count int) {
	resp := domain.WSResponse{
		Event:   domain.EventActiveUsersCount,
		Success: true,
		Payload: map[string]interface{}{
			"roomKey":     roomKey,
			"activeCount": count,
		},
	}
	if err := client.WriteResponse(resp); err != nil {
		logger.Log.Errorf("write join confirmation failed:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(client *wsConn, orderChat bool, err error) {
	if !domain.IsValidation(err) && !domain.IsAuthorization(err) {
		logger.Log.Errorf("websocket action failed:", err)
	}
	if werr := client.WriteResponse(domain.NewErrorEvent(orderChat, err)); werr != nil {
		logger.Log.Errorf("write error response failed:", werr)
	}
}
