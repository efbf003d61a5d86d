package router

import (
	"context"
	"errors"

	"supply_chat_service/internal/chat/app"
	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the websocket entry point and the history REST
// endpoints.
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, historyUC *app.HistoryUseCase) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	// history is also reachable over plain HTTP so a client can fetch
	// backlog right after join without waiting on the socket
	r.Get("/messages/:roomKey/recent", getRecentMessages(historyUC))
	r.Get("/orders/:orderID/messages/recent", getRecentOrderMessages(historyUC))
}

func getRecentMessages(historyUC *app.HistoryUseCase) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		pageData, err := historyUC.LoadHistory(c.Context(), c.Params("roomKey"), page)
		if err != nil {
			return historyError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"roomKey":  pageData.RoomKey,
				"page":     pageData.Page,
				"messages": pageData.Messages,
				"hasMore":  pageData.HasMore,
			},
		})
	}
}

func getRecentOrderMessages(historyUC *app.HistoryUseCase) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middlewares.TokenUserID).(string)
		page := c.QueryInt("page", 1)
		pageData, err := historyUC.LoadOrderHistory(c.Context(), c.Params("orderID"), userID, page)
		if err != nil {
			return historyError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"roomKey":  pageData.RoomKey,
				"page":     pageData.Page,
				"messages": pageData.Messages,
				"hasMore":  pageData.HasMore,
			},
		})
	}
}

func historyError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status = fiber.StatusNotFound
	case domain.IsAuthorization(err):
		status = fiber.StatusForbidden
	case domain.IsValidation(err):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
