package repository

import (
	"context"
	"errors"

	"supply_chat_service/internal/chat/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// OrderRepository reads the slice of an order the chat service needs for
// authorization. Orders are owned by the order-management service; this is a
// read-only view of its table.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
}

type orderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository create an OrderRepository
func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx,
		"SELECT order_id, buyer_id, seller_id, status FROM orders WHERE order_id = $1", orderID)

	var order domain.Order
	err := row.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}
