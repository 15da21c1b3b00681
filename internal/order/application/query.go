package application

import (
	"context"

	"github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/pkg/logging"
)

// OrderQueryService 订单查询应用服务
type OrderQueryService struct {
	orders domain.OrderRepository
}

func NewOrderQueryService(orders domain.OrderRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders}
}

// GetForUser 获取订单详情并校验归属
// 归属不符与不存在对外表现一致，不泄露订单是否存在
func (s *OrderQueryService) GetForUser(ctx context.Context, userID, orderID uint) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.UserID != userID {
		logging.Warn(ctx, "order access denied", "user_id", userID, "order_id", orderID)
		return nil, domain.ErrNotOrderOwner
	}
	return order, nil
}

// ListForUser 用户订单历史
func (s *OrderQueryService) ListForUser(ctx context.Context, userID uint) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
