package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type orderRepository struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *orderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.getDB(ctx).WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Omit("Items").
		Save(order).Error
}

func (r *orderRepository) Get(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := r.getDB(ctx).WithContext(ctx).
		Preload("ShippingAddress").
		Preload("BillingAddress").
		Preload("Payment").
		Preload("Items").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}
