package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bookstore/internal/cart/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type cartRepository struct{ db *gorm.DB }

func NewCartRepository(db *gorm.DB) domain.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.ShoppingCart) error {
	return r.getDB(ctx).WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(cart).Error
}

func (r *cartRepository) GetByUserID(ctx context.Context, userID uint) (*domain.ShoppingCart, error) {
	var cart domain.ShoppingCart
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) GetItem(ctx context.Context, itemID uint) (*domain.CartItem, error) {
	var item domain.CartItem
	err := r.getDB(ctx).WithContext(ctx).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) SaveItem(ctx context.Context, item *domain.CartItem) error {
	return r.getDB(ctx).WithContext(ctx).Save(item).Error
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uint) error {
	return r.getDB(ctx).WithContext(ctx).Delete(&domain.CartItem{}, itemID).Error
}

func (r *cartRepository) MoveItemsToOrder(ctx context.Context, cartID, orderID uint) (int64, error) {
	result := r.getDB(ctx).WithContext(ctx).
		Model(&domain.CartItem{}).
		Where("cart_id = ?", cartID).
		Updates(map[string]any{"cart_id": nil, "order_id": orderID})
	return result.RowsAffected, result.Error
}

func (r *cartRepository) UpdateTotal(ctx context.Context, cartID uint, total decimal.Decimal) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.ShoppingCart{}).
		Where("id = ?", cartID).
		Update("grand_total", total).Error
}
