package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/bookstore/internal/profile/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type profileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) domain.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *profileRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *profileRepository) SaveShipping(ctx context.Context, shipping *domain.UserShipping) error {
	return r.getDB(ctx).WithContext(ctx).Save(shipping).Error
}

func (r *profileRepository) GetShipping(ctx context.Context, id uint) (*domain.UserShipping, error) {
	var shipping domain.UserShipping
	err := r.getDB(ctx).WithContext(ctx).First(&shipping, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shipping, nil
}

func (r *profileRepository) ListShippingByUser(ctx context.Context, userID uint) ([]*domain.UserShipping, error) {
	var list []*domain.UserShipping
	err := r.getDB(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&list).Error
	return list, err
}

func (r *profileRepository) DeleteShipping(ctx context.Context, id uint) error {
	return r.getDB(ctx).WithContext(ctx).Delete(&domain.UserShipping{}, id).Error
}

func (r *profileRepository) ClearDefaultShipping(ctx context.Context, userID uint) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.UserShipping{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func (r *profileRepository) MarkDefaultShipping(ctx context.Context, id uint) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.UserShipping{}).
		Where("id = ?", id).
		Update("is_default", true).Error
}

func (r *profileRepository) SavePayment(ctx context.Context, payment *domain.UserPayment) error {
	return r.getDB(ctx).WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(payment).Error
}

func (r *profileRepository) GetPayment(ctx context.Context, id uint) (*domain.UserPayment, error) {
	var payment domain.UserPayment
	err := r.getDB(ctx).WithContext(ctx).
		Preload("UserBilling").
		First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *profileRepository) ListPaymentsByUser(ctx context.Context, userID uint) ([]*domain.UserPayment, error) {
	var list []*domain.UserPayment
	err := r.getDB(ctx).WithContext(ctx).
		Preload("UserBilling").
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&list).Error
	return list, err
}

func (r *profileRepository) DeletePayment(ctx context.Context, id uint) error {
	db := r.getDB(ctx).WithContext(ctx)
	if err := db.Where("user_payment_id = ?", id).Delete(&domain.UserBilling{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.UserPayment{}, id).Error
}

func (r *profileRepository) ClearDefaultPayment(ctx context.Context, userID uint) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.UserPayment{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func (r *profileRepository) MarkDefaultPayment(ctx context.Context, id uint) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.UserPayment{}).
		Where("id = ?", id).
		Update("is_default", true).Error
}
