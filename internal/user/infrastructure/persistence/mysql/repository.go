package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *userRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	return r.getDB(ctx).WithContext(ctx).Save(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := r.getDB(ctx).WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.getDB(ctx).WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.getDB(ctx).WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SaveResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	return r.getDB(ctx).WithContext(ctx).Save(token).Error
}

func (r *userRepository) GetResetToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	var reset domain.PasswordResetToken
	err := r.getDB(ctx).WithContext(ctx).Where("token = ?", token).First(&reset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *userRepository) DeleteResetToken(ctx context.Context, token string) error {
	return r.getDB(ctx).WithContext(ctx).
		Where("token = ?", token).
		Delete(&domain.PasswordResetToken{}).Error
}
