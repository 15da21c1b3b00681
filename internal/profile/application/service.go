package application

import (
	"context"

	"github.com/wyfcoding/bookstore/internal/profile/domain"
	"github.com/wyfcoding/pkg/logging"
)

// ProfileService 收货地址与支付方式档案应用服务
type ProfileService struct {
	profiles domain.ProfileRepository
}

func NewProfileService(profiles domain.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// SaveShipping 新增或更新收货地址，更新时校验归属
func (s *ProfileService) SaveShipping(ctx context.Context, userID uint, shipping *domain.UserShipping) error {
	if shipping.ID != 0 {
		if _, err := s.ownedShipping(ctx, userID, shipping.ID); err != nil {
			return err
		}
	}
	shipping.UserID = userID
	return s.profiles.SaveShipping(ctx, shipping)
}

// GetShipping 按 ID 获取收货地址并校验归属
func (s *ProfileService) GetShipping(ctx context.Context, userID, id uint) (*domain.UserShipping, error) {
	return s.ownedShipping(ctx, userID, id)
}

func (s *ProfileService) ListShipping(ctx context.Context, userID uint) ([]*domain.UserShipping, error) {
	return s.profiles.ListShippingByUser(ctx, userID)
}

// RemoveShipping 删除收货地址，归属不符按越权处理
func (s *ProfileService) RemoveShipping(ctx context.Context, userID, id uint) error {
	if _, err := s.ownedShipping(ctx, userID, id); err != nil {
		return err
	}
	return s.profiles.DeleteShipping(ctx, id)
}

// SetDefaultShipping 设置默认收货地址
// 同一事务内先清旧默认再设新默认，任何时刻都不会出现零个或两个默认
func (s *ProfileService) SetDefaultShipping(ctx context.Context, userID, id uint) error {
	if _, err := s.ownedShipping(ctx, userID, id); err != nil {
		return err
	}
	return s.profiles.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.ClearDefaultShipping(txCtx, userID); err != nil {
			return err
		}
		return s.profiles.MarkDefaultShipping(txCtx, id)
	})
}

// DefaultShipping 返回用户默认收货地址，没有时返回 nil
func (s *ProfileService) DefaultShipping(ctx context.Context, userID uint) (*domain.UserShipping, error) {
	list, err := s.profiles.ListShippingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, shipping := range list {
		if shipping.IsDefault {
			return shipping, nil
		}
	}
	return nil, nil
}

// SavePayment 新增或更新支付方式档案（含账单地址），更新时校验归属
func (s *ProfileService) SavePayment(ctx context.Context, userID uint, payment *domain.UserPayment) error {
	if payment.ID != 0 {
		if _, err := s.ownedPayment(ctx, userID, payment.ID); err != nil {
			return err
		}
	}
	payment.UserID = userID
	return s.profiles.SavePayment(ctx, payment)
}

// GetPayment 按 ID 获取支付方式档案并校验归属
func (s *ProfileService) GetPayment(ctx context.Context, userID, id uint) (*domain.UserPayment, error) {
	return s.ownedPayment(ctx, userID, id)
}

func (s *ProfileService) ListPayments(ctx context.Context, userID uint) ([]*domain.UserPayment, error) {
	return s.profiles.ListPaymentsByUser(ctx, userID)
}

// RemovePayment 删除支付方式档案
func (s *ProfileService) RemovePayment(ctx context.Context, userID, id uint) error {
	if _, err := s.ownedPayment(ctx, userID, id); err != nil {
		return err
	}
	return s.profiles.DeletePayment(ctx, id)
}

// SetDefaultPayment 设置默认支付方式，事务语义同 SetDefaultShipping
func (s *ProfileService) SetDefaultPayment(ctx context.Context, userID, id uint) error {
	if _, err := s.ownedPayment(ctx, userID, id); err != nil {
		return err
	}
	return s.profiles.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.ClearDefaultPayment(txCtx, userID); err != nil {
			return err
		}
		return s.profiles.MarkDefaultPayment(txCtx, id)
	})
}

// DefaultPayment 返回用户默认支付方式，没有时返回 nil
func (s *ProfileService) DefaultPayment(ctx context.Context, userID uint) (*domain.UserPayment, error) {
	list, err := s.profiles.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, payment := range list {
		if payment.IsDefault {
			return payment, nil
		}
	}
	return nil, nil
}

func (s *ProfileService) ownedShipping(ctx context.Context, userID, id uint) (*domain.UserShipping, error) {
	shipping, err := s.profiles.GetShipping(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipping == nil {
		return nil, domain.ErrProfileNotFound
	}
	if shipping.UserID != userID {
		logging.Warn(ctx, "shipping profile access denied", "user_id", userID, "shipping_id", id)
		return nil, domain.ErrNotProfileOwner
	}
	return shipping, nil
}

func (s *ProfileService) ownedPayment(ctx context.Context, userID, id uint) (*domain.UserPayment, error) {
	payment, err := s.profiles.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrProfileNotFound
	}
	if payment.UserID != userID {
		logging.Warn(ctx, "payment profile access denied", "user_id", userID, "payment_id", id)
		return nil, domain.ErrNotProfileOwner
	}
	return payment, nil
}
