// Package domain 包含用户收货地址与支付方式档案的领域模型
package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrProfileNotFound 档案不存在
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNotProfileOwner 档案不属于当前用户
	ErrNotProfileOwner = errors.New("profile does not belong to user")
)

// UserShipping 收货地址档案，可被标记为默认
// 每个用户至多一个默认收货地址，由设默认操作在事务内保证
type UserShipping struct {
	gorm.Model
	// 所属用户 ID
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// 收件人
	Name string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	// 地址行一
	Street1 string `gorm:"column:street1;type:varchar(255);not null" json:"street1"`
	// 地址行二
	Street2 string `gorm:"column:street2;type:varchar(255)" json:"street2"`
	// 城市
	City string `gorm:"column:city;type:varchar(100);not null" json:"city"`
	// 州/省
	State string `gorm:"column:state;type:varchar(100);not null" json:"state"`
	// 国家
	Country string `gorm:"column:country;type:varchar(100)" json:"country"`
	// 邮编
	Zipcode string `gorm:"column:zipcode;type:varchar(20);not null" json:"zipcode"`
	// 是否默认
	IsDefault bool `gorm:"column:is_default;not null;default:false" json:"is_default"`
}

func (UserShipping) TableName() string { return "user_shippings" }

// UserBilling 账单地址，从属于一个支付方式档案
type UserBilling struct {
	gorm.Model
	// 所属支付方式档案 ID
	UserPaymentID uint   `gorm:"column:user_payment_id;uniqueIndex;not null" json:"user_payment_id"`
	Name          string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Street1       string `gorm:"column:street1;type:varchar(255);not null" json:"street1"`
	Street2       string `gorm:"column:street2;type:varchar(255)" json:"street2"`
	City          string `gorm:"column:city;type:varchar(100);not null" json:"city"`
	State         string `gorm:"column:state;type:varchar(100);not null" json:"state"`
	Country       string `gorm:"column:country;type:varchar(100)" json:"country"`
	Zipcode       string `gorm:"column:zipcode;type:varchar(20);not null" json:"zipcode"`
}

func (UserBilling) TableName() string { return "user_billings" }

// UserPayment 支付方式档案，内嵌账单地址，可被标记为默认
type UserPayment struct {
	gorm.Model
	// 所属用户 ID
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// 卡类型
	Type string `gorm:"column:type;type:varchar(20);not null" json:"type"`
	// 卡别名
	CardName string `gorm:"column:card_name;type:varchar(100)" json:"card_name"`
	// 卡号
	CardNumber string `gorm:"column:card_number;type:varchar(32);not null" json:"card_number"`
	// 有效期
	ExpiryMonth int `gorm:"column:expiry_month;not null" json:"expiry_month"`
	ExpiryYear  int `gorm:"column:expiry_year;not null" json:"expiry_year"`
	// 安全码
	CVC int `gorm:"column:cvc;not null" json:"-"`
	// 持卡人
	HolderName string `gorm:"column:holder_name;type:varchar(100);not null" json:"holder_name"`
	// 是否默认
	IsDefault bool `gorm:"column:is_default;not null;default:false" json:"is_default"`
	// 账单地址
	UserBilling UserBilling `gorm:"foreignKey:UserPaymentID" json:"user_billing"`
}

func (UserPayment) TableName() string { return "user_payments" }

// ProfileRepository 档案仓储接口
// 清默认与设默认为独立写操作，由应用层组织在同一事务内执行
type ProfileRepository interface {
	SaveShipping(ctx context.Context, shipping *UserShipping) error
	GetShipping(ctx context.Context, id uint) (*UserShipping, error)
	ListShippingByUser(ctx context.Context, userID uint) ([]*UserShipping, error)
	DeleteShipping(ctx context.Context, id uint) error
	// 清除用户当前默认收货地址
	ClearDefaultShipping(ctx context.Context, userID uint) error
	// 将指定收货地址置为默认
	MarkDefaultShipping(ctx context.Context, id uint) error

	SavePayment(ctx context.Context, payment *UserPayment) error
	GetPayment(ctx context.Context, id uint) (*UserPayment, error)
	ListPaymentsByUser(ctx context.Context, userID uint) ([]*UserPayment, error)
	DeletePayment(ctx context.Context, id uint) error
	ClearDefaultPayment(ctx context.Context, userID uint) error
	MarkDefaultPayment(ctx context.Context, id uint) error

	// WithTx 在单个存储事务内执行 fn
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
