// Package domain 包含订单与结算的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	"gorm.io/gorm"
)

// 配送方式代码，除此之外一律无效
const (
	ShippingMethodGround  = "groundShipping"
	ShippingMethodPremium = "premiumShipping"
)

// 预计送达天数
const (
	groundShippingDays  = 5
	premiumShippingDays = 3
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotOrderOwner 订单不属于当前用户
	ErrNotOrderOwner = errors.New("order does not belong to user")
	// ErrInvalidShippingMethod 配送方式无效
	ErrInvalidShippingMethod = errors.New("invalid shipping method")
	// ErrEmptyCart 购物车为空
	ErrEmptyCart = errors.New("shopping cart is empty")
	// ErrMissingRequiredField 地址或支付必填字段缺失
	ErrMissingRequiredField = errors.New("missing required checkout field")
)

var premiumShippingCost = decimal.NewFromFloat(5.99)

// ShippingAddress 订单收货地址快照，随订单持久化
type ShippingAddress struct {
	gorm.Model
	OrderID uint   `gorm:"column:order_id;index;not null" json:"order_id"`
	Name    string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Street1 string `gorm:"column:street1;type:varchar(255);not null" json:"street1"`
	Street2 string `gorm:"column:street2;type:varchar(255)" json:"street2"`
	City    string `gorm:"column:city;type:varchar(100);not null" json:"city"`
	State   string `gorm:"column:state;type:varchar(100);not null" json:"state"`
	Country string `gorm:"column:country;type:varchar(100)" json:"country"`
	Zipcode string `gorm:"column:zipcode;type:varchar(20);not null" json:"zipcode"`
}

func (ShippingAddress) TableName() string { return "shipping_addresses" }

// BillingAddress 订单账单地址快照
type BillingAddress struct {
	gorm.Model
	OrderID uint   `gorm:"column:order_id;index;not null" json:"order_id"`
	Name    string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Street1 string `gorm:"column:street1;type:varchar(255);not null" json:"street1"`
	Street2 string `gorm:"column:street2;type:varchar(255)" json:"street2"`
	City    string `gorm:"column:city;type:varchar(100);not null" json:"city"`
	State   string `gorm:"column:state;type:varchar(100);not null" json:"state"`
	Country string `gorm:"column:country;type:varchar(100)" json:"country"`
	Zipcode string `gorm:"column:zipcode;type:varchar(20);not null" json:"zipcode"`
}

func (BillingAddress) TableName() string { return "billing_addresses" }

// Payment 订单支付信息快照
type Payment struct {
	gorm.Model
	OrderID     uint   `gorm:"column:order_id;index;not null" json:"order_id"`
	Type        string `gorm:"column:type;type:varchar(20);not null" json:"type"`
	CardName    string `gorm:"column:card_name;type:varchar(100)" json:"card_name"`
	CardNumber  string `gorm:"column:card_number;type:varchar(32);not null" json:"card_number"`
	ExpiryMonth int    `gorm:"column:expiry_month;not null" json:"expiry_month"`
	ExpiryYear  int    `gorm:"column:expiry_year;not null" json:"expiry_year"`
	CVC         int    `gorm:"column:cvc;not null" json:"-"`
	HolderName  string `gorm:"column:holder_name;type:varchar(100);not null" json:"holder_name"`
}

func (Payment) TableName() string { return "payments" }

// Order 已完成购买的快照，创建后除状态与送达日期外不可变
type Order struct {
	gorm.Model
	// 订单号
	OrderNumber string `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	// 所属用户 ID
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// 下单时间
	OrderDate time.Time `gorm:"column:order_date;not null" json:"order_date"`
	// 预计送达日期
	EstimatedDeliveryDate time.Time `gorm:"column:estimated_delivery_date;not null" json:"estimated_delivery_date"`
	// 配送方式
	ShippingMethod string `gorm:"column:shipping_method;type:varchar(30);not null" json:"shipping_method"`
	// 状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 商品小计
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(10,2);not null" json:"subtotal"`
	// 运费
	ShippingCost decimal.Decimal `gorm:"column:shipping_cost;type:decimal(10,2);not null" json:"shipping_cost"`
	// 总额
	Total decimal.Decimal `gorm:"column:total;type:decimal(10,2);not null" json:"total"`
	// 收货地址快照
	ShippingAddress ShippingAddress `gorm:"foreignKey:OrderID" json:"shipping_address"`
	// 账单地址快照
	BillingAddress BillingAddress `gorm:"foreignKey:OrderID" json:"billing_address"`
	// 支付信息快照
	Payment Payment `gorm:"foreignKey:OrderID" json:"payment"`
	// 订单行，由购物车条目改挂而来
	Items []cartdomain.CartItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string { return "orders" }

// ValidateShippingMethod 校验配送方式代码
func ValidateShippingMethod(method string) error {
	if method != ShippingMethodGround && method != ShippingMethodPremium {
		return ErrInvalidShippingMethod
	}
	return nil
}

// EstimatedDelivery 按配送方式计算预计送达日期：普通 +5 天，加急 +3 天
func EstimatedDelivery(method string, from time.Time) (time.Time, error) {
	switch method {
	case ShippingMethodGround:
		return from.AddDate(0, 0, groundShippingDays), nil
	case ShippingMethodPremium:
		return from.AddDate(0, 0, premiumShippingDays), nil
	default:
		return time.Time{}, ErrInvalidShippingMethod
	}
}

// ShippingCostFor 配送费用：普通免运费，加急收固定费用
func ShippingCostFor(method string) decimal.Decimal {
	if method == ShippingMethodPremium {
		return premiumShippingCost
	}
	return decimal.Zero
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// 保存订单（含地址与支付快照）
	Save(ctx context.Context, order *Order) error
	// 按 ID 获取订单及其订单行，不存在时返回 (nil, nil)
	Get(ctx context.Context, id uint) (*Order, error)
	// 获取用户全部订单，按下单时间倒序
	ListByUser(ctx context.Context, userID uint) ([]*Order, error)
	// WithTx 在单个存储事务内执行 fn，结算的原子段运行于此
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
