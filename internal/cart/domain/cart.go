// Package domain 包含购物车的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrCartNotFound 购物车不存在
	ErrCartNotFound = errors.New("shopping cart not found")
	// ErrItemNotFound 购物车条目不存在
	ErrItemNotFound = errors.New("cart item not found")
	// ErrNotCartOwner 购物车不属于当前用户
	ErrNotCartOwner = errors.New("cart does not belong to user")
	// ErrInvalidQuantity 数量必须为正整数
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// ShoppingCart 购物车实体，每个用户恰好持有一个
// 结算成功后条目被挂到订单名下，购物车本身保留
type ShoppingCart struct {
	gorm.Model
	// 所属用户 ID
	UserID uint `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	// 购物车总额
	GrandTotal decimal.Decimal `gorm:"column:grand_total;type:decimal(10,2);not null;default:0" json:"grand_total"`
	// 购物车条目
	Items []CartItem `gorm:"foreignKey:CartID" json:"items"`
}

func (ShoppingCart) TableName() string { return "shopping_carts" }

// CartItem 购物车条目
// 不变式：CartID 与 OrderID 恰好一个非空——条目要么在购物车里，要么已属于订单
type CartItem struct {
	gorm.Model
	// 所属购物车 ID，结算后置空
	CartID *uint `gorm:"column:cart_id;index" json:"cart_id"`
	// 所属订单 ID，结算时写入
	OrderID *uint `gorm:"column:order_id;index" json:"order_id"`
	// 图书 ID
	BookID uint `gorm:"column:book_id;index;not null" json:"book_id"`
	// 书名快照，下单后目录变更不影响历史订单展示
	BookTitle string `gorm:"column:book_title;type:varchar(255)" json:"book_title"`
	// 数量
	Qty int `gorm:"column:qty;not null" json:"qty"`
	// 单价快照
	Price decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	// 小计 = 单价 × 数量
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(10,2);not null" json:"subtotal"`
}

func (CartItem) TableName() string { return "cart_items" }

// Recalculate 重算条目小计
func (i *CartItem) Recalculate() {
	i.Subtotal = i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// ItemFor 返回购物车中对应图书的条目，不存在时返回 nil
func (c *ShoppingCart) ItemFor(bookID uint) *CartItem {
	for idx := range c.Items {
		if c.Items[idx].BookID == bookID {
			return &c.Items[idx]
		}
	}
	return nil
}

// Total 汇总所有条目小计
func (c *ShoppingCart) Total() decimal.Decimal {
	total := decimal.Zero
	for idx := range c.Items {
		total = total.Add(c.Items[idx].Subtotal)
	}
	return total
}

// IsEmpty 购物车是否为空
func (c *ShoppingCart) IsEmpty() bool { return len(c.Items) == 0 }

// CartRepository 购物车仓储接口
type CartRepository interface {
	// 保存购物车（含条目）
	Save(ctx context.Context, cart *ShoppingCart) error
	// 按用户获取购物车，不存在时返回 (nil, nil)
	GetByUserID(ctx context.Context, userID uint) (*ShoppingCart, error)
	// 获取单个条目，不存在时返回 (nil, nil)
	GetItem(ctx context.Context, itemID uint) (*CartItem, error)
	// 保存单个条目
	SaveItem(ctx context.Context, item *CartItem) error
	// 删除单个条目
	DeleteItem(ctx context.Context, itemID uint) error
	// 将购物车全部条目改挂到订单名下（移动而非复制），返回实际改挂的条目数
	MoveItemsToOrder(ctx context.Context, cartID, orderID uint) (int64, error)
	// 更新购物车总额
	UpdateTotal(ctx context.Context, cartID uint, total decimal.Decimal) error
}
