// Package domain 包含图书目录的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = errors.New("book not found")
	// ErrNotEnoughStock 库存不足
	ErrNotEnoughStock = errors.New("not enough stock")
)

// Book 图书实体
// 代表书店目录中的一本在售图书
type Book struct {
	gorm.Model
	// 书名
	Title string `gorm:"column:title;type:varchar(255);index;not null" json:"title"`
	// 作者
	Author string `gorm:"column:author;type:varchar(255)" json:"author"`
	// 出版社
	Publisher string `gorm:"column:publisher;type:varchar(255)" json:"publisher"`
	// ISBN
	ISBN string `gorm:"column:isbn;type:varchar(20)" json:"isbn"`
	// 分类
	Category string `gorm:"column:category;type:varchar(100);index" json:"category"`
	// 简介
	Description string `gorm:"column:description;type:text" json:"description"`
	// 售价
	Price decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	// 可售库存数量，下单时扣减，不允许为负
	InStock int `gorm:"column:in_stock;not null;default:0" json:"in_stock"`
	// 是否在售
	Active bool `gorm:"column:active;not null;default:true" json:"active"`
}

func (Book) TableName() string { return "books" }

// HasStock 判断库存是否足以覆盖请求数量
func (b *Book) HasStock(qty int) bool {
	return qty > 0 && b.InStock >= qty
}

// BookRepository 图书仓储接口
type BookRepository interface {
	// 保存图书
	Save(ctx context.Context, book *Book) error
	// 按 ID 获取图书，不存在时返回 (nil, nil)
	Get(ctx context.Context, id uint) (*Book, error)
	// 在当前事务内加行锁获取图书，用于库存扣减前的复核
	GetForUpdate(ctx context.Context, id uint) (*Book, error)
	// 获取全部在售图书
	List(ctx context.Context) ([]*Book, error)
	// 按分类获取图书
	ListByCategory(ctx context.Context, category string) ([]*Book, error)
	// 按书名模糊搜索
	SearchByTitle(ctx context.Context, keyword string) ([]*Book, error)
	// 更新图书
	Update(ctx context.Context, book *Book) error
}
