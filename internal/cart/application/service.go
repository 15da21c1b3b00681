package application

import (
	"context"

	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/cart/domain"
	"github.com/wyfcoding/pkg/logging"
)

// CartService 购物车应用服务
type CartService struct {
	carts domain.CartRepository
	books catalogdomain.BookRepository
}

func NewCartService(carts domain.CartRepository, books catalogdomain.BookRepository) *CartService {
	return &CartService{carts: carts, books: books}
}

// CreateForUser 为新注册用户建立空购物车，注册事务的一部分
func (s *CartService) CreateForUser(ctx context.Context, userID uint) error {
	return s.carts.Save(ctx, &domain.ShoppingCart{UserID: userID})
}

// GetCart 获取用户购物车并重算持久化总额
func (s *CartService) GetCart(ctx context.Context, userID uint) (*domain.ShoppingCart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}

	total := cart.Total()
	if !cart.GrandTotal.Equal(total) {
		cart.GrandTotal = total
		if err := s.carts.UpdateTotal(ctx, cart.ID, total); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

// AddItem 向购物车加入图书，已有条目时累加数量
// 请求数量超过当前库存时拒绝
func (s *CartService) AddItem(ctx context.Context, userID, bookID uint, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if book == nil {
		return catalogdomain.ErrBookNotFound
	}
	if !book.HasStock(qty) {
		return catalogdomain.ErrNotEnoughStock
	}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return domain.ErrCartNotFound
	}

	item := cart.ItemFor(bookID)
	if item != nil {
		if !book.HasStock(item.Qty + qty) {
			return catalogdomain.ErrNotEnoughStock
		}
		item.Qty += qty
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			CartID:    &cart.ID,
			BookID:    book.ID,
			BookTitle: book.Title,
			Qty:       qty,
			Price:     book.Price,
		})
		item = &cart.Items[len(cart.Items)-1]
	}
	item.Recalculate()
	cart.GrandTotal = cart.Total()

	logging.Info(ctx, "cart item added", "user_id", userID, "book_id", bookID, "qty", qty)
	return s.carts.Save(ctx, cart)
}

// UpdateItemQuantity 修改条目数量
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID uint, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	book, err := s.books.Get(ctx, item.BookID)
	if err != nil {
		return err
	}
	if book != nil && !book.HasStock(qty) {
		return catalogdomain.ErrNotEnoughStock
	}

	item.Qty = qty
	item.Recalculate()
	if err := s.carts.SaveItem(ctx, item); err != nil {
		return err
	}
	return s.refreshTotal(ctx, cart.UserID)
}

// RemoveItem 删除条目
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
		return err
	}
	return s.refreshTotal(ctx, cart.UserID)
}

// ownedItem 获取条目并校验归属，归属不符按越权处理
func (s *CartService) ownedItem(ctx context.Context, userID, itemID uint) (*domain.ShoppingCart, *domain.CartItem, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, domain.ErrCartNotFound
	}

	item, err := s.carts.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, domain.ErrItemNotFound
	}
	if item.CartID == nil || *item.CartID != cart.ID {
		logging.Warn(ctx, "cart item access denied", "user_id", userID, "item_id", itemID)
		return nil, nil, domain.ErrNotCartOwner
	}
	return cart, item, nil
}

func (s *CartService) refreshTotal(ctx context.Context, userID uint) error {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil || cart == nil {
		return err
	}
	return s.carts.UpdateTotal(ctx, cart.ID, cart.Total())
}
