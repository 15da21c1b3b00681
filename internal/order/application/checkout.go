package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
)

// AddressInput 结算表单中的地址，按请求传递，不落任何共享状态
type AddressInput struct {
	Name    string
	Street1 string
	Street2 string
	City    string
	State   string
	Country string
	Zipcode string
}

func (a AddressInput) incomplete() bool {
	return strings.TrimSpace(a.Name) == "" ||
		strings.TrimSpace(a.Street1) == "" ||
		strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.State) == "" ||
		strings.TrimSpace(a.Zipcode) == ""
}

// PaymentInput 结算表单中的支付信息
type PaymentInput struct {
	Type        string
	CardName    string
	CardNumber  string
	ExpiryMonth int
	ExpiryYear  int
	CVC         int
	HolderName  string
}

func (p PaymentInput) incomplete() bool {
	return strings.TrimSpace(p.Type) == "" ||
		strings.TrimSpace(p.CardNumber) == "" ||
		strings.TrimSpace(p.HolderName) == "" ||
		p.ExpiryMonth == 0 ||
		p.ExpiryYear == 0 ||
		p.CVC == 0
}

// CheckoutCommand 一次结算请求的全部输入
type CheckoutCommand struct {
	CartID                uint
	Shipping              AddressInput
	Billing               AddressInput
	Payment               PaymentInput
	ShippingMethod        string
	BillingSameAsShipping bool
}

// OrderNotifier 订单确认邮件出口，由通知应用服务实现
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, user *userdomain.User, order *domain.Order) error
}

// CheckoutService 结算应用服务
type CheckoutService struct {
	orders   domain.OrderRepository
	carts    cartdomain.CartRepository
	books    catalogdomain.BookRepository
	users    userdomain.UserRepository
	notifier OrderNotifier
}

func NewCheckoutService(
	orders domain.OrderRepository,
	carts cartdomain.CartRepository,
	books catalogdomain.BookRepository,
	users userdomain.UserRepository,
	notifier OrderNotifier,
) *CheckoutService {
	return &CheckoutService{orders: orders, carts: carts, books: books, users: users, notifier: notifier}
}

// PrepareCheckout 结算页前置校验：归属、非空、库存
// 任一失败即中止，购物车与库存不受影响
func (s *CheckoutService) PrepareCheckout(ctx context.Context, userID, cartID uint) (*cartdomain.ShoppingCart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.ID != cartID {
		logging.Warn(ctx, "unauthorized checkout attempt", "user_id", userID, "cart_id", cartID)
		return nil, cartdomain.ErrNotCartOwner
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	for idx := range cart.Items {
		item := &cart.Items[idx]
		book, err := s.books.Get(ctx, item.BookID)
		if err != nil {
			return nil, err
		}
		if book == nil || !book.HasStock(item.Qty) {
			return cart, catalogdomain.ErrNotEnoughStock
		}
	}
	return cart, nil
}

// PlaceOrder 执行结算
//
// 前置校验依次为：购物车归属、非空、逐行库存、必填字段与配送方式；
// 任一失败直接返回，不触碰任何状态。原子段在单个存储事务内完成：
// 写订单及地址支付快照、把购物车条目改挂到订单并核对改挂行数、
// 行锁复核并扣减库存、清零购物车总额。改挂行数与快照不符说明同一
// 购物车被重复提交，整个事务回滚。确认邮件在事务提交后尽力发送，
// 失败只记日志。
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uint, cmd CheckoutCommand) (*domain.Order, error) {
	cart, err := s.PrepareCheckout(ctx, userID, cmd.CartID)
	if err != nil {
		return nil, err
	}

	if cmd.BillingSameAsShipping {
		// 与原有行为一致：勾选后账单字段整体取自收货地址，
		// 即便账单表单留空也不再单独校验
		cmd.Billing = cmd.Shipping
	}
	if cmd.Shipping.incomplete() || cmd.Billing.incomplete() || cmd.Payment.incomplete() {
		logging.Warn(ctx, "missing required checkout fields", "user_id", userID, "cart_id", cart.ID)
		return nil, domain.ErrMissingRequiredField
	}
	if err := domain.ValidateShippingMethod(cmd.ShippingMethod); err != nil {
		logging.Warn(ctx, "invalid shipping method", "user_id", userID, "method", cmd.ShippingMethod)
		return nil, err
	}

	now := time.Now()
	estimated, err := domain.EstimatedDelivery(cmd.ShippingMethod, now)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for idx := range cart.Items {
		subtotal = subtotal.Add(cart.Items[idx].Subtotal)
	}
	shippingCost := domain.ShippingCostFor(cmd.ShippingMethod)

	order := &domain.Order{
		OrderNumber:           fmt.Sprintf("ORD-%d", idgen.GenID()),
		UserID:                userID,
		OrderDate:             now,
		EstimatedDeliveryDate: estimated,
		ShippingMethod:        cmd.ShippingMethod,
		Status:                domain.OrderStatusCreated,
		Subtotal:              subtotal,
		ShippingCost:          shippingCost,
		Total:                 subtotal.Add(shippingCost),
		ShippingAddress: domain.ShippingAddress{
			Name: cmd.Shipping.Name, Street1: cmd.Shipping.Street1, Street2: cmd.Shipping.Street2,
			City: cmd.Shipping.City, State: cmd.Shipping.State, Country: cmd.Shipping.Country,
			Zipcode: cmd.Shipping.Zipcode,
		},
		BillingAddress: domain.BillingAddress{
			Name: cmd.Billing.Name, Street1: cmd.Billing.Street1, Street2: cmd.Billing.Street2,
			City: cmd.Billing.City, State: cmd.Billing.State, Country: cmd.Billing.Country,
			Zipcode: cmd.Billing.Zipcode,
		},
		Payment: domain.Payment{
			Type: cmd.Payment.Type, CardName: cmd.Payment.CardName, CardNumber: cmd.Payment.CardNumber,
			ExpiryMonth: cmd.Payment.ExpiryMonth, ExpiryYear: cmd.Payment.ExpiryYear,
			CVC: cmd.Payment.CVC, HolderName: cmd.Payment.HolderName,
		},
	}

	err = s.orders.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Save(txCtx, order); err != nil {
			return err
		}

		// 改挂 UPDATE 持有条目行锁，并发重复提交的后到事务在此串行化；
		// 先行事务提交后条目已不在购物车名下，改挂行数为 0，按空车回滚
		moved, err := s.carts.MoveItemsToOrder(txCtx, cart.ID, order.ID)
		if err != nil {
			return err
		}
		if moved != int64(len(cart.Items)) {
			logging.Warn(ctx, "cart already submitted", "user_id", userID, "cart_id", cart.ID)
			return domain.ErrEmptyCart
		}

		// 事务内行锁复核库存，两个并发结算不可能同时买走最后一件
		for idx := range cart.Items {
			item := &cart.Items[idx]
			book, err := s.books.GetForUpdate(txCtx, item.BookID)
			if err != nil {
				return err
			}
			if book == nil || !book.HasStock(item.Qty) {
				return catalogdomain.ErrNotEnoughStock
			}
			book.InStock -= item.Qty
			if err := s.books.Update(txCtx, book); err != nil {
				return err
			}
		}

		return s.carts.UpdateTotal(txCtx, cart.ID, decimal.Zero)
	})
	if err != nil {
		return nil, err
	}

	// 订单行已改挂到订单，回填到返回值供页面与邮件使用
	order.Items = make([]cartdomain.CartItem, len(cart.Items))
	copy(order.Items, cart.Items)
	for idx := range order.Items {
		order.Items[idx].CartID = nil
		order.Items[idx].OrderID = &order.ID
	}

	logging.Info(ctx, "order created",
		"order_number", order.OrderNumber, "user_id", userID, "total", order.Total)

	if user, err := s.users.GetByID(ctx, userID); err == nil && user != nil {
		if err := s.notifier.SendOrderConfirmation(ctx, user, order); err != nil {
			// 邮件尽力而为，不回滚已提交的订单
			logging.Error(ctx, "failed to send order confirmation",
				"order_number", order.OrderNumber, "error", err)
		}
	}

	return order, nil
}
