package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
)

// 内存仓储，WithTx 串行化模拟数据库行锁下的事务执行

type fakeBookRepo struct {
	mu    sync.Mutex
	books map[uint]*catalogdomain.Book
}

func newFakeBookRepo(books ...*catalogdomain.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: make(map[uint]*catalogdomain.Book)}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeBookRepo) Save(_ context.Context, book *catalogdomain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[book.ID] = book
	return nil
}

func (r *fakeBookRepo) Get(_ context.Context, id uint) (*catalogdomain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookRepo) GetForUpdate(ctx context.Context, id uint) (*catalogdomain.Book, error) {
	return r.Get(ctx, id)
}

func (r *fakeBookRepo) List(_ context.Context) ([]*catalogdomain.Book, error) { return nil, nil }

func (r *fakeBookRepo) ListByCategory(_ context.Context, _ string) ([]*catalogdomain.Book, error) {
	return nil, nil
}

func (r *fakeBookRepo) SearchByTitle(_ context.Context, _ string) ([]*catalogdomain.Book, error) {
	return nil, nil
}

func (r *fakeBookRepo) Update(_ context.Context, book *catalogdomain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *book
	r.books[book.ID] = &copied
	return nil
}

func (r *fakeBookRepo) stock(id uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.books[id].InStock
}

func (r *fakeBookRepo) snapshot() map[uint]*catalogdomain.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint]*catalogdomain.Book, len(r.books))
	for id, b := range r.books {
		copied := *b
		out[id] = &copied
	}
	return out
}

func (r *fakeBookRepo) restore(snap map[uint]*catalogdomain.Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books = snap
}

type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[uint]*cartdomain.ShoppingCart
}

func newFakeCartRepo(carts ...*cartdomain.ShoppingCart) *fakeCartRepo {
	r := &fakeCartRepo{carts: make(map[uint]*cartdomain.ShoppingCart)}
	for _, c := range carts {
		r.carts[c.UserID] = c
	}
	return r
}

func (r *fakeCartRepo) Save(_ context.Context, cart *cartdomain.ShoppingCart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.UserID] = cart
	return nil
}

func (r *fakeCartRepo) GetByUserID(_ context.Context, userID uint) (*cartdomain.ShoppingCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, nil
	}
	copied := *c
	copied.Items = append([]cartdomain.CartItem(nil), c.Items...)
	return &copied, nil
}

func (r *fakeCartRepo) GetItem(_ context.Context, _ uint) (*cartdomain.CartItem, error) {
	return nil, nil
}

func (r *fakeCartRepo) SaveItem(_ context.Context, _ *cartdomain.CartItem) error { return nil }

func (r *fakeCartRepo) DeleteItem(_ context.Context, _ uint) error { return nil }

func (r *fakeCartRepo) MoveItemsToOrder(_ context.Context, cartID, orderID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var moved int64
	for _, c := range r.carts {
		if c.ID == cartID {
			for idx := range c.Items {
				c.Items[idx].CartID = nil
				c.Items[idx].OrderID = &orderID
			}
			moved = int64(len(c.Items))
			c.Items = nil
		}
	}
	return moved, nil
}

func (r *fakeCartRepo) snapshot() map[uint]*cartdomain.ShoppingCart {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint]*cartdomain.ShoppingCart, len(r.carts))
	for id, c := range r.carts {
		copied := *c
		copied.Items = append([]cartdomain.CartItem(nil), c.Items...)
		out[id] = &copied
	}
	return out
}

func (r *fakeCartRepo) restore(snap map[uint]*cartdomain.ShoppingCart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts = snap
}

func (r *fakeCartRepo) UpdateTotal(_ context.Context, cartID uint, total decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if c.ID == cartID {
			c.GrandTotal = total
		}
	}
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*domain.Order
	books  *fakeBookRepo
	carts  *fakeCartRepo
}

func newFakeOrderRepo(books *fakeBookRepo, carts *fakeCartRepo) *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uint]*domain.Order), books: books, carts: carts}
}

func (r *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == 0 {
		r.nextID++
		order.ID = r.nextID
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) Get(_ context.Context, id uint) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return o, nil
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID uint) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// WithTx 以互斥锁串行执行，失败时恢复各仓储快照，
// 模拟数据库事务的排他与回滚
func (r *fakeOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txMu.Lock()
	defer txMu.Unlock()
	booksSnap := r.books.snapshot()
	cartsSnap := r.carts.snapshot()
	ordersSnap := make(map[uint]*domain.Order, len(r.orders))
	for id, o := range r.orders {
		ordersSnap[id] = o
	}
	nextID := r.nextID
	if err := fn(ctx); err != nil {
		r.books.restore(booksSnap)
		r.carts.restore(cartsSnap)
		r.mu.Lock()
		r.orders = ordersSnap
		r.nextID = nextID
		r.mu.Unlock()
		return err
	}
	return nil
}

var txMu sync.Mutex

type fakeUserRepo struct{ user *userdomain.User }

func (r *fakeUserRepo) Save(_ context.Context, _ *userdomain.User) error { return nil }

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*userdomain.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, _ string) (*userdomain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*userdomain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) SaveResetToken(_ context.Context, _ *userdomain.PasswordResetToken) error {
	return nil
}

func (r *fakeUserRepo) GetResetToken(_ context.Context, _ string) (*userdomain.PasswordResetToken, error) {
	return nil, nil
}

func (r *fakeUserRepo) DeleteResetToken(_ context.Context, _ string) error { return nil }

func (r *fakeUserRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, _ *userdomain.User, _ *domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return n.err
}

func ptrUint(v uint) *uint { return &v }

func testCart(userID, cartID uint, items ...cartdomain.CartItem) *cartdomain.ShoppingCart {
	cart := &cartdomain.ShoppingCart{UserID: userID, Items: items}
	cart.ID = cartID
	for idx := range cart.Items {
		cart.Items[idx].CartID = ptrUint(cartID)
		cart.Items[idx].Recalculate()
		cart.GrandTotal = cart.GrandTotal.Add(cart.Items[idx].Subtotal)
	}
	return cart
}

func testBook(id uint, price float64, inStock int) *catalogdomain.Book {
	b := &catalogdomain.Book{
		Title:   "Test Driven Development",
		Price:   decimal.NewFromFloat(price),
		InStock: inStock,
		Active:  true,
	}
	b.ID = id
	return b
}

func validCommand(cartID uint) CheckoutCommand {
	return CheckoutCommand{
		CartID: cartID,
		Shipping: AddressInput{
			Name: "Alex Reader", Street1: "1 Main St", City: "Springfield",
			State: "IL", Zipcode: "62704",
		},
		Payment: PaymentInput{
			Type: "visa", CardNumber: "4111111111111111",
			ExpiryMonth: 12, ExpiryYear: 2030, CVC: 123, HolderName: "Alex Reader",
		},
		ShippingMethod:        domain.ShippingMethodGround,
		BillingSameAsShipping: true,
	}
}

func newCheckoutFixture(t *testing.T, book *catalogdomain.Book, cart *cartdomain.ShoppingCart) (*CheckoutService, *fakeBookRepo, *fakeCartRepo, *fakeOrderRepo, *fakeNotifier) {
	t.Helper()
	books := newFakeBookRepo(book)
	carts := newFakeCartRepo(cart)
	orders := newFakeOrderRepo(books, carts)
	notifier := &fakeNotifier{}
	user := &userdomain.User{Username: "alex", Email: "alex@example.com"}
	user.ID = cart.UserID
	svc := NewCheckoutService(orders, carts, books, &fakeUserRepo{user: user}, notifier)
	return svc, books, carts, orders, notifier
}

func TestPlaceOrderSuccess(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, BookTitle: book.Title, Qty: 1, Price: book.Price})
	svc, books, carts, _, notifier := newCheckoutFixture(t, book, cart)

	order, err := svc.PlaceOrder(context.Background(), 10, validCommand(100))
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, domain.OrderStatusCreated, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromFloat(20.00)))
	assert.True(t, order.ShippingCost.IsZero())
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(20.00)))

	// 普通配送 +5 天
	expected := order.OrderDate.AddDate(0, 0, 5)
	assert.WithinDuration(t, expected, order.EstimatedDeliveryDate, time.Second)

	// 库存 2 -> 1
	assert.Equal(t, 1, books.stock(1))

	// 购物车清空，条目改挂到订单
	after, err := carts.GetByUserID(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
	assert.True(t, after.GrandTotal.IsZero())
	require.Len(t, order.Items, 1)
	assert.Nil(t, order.Items[0].CartID)
	require.NotNil(t, order.Items[0].OrderID)
	assert.Equal(t, order.ID, *order.Items[0].OrderID)

	// 账单与收货一致
	assert.Equal(t, order.ShippingAddress.Street1, order.BillingAddress.Street1)

	assert.Equal(t, 1, notifier.sent)
}

func TestPlaceOrderPremiumShipping(t *testing.T) {
	book := testBook(1, 20.00, 5)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 2, Price: book.Price})
	svc, _, _, _, _ := newCheckoutFixture(t, book, cart)

	cmd := validCommand(100)
	cmd.ShippingMethod = domain.ShippingMethodPremium

	order, err := svc.PlaceOrder(context.Background(), 10, cmd)
	require.NoError(t, err)

	assert.True(t, order.ShippingCost.Equal(decimal.NewFromFloat(5.99)))
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(45.99)))
	expected := order.OrderDate.AddDate(0, 0, 3)
	assert.WithinDuration(t, expected, order.EstimatedDeliveryDate, time.Second)
}

func TestPlaceOrderNotEnoughStock(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 3, Price: book.Price})
	svc, books, carts, orders, notifier := newCheckoutFixture(t, book, cart)

	_, err := svc.PlaceOrder(context.Background(), 10, validCommand(100))
	assert.ErrorIs(t, err, catalogdomain.ErrNotEnoughStock)

	// 购物车与库存原样保留
	assert.Equal(t, 2, books.stock(1))
	after, _ := carts.GetByUserID(context.Background(), 10)
	assert.Len(t, after.Items, 1)
	assert.Empty(t, orders.orders)
	assert.Equal(t, 0, notifier.sent)
}

func TestPlaceOrderWrongOwner(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	svc, _, _, _, _ := newCheckoutFixture(t, book, cart)

	// 用户 10 的购物车是 100，指定别的购物车 ID 应被拒绝
	_, err := svc.PlaceOrder(context.Background(), 10, validCommand(999))
	assert.ErrorIs(t, err, cartdomain.ErrNotCartOwner)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100)
	svc, _, _, _, _ := newCheckoutFixture(t, book, cart)

	_, err := svc.PlaceOrder(context.Background(), 10, validCommand(100))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestPlaceOrderMissingRequiredField(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	svc, books, _, orders, _ := newCheckoutFixture(t, book, cart)

	cmd := validCommand(100)
	cmd.Shipping.Zipcode = ""

	_, err := svc.PlaceOrder(context.Background(), 10, cmd)
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	assert.Equal(t, 2, books.stock(1))
	assert.Empty(t, orders.orders)
}

func TestPlaceOrderIncompletePayment(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	svc, books, _, orders, _ := newCheckoutFixture(t, book, cart)

	// 支付必填项任一留空都拒绝
	for name, mutate := range map[string]func(*CheckoutCommand){
		"blank type":        func(cmd *CheckoutCommand) { cmd.Payment.Type = "" },
		"blank card number": func(cmd *CheckoutCommand) { cmd.Payment.CardNumber = "" },
		"blank holder name": func(cmd *CheckoutCommand) { cmd.Payment.HolderName = "  " },
		"zero expiry month": func(cmd *CheckoutCommand) { cmd.Payment.ExpiryMonth = 0 },
		"zero expiry year":  func(cmd *CheckoutCommand) { cmd.Payment.ExpiryYear = 0 },
		"zero cvc":          func(cmd *CheckoutCommand) { cmd.Payment.CVC = 0 },
	} {
		cmd := validCommand(100)
		mutate(&cmd)
		_, err := svc.PlaceOrder(context.Background(), 10, cmd)
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField, name)
	}
	assert.Equal(t, 2, books.stock(1))
	assert.Empty(t, orders.orders)
}

func TestPlaceOrderMissingBillingWhenNotSameAsShipping(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	svc, _, _, _, _ := newCheckoutFixture(t, book, cart)

	cmd := validCommand(100)
	cmd.BillingSameAsShipping = false

	_, err := svc.PlaceOrder(context.Background(), 10, cmd)
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestPlaceOrderInvalidShippingMethod(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	svc, _, _, _, _ := newCheckoutFixture(t, book, cart)

	cmd := validCommand(100)
	cmd.ShippingMethod = "overnight"

	_, err := svc.PlaceOrder(context.Background(), 10, cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidShippingMethod)
}

func TestPlaceOrderMailFailureDoesNotFailOrder(t *testing.T) {
	book := testBook(1, 20.00, 2)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	svc, books, _, _, notifier := newCheckoutFixture(t, book, cart)
	notifier.err = errors.New("smtp unreachable")

	order, err := svc.PlaceOrder(context.Background(), 10, validCommand(100))
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 1, books.stock(1))
	assert.Equal(t, 1, notifier.sent)
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	book := testBook(1, 20.00, 1)
	books := newFakeBookRepo(book)
	notifier := &fakeNotifier{}

	cartA := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	cartB := testCart(11, 101, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})
	carts := newFakeCartRepo(cartA, cartB)
	orders := newFakeOrderRepo(books, carts)

	userA := &userdomain.User{Username: "a"}
	userA.ID = 10
	svc := NewCheckoutService(orders, carts, books, &fakeUserRepo{user: userA}, notifier)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, attempt := range []struct {
		userID uint
		cartID uint
	}{{10, 100}, {11, 101}} {
		wg.Add(1)
		go func(userID, cartID uint) {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), userID, validCommand(cartID))
			results <- err
		}(attempt.userID, attempt.cartID)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, catalogdomain.ErrNotEnoughStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 最后一件只能被买走一次
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, books.stock(1))
}

// staleCartRepo 的读取始终返回建好的旧快照，
// 复现两次提交的前置校验都看到满购物车的时序
type staleCartRepo struct {
	*fakeCartRepo
	stale *cartdomain.ShoppingCart
}

func (r *staleCartRepo) GetByUserID(_ context.Context, userID uint) (*cartdomain.ShoppingCart, error) {
	if r.stale == nil || r.stale.UserID != userID {
		return nil, nil
	}
	copied := *r.stale
	copied.Items = append([]cartdomain.CartItem(nil), r.stale.Items...)
	return &copied, nil
}

func TestPlaceOrderDuplicateSubmission(t *testing.T) {
	book := testBook(1, 20.00, 5)
	cart := testCart(10, 100, cartdomain.CartItem{BookID: 1, Qty: 1, Price: book.Price})

	books := newFakeBookRepo(book)
	inner := newFakeCartRepo(cart)
	stale, err := inner.GetByUserID(context.Background(), 10)
	require.NoError(t, err)
	carts := &staleCartRepo{fakeCartRepo: inner, stale: stale}
	orders := newFakeOrderRepo(books, inner)
	user := &userdomain.User{Username: "alex"}
	user.ID = 10
	svc := NewCheckoutService(orders, carts, books, &fakeUserRepo{user: user}, &fakeNotifier{})

	first, err := svc.PlaceOrder(context.Background(), 10, validCommand(100))
	require.NoError(t, err)
	require.NotNil(t, first)

	// 第二次提交同一购物车：条目已改挂到首单，事务按空车回滚
	_, err = svc.PlaceOrder(context.Background(), 10, validCommand(100))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	// 库存只扣一次，订单只落一张
	assert.Equal(t, 4, books.stock(1))
	require.Len(t, orders.orders, 1)
	assert.Contains(t, orders.orders, first.ID)
}
