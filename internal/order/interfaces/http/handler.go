package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	authmw "github.com/wyfcoding/bookstore/internal/auth/middleware"
	cartapp "github.com/wyfcoding/bookstore/internal/cart/application"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/order/application"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	profileapp "github.com/wyfcoding/bookstore/internal/profile/application"
	profiledomain "github.com/wyfcoding/bookstore/internal/profile/domain"
	"github.com/wyfcoding/pkg/logging"
)

// OrderHandler 结算与订单页面处理器
type OrderHandler struct {
	checkout *application.CheckoutService
	orders   *application.OrderQueryService
	carts    *cartapp.CartService
	profiles *profileapp.ProfileService
}

func NewOrderHandler(
	checkout *application.CheckoutService,
	orders *application.OrderQueryService,
	carts *cartapp.CartService,
	profiles *profileapp.ProfileService,
) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, carts: carts, profiles: profiles}
}

func (h *OrderHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/checkout", h.CheckoutPage)
	r.POST("/checkout", h.PlaceOrder)
	r.GET("/setShippingAddress", h.SetShippingAddress)
	r.GET("/setPaymentMethod", h.SetPaymentMethod)
	r.GET("/orderDetail", h.OrderDetail)
}

// checkoutForm 结算表单，逐请求绑定
type checkoutForm struct {
	CartID uint `form:"cartId"`

	ShippingName    string `form:"shippingName"`
	ShippingStreet1 string `form:"shippingStreet1"`
	ShippingStreet2 string `form:"shippingStreet2"`
	ShippingCity    string `form:"shippingCity"`
	ShippingState   string `form:"shippingState"`
	ShippingCountry string `form:"shippingCountry"`
	ShippingZipcode string `form:"shippingZipcode"`

	BillingName    string `form:"billingName"`
	BillingStreet1 string `form:"billingStreet1"`
	BillingStreet2 string `form:"billingStreet2"`
	BillingCity    string `form:"billingCity"`
	BillingState   string `form:"billingState"`
	BillingCountry string `form:"billingCountry"`
	BillingZipcode string `form:"billingZipcode"`

	PaymentType    string `form:"paymentType"`
	CardName       string `form:"cardName"`
	CardNumber     string `form:"cardNumber"`
	ExpiryMonth    int    `form:"expiryMonth"`
	ExpiryYear     int    `form:"expiryYear"`
	CVC            int    `form:"cvc"`
	HolderName     string `form:"holderName"`
	ShippingMethod string `form:"shippingMethod"`
	BillingSame    string `form:"billingSameAsShipping"`
}

func (f *checkoutForm) command() application.CheckoutCommand {
	return application.CheckoutCommand{
		CartID: f.CartID,
		Shipping: application.AddressInput{
			Name: f.ShippingName, Street1: f.ShippingStreet1, Street2: f.ShippingStreet2,
			City: f.ShippingCity, State: f.ShippingState, Country: f.ShippingCountry,
			Zipcode: f.ShippingZipcode,
		},
		Billing: application.AddressInput{
			Name: f.BillingName, Street1: f.BillingStreet1, Street2: f.BillingStreet2,
			City: f.BillingCity, State: f.BillingState, Country: f.BillingCountry,
			Zipcode: f.BillingZipcode,
		},
		Payment: application.PaymentInput{
			Type: f.PaymentType, CardName: f.CardName, CardNumber: f.CardNumber,
			ExpiryMonth: f.ExpiryMonth, ExpiryYear: f.ExpiryYear, CVC: f.CVC,
			HolderName: f.HolderName,
		},
		ShippingMethod:        f.ShippingMethod,
		BillingSameAsShipping: f.BillingSame != "",
	}
}

// CheckoutPage 结算页，带默认收货地址与默认支付方式预填
func (h *OrderHandler) CheckoutPage(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	cartID, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil || cartID == 0 {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	cart, err := h.checkout.PrepareCheckout(c.Request.Context(), userID, uint(cartID))
	if err != nil {
		if !h.checkoutError(c, err) {
			logging.Error(c.Request.Context(), "checkout preparation failed", "user_id", userID, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
		return
	}

	h.renderCheckout(c, userID, cart, gin.H{
		"missingRequiredField": c.Query("missingRequiredField") == "true",
	})
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	var form checkoutForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	order, err := h.checkout.PlaceOrder(c.Request.Context(), userID, form.command())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingRequiredField), errors.Is(err, domain.ErrInvalidShippingMethod):
			c.Redirect(http.StatusFound,
				fmt.Sprintf("/checkout?id=%d&missingRequiredField=true", form.CartID))
		default:
			if !h.checkoutError(c, err) {
				logging.Error(c.Request.Context(), "checkout failed", "user_id", userID, "error", err)
				c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
			}
		}
		return
	}

	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "orderSubmitted.html", gin.H{
		"order":                 order,
		"estimatedDeliveryDate": order.EstimatedDeliveryDate.Format("2006-01-02"),
		"username":              username,
	})
}

// SetShippingAddress 在结算页套用一条已保存的收货地址
func (h *OrderHandler) SetShippingAddress(c *gin.Context) {
	h.applyProfile(c, "userShippingId", func(c *gin.Context, userID, id uint, cart *cartdomain.ShoppingCart) error {
		shipping, err := h.profiles.GetShipping(c.Request.Context(), userID, id)
		if err != nil {
			return err
		}
		h.renderCheckout(c, userID, cart, gin.H{"shippingAddress": shipping})
		return nil
	})
}

// SetPaymentMethod 在结算页套用一条已保存的支付方式
func (h *OrderHandler) SetPaymentMethod(c *gin.Context) {
	h.applyProfile(c, "userPaymentId", func(c *gin.Context, userID, id uint, cart *cartdomain.ShoppingCart) error {
		payment, err := h.profiles.GetPayment(c.Request.Context(), userID, id)
		if err != nil {
			return err
		}
		h.renderCheckout(c, userID, cart, gin.H{
			"payment":        payment,
			"billingAddress": payment.UserBilling,
		})
		return nil
	})
}

func (h *OrderHandler) OrderDetail(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	orderID, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil || orderID == 0 {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	order, err := h.orders.GetForUser(c.Request.Context(), userID, uint(orderID))
	if err != nil {
		// 归属不符与不存在同样回笼统的错误页，不泄露订单是否存在
		if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrNotOrderOwner) {
			c.HTML(http.StatusBadRequest, "badRequest.html", nil)
			return
		}
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "orderDetail.html", gin.H{
		"order":    order,
		"username": username,
	})
}

func (h *OrderHandler) applyProfile(
	c *gin.Context,
	idParam string,
	fn func(c *gin.Context, userID, id uint, cart *cartdomain.ShoppingCart) error,
) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	id, err := strconv.ParseUint(c.Query(idParam), 10, 32)
	if err != nil || id == 0 {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	cart, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	if err := fn(c, userID, uint(id), cart); err != nil {
		switch {
		case errors.Is(err, profiledomain.ErrProfileNotFound), errors.Is(err, profiledomain.ErrNotProfileOwner):
			c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		default:
			logging.Error(c.Request.Context(), "failed to apply saved profile", "user_id", userID, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
	}
}

// checkoutError 处理结算前置校验错误；返回 true 表示已写出响应
func (h *OrderHandler) checkoutError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, cartdomain.ErrNotCartOwner):
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
	case errors.Is(err, domain.ErrEmptyCart):
		c.Redirect(http.StatusFound, "/shoppingCart/cart?emptyCart=true")
	case errors.Is(err, catalogdomain.ErrNotEnoughStock):
		c.Redirect(http.StatusFound, "/shoppingCart/cart?notEnoughStock=true")
	default:
		return false
	}
	return true
}

func (h *OrderHandler) renderCheckout(c *gin.Context, userID uint, cart *cartdomain.ShoppingCart, extra gin.H) {
	ctx := c.Request.Context()

	model := gin.H{
		"cart":            cart,
		"cartItemList":    cart.Items,
		"shippingMethods": []string{domain.ShippingMethodGround, domain.ShippingMethodPremium},
	}
	if username, ok := authmw.CurrentUsername(c); ok {
		model["username"] = username
	}

	if shippingList, err := h.profiles.ListShipping(ctx, userID); err == nil {
		model["userShippingList"] = shippingList
	}
	if paymentList, err := h.profiles.ListPayments(ctx, userID); err == nil {
		model["userPaymentList"] = paymentList
	}
	if _, present := extra["shippingAddress"]; !present {
		if def, err := h.profiles.DefaultShipping(ctx, userID); err == nil && def != nil {
			model["shippingAddress"] = def
		}
	}
	if _, present := extra["payment"]; !present {
		if def, err := h.profiles.DefaultPayment(ctx, userID); err == nil && def != nil {
			model["payment"] = def
			model["billingAddress"] = def.UserBilling
		}
	}
	for k, v := range extra {
		model[k] = v
	}

	c.HTML(http.StatusOK, "checkout.html", model)
}
