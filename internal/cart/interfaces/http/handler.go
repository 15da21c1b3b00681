package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	authmw "github.com/wyfcoding/bookstore/internal/auth/middleware"
	"github.com/wyfcoding/bookstore/internal/cart/application"
	"github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/pkg/logging"
)

// CartHandler 购物车页面处理器
type CartHandler struct {
	carts *application.CartService
}

func NewCartHandler(carts *application.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/shoppingCart")
	g.GET("/cart", h.Cart)
	g.POST("/addItem", h.AddItem)
	g.POST("/updateCartItem", h.UpdateItem)
	g.POST("/removeItem", h.RemoveItem)
}

func (h *CartHandler) Cart(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	cart, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to load cart", "user_id", userID, "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "shoppingCart.html", gin.H{
		"cart":           cart,
		"cartItemList":   cart.Items,
		"username":       username,
		"emptyCart":      c.Query("emptyCart") == "true" || cart.IsEmpty(),
		"notEnoughStock": c.Query("notEnoughStock") == "true",
	})
}

func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	bookID, err := strconv.ParseUint(c.PostForm("bookId"), 10, 32)
	if err != nil || bookID == 0 {
		c.Redirect(http.StatusFound, "/bookshelf")
		return
	}
	qty, err := strconv.Atoi(c.PostForm("qty"))
	if err != nil {
		c.Redirect(http.StatusFound, fmt.Sprintf("/bookDetail?id=%d&invalidQuantity=true", bookID))
		return
	}

	if err := h.carts.AddItem(c.Request.Context(), userID, uint(bookID), qty); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuantity):
			c.Redirect(http.StatusFound, fmt.Sprintf("/bookDetail?id=%d&invalidQuantity=true", bookID))
		case errors.Is(err, catalogdomain.ErrNotEnoughStock):
			c.Redirect(http.StatusFound, fmt.Sprintf("/bookDetail?id=%d&notEnoughStock=true", bookID))
		case errors.Is(err, catalogdomain.ErrBookNotFound):
			c.Redirect(http.StatusFound, "/bookshelf")
		default:
			logging.Error(c.Request.Context(), "failed to add cart item", "user_id", userID, "book_id", bookID, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/bookDetail?id=%d&addBookSuccess=true", bookID))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	itemID, err := strconv.ParseUint(c.PostForm("id"), 10, 32)
	if err != nil || itemID == 0 {
		c.Redirect(http.StatusFound, "/shoppingCart/cart")
		return
	}
	qty, err := strconv.Atoi(c.PostForm("qty"))
	if err != nil {
		c.Redirect(http.StatusFound, "/shoppingCart/cart")
		return
	}

	if err := h.carts.UpdateItemQuantity(c.Request.Context(), userID, uint(itemID), qty); err != nil {
		switch {
		case errors.Is(err, catalogdomain.ErrNotEnoughStock):
			c.Redirect(http.StatusFound, "/shoppingCart/cart?notEnoughStock=true")
		case errors.Is(err, domain.ErrNotCartOwner):
			c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrInvalidQuantity):
			c.Redirect(http.StatusFound, "/shoppingCart/cart")
		default:
			logging.Error(c.Request.Context(), "failed to update cart item", "user_id", userID, "item_id", itemID, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
		return
	}

	c.Redirect(http.StatusFound, "/shoppingCart/cart")
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	itemID, err := strconv.ParseUint(c.PostForm("id"), 10, 32)
	if err != nil || itemID == 0 {
		c.Redirect(http.StatusFound, "/shoppingCart/cart")
		return
	}

	if err := h.carts.RemoveItem(c.Request.Context(), userID, uint(itemID)); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotCartOwner):
			c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		case errors.Is(err, domain.ErrItemNotFound):
			c.Redirect(http.StatusFound, "/shoppingCart/cart")
		default:
			logging.Error(c.Request.Context(), "failed to remove cart item", "user_id", userID, "item_id", itemID, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
		return
	}

	c.Redirect(http.StatusFound, "/shoppingCart/cart")
}
