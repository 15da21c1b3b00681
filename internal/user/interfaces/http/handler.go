package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	authapp "github.com/wyfcoding/bookstore/internal/auth/application"
	authmw "github.com/wyfcoding/bookstore/internal/auth/middleware"
	orderapp "github.com/wyfcoding/bookstore/internal/order/application"
	profileapp "github.com/wyfcoding/bookstore/internal/profile/application"
	profiledomain "github.com/wyfcoding/bookstore/internal/profile/domain"
	"github.com/wyfcoding/bookstore/internal/user/application"
	"github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/pkg/logging"
)

// AccountHandler 账户页面处理器：登录注册、个人中心、收货地址与支付方式档案
type AccountHandler struct {
	users    *application.UserService
	profiles *profileapp.ProfileService
	orders   *orderapp.OrderQueryService
	tokens   *authapp.TokenService
}

func NewAccountHandler(
	users *application.UserService,
	profiles *profileapp.ProfileService,
	orders *orderapp.OrderQueryService,
	tokens *authapp.TokenService,
) *AccountHandler {
	return &AccountHandler{users: users, profiles: profiles, orders: orders, tokens: tokens}
}

func (h *AccountHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/newUser", h.ConfirmAccount)
	r.POST("/newUser", h.Register)
	r.GET("/forgetPassword", h.ForgetPassword)
	r.GET("/myProfile", h.MyProfile)
	r.POST("/updateUserInfo", h.UpdateUserInfo)

	r.POST("/addNewShippingAddress", h.SaveShipping)
	r.POST("/updateUserShipping", h.SaveShipping)
	r.POST("/removeUserShipping", h.RemoveShipping)
	r.POST("/setDefaultShippingAddress", h.SetDefaultShipping)

	r.POST("/addNewCreditCard", h.SavePayment)
	r.POST("/updateCreditCard", h.SavePayment)
	r.POST("/removeCreditCard", h.RemovePayment)
	r.POST("/setDefaultPayment", h.SetDefaultPayment)
}

func (h *AccountHandler) LoginPage(c *gin.Context) {
	if _, ok := authmw.CurrentUserID(c); ok {
		c.Redirect(http.StatusFound, "/myProfile")
		return
	}
	c.HTML(http.StatusOK, "myAccount.html", gin.H{"classActiveLogin": true})
}

func (h *AccountHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	remember := c.PostForm("remember-me") != ""

	user, err := h.users.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.HTML(http.StatusOK, "myAccount.html", gin.H{
				"classActiveLogin": true,
				"loginError":       true,
			})
			return
		}
		logging.Error(c.Request.Context(), "login failed", "username", username, "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	h.setSession(c, user, remember)
	c.Redirect(http.StatusFound, "/myProfile")
}

func (h *AccountHandler) Logout(c *gin.Context) {
	c.SetCookie(authmw.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/?logout=true")
}

// ConfirmAccount 通过邮件里的激活令牌确认账户并自动登录
func (h *AccountHandler) ConfirmAccount(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	user, err := h.users.ConfirmToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			logging.Warn(c.Request.Context(), "invalid account token", "token", token)
			c.HTML(http.StatusBadRequest, "badRequest.html", nil)
			return
		}
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	h.setSession(c, user, false)
	c.Redirect(http.StatusFound, "/myProfile")
}

func (h *AccountHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")

	_, err := h.users.Register(c.Request.Context(), username, email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameExists):
			c.HTML(http.StatusOK, "myAccount.html", gin.H{
				"classActiveNewAccount": true,
				"usernameExists":        true,
				"username":              username,
				"email":                 email,
			})
		case errors.Is(err, domain.ErrEmailExists):
			c.HTML(http.StatusOK, "myAccount.html", gin.H{
				"classActiveNewAccount": true,
				"emailExists":           true,
				"username":              username,
				"email":                 email,
			})
		default:
			logging.Error(c.Request.Context(), "registration failed", "username", username, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
		return
	}

	c.HTML(http.StatusOK, "myAccount.html", gin.H{
		"classActiveNewAccount": true,
		"emailSent":             true,
	})
}

func (h *AccountHandler) ForgetPassword(c *gin.Context) {
	email := c.Query("email")

	if err := h.users.ResetPassword(c.Request.Context(), email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.HTML(http.StatusOK, "myAccount.html", gin.H{
				"classActiveForgetPassword": true,
				"emailNotExist":             true,
			})
			return
		}
		logging.Error(c.Request.Context(), "password reset failed", "email", email, "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	c.HTML(http.StatusOK, "myAccount.html", gin.H{
		"classActiveForgetPassword": true,
		"forgetPasswordEmailSent":   true,
	})
}

// MyProfile 个人中心：账户信息、收货地址、支付方式与历史订单
func (h *AccountHandler) MyProfile(c *gin.Context) {
	h.renderProfile(c, gin.H{
		"classActiveEdit": true,
		"updateSuccess":   c.Query("updateSuccess") == "true",
	})
}

func (h *AccountHandler) UpdateUserInfo(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	cmd := application.UpdateInfoCommand{
		FirstName:       c.PostForm("firstName"),
		LastName:        c.PostForm("lastName"),
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		CurrentPassword: c.PostForm("currentPassword"),
		NewPassword:     c.PostForm("newPassword"),
	}

	user, err := h.users.UpdateInfo(c.Request.Context(), userID, cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameExists):
			h.renderProfile(c, gin.H{"classActiveEdit": true, "usernameExists": true})
		case errors.Is(err, domain.ErrEmailExists):
			h.renderProfile(c, gin.H{"classActiveEdit": true, "emailExists": true})
		case errors.Is(err, domain.ErrIncorrectPassword):
			h.renderProfile(c, gin.H{"classActiveEdit": true, "incorrectPassword": true})
		case errors.Is(err, domain.ErrPasswordTooShort):
			h.renderProfile(c, gin.H{"classActiveEdit": true, "passwordTooShort": true})
		default:
			logging.Error(c.Request.Context(), "failed to update user info", "user_id", userID, "error", err)
			c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		}
		return
	}

	// 用户名可能已变更，重发会话
	h.setSession(c, user, false)
	c.Redirect(http.StatusFound, "/myProfile?updateSuccess=true")
}

// SaveShipping 新增或更新收货地址（表单带 id 时为更新）
func (h *AccountHandler) SaveShipping(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	shipping := &profiledomain.UserShipping{
		Name:    c.PostForm("name"),
		Street1: c.PostForm("street1"),
		Street2: c.PostForm("street2"),
		City:    c.PostForm("city"),
		State:   c.PostForm("state"),
		Country: c.PostForm("country"),
		Zipcode: c.PostForm("zipcode"),
	}
	if id, err := strconv.ParseUint(c.PostForm("id"), 10, 32); err == nil && id > 0 {
		existing, err := h.profiles.GetShipping(c.Request.Context(), userID, uint(id))
		if err != nil {
			h.profileError(c, err)
			return
		}
		shipping.Model = existing.Model
		shipping.IsDefault = existing.IsDefault
	}

	if err := h.profiles.SaveShipping(c.Request.Context(), userID, shipping); err != nil {
		h.profileError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/myProfile")
}

func (h *AccountHandler) RemoveShipping(c *gin.Context) {
	h.profileAction(c, func(ctx *gin.Context, userID, id uint) error {
		return h.profiles.RemoveShipping(ctx.Request.Context(), userID, id)
	})
}

func (h *AccountHandler) SetDefaultShipping(c *gin.Context) {
	h.profileAction(c, func(ctx *gin.Context, userID, id uint) error {
		return h.profiles.SetDefaultShipping(ctx.Request.Context(), userID, id)
	})
}

// SavePayment 新增或更新支付方式档案，账单地址随卡一并保存
func (h *AccountHandler) SavePayment(c *gin.Context) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	expiryMonth, _ := strconv.Atoi(c.PostForm("expiryMonth"))
	expiryYear, _ := strconv.Atoi(c.PostForm("expiryYear"))
	cvc, _ := strconv.Atoi(c.PostForm("cvc"))

	payment := &profiledomain.UserPayment{
		Type:        c.PostForm("type"),
		CardName:    c.PostForm("cardName"),
		CardNumber:  c.PostForm("cardNumber"),
		ExpiryMonth: expiryMonth,
		ExpiryYear:  expiryYear,
		CVC:         cvc,
		HolderName:  c.PostForm("holderName"),
		UserBilling: profiledomain.UserBilling{
			Name:    c.PostForm("billingName"),
			Street1: c.PostForm("billingStreet1"),
			Street2: c.PostForm("billingStreet2"),
			City:    c.PostForm("billingCity"),
			State:   c.PostForm("billingState"),
			Country: c.PostForm("billingCountry"),
			Zipcode: c.PostForm("billingZipcode"),
		},
	}
	if id, err := strconv.ParseUint(c.PostForm("id"), 10, 32); err == nil && id > 0 {
		existing, err := h.profiles.GetPayment(c.Request.Context(), userID, uint(id))
		if err != nil {
			h.profileError(c, err)
			return
		}
		payment.Model = existing.Model
		payment.IsDefault = existing.IsDefault
		payment.UserBilling.Model = existing.UserBilling.Model
		payment.UserBilling.UserPaymentID = existing.UserBilling.UserPaymentID
	}

	if err := h.profiles.SavePayment(c.Request.Context(), userID, payment); err != nil {
		h.profileError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/myProfile")
}

func (h *AccountHandler) RemovePayment(c *gin.Context) {
	h.profileAction(c, func(ctx *gin.Context, userID, id uint) error {
		return h.profiles.RemovePayment(ctx.Request.Context(), userID, id)
	})
}

func (h *AccountHandler) SetDefaultPayment(c *gin.Context) {
	h.profileAction(c, func(ctx *gin.Context, userID, id uint) error {
		return h.profiles.SetDefaultPayment(ctx.Request.Context(), userID, id)
	})
}

func (h *AccountHandler) profileAction(c *gin.Context, fn func(c *gin.Context, userID, id uint) error) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	id, err := strconv.ParseUint(c.PostForm("id"), 10, 32)
	if err != nil || id == 0 {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	if err := fn(c, userID, uint(id)); err != nil {
		h.profileError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/myProfile")
}

func (h *AccountHandler) profileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profiledomain.ErrNotProfileOwner), errors.Is(err, profiledomain.ErrProfileNotFound):
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
	default:
		logging.Error(c.Request.Context(), "profile operation failed", "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
	}
}

func (h *AccountHandler) renderProfile(c *gin.Context, extra gin.H) {
	userID, ok := authmw.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		logging.Error(ctx, "failed to load user", "user_id", userID, "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}
	shippingList, err := h.profiles.ListShipping(ctx, userID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}
	paymentList, err := h.profiles.ListPayments(ctx, userID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}
	orderList, err := h.orders.ListForUser(ctx, userID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	model := gin.H{
		"user":             user,
		"username":         user.Username,
		"userShippingList": shippingList,
		"userPaymentList":  paymentList,
		"orderList":        orderList,
	}
	for k, v := range extra {
		model[k] = v
	}
	c.HTML(http.StatusOK, "myProfile.html", model)
}

func (h *AccountHandler) setSession(c *gin.Context, user *domain.User, remember bool) {
	token, expiresAt, err := h.tokens.Issue(user.ID, user.Username, remember)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to issue session token", "user_id", user.ID, "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(authmw.SessionCookie, token, maxAge, "/", "", false, true)
}
