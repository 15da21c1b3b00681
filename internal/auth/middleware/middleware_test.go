package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/bookstore/internal/auth/application"
)

func TestIsPublic(t *testing.T) {
	public := []string{
		"/", "/login", "/logout", "/newUser", "/forgetPassword",
		"/bookshelf", "/bookDetail", "/searchByCategory", "/searchBook",
		"/hours", "/faq", "/css/style.css", "/js/app.js", "/image/logo.png",
	}
	for _, path := range public {
		assert.True(t, IsPublic(path), "expected %s to be public", path)
	}

	private := []string{
		"/myProfile", "/shoppingCart/cart", "/checkout", "/orderDetail",
		"/updateUserInfo", "/addNewShippingAddress", "/setDefaultPayment",
	}
	for _, path := range private {
		assert.False(t, IsPublic(path), "expected %s to be protected", path)
	}
}

func newAuthRouter(tokens *application.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionAuth(tokens))
	r.GET("/bookshelf", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/myProfile", func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r
}

func TestSessionAuthRedirectsProtectedWithoutSession(t *testing.T) {
	tokens := application.NewTokenService("test-secret", time.Hour, time.Hour)
	r := newAuthRouter(tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/myProfile", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestSessionAuthAllowsPublicWithoutSession(t *testing.T) {
	tokens := application.NewTokenService("test-secret", time.Hour, time.Hour)
	r := newAuthRouter(tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookshelf", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionAuthAcceptsValidCookie(t *testing.T) {
	tokens := application.NewTokenService("test-secret", time.Hour, time.Hour)
	r := newAuthRouter(tokens)

	token, _, err := tokens.Issue(42, "alex", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/myProfile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestSessionAuthRejectsTamperedCookie(t *testing.T) {
	tokens := application.NewTokenService("test-secret", time.Hour, time.Hour)
	r := newAuthRouter(tokens)

	other := application.NewTokenService("other-secret", time.Hour, time.Hour)
	token, _, err := other.Issue(42, "alex", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/myProfile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
