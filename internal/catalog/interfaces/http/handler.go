package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authmw "github.com/wyfcoding/bookstore/internal/auth/middleware"
	"github.com/wyfcoding/bookstore/internal/catalog/application"
	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/pkg/logging"
)

var bookDetailQtyList = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

// CatalogHandler 目录页面处理器
type CatalogHandler struct {
	catalog *application.CatalogService
}

func NewCatalogHandler(catalog *application.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/hours", h.Hours)
	r.GET("/faq", h.FAQ)
	r.GET("/bookshelf", h.Bookshelf)
	r.GET("/bookDetail", h.BookDetail)
	r.GET("/searchByCategory", h.SearchByCategory)
	r.GET("/searchBook", h.SearchBook)
}

func (h *CatalogHandler) Index(c *gin.Context) {
	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "index.html", gin.H{"username": username})
}

func (h *CatalogHandler) Hours(c *gin.Context) {
	c.HTML(http.StatusOK, "hours.html", nil)
}

func (h *CatalogHandler) FAQ(c *gin.Context) {
	c.HTML(http.StatusOK, "faq.html", nil)
}

func (h *CatalogHandler) Bookshelf(c *gin.Context) {
	books, err := h.catalog.ListBooks(c.Request.Context())
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list books", "error", err)
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}
	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "bookshelf.html", gin.H{
		"bookList": books,
		"username": username,
	})
}

func (h *CatalogHandler) BookDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil || id == 0 {
		logging.Warn(c.Request.Context(), "invalid book id", "id", c.Query("id"))
		c.Redirect(http.StatusFound, "/bookshelf")
		return
	}

	book, err := h.catalog.GetBook(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			logging.Warn(c.Request.Context(), "book not found", "book_id", id)
			c.Redirect(http.StatusFound, "/bookshelf")
			return
		}
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "bookDetail.html", gin.H{
		"book":            book,
		"qtyList":         bookDetailQtyList,
		"qty":             1,
		"username":        username,
		"notEnoughStock":  c.Query("notEnoughStock") == "true",
		"invalidQuantity": c.Query("invalidQuantity") == "true",
		"addBookSuccess":  c.Query("addBookSuccess") == "true",
	})
}

func (h *CatalogHandler) SearchByCategory(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" || len(category) > 100 {
		c.HTML(http.StatusBadRequest, "badRequest.html", nil)
		return
	}

	books, err := h.catalog.SearchByCategory(c.Request.Context(), category)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	username, _ := authmw.CurrentUsername(c)
	c.HTML(http.StatusOK, "bookshelf.html", gin.H{
		"bookList":  books,
		"category":  category,
		"emptyList": len(books) == 0,
		"username":  username,
	})
}

func (h *CatalogHandler) SearchBook(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	username, _ := authmw.CurrentUsername(c)

	if keyword == "" || len(keyword) > 200 || suspiciousKeyword(keyword) {
		logging.Warn(c.Request.Context(), "rejected search keyword", "keyword", keyword)
		c.HTML(http.StatusOK, "bookshelf.html", gin.H{
			"invalidSearch": true,
			"username":      username,
		})
		return
	}

	books, err := h.catalog.SearchByTitle(c.Request.Context(), keyword)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "badRequest.html", nil)
		return
	}

	c.HTML(http.StatusOK, "bookshelf.html", gin.H{
		"bookList":  books,
		"keyword":   keyword,
		"emptyList": len(books) == 0,
		"username":  username,
	})
}

func suspiciousKeyword(keyword string) bool {
	for _, marker := range []string{"--", ";", "'", "\"", "<", ">"} {
		if strings.Contains(keyword, marker) {
			return true
		}
	}
	return false
}
