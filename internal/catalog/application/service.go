package application

import (
	"context"
	"strings"

	"github.com/wyfcoding/bookstore/internal/catalog/domain"
)

// CatalogService 图书目录应用服务
type CatalogService struct {
	books domain.BookRepository
}

func NewCatalogService(books domain.BookRepository) *CatalogService {
	return &CatalogService{books: books}
}

func (s *CatalogService) GetBook(ctx context.Context, id uint) (*domain.Book, error) {
	book, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}
	return book, nil
}

func (s *CatalogService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.books.List(ctx)
}

func (s *CatalogService) SearchByCategory(ctx context.Context, category string) ([]*domain.Book, error) {
	return s.books.ListByCategory(ctx, strings.TrimSpace(category))
}

func (s *CatalogService) SearchByTitle(ctx context.Context, keyword string) ([]*domain.Book, error) {
	return s.books.SearchByTitle(ctx, strings.TrimSpace(keyword))
}
