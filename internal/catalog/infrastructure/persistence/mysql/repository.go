package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookRepository struct{ db *gorm.DB }

func NewBookRepository(db *gorm.DB) domain.BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func (r *bookRepository) Save(ctx context.Context, book *domain.Book) error {
	return r.getDB(ctx).WithContext(ctx).Save(book).Error
}

func (r *bookRepository) Get(ctx context.Context, id uint) (*domain.Book, error) {
	var book domain.Book
	err := r.getDB(ctx).WithContext(ctx).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetForUpdate 加行锁读取，调用方须处于事务上下文中
func (r *bookRepository) GetForUpdate(ctx context.Context, id uint) (*domain.Book, error) {
	var book domain.Book
	err := r.getDB(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("title asc").
		Find(&books).Error
	return books, err
}

func (r *bookRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Book, error) {
	var books []*domain.Book
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ? AND category = ?", true, category).
		Order("title asc").
		Find(&books).Error
	return books, err
}

func (r *bookRepository) SearchByTitle(ctx context.Context, keyword string) ([]*domain.Book, error) {
	var books []*domain.Book
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ? AND title LIKE ?", true, "%"+keyword+"%").
		Order("title asc").
		Find(&books).Error
	return books, err
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"title":       book.Title,
			"author":      book.Author,
			"publisher":   book.Publisher,
			"isbn":        book.ISBN,
			"category":    book.Category,
			"description": book.Description,
			"price":       book.Price,
			"in_stock":    book.InStock,
			"active":      book.Active,
		}).Error
}
