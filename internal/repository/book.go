package repository

import (
	"context"

	"github.com/bookworm-labs/books-api/internal/models"
	"github.com/bookworm-labs/books-api/internal/storage"
	"gorm.io/gorm"
)

type BookRepository struct {
	db *storage.Postgres
}

func NewBookRepository(db *storage.Postgres) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.DB.WithContext(ctx).Create(book).Error
}

func (r *BookRepository) FindByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.DB.WithContext(ctx).First(&book, id).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &book, err
}

func (r *BookRepository) List(ctx context.Context, limit, offset int) ([]models.Book, int64, error) {
	var total int64
	if err := r.db.DB.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []models.Book
	err := r.db.DB.WithContext(ctx).
		Order("title ASC").
		Limit(limit).
		Offset(offset).
		Find(&books).Error

	return books, total, err
}

func (r *BookRepository) FindByAuthor(ctx context.Context, authorID uint) ([]models.Book, error) {
	var books []models.Book
	err := r.db.DB.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("title ASC").
		Find(&books).Error

	return books, err
}

func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	return r.db.DB.WithContext(ctx).Save(book).Error
}

func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.DB.WithContext(ctx).Delete(&models.Book{}, id).Error
}
