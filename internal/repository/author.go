package repository

import (
	"context"

	"github.com/bookworm-labs/books-api/internal/models"
	"github.com/bookworm-labs/books-api/internal/storage"
	"gorm.io/gorm"
)

type AuthorRepository struct {
	db *storage.Postgres
}

func NewAuthorRepository(db *storage.Postgres) *AuthorRepository {
	return &AuthorRepository{db: db}
}

func (r *AuthorRepository) Create(ctx context.Context, author *models.Author) error {
	return r.db.DB.WithContext(ctx).Create(author).Error
}

func (r *AuthorRepository) FindByID(ctx context.Context, id uint) (*models.Author, error) {
	var author models.Author
	err := r.db.DB.WithContext(ctx).
		Preload("Books").
		First(&author, id).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &author, err
}

func (r *AuthorRepository) List(ctx context.Context, limit, offset int) ([]models.Author, int64, error) {
	var total int64
	if err := r.db.DB.WithContext(ctx).Model(&models.Author{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.Author
	err := r.db.DB.WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&authors).Error

	return authors, total, err
}

func (r *AuthorRepository) Update(ctx context.Context, author *models.Author) error {
	return r.db.DB.WithContext(ctx).Save(author).Error
}

func (r *AuthorRepository) Delete(ctx context.Context, id uint) error {
	return r.db.DB.WithContext(ctx).Delete(&models.Author{}, id).Error
}
