package models

import (
	"time"
)

type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"not null" json:"title" binding:"required"`
	ISBN            string    `gorm:"uniqueIndex" json:"isbn,omitempty"`
	PublicationYear int       `gorm:"column:publication_year" json:"publication_year,omitempty"`
	AuthorID        uint      `gorm:"index;not null" json:"author_id" binding:"required"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}
