package handler

import (
	"net/http"

	"github.com/bookworm-labs/books-api/internal/models"
	"github.com/bookworm-labs/books-api/internal/repository"
	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	repo    *repository.BookRepository
	authors *repository.AuthorRepository
}

func NewBookHandler(repo *repository.BookRepository, authors *repository.AuthorRepository) *BookHandler {
	return &BookHandler{repo: repo, authors: authors}
}

// Handles POST /api/books
func (h *BookHandler) Create(c *gin.Context) {
	var book models.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	author, err := h.authors.FindByID(ctx, book.AuthorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify author"})
		return
	}
	if author == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Author not found"})
		return
	}

	if err := h.repo.Create(ctx, &book); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create book"})
		return
	}

	c.JSON(http.StatusCreated, book)
}

// Handles GET /api/books
func (h *BookHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	ctx := c.Request.Context()
	books, total, err := h.repo.List(ctx, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  books,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Handles GET /api/books/:id
func (h *BookHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	ctx := c.Request.Context()
	book, err := h.repo.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	c.JSON(http.StatusOK, book)
}

// Handles PUT /api/books/:id
func (h *BookHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	ctx := c.Request.Context()
	book, err := h.repo.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	var update models.Book
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book.Title = update.Title
	book.ISBN = update.ISBN
	book.PublicationYear = update.PublicationYear
	book.AuthorID = update.AuthorID

	if err := h.repo.Update(ctx, book); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}

	c.JSON(http.StatusOK, book)
}

// Handles DELETE /api/books/:id
func (h *BookHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.Delete(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete book"})
		return
	}

	c.Status(http.StatusNoContent)
}
