package handlers

import (
	"errors"
	"log"

	"github.com/buildlink/buildlink-backend/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// respondError maps lifecycle errors to HTTP responses. Validation and state
// errors carry enough detail for the caller to correct the request; anything
// else is logged server-side and surfaced as a generic failure.
func respondError(c *gin.Context, err error) {
	var validationErr *lifecycle.ValidationError
	var stateErr *lifecycle.InvalidStateError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(400, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &stateErr):
		c.JSON(409, gin.H{
			"error":    stateErr.Error(),
			"expected": stateErr.Expected,
			"actual":   stateErr.Actual,
		})
	case errors.Is(err, lifecycle.ErrNotFound):
		c.JSON(404, gin.H{"error": "Record not found"})
	case errors.Is(err, lifecycle.ErrForbidden):
		c.JSON(403, gin.H{"error": "Unauthorized"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(500, gin.H{"error": "Something went wrong"})
	}
}
