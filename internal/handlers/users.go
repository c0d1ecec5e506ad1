package handlers

import (
	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetProfile returns the authenticated user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		c.JSON(200, gin.H{
			"id":          user.ID,
			"username":    user.Username,
			"email":       user.Email,
			"phoneNumber": user.PhoneNumber,
			"userType":    user.UserType,
			"rating":      user.Rating,
			"ratingCount": user.RatingCount,
			"isVerified":  user.IsVerified,
			"createdAt":   user.CreatedAt,
		})
	}
}

// UpdateProfile updates the authenticated user's profile fields
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			Username    string `json:"username"`
			PhoneNumber string `json:"phoneNumber"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		updates := map[string]interface{}{}
		if input.Username != "" {
			updates["username"] = input.Username
		}
		if input.PhoneNumber != "" {
			updates["phone_number"] = input.PhoneNumber
		}

		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to update profile"})
				return
			}
		}

		c.JSON(200, gin.H{
			"message": "Profile updated successfully",
			"user": gin.H{
				"id":          user.ID,
				"username":    user.Username,
				"phoneNumber": user.PhoneNumber,
			},
		})
	}
}
