package handlers

import (
	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetDriverEarnings returns a driver's completed-job earnings summary
func GetDriverEarnings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers have earnings"})
			return
		}

		var transactions []models.Transaction
		if err := db.Where("driver_id = ?", driverID).
			Preload("Booking").
			Preload("Booking.Service").
			Order("created_at DESC").
			Find(&transactions).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch earnings"})
			return
		}

		var total float64
		for _, t := range transactions {
			total += t.Amount
		}

		c.JSON(200, gin.H{
			"total":        total,
			"jobCount":     len(transactions),
			"transactions": transactions,
		})
	}
}
