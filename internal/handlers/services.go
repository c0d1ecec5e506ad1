package handlers

import (
	"strconv"

	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetServices lists the active service catalog
func GetServices(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var items []models.Service
		query := db.Where("is_active = ?", true)

		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}

		if err := query.Order("name ASC").Find(&items).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch services"})
			return
		}

		for i := range items {
			if items[i].ImageURL != "" {
				items[i].ImageURL = services.GetImageURL(items[i].ImageURL)
			}
		}

		c.JSON(200, items)
	}
}

// CreateService adds a service to the catalog (admin only)
func CreateService(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("userType") != string(models.UserTypeAdmin) {
			c.JSON(403, gin.H{"error": "Admin access required"})
			return
		}

		name := c.PostForm("name")
		category := c.PostForm("category")
		priceStr := c.PostForm("unitPrice")

		if name == "" || priceStr == "" {
			c.JSON(400, gin.H{"error": "Name and unit price are required"})
			return
		}

		unitPrice, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || unitPrice <= 0 {
			c.JSON(400, gin.H{"error": "Unit price must be a positive number"})
			return
		}

		service := models.Service{
			Name:        name,
			Description: c.PostForm("description"),
			Category:    category,
			UnitPrice:   unitPrice,
			IsActive:    true,
		}

		if file, err := c.FormFile("image"); err == nil {
			imagePath, err := services.UploadImage(file, "services")
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to upload image"})
				return
			}
			service.ImageURL = imagePath
		}

		if err := db.Create(&service).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create service"})
			return
		}

		c.JSON(201, service)
	}
}

// UpdateService toggles availability or edits catalog fields (admin only)
func UpdateService(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("userType") != string(models.UserTypeAdmin) {
			c.JSON(403, gin.H{"error": "Admin access required"})
			return
		}

		serviceID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}

		var service models.Service
		if err := db.First(&service, serviceID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Service not found"})
			return
		}

		var input struct {
			Name        *string  `json:"name"`
			Description *string  `json:"description"`
			Category    *string  `json:"category"`
			UnitPrice   *float64 `json:"unitPrice"`
			IsActive    *bool    `json:"isActive"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.Category != nil {
			updates["category"] = *input.Category
		}
		if input.UnitPrice != nil {
			if *input.UnitPrice <= 0 {
				c.JSON(400, gin.H{"error": "Unit price must be a positive number"})
				return
			}
			updates["unit_price"] = *input.UnitPrice
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}

		if len(updates) > 0 {
			if err := db.Model(&service).Updates(updates).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to update service"})
				return
			}
		}

		c.JSON(200, service)
	}
}
