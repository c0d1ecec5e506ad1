package models

import (
	"gorm.io/gorm"
)

// Service is a catalog entry for bookable equipment or labor.
type Service struct {
	gorm.Model
	Name        string  `json:"name" gorm:"not null"`
	Description string  `json:"description"`
	Category    string  `json:"category" gorm:"not null"` // equipment, labor
	UnitPrice   float64 `json:"unitPrice" gorm:"not null"`
	ImageURL    string  `json:"imageUrl"`
	IsActive    bool    `json:"isActive" gorm:"not null;default:true"`
}

// TableName specifies the table name
func (Service) TableName() string {
	return "services"
}
