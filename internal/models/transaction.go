package models

import (
	"gorm.io/gorm"
)

// Transaction records a driver's earnings for a completed booking.
type Transaction struct {
	gorm.Model
	BookingID uint     `json:"bookingId" gorm:"not null;uniqueIndex"`
	Booking   *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	DriverID  uint     `json:"driverId" gorm:"not null;index"`
	Driver    *User    `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Amount    float64  `json:"amount" gorm:"not null"`
}

// TableName specifies the table name
func (Transaction) TableName() string {
	return "transactions"
}
