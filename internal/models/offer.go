package models

import (
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
)

// Offer is a driver's priced bid against an open booking. Offers are never
// edited after submission; they only move to accepted or declined when the
// customer settles the booking.
type Offer struct {
	gorm.Model
	BookingID uint        `json:"bookingId" gorm:"not null;index"`
	Booking   *Booking    `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	DriverID  uint        `json:"driverId" gorm:"not null"`
	Driver    *User       `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Price     float64     `json:"price" gorm:"not null;check:price > 0"`
	Distance  float64     `json:"distance"` // in kilometers
	Status    OfferStatus `json:"status" gorm:"not null;default:'pending'"`
}

// TableName specifies the table name
func (Offer) TableName() string {
	return "offers"
}
