package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusWaitingForOffers BookingStatus = "waiting_for_offers"
	BookingStatusOfferAccepted    BookingStatus = "offer_accepted"
	BookingStatusInProgress       BookingStatus = "in_progress"
	BookingStatusCompleted        BookingStatus = "completed"
	BookingStatusCancelled        BookingStatus = "cancelled"
)

// Booking represents a customer's request for a construction service.
// Drivers submit offers against it while it is waiting_for_offers.
type Booking struct {
	gorm.Model
	CustomerID uint          `json:"customerId" gorm:"not null"`
	Customer   *User         `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	ServiceID  uint          `json:"serviceId" gorm:"not null"`
	Service    *Service      `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	Location   string        `json:"location" gorm:"not null"`
	Date       time.Time     `json:"date" gorm:"not null"`
	TimeSlot   string        `json:"timeSlot" gorm:"not null"`
	Quantity   int           `json:"quantity" gorm:"not null;default:1"`
	Notes      string        `json:"notes,omitempty"`
	SitePhoto  string        `json:"sitePhoto,omitempty"`
	Status     BookingStatus `json:"status" gorm:"not null;default:'waiting_for_offers'"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}

// IsOpen reports whether the booking still accepts offers.
func (b *Booking) IsOpen() bool {
	return NormalizeStatus(b.Status) == BookingStatusWaitingForOffers
}

// IsTerminal reports whether the booking has reached a final state.
func (b *Booking) IsTerminal() bool {
	s := NormalizeStatus(b.Status)
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// NormalizeStatus maps the legacy "pending" value onto the canonical open
// state. Older rows were written with "pending" before the lifecycle was
// consolidated; reads treat both as waiting_for_offers.
func NormalizeStatus(s BookingStatus) BookingStatus {
	if s == "pending" {
		return BookingStatusWaitingForOffers
	}
	return s
}
