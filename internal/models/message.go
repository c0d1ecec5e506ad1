package models

import (
	"gorm.io/gorm"
)

// Message is a chat line between the two parties of a booking. Rows are
// append-only; only the read flag is ever updated, and only by the recipient.
type Message struct {
	gorm.Model
	BookingID   uint     `json:"bookingId" gorm:"not null;index"`
	Booking     *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	SenderID    uint     `json:"senderId" gorm:"not null"`
	Sender      *User    `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	RecipientID uint     `json:"recipientId" gorm:"not null;index"`
	Recipient   *User    `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`
	Content     string   `json:"content" gorm:"not null"`
	Read        bool     `json:"read" gorm:"not null;default:false"`
}

// TableName specifies the table name
func (Message) TableName() string {
	return "messages"
}
