package handlers

import (
	"context"
	"time"

	"github.com/buildlink/buildlink-backend/internal/chat"
	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// bookingParties returns the customer and, if one exists, the accepted driver
// for a booking. Chat is restricted to these two.
func bookingParties(db *gorm.DB, bookingID uint) (customerID uint, driverID uint, err error) {
	var booking models.Booking
	if err := db.First(&booking, bookingID).Error; err != nil {
		return 0, 0, err
	}

	var accepted models.Offer
	if err := db.Where("booking_id = ? AND status = ?", bookingID, models.OfferStatusAccepted).
		First(&accepted).Error; err == nil {
		return booking.CustomerID, accepted.DriverID, nil
	}

	return booking.CustomerID, 0, nil
}

// SendMessage posts a chat message within a booking thread
func SendMessage(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		senderID := c.GetUint("userId")

		var input struct {
			RecipientID uint   `json:"recipientId" binding:"required"`
			Content     string `json:"content" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": "Recipient and content are required"})
			return
		}

		if input.RecipientID == senderID {
			c.JSON(400, gin.H{"error": "Cannot send a message to yourself"})
			return
		}

		customerID, driverID, err := bookingParties(db, bookingID)
		if err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}

		isParty := func(id uint) bool {
			return id == customerID || (driverID != 0 && id == driverID)
		}
		if !isParty(senderID) || !isParty(input.RecipientID) {
			c.JSON(403, gin.H{"error": "Both parties must belong to this booking"})
			return
		}

		message := models.Message{
			BookingID:   bookingID,
			SenderID:    senderID,
			RecipientID: input.RecipientID,
			Content:     input.Content,
			Read:        false,
		}

		if err := db.Create(&message).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to send message"})
			return
		}

		hub.SendNewChatMessage(input.RecipientID, services.NewChatMessage{
			BookingID: bookingID,
			MessageID: message.ID,
			SenderID:  senderID,
			Preview:   message.Content,
		})

		ctx := context.Background()
		services.PublishChatEvent(ctx, "new_message", bookingID, senderID)

		var sender, recipient models.User
		if db.First(&sender, senderID).Error == nil &&
			db.First(&recipient, input.RecipientID).Error == nil &&
			recipient.FCMToken != "" && pushAllowed(db, recipient.ID, pushKindMessage) {
			go services.SendNewMessageNotification(context.Background(), recipient.FCMToken,
				bookingID, sender.Username, message.Content)
		}

		c.JSON(201, message)
	}
}

// GetBookingMessages returns a booking's chat thread oldest first
func GetBookingMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		userID := c.GetUint("userId")

		customerID, driverID, err := bookingParties(db, bookingID)
		if err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}
		if userID != customerID && (driverID == 0 || userID != driverID) {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		var messages []models.Message
		if err := db.Where("booking_id = ?", bookingID).
			Order("created_at ASC").
			Find(&messages).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch messages"})
			return
		}

		c.JSON(200, messages)
	}
}

// MarkMessagesAsRead marks all unread messages from a sender to the caller
// within a booking as read. Repeat calls are no-ops.
func MarkMessagesAsRead(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		readerID := c.GetUint("userId")

		var input struct {
			SenderID uint `json:"senderId" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": "Sender id is required"})
			return
		}

		result := db.Model(&models.Message{}).
			Where("booking_id = ? AND sender_id = ? AND recipient_id = ? AND read = ?",
				bookingID, input.SenderID, readerID, false).
			Update("read", true)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to mark messages as read"})
			return
		}

		if result.RowsAffected > 0 {
			hub.SendMessagesRead(input.SenderID, services.MessagesRead{
				BookingID: bookingID,
				ReaderID:  readerID,
			})
			services.PublishChatEvent(context.Background(), "messages_read", bookingID, readerID)
		}

		c.JSON(200, gin.H{
			"message":     "Messages marked as read",
			"updatedRows": result.RowsAffected,
		})
	}
}

// GetConversations returns the caller's conversation list, one entry per
// booking they have chatted in, newest activity first
func GetConversations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var messages []models.Message
		if err := db.Where("sender_id = ? OR recipient_id = ?", userID, userID).
			Order("created_at ASC").
			Find(&messages).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch conversations"})
			return
		}

		counterpartIDs := map[uint]bool{}
		for _, m := range messages {
			if m.SenderID != userID {
				counterpartIDs[m.SenderID] = true
			}
			if m.RecipientID != userID {
				counterpartIDs[m.RecipientID] = true
			}
		}

		ids := make([]uint, 0, len(counterpartIDs))
		for id := range counterpartIDs {
			ids = append(ids, id)
		}

		profiles := map[uint]chat.Party{}
		if len(ids) > 0 {
			var users []models.User
			if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to fetch conversations"})
				return
			}
			for _, u := range users {
				profiles[u.ID] = chat.Party{
					ID:       u.ID,
					Username: u.Username,
					Rating:   u.Rating,
				}
			}
		}

		conversations := chat.BuildConversations(userID, messages, profiles, time.Now())

		c.JSON(200, conversations)
	}
}
