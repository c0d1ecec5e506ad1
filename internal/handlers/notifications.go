package handlers

import (
	"context"

	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type pushKind int

const (
	pushKindOffer pushKind = iota
	pushKindMessage
	pushKindBookingStatus
	pushKindPromotional
)

// pushAllowed checks a user's notification preferences before sending a push.
// Missing preferences default to allowed.
func pushAllowed(db *gorm.DB, userID uint, kind pushKind) bool {
	var prefs models.NotificationPreference
	if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return true
	}

	if !prefs.PushEnabled {
		return false
	}

	switch kind {
	case pushKindOffer:
		return prefs.OfferAlerts
	case pushKindMessage:
		return prefs.MessageAlerts
	case pushKindBookingStatus:
		return prefs.BookingStatusAlerts
	case pushKindPromotional:
		return prefs.PromotionalMessages
	}
	return true
}

// RegisterFCMToken stores a user's device token for push notifications
func RegisterFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input struct {
			Token string `json:"token" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": "Token is required"})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("fcm_token", input.Token).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to register token"})
			return
		}

		// Drivers follow the open-bookings topic so new jobs reach them even
		// when the app is backgrounded
		if userType == string(models.UserTypeDriver) {
			var prefs models.NotificationPreference
			subscribe := true
			if err := db.Where("user_id = ?", userID).First(&prefs).Error; err == nil {
				subscribe = prefs.PushEnabled && prefs.OpenBookingsPush
			}
			if subscribe {
				go services.SubscribeToTopic(context.Background(), []string{input.Token}, services.OpenBookingsTopic)
			}
		}

		c.JSON(200, gin.H{"message": "Token registered successfully"})
	}
}

// RemoveFCMToken clears a user's device token, typically on logout
func RemoveFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if user.FCMToken != "" {
			go services.UnsubscribeFromTopic(context.Background(), []string{user.FCMToken}, services.OpenBookingsTopic)
		}

		if err := db.Model(&user).Update("fcm_token", "").Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to remove token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token removed successfully"})
	}
}

// GetNotificationPreferences returns the caller's notification preferences,
// creating defaults on first access
func GetNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var prefs models.NotificationPreference
		if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
			defaults := models.DefaultPreferences(userID)
			if err := db.Create(defaults).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to load preferences"})
				return
			}
			prefs = *defaults
		}

		c.JSON(200, prefs)
	}
}

// UpdateNotificationPreferences updates the caller's notification preferences
func UpdateNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input struct {
			PushEnabled         *bool `json:"pushEnabled"`
			OpenBookingsPush    *bool `json:"openBookingsPush"`
			OfferAlerts         *bool `json:"offerAlerts"`
			MessageAlerts       *bool `json:"messageAlerts"`
			BookingStatusAlerts *bool `json:"bookingStatusAlerts"`
			PromotionalMessages *bool `json:"promotionalMessages"`
			EmailEnabled        *bool `json:"emailEnabled"`
			SMSEnabled          *bool `json:"smsEnabled"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var prefs models.NotificationPreference
		if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
			prefs = *models.DefaultPreferences(userID)
			if err := db.Create(&prefs).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to load preferences"})
				return
			}
		}

		updates := map[string]interface{}{}
		if input.PushEnabled != nil {
			updates["push_enabled"] = *input.PushEnabled
		}
		if input.OpenBookingsPush != nil {
			updates["open_bookings_push"] = *input.OpenBookingsPush
		}
		if input.OfferAlerts != nil {
			updates["offer_alerts"] = *input.OfferAlerts
		}
		if input.MessageAlerts != nil {
			updates["message_alerts"] = *input.MessageAlerts
		}
		if input.BookingStatusAlerts != nil {
			updates["booking_status_alerts"] = *input.BookingStatusAlerts
		}
		if input.PromotionalMessages != nil {
			updates["promotional_messages"] = *input.PromotionalMessages
		}
		if input.EmailEnabled != nil {
			updates["email_enabled"] = *input.EmailEnabled
		}
		if input.SMSEnabled != nil {
			updates["sms_enabled"] = *input.SMSEnabled
		}

		if len(updates) > 0 {
			if err := db.Model(&prefs).Updates(updates).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to update preferences"})
				return
			}
		}

		// Keep the driver's open-bookings topic subscription in sync
		if userType == string(models.UserTypeDriver) &&
			(input.PushEnabled != nil || input.OpenBookingsPush != nil) {
			var user models.User
			if err := db.First(&user, userID).Error; err == nil && user.FCMToken != "" {
				if prefs.PushEnabled && prefs.OpenBookingsPush {
					go services.SubscribeToTopic(context.Background(), []string{user.FCMToken}, services.OpenBookingsTopic)
				} else {
					go services.UnsubscribeFromTopic(context.Background(), []string{user.FCMToken}, services.OpenBookingsTopic)
				}
			}
		}

		c.JSON(200, prefs)
	}
}

// SendBroadcast sends a promotional push to all opted-in users (admin only)
func SendBroadcast(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("userType") != string(models.UserTypeAdmin) {
			c.JSON(403, gin.H{"error": "Admin access required"})
			return
		}

		var input struct {
			Title    string                 `json:"title" binding:"required"`
			Body     string                 `json:"body" binding:"required"`
			ImageURL string                 `json:"imageUrl"`
			UserType string                 `json:"userType"`
			Data     map[string]interface{} `json:"data"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": "Title and body are required"})
			return
		}

		query := db.Model(&models.User{}).Where("fcm_token != ''")
		if input.UserType != "" {
			query = query.Where("user_type = ?", input.UserType)
		}

		var users []models.User
		if err := query.Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch recipients"})
			return
		}

		tokens := make([]string, 0, len(users))
		for _, u := range users {
			if pushAllowed(db, u.ID, pushKindPromotional) {
				tokens = append(tokens, u.FCMToken)
			}
		}

		if len(tokens) == 0 {
			c.JSON(200, gin.H{"message": "No eligible recipients", "sent": 0})
			return
		}

		resp, err := services.SendBroadcastNotification(context.Background(), tokens,
			input.Title, input.Body, input.ImageURL, input.Data)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to send broadcast"})
			return
		}

		c.JSON(200, gin.H{
			"message": "Broadcast sent",
			"sent":    resp.SuccessCount,
			"failed":  resp.FailureCount,
		})
	}
}
