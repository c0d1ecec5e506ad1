package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	// FirebaseApp is the Firebase app instance
	FirebaseApp *firebase.App
	// MessagingClient is the Firebase Cloud Messaging client
	MessagingClient *messaging.Client
)

// OpenBookingsTopic is the FCM topic drivers subscribe to for new open
// bookings.
const OpenBookingsTopic = "open_bookings"

// InitFirebase initializes Firebase Admin SDK
func InitFirebase() error {
	ctx := context.Background()

	// Check if Firebase is configured
	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil
	}

	// Initialize Firebase app
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	// Initialize messaging client
	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FirebaseApp = app
	MessagingClient = client

	log.Println("Firebase Cloud Messaging initialized successfully")
	return nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title      string                 `json:"title"`
	Body       string                 `json:"body"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Image      string                 `json:"image,omitempty"`
	ChannelID  string                 `json:"channelId,omitempty"`  // Android notification channel
	Sound      string                 `json:"sound,omitempty"`      // Custom sound file name
	Priority   string                 `json:"priority,omitempty"`   // high, normal, low
	BadgeCount *int                   `json:"badgeCount,omitempty"` // iOS badge count
	Tag        string                 `json:"tag,omitempty"`        // Android notification tag
}

// getAndroidConfig returns Android-specific notification configuration
func getAndroidConfig(payload NotificationPayload) *messaging.AndroidConfig {
	channelID := payload.ChannelID
	if channelID == "" {
		channelID = "buildlink_default"
	}

	sound := payload.Sound
	if sound == "" {
		sound = "default"
	}

	priority := messaging.PriorityHigh
	if payload.Priority == "normal" {
		priority = messaging.PriorityDefault
	}

	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:                 sound,
			ChannelID:             channelID,
			Priority:              priority,
			DefaultSound:          sound == "default",
			Tag:                   payload.Tag,
			DefaultVibrateTimings: true,
		},
	}
}

// getAPNSConfig returns iOS-specific notification configuration
func getAPNSConfig(payload NotificationPayload) *messaging.APNSConfig {
	sound := payload.Sound
	if sound == "" {
		sound = "default"
	}

	badge := 1
	if payload.BadgeCount != nil {
		badge = *payload.BadgeCount
	}

	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound:            sound,
				Badge:            &badge,
				MutableContent:   true,
				ContentAvailable: true,
			},
		},
	}
}

// toDataStrings converts a payload data map to the string map FCM requires
func toDataStrings(data map[string]interface{}) map[string]string {
	dataStrings := make(map[string]string)
	for key, value := range data {
		switch v := value.(type) {
		case string:
			dataStrings[key] = v
		case int, int64, uint, float64, bool:
			dataStrings[key] = fmt.Sprintf("%v", v)
		default:
			jsonData, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling data for key %s: %v", key, err)
				continue
			}
			dataStrings[key] = string(jsonData)
		}
	}
	return dataStrings
}

// SendNotificationToToken sends a notification to a specific FCM token
func SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notification.")
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  toDataStrings(payload.Data),
		Token: token,
	}

	if payload.Image != "" {
		message.Notification.ImageURL = payload.Image
	}

	message.Android = getAndroidConfig(payload)
	message.APNS = getAPNSConfig(payload)

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %v", err)
	}

	log.Printf("Successfully sent notification to token: %s, response: %s", token, response)
	return nil
}

// SendNotificationToMultipleTokens sends a notification to multiple FCM tokens
func SendNotificationToMultipleTokens(ctx context.Context, tokens []string, payload NotificationPayload) (*messaging.BatchResponse, error) {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notifications.")
		return nil, nil
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens provided")
	}

	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:   toDataStrings(payload.Data),
		Tokens: tokens,
	}

	if payload.Image != "" {
		message.Notification.ImageURL = payload.Image
	}

	message.Android = getAndroidConfig(payload)
	message.APNS = getAPNSConfig(payload)

	response, err := MessagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("error sending multicast message: %v", err)
	}

	log.Printf("Successfully sent %d messages, %d failures", response.SuccessCount, response.FailureCount)

	if response.FailureCount > 0 {
		for idx, resp := range response.Responses {
			if !resp.Success {
				log.Printf("Failed to send to token %s: %v", tokens[idx], resp.Error)
			}
		}
	}

	return response, nil
}

// SendNewOfferNotification tells the customer a driver has bid on their booking
func SendNewOfferNotification(ctx context.Context, customerToken string, bookingID, offerID uint, driverName string, price float64) error {
	payload := NotificationPayload{
		Title: "New Offer",
		Body:  fmt.Sprintf("%s offered GHS %.2f for your booking", driverName, price),
		Data: map[string]interface{}{
			"type":           "new_offer",
			"bookingId":      bookingID,
			"offerId":        offerID,
			"driverName":     driverName,
			"price":          price,
			"notificationId": fmt.Sprintf("new_offer_%d", offerID),
		},
	}

	return SendNotificationToToken(ctx, customerToken, payload)
}

// SendOfferAcceptedNotification tells the winning driver their offer was accepted
func SendOfferAcceptedNotification(ctx context.Context, driverToken string, bookingID uint, location string, price float64) error {
	payload := NotificationPayload{
		Title: "Offer Accepted!",
		Body:  fmt.Sprintf("Your offer of GHS %.2f for the job at %s was accepted", price, location),
		Data: map[string]interface{}{
			"type":           "offer_accepted",
			"bookingId":      bookingID,
			"location":       location,
			"price":          price,
			"notificationId": fmt.Sprintf("offer_accepted_%d", bookingID),
		},
	}

	return SendNotificationToToken(ctx, driverToken, payload)
}

// SendBookingStatusNotification tells the customer the booking moved state
func SendBookingStatusNotification(ctx context.Context, customerToken string, bookingID uint, status string) error {
	payload := NotificationPayload{
		Title: "Booking Update",
		Body:  fmt.Sprintf("Your booking is now %s", status),
		Data: map[string]interface{}{
			"type":           "booking_status",
			"bookingId":      bookingID,
			"status":         status,
			"notificationId": fmt.Sprintf("booking_status_%d_%s", bookingID, status),
		},
	}

	return SendNotificationToToken(ctx, customerToken, payload)
}

// SendNewMessageNotification tells the recipient a chat message arrived
func SendNewMessageNotification(ctx context.Context, recipientToken string, bookingID uint, senderName, preview string) error {
	payload := NotificationPayload{
		Title: senderName,
		Body:  preview,
		Data: map[string]interface{}{
			"type":           "new_message",
			"bookingId":      bookingID,
			"senderName":     senderName,
			"notificationId": fmt.Sprintf("new_message_%d", bookingID),
		},
		Tag: fmt.Sprintf("chat_%d", bookingID),
	}

	return SendNotificationToToken(ctx, recipientToken, payload)
}

// SendBroadcastNotification sends a broadcast notification to all users
func SendBroadcastNotification(ctx context.Context, tokens []string, title, body, imageURL string, data map[string]interface{}) (*messaging.BatchResponse, error) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["type"] = "broadcast"

	payload := NotificationPayload{
		Title: title,
		Body:  body,
		Image: imageURL,
		Data:  data,
	}

	return SendNotificationToMultipleTokens(ctx, tokens, payload)
}

// SubscribeToTopic subscribes tokens to a topic for targeted messaging
func SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping topic subscription.")
		return nil
	}

	response, err := MessagingClient.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return fmt.Errorf("error subscribing to topic: %v", err)
	}

	log.Printf("Successfully subscribed %d tokens to topic %s, %d failures", response.SuccessCount, topic, response.FailureCount)
	return nil
}

// UnsubscribeFromTopic unsubscribes tokens from a topic
func UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping topic unsubscription.")
		return nil
	}

	response, err := MessagingClient.UnsubscribeFromTopic(ctx, tokens, topic)
	if err != nil {
		return fmt.Errorf("error unsubscribing from topic: %v", err)
	}

	log.Printf("Successfully unsubscribed %d tokens from topic %s, %d failures", response.SuccessCount, topic, response.FailureCount)
	return nil
}

// SendTopicNotification sends a notification to a topic
func SendTopicNotification(ctx context.Context, topic string, payload NotificationPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping topic notification.")
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  toDataStrings(payload.Data),
		Topic: topic,
	}

	if payload.Image != "" {
		message.Notification.ImageURL = payload.Image
	}

	message.Android = getAndroidConfig(payload)
	message.APNS = getAPNSConfig(payload)

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending topic message: %v", err)
	}

	log.Printf("Successfully sent notification to topic %s, response: %s", topic, response)
	return nil
}
