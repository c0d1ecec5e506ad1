package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Booking{},
		&models.Offer{},
		&models.Message{},
		&models.Transaction{},
	))
	return db
}

// setupRouter wires the booking routes behind a stub auth layer that trusts
// the X-Test-User / X-Test-Type headers
func setupRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hub := services.NewHub()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		var userID uint
		fmt.Sscanf(c.GetHeader("X-Test-User"), "%d", &userID)
		c.Set("userId", userID)
		c.Set("userType", c.GetHeader("X-Test-Type"))
		c.Next()
	})

	bookings := r.Group("/api/bookings")
	{
		bookings.POST("", CreateBooking(db, hub))
		bookings.POST("/:id/offers", SubmitOffer(db, hub))
		bookings.POST("/:id/offers/:offerId/accept", AcceptOffer(db, hub))
		bookings.POST("/:id/start", StartBooking(db, hub))
		bookings.POST("/:id/messages", SendMessage(db, hub))
		bookings.POST("/:id/messages/read", MarkMessagesAsRead(db, hub))
		bookings.GET("/:id/messages", GetBookingMessages(db))
	}
	r.GET("/api/conversations", GetConversations(db))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, userID uint, userType string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", fmt.Sprintf("%d", userID))
	req.Header.Set("X-Test-Type", userType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedMarketplace(t *testing.T, db *gorm.DB) (customer, driver *models.User, booking *models.Booking) {
	customer = &models.User{
		Username: "abena", Email: "abena@example.com",
		PasswordHash: "hash", UserType: models.UserTypeCustomer, IsVerified: true,
	}
	driver = &models.User{
		Username: "kwame", Email: "kwame@example.com",
		PasswordHash: "hash", UserType: models.UserTypeDriver, IsVerified: true,
	}
	require.NoError(t, db.Create(customer).Error)
	require.NoError(t, db.Create(driver).Error)

	service := models.Service{Name: "Gravel Delivery", UnitPrice: 200, IsActive: true}
	require.NoError(t, db.Create(&service).Error)

	booking = &models.Booking{
		CustomerID: customer.ID,
		ServiceID:  service.ID,
		Location:   "Achimota, Accra",
		Date:       time.Now().AddDate(0, 0, 1),
		TimeSlot:   "10:00",
		Quantity:   2,
		Status:     models.BookingStatusWaitingForOffers,
	}
	require.NoError(t, db.Create(booking).Error)
	return customer, driver, booking
}

func TestCreateBookingValidationResponse(t *testing.T) {
	db := setupTestDB(t)
	customer, _, _ := seedMarketplace(t, db)
	r := setupRouter(db)

	w := doJSON(t, r, "POST", "/api/bookings", customer.ID, "customer", gin.H{
		"serviceId": 1,
		"date":      "2026-09-05",
		"time":      "10:00",
	})
	require.Equal(t, 400, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "location", body["field"], "response names the offending field")
}

func TestSubmitOfferErrorMapping(t *testing.T) {
	db := setupTestDB(t)
	customer, driver, booking := seedMarketplace(t, db)
	r := setupRouter(db)

	t.Run("customers may not bid", func(t *testing.T) {
		w := doJSON(t, r, "POST", fmt.Sprintf("/api/bookings/%d/offers", booking.ID),
			customer.ID, "customer", gin.H{"price": 300.0})
		assert.Equal(t, 403, w.Code)
	})

	t.Run("unknown booking is 404", func(t *testing.T) {
		w := doJSON(t, r, "POST", "/api/bookings/9999/offers",
			driver.ID, "driver", gin.H{"price": 300.0})
		assert.Equal(t, 404, w.Code)
	})

	t.Run("closed booking is 409 with states", func(t *testing.T) {
		require.NoError(t, db.Model(booking).
			Update("status", models.BookingStatusCancelled).Error)

		w := doJSON(t, r, "POST", fmt.Sprintf("/api/bookings/%d/offers", booking.ID),
			driver.ID, "driver", gin.H{"price": 300.0})
		require.Equal(t, 409, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "waiting_for_offers", body["expected"])
		assert.Equal(t, "cancelled", body["actual"])
	})
}

func TestAcceptOfferEndpoint(t *testing.T) {
	db := setupTestDB(t)
	customer, driver, booking := seedMarketplace(t, db)
	r := setupRouter(db)

	w := doJSON(t, r, "POST", fmt.Sprintf("/api/bookings/%d/offers", booking.ID),
		driver.ID, "driver", gin.H{"price": 350.0, "distance": 4.1})
	require.Equal(t, 201, w.Code)

	var offer models.Offer
	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&offer).Error)

	t.Run("only the customer may accept", func(t *testing.T) {
		w := doJSON(t, r, "POST",
			fmt.Sprintf("/api/bookings/%d/offers/%d/accept", booking.ID, offer.ID),
			driver.ID, "driver", nil)
		assert.Equal(t, 403, w.Code)
	})

	t.Run("customer accepts", func(t *testing.T) {
		w := doJSON(t, r, "POST",
			fmt.Sprintf("/api/bookings/%d/offers/%d/accept", booking.ID, offer.ID),
			customer.ID, "customer", nil)
		require.Equal(t, 200, w.Code)

		var updated models.Booking
		require.NoError(t, db.First(&updated, booking.ID).Error)
		assert.Equal(t, models.BookingStatusOfferAccepted, updated.Status)
	})

	t.Run("second accept conflicts", func(t *testing.T) {
		w := doJSON(t, r, "POST",
			fmt.Sprintf("/api/bookings/%d/offers/%d/accept", booking.ID, offer.ID),
			customer.ID, "customer", nil)
		assert.Equal(t, 409, w.Code)
	})
}

func TestMessagingEndpoints(t *testing.T) {
	db := setupTestDB(t)
	customer, driver, booking := seedMarketplace(t, db)
	r := setupRouter(db)

	stranger := models.User{
		Username: "yaw", Email: "yaw@example.com",
		PasswordHash: "hash", UserType: models.UserTypeDriver, IsVerified: true,
	}
	require.NoError(t, db.Create(&stranger).Error)

	// Chat opens once the driver holds the accepted offer
	require.NoError(t, db.Create(&models.Offer{
		BookingID: booking.ID, DriverID: driver.ID,
		Price: 300, Status: models.OfferStatusAccepted,
	}).Error)
	require.NoError(t, db.Model(booking).
		Update("status", models.BookingStatusOfferAccepted).Error)

	msgPath := fmt.Sprintf("/api/bookings/%d/messages", booking.ID)

	t.Run("empty content is 400", func(t *testing.T) {
		w := doJSON(t, r, "POST", msgPath, customer.ID, "customer",
			gin.H{"recipientId": driver.ID, "content": ""})
		assert.Equal(t, 400, w.Code)
	})

	t.Run("strangers may not join the thread", func(t *testing.T) {
		w := doJSON(t, r, "POST", msgPath, stranger.ID, "driver",
			gin.H{"recipientId": customer.ID, "content": "hello"})
		assert.Equal(t, 403, w.Code)
	})

	t.Run("parties exchange messages", func(t *testing.T) {
		w := doJSON(t, r, "POST", msgPath, customer.ID, "customer",
			gin.H{"recipientId": driver.ID, "content": "gate code is 4412"})
		require.Equal(t, 201, w.Code)

		w = doJSON(t, r, "POST", msgPath, driver.ID, "driver",
			gin.H{"recipientId": customer.ID, "content": "on my way"})
		require.Equal(t, 201, w.Code)

		w = doJSON(t, r, "GET", msgPath, customer.ID, "customer", nil)
		require.Equal(t, 200, w.Code)
		var thread []models.Message
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &thread))
		require.Len(t, thread, 2)
		assert.Equal(t, "gate code is 4412", thread[0].Content)
	})

	t.Run("mark read is scoped and idempotent", func(t *testing.T) {
		readPath := msgPath + "/read"

		w := doJSON(t, r, "POST", readPath, customer.ID, "customer",
			gin.H{"senderId": driver.ID})
		require.Equal(t, 200, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["updatedRows"])

		// Repeat call touches nothing
		w = doJSON(t, r, "POST", readPath, customer.ID, "customer",
			gin.H{"senderId": driver.ID})
		require.Equal(t, 200, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(0), body["updatedRows"])

		// The customer's own outbound message stays unread for the driver
		var unread int64
		require.NoError(t, db.Model(&models.Message{}).
			Where("recipient_id = ? AND read = ?", driver.ID, false).
			Count(&unread).Error)
		assert.Equal(t, int64(1), unread)
	})

	t.Run("conversation list reflects the thread", func(t *testing.T) {
		w := doJSON(t, r, "GET", "/api/conversations", customer.ID, "customer", nil)
		require.Equal(t, 200, w.Code)

		var conversations []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversations))
		require.Len(t, conversations, 1)
		assert.Equal(t, "on my way", conversations[0]["lastMessage"])
		assert.Equal(t, float64(0), conversations[0]["unreadCount"])
	})
}
