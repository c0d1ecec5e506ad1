package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/buildlink/buildlink-backend/internal/lifecycle"
	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateBooking handles the creation of a new booking by a customer
func CreateBooking(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeCustomer) {
			c.JSON(403, gin.H{"error": "Only customers can create bookings"})
			return
		}

		var input struct {
			ServiceID uint   `json:"serviceId"`
			Location  string `json:"location"`
			Date      string `json:"date"` // 2006-01-02
			Time      string `json:"time"`
			Quantity  int    `json:"quantity"`
			Notes     string `json:"notes"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var date time.Time
		if input.Date != "" {
			parsed, err := time.Parse("2006-01-02", input.Date)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid date format, expected YYYY-MM-DD", "field": "date"})
				return
			}
			date = parsed
		}

		booking, err := lifecycle.CreateBooking(db, customerID, lifecycle.CreateBookingInput{
			ServiceID: input.ServiceID,
			Location:  input.Location,
			Date:      date,
			TimeSlot:  input.Time,
			Quantity:  input.Quantity,
			Notes:     input.Notes,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		// Let online drivers know a new booking is open for offers
		hub.SendBookingCreated(services.BookingCreated{
			BookingID:   booking.ID,
			ServiceName: booking.Service.Name,
			Location:    booking.Location,
			Quantity:    booking.Quantity,
			UnitPrice:   booking.Service.UnitPrice,
		})

		ctx := context.Background()
		services.PublishBookingEvent(ctx, "booking_created", booking.ID, map[string]interface{}{
			"serviceName": booking.Service.Name,
			"location":    booking.Location,
		})

		go services.SendTopicNotification(context.Background(), services.OpenBookingsTopic, services.NotificationPayload{
			Title: "New Job Available",
			Body:  booking.Service.Name + " needed at " + booking.Location,
			Data: map[string]interface{}{
				"type":      "booking_created",
				"bookingId": booking.ID,
			},
		})

		c.JSON(201, booking)
	}
}

// GetCustomerBookings retrieves all bookings for the authenticated customer
func GetCustomerBookings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetUint("userId")

		var bookings []models.Booking
		if err := db.Where("customer_id = ?", customerID).
			Preload("Service").
			Order("created_at DESC").
			Find(&bookings).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}

		for i := range bookings {
			bookings[i].Status = models.NormalizeStatus(bookings[i].Status)
		}

		c.JSON(200, bookings)
	}
}

// GetOpenBookings retrieves bookings still open for offers, for drivers
func GetOpenBookings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can browse open bookings"})
			return
		}

		var bookings []models.Booking
		if err := db.Where("status IN ?", []string{string(models.BookingStatusWaitingForOffers), "pending"}).
			Preload("Service").
			Preload("Customer").
			Order("created_at DESC").
			Find(&bookings).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch open bookings"})
			return
		}

		for i := range bookings {
			bookings[i].Status = models.NormalizeStatus(bookings[i].Status)
		}

		c.JSON(200, bookings)
	}
}

// GetBookingDetail retrieves detailed booking information for a party
func GetBookingDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		userID := c.GetUint("userId")

		var booking models.Booking
		if err := db.Preload("Service").
			Preload("Customer").
			First(&booking, bookingID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}
		booking.Status = models.NormalizeStatus(booking.Status)

		var accepted models.Offer
		hasAccepted := db.Where("booking_id = ? AND status = ?", booking.ID, models.OfferStatusAccepted).
			Preload("Driver").
			First(&accepted).Error == nil

		if booking.CustomerID != userID && (!hasAccepted || accepted.DriverID != userID) {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		response := gin.H{
			"id":        booking.ID,
			"status":    booking.Status,
			"service":   booking.Service,
			"location":  booking.Location,
			"date":      booking.Date,
			"time":      booking.TimeSlot,
			"quantity":  booking.Quantity,
			"notes":     booking.Notes,
			"createdAt": booking.CreatedAt,
		}
		if booking.SitePhoto != "" {
			response["sitePhoto"] = services.GetImageURL(booking.SitePhoto)
		}
		if booking.Customer != nil {
			response["customer"] = gin.H{
				"id":          booking.Customer.ID,
				"username":    booking.Customer.Username,
				"phoneNumber": booking.Customer.PhoneNumber,
				"rating":      booking.Customer.Rating,
			}
		}
		if hasAccepted && accepted.Driver != nil {
			response["driver"] = gin.H{
				"id":          accepted.Driver.ID,
				"username":    accepted.Driver.Username,
				"phoneNumber": accepted.Driver.PhoneNumber,
				"rating":      accepted.Driver.Rating,
			}
			response["acceptedPrice"] = accepted.Price
		}

		c.JSON(200, response)
	}
}

// UploadSitePhoto attaches a site photo to a booking
func UploadSitePhoto(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		userID := c.GetUint("userId")

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}

		if booking.CustomerID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "Photo file is required"})
			return
		}

		imagePath, err := services.UploadImage(file, "sites")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload photo"})
			return
		}

		if booking.SitePhoto != "" {
			services.DeleteImage(booking.SitePhoto)
		}

		if err := db.Model(&booking).Update("site_photo", imagePath).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save photo"})
			return
		}

		c.JSON(200, gin.H{
			"message":   "Photo uploaded successfully",
			"sitePhoto": services.GetImageURL(imagePath),
		})
	}
}

// StartBooking moves an accepted booking into in_progress (assigned driver only)
func StartBooking(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		driverID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can start jobs"})
			return
		}

		booking, err := lifecycle.StartBooking(db, bookingID, driverID)
		if err != nil {
			respondError(c, err)
			return
		}

		notifyStatusChange(db, hub, booking, driverID)

		c.JSON(200, gin.H{
			"message":   "Job started",
			"bookingId": booking.ID,
			"status":    booking.Status,
		})
	}
}

// CompleteBooking moves an in_progress booking to completed and records the
// driver's earnings
func CompleteBooking(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		driverID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can complete jobs"})
			return
		}

		booking, err := lifecycle.CompleteBooking(db, bookingID, driverID)
		if err != nil {
			respondError(c, err)
			return
		}

		notifyStatusChange(db, hub, booking, driverID)

		c.JSON(200, gin.H{
			"message":   "Job completed",
			"bookingId": booking.ID,
			"status":    booking.Status,
		})
	}
}

// CancelBooking marks a booking cancelled (customer or assigned driver)
func CancelBooking(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		actorID := c.GetUint("userId")

		booking, err := lifecycle.CancelBooking(db, bookingID, actorID)
		if err != nil {
			respondError(c, err)
			return
		}

		notifyStatusChange(db, hub, booking, actorID)

		c.JSON(200, gin.H{
			"message":   "Booking cancelled",
			"bookingId": booking.ID,
			"status":    booking.Status,
		})
	}
}

// notifyStatusChange fans a lifecycle change out to both booking parties
func notifyStatusChange(db *gorm.DB, hub *services.Hub, booking *models.Booking, actorID uint) {
	update := services.BookingStatusUpdate{
		BookingID: booking.ID,
		Status:    string(booking.Status),
	}
	hub.SendBookingStatus(booking.CustomerID, update)

	var accepted models.Offer
	if err := db.Where("booking_id = ? AND status = ?", booking.ID, models.OfferStatusAccepted).
		First(&accepted).Error; err == nil && accepted.DriverID != actorID {
		hub.SendBookingStatus(accepted.DriverID, update)
	}

	ctx := context.Background()
	services.PublishBookingEvent(ctx, "booking_status", booking.ID, map[string]interface{}{
		"status": string(booking.Status),
	})

	if booking.CustomerID != actorID {
		var customer models.User
		if err := db.First(&customer, booking.CustomerID).Error; err == nil &&
			customer.FCMToken != "" && pushAllowed(db, customer.ID, pushKindBookingStatus) {
			go services.SendBookingStatusNotification(context.Background(), customer.FCMToken, booking.ID, string(booking.Status))
		}
	}
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, err
	}
	return uint(id), nil
}
