package handlers

import (
	"context"

	"github.com/buildlink/buildlink-backend/internal/lifecycle"
	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/buildlink/buildlink-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubmitOffer lets a driver bid on an open booking
func SubmitOffer(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		driverID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can submit offers"})
			return
		}

		var input struct {
			Price    float64 `json:"price"`
			Distance float64 `json:"distance"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		offer, err := lifecycle.SubmitOffer(db, bookingID, driverID, input.Price, input.Distance)
		if err != nil {
			respondError(c, err)
			return
		}

		ctx := context.Background()
		services.InvalidateBestOffer(ctx, bookingID)
		services.PublishBookingEvent(ctx, "new_offer", bookingID, map[string]interface{}{
			"offerId": offer.ID,
			"price":   offer.Price,
		})

		var driver models.User
		db.First(&driver, driverID)

		var booking models.Booking
		if err := db.Preload("Customer").First(&booking, bookingID).Error; err == nil {
			hub.SendNewOffer(booking.CustomerID, services.NewOffer{
				BookingID:  bookingID,
				OfferID:    offer.ID,
				DriverName: driver.Username,
				Price:      offer.Price,
				Distance:   offer.Distance,
			})

			if booking.Customer != nil {
				if booking.Customer.FCMToken != "" && pushAllowed(db, booking.CustomerID, pushKindOffer) {
					go services.SendNewOfferNotification(context.Background(), booking.Customer.FCMToken,
						bookingID, offer.ID, driver.Username, offer.Price)
				}
				go utils.SendNewOfferEmail(booking.Customer.Email, driver.Username, offer.Price)
			}
		}

		c.JSON(201, gin.H{
			"message": "Offer submitted successfully",
			"offer":   offer,
		})
	}
}

// GetBookingOffers lists offers on a booking for its customer, cheapest first
func GetBookingOffers(db *gorm.DB) gin.HandlerFunc {
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

		offers, err := lifecycle.ListOffers(db, bookingID)
		if err != nil {
			respondError(c, err)
			return
		}

		ctx := context.Background()
		bestPrice, err := services.GetBestOffer(ctx, bookingID)
		if err != nil {
			if best := lifecycle.BestOffer(offers); best != nil {
				bestPrice = best.Price
				services.SetBestOffer(ctx, bookingID, bestPrice)
			}
		}

		response := gin.H{
			"offers": offers,
		}
		if bestPrice > 0 {
			response["bestPrice"] = bestPrice
		}

		c.JSON(200, response)
	}
}

// AcceptOffer lets the customer accept one offer, declining all others
func AcceptOffer(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := parseIDParam(c, "id")
		if err != nil {
			return
		}
		offerID, err := parseIDParam(c, "offerId")
		if err != nil {
			return
		}
		customerID := c.GetUint("userId")

		offer, booking, err := lifecycle.AcceptOffer(db, bookingID, offerID, customerID)
		if err != nil {
			respondError(c, err)
			return
		}

		ctx := context.Background()
		services.InvalidateBestOffer(ctx, bookingID)
		services.PublishBookingEvent(ctx, "offer_accepted", bookingID, map[string]interface{}{
			"offerId":  offer.ID,
			"driverId": offer.DriverID,
		})

		hub.SendOfferAccepted(offer.DriverID, services.OfferAccepted{
			BookingID: booking.ID,
			OfferID:   offer.ID,
			Location:  booking.Location,
			Price:     offer.Price,
		})

		var declined []models.Offer
		if err := db.Where("booking_id = ? AND status = ?", bookingID, models.OfferStatusDeclined).
			Find(&declined).Error; err == nil {
			for _, d := range declined {
				hub.SendOfferDeclined(d.DriverID, services.OfferDeclined{
					BookingID: bookingID,
					OfferID:   d.ID,
				})
			}
		}

		var driver models.User
		if err := db.First(&driver, offer.DriverID).Error; err == nil {
			if driver.FCMToken != "" && pushAllowed(db, driver.ID, pushKindOffer) {
				go services.SendOfferAcceptedNotification(context.Background(), driver.FCMToken,
					booking.ID, booking.Location, offer.Price)
			}
			go utils.SendOfferAcceptedEmail(driver.Email, booking.Location, offer.Price)
			if driver.PhoneNumber != "" {
				go utils.SendOfferAcceptedSMS(driver.PhoneNumber, booking.Location, offer.Price)
			}
		}

		c.JSON(200, gin.H{
			"message":   "Offer accepted",
			"bookingId": booking.ID,
			"offerId":   offer.ID,
			"status":    booking.Status,
		})
	}
}
