package lifecycle

import (
	"errors"

	"github.com/buildlink/buildlink-backend/internal/models"
	"gorm.io/gorm"
)

// SubmitOffer creates a pending offer against an open booking.
func SubmitOffer(db *gorm.DB, bookingID, driverID uint, price, distance float64) (*models.Offer, error) {
	if price <= 0 {
		return nil, &ValidationError{Field: "price"}
	}

	booking, err := getBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsOpen() {
		return nil, &InvalidStateError{
			Expected: string(models.BookingStatusWaitingForOffers),
			Actual:   string(booking.Status),
		}
	}

	offer := models.Offer{
		BookingID: bookingID,
		DriverID:  driverID,
		Price:     price,
		Distance:  distance,
		Status:    models.OfferStatusPending,
	}
	if err := db.Create(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// AcceptOffer settles a booking on one offer inside a single transaction: the
// winning offer becomes accepted, every sibling pending offer is declined and
// the booking leaves the open state. The booking update is conditional on the
// open state, so when two accepts race on sibling offers exactly one commits;
// the loser sees zero rows affected and fails with InvalidStateError.
func AcceptOffer(db *gorm.DB, bookingID, offerID, customerID uint) (*models.Offer, *models.Booking, error) {
	var offer models.Offer
	if err := db.First(&offer, offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if offer.BookingID != bookingID {
		return nil, nil, &InvalidStateError{
			Expected: "offer belonging to this booking",
			Actual:   "offer for another booking",
		}
	}

	booking, err := getBooking(db, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.CustomerID != customerID {
		return nil, nil, ErrForbidden
	}
	if offer.Status != models.OfferStatusPending {
		return nil, nil, &InvalidStateError{
			Expected: string(models.OfferStatusPending),
			Actual:   string(offer.Status),
		}
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Model(&models.Booking{}).
		Where("id = ? AND status IN ?", bookingID, openStates).
		Update("status", models.BookingStatusOfferAccepted)
	if result.Error != nil {
		tx.Rollback()
		return nil, nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, nil, stateConflict(db, bookingID, string(models.BookingStatusWaitingForOffers))
	}

	result = tx.Model(&models.Offer{}).
		Where("id = ? AND status = ?", offerID, models.OfferStatusPending).
		Update("status", models.OfferStatusAccepted)
	if result.Error != nil {
		tx.Rollback()
		return nil, nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, nil, &InvalidStateError{
			Expected: string(models.OfferStatusPending),
			Actual:   string(models.OfferStatusDeclined),
		}
	}

	if err := tx.Model(&models.Offer{}).
		Where("booking_id = ? AND id <> ? AND status = ?",
			bookingID, offerID, models.OfferStatusPending).
		Update("status", models.OfferStatusDeclined).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}

	offer.Status = models.OfferStatusAccepted
	booking.Status = models.BookingStatusOfferAccepted
	return &offer, booking, nil
}

// ListOffers returns a booking's offers ordered by price ascending.
func ListOffers(db *gorm.DB, bookingID uint) ([]models.Offer, error) {
	var offers []models.Offer
	err := db.Where("booking_id = ?", bookingID).
		Preload("Driver").
		Order("price ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// BestOffer returns the cheapest offer in the set, first encountered on a
// tie. Returns nil for an empty set.
func BestOffer(offers []models.Offer) *models.Offer {
	var best *models.Offer
	for i := range offers {
		if best == nil || offers[i].Price < best.Price {
			best = &offers[i]
		}
	}
	return best
}
