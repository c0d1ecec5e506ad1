package lifecycle

import (
	"errors"
	"time"

	"github.com/buildlink/buildlink-backend/internal/models"
	"gorm.io/gorm"
)

// openStates are the status values under which a booking accepts offers.
// "pending" is the legacy spelling of waiting_for_offers and only appears in
// rows written before the lifecycle was consolidated.
var openStates = []string{
	string(models.BookingStatusWaitingForOffers),
	"pending",
}

// CreateBookingInput carries the validated fields for a new booking.
type CreateBookingInput struct {
	ServiceID uint
	Location  string
	Date      time.Time
	TimeSlot  string
	Quantity  int
	Notes     string
}

// CreateBooking validates the input and creates a booking in the open state.
func CreateBooking(db *gorm.DB, customerID uint, input CreateBookingInput) (*models.Booking, error) {
	if input.ServiceID == 0 {
		return nil, &ValidationError{Field: "service"}
	}
	if input.Location == "" {
		return nil, &ValidationError{Field: "location"}
	}
	if input.Date.IsZero() {
		return nil, &ValidationError{Field: "date"}
	}
	if input.TimeSlot == "" {
		return nil, &ValidationError{Field: "time"}
	}
	if input.Quantity < 0 {
		return nil, &ValidationError{Field: "quantity"}
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	var service models.Service
	if err := db.First(&service, input.ServiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !service.IsActive {
		return nil, &ValidationError{Field: "service"}
	}

	booking := models.Booking{
		CustomerID: customerID,
		ServiceID:  input.ServiceID,
		Location:   input.Location,
		Date:       input.Date,
		TimeSlot:   input.TimeSlot,
		Quantity:   input.Quantity,
		Notes:      input.Notes,
		Status:     models.BookingStatusWaitingForOffers,
	}
	if err := db.Create(&booking).Error; err != nil {
		return nil, err
	}
	booking.Service = &service
	return &booking, nil
}

// StartBooking moves an offer_accepted booking into in_progress. Only the
// driver holding the accepted offer may trigger it.
func StartBooking(db *gorm.DB, bookingID, driverID uint) (*models.Booking, error) {
	if err := requireAcceptedDriver(db, bookingID, driverID); err != nil {
		return nil, err
	}
	return transition(db, bookingID,
		models.BookingStatusOfferAccepted, models.BookingStatusInProgress)
}

// CompleteBooking moves an in_progress booking to completed and records the
// driver's earnings for it.
func CompleteBooking(db *gorm.DB, bookingID, driverID uint) (*models.Booking, error) {
	var offer models.Offer
	err := db.Where("booking_id = ? AND driver_id = ? AND status = ?",
		bookingID, driverID, models.OfferStatusAccepted).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, models.BookingStatusInProgress).
		Update("status", models.BookingStatusCompleted)
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, stateConflict(db, bookingID, string(models.BookingStatusInProgress))
	}

	transaction := models.Transaction{
		BookingID: bookingID,
		DriverID:  driverID,
		Amount:    offer.Price,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return getBooking(db, bookingID)
}

// CancelBooking marks a booking cancelled from any non-terminal state. The
// customer or the driver holding the accepted offer may cancel. An already
// accepted offer keeps its status; only the booking is marked.
func CancelBooking(db *gorm.DB, bookingID, actorID uint) (*models.Booking, error) {
	booking, err := getBooking(db, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.CustomerID != actorID {
		var offer models.Offer
		err := db.Where("booking_id = ? AND driver_id = ? AND status = ?",
			bookingID, actorID, models.OfferStatusAccepted).First(&offer).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrForbidden
			}
			return nil, err
		}
	}

	result := db.Model(&models.Booking{}).
		Where("id = ? AND status NOT IN ?", bookingID, []string{
			string(models.BookingStatusCompleted),
			string(models.BookingStatusCancelled),
		}).
		Update("status", models.BookingStatusCancelled)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, stateConflict(db, bookingID, "any non-terminal state")
	}
	return getBooking(db, bookingID)
}

// transition performs a conditional status update so that concurrent calls
// racing on the same booking cannot both succeed.
func transition(db *gorm.DB, bookingID uint, from, to models.BookingStatus) (*models.Booking, error) {
	result := db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Update("status", to)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, stateConflict(db, bookingID, string(from))
	}
	return getBooking(db, bookingID)
}

func requireAcceptedDriver(db *gorm.DB, bookingID, driverID uint) error {
	var offer models.Offer
	err := db.Where("booking_id = ? AND driver_id = ? AND status = ?",
		bookingID, driverID, models.OfferStatusAccepted).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	return nil
}

func getBooking(db *gorm.DB, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := db.First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	booking.Status = models.NormalizeStatus(booking.Status)
	return &booking, nil
}

// stateConflict builds the InvalidStateError for a failed conditional update,
// naming the state the booking was actually in.
func stateConflict(db *gorm.DB, bookingID uint, expected string) error {
	booking, err := getBooking(db, bookingID)
	if err != nil {
		return err
	}
	return &InvalidStateError{
		Expected: expected,
		Actual:   string(booking.Status),
	}
}
