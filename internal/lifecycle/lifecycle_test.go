package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/buildlink/buildlink-backend/internal/models"
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

func seedUser(t *testing.T, db *gorm.DB, userType models.UserType, n int) *models.User {
	user := models.User{
		Username:     fmt.Sprintf("%s%d", userType, n),
		Email:        fmt.Sprintf("%s%d@example.com", userType, n),
		PasswordHash: "hash",
		PhoneNumber:  fmt.Sprintf("+23320000%04d", n),
		UserType:     userType,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedService(t *testing.T, db *gorm.DB) *models.Service {
	service := models.Service{
		Name:      "Sand Delivery",
		Category:  "materials",
		UnitPrice: 350,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&service).Error)
	return &service
}

func seedBooking(t *testing.T, db *gorm.DB, customerID, serviceID uint) *models.Booking {
	booking, err := CreateBooking(db, customerID, CreateBookingInput{
		ServiceID: serviceID,
		Location:  "East Legon, Accra",
		Date:      time.Now().AddDate(0, 0, 2),
		TimeSlot:  "09:00",
		Quantity:  3,
	})
	require.NoError(t, err)
	return booking
}

func TestCreateBooking(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	service := seedService(t, db)

	booking, err := CreateBooking(db, customer.ID, CreateBookingInput{
		ServiceID: service.ID,
		Location:  "Tema Community 4",
		Date:      time.Now().AddDate(0, 0, 1),
		TimeSlot:  "14:00",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusWaitingForOffers, booking.Status)
	assert.Equal(t, 1, booking.Quantity, "quantity defaults to 1 when omitted")
	assert.True(t, booking.IsOpen())
}

func TestCreateBookingValidation(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	service := seedService(t, db)

	base := CreateBookingInput{
		ServiceID: service.ID,
		Location:  "Kumasi",
		Date:      time.Now().AddDate(0, 0, 1),
		TimeSlot:  "10:00",
	}

	t.Run("missing location", func(t *testing.T) {
		input := base
		input.Location = ""
		_, err := CreateBooking(db, customer.ID, input)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "location", vErr.Field)
	})

	t.Run("missing date", func(t *testing.T) {
		input := base
		input.Date = time.Time{}
		_, err := CreateBooking(db, customer.ID, input)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "date", vErr.Field)
	})

	t.Run("negative quantity", func(t *testing.T) {
		input := base
		input.Quantity = -2
		_, err := CreateBooking(db, customer.ID, input)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "quantity", vErr.Field)
	})

	t.Run("unknown service", func(t *testing.T) {
		input := base
		input.ServiceID = 9999
		_, err := CreateBooking(db, customer.ID, input)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive service", func(t *testing.T) {
		inactive := models.Service{Name: "Retired", UnitPrice: 5, IsActive: false}
		require.NoError(t, db.Create(&inactive).Error)

		input := base
		input.ServiceID = inactive.ID
		_, err := CreateBooking(db, customer.ID, input)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "service", vErr.Field)
	})
}

func TestStartBooking(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	driver := seedUser(t, db, models.UserTypeDriver, 1)
	other := seedUser(t, db, models.UserTypeDriver, 2)
	service := seedService(t, db)
	booking := seedBooking(t, db, customer.ID, service.ID)

	offer, err := SubmitOffer(db, booking.ID, driver.ID, 400, 3.2)
	require.NoError(t, err)
	_, _, err = AcceptOffer(db, booking.ID, offer.ID, customer.ID)
	require.NoError(t, err)

	t.Run("only the accepted driver may start", func(t *testing.T) {
		_, err := StartBooking(db, booking.ID, other.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("accepted driver starts the job", func(t *testing.T) {
		updated, err := StartBooking(db, booking.ID, driver.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusInProgress, updated.Status)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		_, err := StartBooking(db, booking.ID, driver.ID)
		var sErr *InvalidStateError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, string(models.BookingStatusOfferAccepted), sErr.Expected)
		assert.Equal(t, string(models.BookingStatusInProgress), sErr.Actual)
	})
}

func TestCompleteBookingRecordsEarnings(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	driver := seedUser(t, db, models.UserTypeDriver, 1)
	service := seedService(t, db)
	booking := seedBooking(t, db, customer.ID, service.ID)

	offer, err := SubmitOffer(db, booking.ID, driver.ID, 520, 1.8)
	require.NoError(t, err)
	_, _, err = AcceptOffer(db, booking.ID, offer.ID, customer.ID)
	require.NoError(t, err)

	t.Run("cannot complete before starting", func(t *testing.T) {
		_, err := CompleteBooking(db, booking.ID, driver.ID)
		var sErr *InvalidStateError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, string(models.BookingStatusOfferAccepted), sErr.Actual)
	})

	_, err = StartBooking(db, booking.ID, driver.ID)
	require.NoError(t, err)

	updated, err := CompleteBooking(db, booking.ID, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, updated.Status)
	assert.True(t, updated.IsTerminal())

	var transaction models.Transaction
	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&transaction).Error)
	assert.Equal(t, driver.ID, transaction.DriverID)
	assert.Equal(t, 520.0, transaction.Amount, "earnings match the accepted offer price")
}

func TestCancelBooking(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	driver := seedUser(t, db, models.UserTypeDriver, 1)
	stranger := seedUser(t, db, models.UserTypeCustomer, 2)
	service := seedService(t, db)

	t.Run("customer cancels an open booking", func(t *testing.T) {
		booking := seedBooking(t, db, customer.ID, service.ID)
		updated, err := CancelBooking(db, booking.ID, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, updated.Status)
	})

	t.Run("accepted driver cancels an in_progress booking", func(t *testing.T) {
		booking := seedBooking(t, db, customer.ID, service.ID)
		offer, err := SubmitOffer(db, booking.ID, driver.ID, 300, 2)
		require.NoError(t, err)
		_, _, err = AcceptOffer(db, booking.ID, offer.ID, customer.ID)
		require.NoError(t, err)
		_, err = StartBooking(db, booking.ID, driver.ID)
		require.NoError(t, err)

		updated, err := CancelBooking(db, booking.ID, driver.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, updated.Status)

		// The accepted offer keeps its status; only the booking is marked
		var kept models.Offer
		require.NoError(t, db.First(&kept, offer.ID).Error)
		assert.Equal(t, models.OfferStatusAccepted, kept.Status)
	})

	t.Run("strangers may not cancel", func(t *testing.T) {
		booking := seedBooking(t, db, customer.ID, service.ID)
		_, err := CancelBooking(db, booking.ID, stranger.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("completed bookings cannot be cancelled", func(t *testing.T) {
		booking := seedBooking(t, db, customer.ID, service.ID)
		offer, err := SubmitOffer(db, booking.ID, driver.ID, 300, 2)
		require.NoError(t, err)
		_, _, err = AcceptOffer(db, booking.ID, offer.ID, customer.ID)
		require.NoError(t, err)
		_, err = StartBooking(db, booking.ID, driver.ID)
		require.NoError(t, err)
		_, err = CompleteBooking(db, booking.ID, driver.ID)
		require.NoError(t, err)

		_, err = CancelBooking(db, booking.ID, customer.ID)
		var sErr *InvalidStateError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, string(models.BookingStatusCompleted), sErr.Actual)
	})
}

func TestLegacyPendingBookingIsOpen(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	driver := seedUser(t, db, models.UserTypeDriver, 1)
	service := seedService(t, db)

	// Rows written before the lifecycle consolidation carry "pending"
	booking := models.Booking{
		CustomerID: customer.ID,
		ServiceID:  service.ID,
		Location:   "Spintex Road",
		Date:       time.Now().AddDate(0, 0, 1),
		TimeSlot:   "08:00",
		Quantity:   1,
		Status:     "pending",
	}
	require.NoError(t, db.Create(&booking).Error)

	offer, err := SubmitOffer(db, booking.ID, driver.ID, 250, 4)
	require.NoError(t, err)

	accepted, updated, err := AcceptOffer(db, booking.ID, offer.ID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusAccepted, accepted.Status)
	assert.Equal(t, models.BookingStatusOfferAccepted, updated.Status)
}
