package lifecycle

import (
	"testing"

	"github.com/buildlink/buildlink-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitOffer(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	driver := seedUser(t, db, models.UserTypeDriver, 1)
	service := seedService(t, db)
	booking := seedBooking(t, db, customer.ID, service.ID)

	t.Run("valid offer is pending", func(t *testing.T) {
		offer, err := SubmitOffer(db, booking.ID, driver.ID, 450, 2.5)
		require.NoError(t, err)
		assert.Equal(t, models.OfferStatusPending, offer.Status)
		assert.Equal(t, 450.0, offer.Price)
	})

	t.Run("price must be positive", func(t *testing.T) {
		_, err := SubmitOffer(db, booking.ID, driver.ID, 0, 2.5)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "price", vErr.Field)

		_, err = SubmitOffer(db, booking.ID, driver.ID, -10, 2.5)
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := SubmitOffer(db, 9999, driver.ID, 100, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("closed booking rejects offers", func(t *testing.T) {
		closed := seedBooking(t, db, customer.ID, service.ID)
		require.NoError(t, db.Model(closed).
			Update("status", models.BookingStatusCancelled).Error)

		_, err := SubmitOffer(db, closed.ID, driver.ID, 100, 1)
		var sErr *InvalidStateError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, string(models.BookingStatusWaitingForOffers), sErr.Expected)
		assert.Equal(t, string(models.BookingStatusCancelled), sErr.Actual)
	})
}

func TestAcceptOfferDeclinesSiblings(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	service := seedService(t, db)
	booking := seedBooking(t, db, customer.ID, service.ID)

	var offers []*models.Offer
	for i := 1; i <= 3; i++ {
		driver := seedUser(t, db, models.UserTypeDriver, i)
		offer, err := SubmitOffer(db, booking.ID, driver.ID, float64(100*i), 2)
		require.NoError(t, err)
		offers = append(offers, offer)
	}

	winner, updated, err := AcceptOffer(db, booking.ID, offers[1].ID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusAccepted, winner.Status)
	assert.Equal(t, models.BookingStatusOfferAccepted, updated.Status)

	var accepted, declined int64
	require.NoError(t, db.Model(&models.Offer{}).
		Where("booking_id = ? AND status = ?", booking.ID, models.OfferStatusAccepted).
		Count(&accepted).Error)
	require.NoError(t, db.Model(&models.Offer{}).
		Where("booking_id = ? AND status = ?", booking.ID, models.OfferStatusDeclined).
		Count(&declined).Error)
	assert.Equal(t, int64(1), accepted, "exactly one offer may ever be accepted")
	assert.Equal(t, int64(2), declined)
}

func TestAcceptOfferConflicts(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	stranger := seedUser(t, db, models.UserTypeCustomer, 2)
	driverA := seedUser(t, db, models.UserTypeDriver, 1)
	driverB := seedUser(t, db, models.UserTypeDriver, 2)
	service := seedService(t, db)
	booking := seedBooking(t, db, customer.ID, service.ID)

	offerA, err := SubmitOffer(db, booking.ID, driverA.ID, 200, 1)
	require.NoError(t, err)
	offerB, err := SubmitOffer(db, booking.ID, driverB.ID, 300, 1)
	require.NoError(t, err)

	t.Run("only the booking customer may accept", func(t *testing.T) {
		_, _, err := AcceptOffer(db, booking.ID, offerA.ID, stranger.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("offer must belong to the booking", func(t *testing.T) {
		other := seedBooking(t, db, customer.ID, service.ID)
		_, _, err := AcceptOffer(db, other.ID, offerA.ID, customer.ID)
		var sErr *InvalidStateError
		assert.ErrorAs(t, err, &sErr)
	})

	t.Run("second accept on a sibling fails", func(t *testing.T) {
		_, _, err := AcceptOffer(db, booking.ID, offerA.ID, customer.ID)
		require.NoError(t, err)

		_, _, err = AcceptOffer(db, booking.ID, offerB.ID, customer.ID)
		var sErr *InvalidStateError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, string(models.BookingStatusOfferAccepted), sErr.Actual)

		// The losing offer stays declined, not accepted
		var offer models.Offer
		require.NoError(t, db.First(&offer, offerB.ID).Error)
		assert.Equal(t, models.OfferStatusDeclined, offer.Status)
	})
}

func TestListOffersOrdersByPrice(t *testing.T) {
	db := setupTestDB(t)
	customer := seedUser(t, db, models.UserTypeCustomer, 1)
	service := seedService(t, db)
	booking := seedBooking(t, db, customer.ID, service.ID)

	prices := []float64{120, 95, 150}
	for i, price := range prices {
		driver := seedUser(t, db, models.UserTypeDriver, i+1)
		_, err := SubmitOffer(db, booking.ID, driver.ID, price, 2)
		require.NoError(t, err)
	}

	offers, err := ListOffers(db, booking.ID)
	require.NoError(t, err)
	require.Len(t, offers, 3)
	assert.Equal(t, 95.0, offers[0].Price)
	assert.Equal(t, 120.0, offers[1].Price)
	assert.Equal(t, 150.0, offers[2].Price)
	assert.NotNil(t, offers[0].Driver)
}

func TestBestOffer(t *testing.T) {
	t.Run("picks the cheapest", func(t *testing.T) {
		offers := []models.Offer{
			{Price: 120}, {Price: 95}, {Price: 150},
		}
		best := BestOffer(offers)
		require.NotNil(t, best)
		assert.Equal(t, 95.0, best.Price)
	})

	t.Run("ties keep the first encountered", func(t *testing.T) {
		offers := []models.Offer{
			{DriverID: 1, Price: 95}, {DriverID: 2, Price: 95},
		}
		best := BestOffer(offers)
		require.NotNil(t, best)
		assert.Equal(t, uint(1), best.DriverID)
	})

	t.Run("empty set has no best", func(t *testing.T) {
		assert.Nil(t, BestOffer(nil))
	})
}
