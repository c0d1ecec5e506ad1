package database

import (
	"github.com/buildlink/buildlink-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Booking{},
		&models.Offer{},
		&models.Message{},
		&models.Transaction{},
		&models.OTP{},
		&models.NotificationPreference{},
	)
	if err != nil {
		return err
	}

	// Update users table
	if db.Migrator().HasTable(&models.User{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS rating numeric DEFAULT 0",
			"ADD COLUMN IF NOT EXISTS rating_count integer DEFAULT 0",
			"ADD COLUMN IF NOT EXISTS fcm_token text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS user_type text DEFAULT 'customer'",
		}

		for _, column := range columns {
			if err := db.Exec("ALTER TABLE users " + column).Error; err != nil {
				return err
			}
		}

		// Update constraint
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_user_type_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_user_type_check CHECK (user_type IN ('customer', 'driver', 'admin'))`)
	}

	// Rows written before the lifecycle was consolidated used "pending" for
	// the open state. Rewrite them to the canonical value so conditional
	// status updates only need to match one spelling going forward.
	if db.Migrator().HasTable(&models.Booking{}) {
		if err := db.Exec(`UPDATE bookings SET status = 'waiting_for_offers' WHERE status = 'pending'`).Error; err != nil {
			return err
		}
	}

	return nil
}
