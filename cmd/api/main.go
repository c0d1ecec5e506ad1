package main

import (
	"log"
	"os"
	"time"

	"github.com/buildlink/buildlink-backend/internal/database"
	"github.com/buildlink/buildlink-backend/internal/handlers"
	"github.com/buildlink/buildlink-backend/internal/middleware"
	"github.com/buildlink/buildlink-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve static files
	r.Static("/uploads", "/app/uploads")

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
			auth.POST("/verify-email", handlers.VerifyEmail(db))
			auth.POST("/forgot-password", handlers.RequestPasswordReset(db))
			auth.POST("/verify-otp", handlers.VerifyOTP(db))
			auth.POST("/reset-password", handlers.ResetPassword(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
			}

			// Service catalog routes
			catalog := protected.Group("/services")
			{
				catalog.GET("", handlers.GetServices(db))
				catalog.POST("", handlers.CreateService(db))
				catalog.PATCH("/:id", handlers.UpdateService(db))
			}

			// Booking routes
			bookings := protected.Group("/bookings")
			{
				bookings.POST("", handlers.CreateBooking(db, hub))
				bookings.GET("/customer", handlers.GetCustomerBookings(db))
				bookings.GET("/open", handlers.GetOpenBookings(db))
				bookings.GET("/:id", handlers.GetBookingDetail(db))
				bookings.POST("/:id/photo", handlers.UploadSitePhoto(db))
				bookings.POST("/:id/start", handlers.StartBooking(db, hub))
				bookings.POST("/:id/complete", handlers.CompleteBooking(db, hub))
				bookings.POST("/:id/cancel", handlers.CancelBooking(db, hub))

				// Offers on a booking
				bookings.POST("/:id/offers", handlers.SubmitOffer(db, hub))
				bookings.GET("/:id/offers", handlers.GetBookingOffers(db))
				bookings.POST("/:id/offers/:offerId/accept", handlers.AcceptOffer(db, hub))

				// Per-booking chat thread
				bookings.POST("/:id/messages", handlers.SendMessage(db, hub))
				bookings.GET("/:id/messages", handlers.GetBookingMessages(db))
				bookings.POST("/:id/messages/read", handlers.MarkMessagesAsRead(db, hub))
			}

			// Conversation list across bookings
			protected.GET("/conversations", handlers.GetConversations(db))

			// Driver earnings
			protected.GET("/earnings", handlers.GetDriverEarnings(db))

			// Notification routes
			notifications := protected.Group("/notifications")
			{
				notifications.POST("/register-token", handlers.RegisterFCMToken(db))
				notifications.DELETE("/remove-token", handlers.RemoveFCMToken(db))
				notifications.POST("/broadcast", handlers.SendBroadcast(db))
				notifications.GET("/preferences", handlers.GetNotificationPreferences(db))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
