package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

const (
	bookingEventsChannel = "booking:events"
	chatEventsChannel    = "chat:events"

	bestOfferTTL = 5 * time.Minute
	presenceTTL  = time.Hour
)

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetBestOffer caches the current lowest offer price for a booking
func SetBestOffer(ctx context.Context, bookingID uint, price float64) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("booking:bestoffer:%d", bookingID)
	return RedisClient.Set(ctx, key, price, bestOfferTTL).Err()
}

// GetBestOffer retrieves the cached lowest offer price for a booking
func GetBestOffer(ctx context.Context, bookingID uint) (float64, error) {
	if RedisClient == nil {
		return 0, redis.Nil
	}
	key := fmt.Sprintf("booking:bestoffer:%d", bookingID)
	return RedisClient.Get(ctx, key).Float64()
}

// InvalidateBestOffer drops the cached best offer after a new bid or accept
func InvalidateBestOffer(ctx context.Context, bookingID uint) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("booking:bestoffer:%d", bookingID)
	return RedisClient.Del(ctx, key).Err()
}

// SetDriverOnline marks a driver as reachable for open-booking broadcasts
func SetDriverOnline(ctx context.Context, driverID uint, online bool) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("driver:online:%d", driverID)
	if !online {
		return RedisClient.Del(ctx, key).Err()
	}
	return RedisClient.Set(ctx, key, "true", presenceTTL).Err()
}

// GetDriverOnline reports whether a driver is currently marked online
func GetDriverOnline(ctx context.Context, driverID uint) (bool, error) {
	if RedisClient == nil {
		return false, nil
	}
	key := fmt.Sprintf("driver:online:%d", driverID)
	result, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result == "true", nil
}

// PublishBookingEvent publishes a booking/offer lifecycle event to Redis
// pub/sub so other instances can fan it out to their websocket clients
func PublishBookingEvent(ctx context.Context, eventType string, bookingID uint, data map[string]interface{}) error {
	if RedisClient == nil {
		return nil
	}
	event := map[string]interface{}{
		"type":      eventType,
		"bookingId": bookingID,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, bookingEventsChannel, jsonData).Err()
}

// PublishChatEvent publishes a chat event (new message, messages read) to
// Redis pub/sub
func PublishChatEvent(ctx context.Context, eventType string, bookingID, userID uint) error {
	if RedisClient == nil {
		return nil
	}
	event := map[string]interface{}{
		"type":      eventType,
		"bookingId": bookingID,
		"userId":    userID,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, chatEventsChannel, jsonData).Err()
}
