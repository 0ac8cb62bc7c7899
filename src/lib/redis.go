package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CacheOrderBooking remembers the order-no to booking-id mapping so the
// reconciliation handlers can skip a row lookup. Best effort; the bookings
// table stays the source of truth.
func CacheOrderBooking(orderNo string, bookingID uint) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	key := fmt.Sprintf("orderno:%s", orderNo)
	if err := rdb.Set(context.Background(), key, bookingID, 24*time.Hour).Err(); err != nil {
		log.Printf("[redis] Failed to cache order %s: %s\n", orderNo, err.Error())
	}
}

// LookupOrderBooking returns the cached booking id for an order no, or 0.
func LookupOrderBooking(orderNo string) uint {
	rdb := GetRedisClient()
	if rdb == nil {
		return 0
	}
	key := fmt.Sprintf("orderno:%s", orderNo)
	id, err := rdb.Get(context.Background(), key).Uint64()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[redis] Error reading key %s: %s\n", key, err.Error())
		}
		return 0
	}
	return uint(id)
}
