package redis

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to Redis
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// ConnectOptional connects when a URL is configured and returns nil
// otherwise. Callers treat a nil client as "run without Redis".
func ConnectOptional(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		log.Println("[REDIS] REDIS_URL not set; running without Redis")
		return nil, nil
	}
	return Connect(redisURL)
}
