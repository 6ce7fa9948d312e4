package config

import (
	"log"
	"os"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns the redis client plus a redislock client built on it.
// Both may be nil when REDIS_ADDR is unset; callers degrade gracefully.
func ConnectRedis() (*redis.Client, *redislock.Client) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Printf("REDIS_ADDR not set; running without redis run locks")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intFromEnv("REDIS_DB", 0),
	})
	return rdb, redislock.New(rdb)
}
