package database

import (
	"github.com/redis/go-redis/v9"
)

// NewRedis returns nil when no address is configured. A nil client
// means single-node operation; the signal service then delivers to
// local sockets directly instead of publishing.
func NewRedis(addr string, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
