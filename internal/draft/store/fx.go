package store

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cbam/internal/draft/domain"
)

// New picks the redis backend when a client is configured and process memory
// otherwise.
func New(client *redis.Client) domain.Store {
	if client == nil {
		return NewMemory()
	}
	return NewRedis(client)
}
