package cart

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Store is the cart collaborator. Carts live in Redis, one hash per user,
// owned by the cart service; the order subsystem only reads and clears them.
type Store struct {
	rdb *redis.Client
}

func NewStore(redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func cartKey(userID int) string {
	return fmt.Sprintf("cart:%d", userID)
}

// Clear empties the user's cart after a checkout commits.
func (s *Store) Clear(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, cartKey(userID)).Err()
}
