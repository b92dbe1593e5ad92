package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"grocery-order-service/models"

	"github.com/go-redis/redis/v8"
)

var ErrAddressNotFound = errors.New("address not found")

// Store is the delivery-address collaborator. Addresses are owned by the
// user service, which publishes them to Redis; the order subsystem only
// looks them up, one JSON document per address id.
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

func addressKey(id string) string {
	return "address:" + id
}

// Get looks up one address by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Address, error) {
	raw, err := s.rdb.Get(ctx, addressKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}

	var addr models.Address
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return nil, fmt.Errorf("decode address %s: %w", id, err)
	}
	return &addr, nil
}
