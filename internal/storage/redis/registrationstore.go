// Package redis implements the primary RegistrationStore on a Redis
// key-value database.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// Store keeps one JSON registration record per user under key = userID.
// A Put for an existing key replaces the record outright; there is no
// delete path, records persist until overwritten.
type Store struct {
	rdb *goredis.Client
}

func NewStore(addr, password string, db int) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Fail fast if connection is bad
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

func (s *Store) Put(ctx context.Context, record invitation.Registration) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	// TTL 0: registrations live until the next write for the same user.
	return s.rdb.Set(ctx, record.UserID, bytes, 0).Err()
}

// Get keeps "key absent" distinct from "store call failed": absence is
// (nil, false, nil), while a connection failure or an undecodable value
// returns a non-nil error for the caller to classify.
func (s *Store) Get(ctx context.Context, userID string) (*invitation.Registration, bool, error) {
	val, err := s.rdb.Get(ctx, userID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var record invitation.Registration
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, true, fmt.Errorf("undecodable registration record for %q: %w", userID, err)
	}
	return &record, true, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
