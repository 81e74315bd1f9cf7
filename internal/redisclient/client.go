package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func slotKey(staffID int64, date string, duration int) string {
	return fmt.Sprintf("availability:%d:%s:%d", staffID, date, duration)
}

// GetSlots returns a cached slot list. A miss or any Redis error reports
// (nil, false); the caller just recomputes.
func (c *Client) GetSlots(ctx context.Context, staffID int64, date string, duration int) ([]string, bool) {
	raw, err := c.rdb.Get(ctx, slotKey(staffID, date, duration)).Result()
	if err != nil {
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, false
	}
	return slots, true
}

// SetSlots caches a computed slot list with a TTL. Best effort.
func (c *Client) SetSlots(ctx context.Context, staffID int64, date string, duration int, slots []string, ttl time.Duration) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, slotKey(staffID, date, duration), raw, ttl)
}

// InvalidateStaffDate drops every cached slot list for a staff member on
// one date, across all service durations.
func (c *Client) InvalidateStaffDate(ctx context.Context, staffID int64, date string) error {
	return c.deletePattern(ctx, fmt.Sprintf("availability:%d:%s:*", staffID, date))
}

// InvalidateStaff drops every cached slot list for a staff member. Used
// when their schedule changes.
func (c *Client) InvalidateStaff(ctx context.Context, staffID int64) error {
	return c.deletePattern(ctx, fmt.Sprintf("availability:%d:*", staffID))
}

func (c *Client) deletePattern(ctx context.Context, pattern string) error {
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// SaveIdempotentBooking maps a client idempotency key to the booking it
// produced, so a replayed request returns the original booking.
func (c *Client) SaveIdempotentBooking(ctx context.Context, key string, bookingID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), bookingID, ttl).Err()
}

// GetIdempotentBooking looks up the booking a key already produced.
func (c *Client) GetIdempotentBooking(ctx context.Context, key string) (int64, bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", raw, err)
	}
	return id, true, nil
}
