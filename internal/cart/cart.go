// Package cart keeps guest shopping carts in Redis, one hash per session.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidSession  = errors.New("invalid session id")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrLineNotFound    = errors.New("cart line not found")
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// ValidSessionID reports whether id is an acceptable client-generated token.
func ValidSessionID(id string) bool {
	return sessionPattern.MatchString(id)
}

// Line is one cart row. Price is captured when the line is added.
type Line struct {
	ProductID string  `json:"productId"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
}

func (l Line) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string {
	return "cart:" + sessionID
}

func field(productID, size string) string {
	if size == "" {
		return productID
	}
	return productID + ":" + size
}

func (s *Store) Items(ctx context.Context, sessionID string) ([]Line, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	raw, err := s.rdb.HGetAll(ctx, key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart read: %w", err)
	}
	return decodeLines(raw)
}

// Add inserts the line or, when the product and size are already in the
// cart, increases its quantity. Concurrent writers race; the last one wins.
func (s *Store) Add(ctx context.Context, sessionID string, line Line) ([]Line, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	if line.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	f := field(line.ProductID, line.Size)
	existing, err := s.rdb.HGet(ctx, key(sessionID), f).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("cart read: %w", err)
	default:
		var prev Line
		if json.Unmarshal([]byte(existing), &prev) == nil {
			line.Quantity += prev.Quantity
		}
	}

	if err := s.write(ctx, sessionID, f, line); err != nil {
		return nil, err
	}
	return s.Items(ctx, sessionID)
}

// SetQuantity overwrites a line's quantity. Zero or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, sessionID, productID, size string, quantity int) ([]Line, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	if quantity <= 0 {
		return s.Remove(ctx, sessionID, productID, size)
	}

	f := field(productID, size)
	existing, err := s.rdb.HGet(ctx, key(sessionID), f).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cart read: %w", err)
	}

	var line Line
	if err := json.Unmarshal([]byte(existing), &line); err != nil {
		return nil, fmt.Errorf("cart decode: %w", err)
	}
	line.Quantity = quantity

	if err := s.write(ctx, sessionID, f, line); err != nil {
		return nil, err
	}
	return s.Items(ctx, sessionID)
}

func (s *Store) Remove(ctx context.Context, sessionID, productID, size string) ([]Line, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	if err := s.rdb.HDel(ctx, key(sessionID), field(productID, size)).Err(); err != nil {
		return nil, fmt.Errorf("cart delete: %w", err)
	}
	return s.Items(ctx, sessionID)
}

// Clear drops the whole cart for sessionID.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if !ValidSessionID(sessionID) {
		return ErrInvalidSession
	}
	if err := s.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cart clear: %w", err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, sessionID, f string, line Line) error {
	body, err := json.Marshal(line)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key(sessionID), f, body)
		pipe.Expire(ctx, key(sessionID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cart write: %w", err)
	}
	return nil
}

func decodeLines(raw map[string]string) ([]Line, error) {
	lines := make([]Line, 0, len(raw))
	for f, value := range raw {
		var line Line
		if err := json.Unmarshal([]byte(value), &line); err != nil {
			return nil, fmt.Errorf("cart decode %s: %w", f, err)
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].Size < lines[j].Size
	})
	return lines, nil
}

// Total sums the line subtotals.
func Total(lines []Line) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
