package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// memRedis implements the hash commands Store uses. Anything else panics
// through the nil embedded interface.
type memRedis struct {
	redis.Cmdable
	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
	expires int
	err     error
}

func newMemRedis() *memRedis {
	return &memRedis{hashes: map[string]map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	if m.err != nil {
		return redis.NewMapStringStringResult(nil, m.err)
	}
	out := map[string]string{}
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *memRedis) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	var n int64
	for _, f := range fields {
		if _, ok := m.hashes[key][f]; ok {
			delete(m.hashes[key], f)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.hashes[k]; ok {
			delete(m.hashes, k)
			delete(m.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memRedis) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, fn(&memPipe{m: m})
}

type memPipe struct {
	redis.Pipeliner
	m *memRedis
}

func (p *memPipe) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	h, ok := p.m.hashes[key]
	if !ok {
		h = map[string]string{}
		p.m.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		f, _ := values[i].(string)
		switch v := values[i+1].(type) {
		case []byte:
			h[f] = string(v)
		case string:
			h[f] = v
		}
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (p *memPipe) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	p.m.ttls[key] = expiration
	p.m.expires++
	return redis.NewBoolResult(true, nil)
}

const session = "sess_12345678"

func TestStoreAddIncrementsExistingLine(t *testing.T) {
	rdb := newMemRedis()
	s := NewStore(rdb, 48*time.Hour)
	ctx := context.Background()

	if _, err := s.Add(ctx, session, Line{ProductID: "p1", Name: "Kurta", Price: 500, Quantity: 1, Size: "M"}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	lines, err := s.Add(ctx, session, Line{ProductID: "p1", Name: "Kurta", Price: 500, Quantity: 2, Size: "M"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("expected one line with quantity 3, got %+v", lines)
	}

	lines, err = s.Add(ctx, session, Line{ProductID: "p1", Name: "Kurta", Price: 500, Quantity: 1, Size: "L"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(lines) != 2 || Total(lines) != 2000 {
		t.Fatalf("expected separate line per size totalling 2000, got %+v", lines)
	}
	if _, ok := rdb.hashes["cart:"+session]["p1:L"]; !ok {
		t.Fatal("expected size-qualified field in hash")
	}
}

func TestStoreWritesRefreshTTL(t *testing.T) {
	rdb := newMemRedis()
	s := NewStore(rdb, 48*time.Hour)
	ctx := context.Background()

	if _, err := s.Add(ctx, session, Line{ProductID: "p1", Price: 10, Quantity: 1}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if _, err := s.SetQuantity(ctx, session, "p1", "", 4); err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if rdb.expires != 2 {
		t.Fatalf("expected expire on every write, got %d", rdb.expires)
	}
	if got := rdb.ttls["cart:"+session]; got != 48*time.Hour {
		t.Fatalf("expected ttl 48h, got %v", got)
	}
}

func TestStoreSetQuantity(t *testing.T) {
	rdb := newMemRedis()
	s := NewStore(rdb, time.Hour)
	ctx := context.Background()

	if _, err := s.SetQuantity(ctx, session, "p1", "", 2); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}

	if _, err := s.Add(ctx, session, Line{ProductID: "p1", Price: 10, Quantity: 1}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	lines, err := s.SetQuantity(ctx, session, "p1", "", 5)
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 5 || lines[0].Price != 10 {
		t.Fatalf("expected quantity 5 at captured price, got %+v", lines)
	}

	lines, err = s.SetQuantity(ctx, session, "p1", "", 0)
	if err != nil {
		t.Fatalf("SetQuantity(0) returned error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected zero quantity to remove the line, got %+v", lines)
	}
}

func TestStoreRemoveAndClear(t *testing.T) {
	rdb := newMemRedis()
	s := NewStore(rdb, time.Hour)
	ctx := context.Background()

	for _, size := range []string{"S", "M"} {
		if _, err := s.Add(ctx, session, Line{ProductID: "p1", Price: 10, Quantity: 1, Size: size}); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}
	lines, err := s.Remove(ctx, session, "p1", "S")
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(lines) != 1 || lines[0].Size != "M" {
		t.Fatalf("expected only size M left, got %+v", lines)
	}

	if err := s.Clear(ctx, session); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok := rdb.hashes["cart:"+session]; ok {
		t.Fatal("expected cart hash to be deleted")
	}
	lines, err = s.Items(ctx, session)
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v %v", lines, err)
	}
}

func TestStoreWrapsRedisErrors(t *testing.T) {
	rdb := newMemRedis()
	rdb.err = errors.New("connection refused")
	s := NewStore(rdb, time.Hour)
	ctx := context.Background()

	if _, err := s.Items(ctx, session); !errors.Is(err, rdb.err) {
		t.Fatalf("expected wrapped redis error from Items, got %v", err)
	}
	if _, err := s.Add(ctx, session, Line{ProductID: "p1", Quantity: 1}); !errors.Is(err, rdb.err) {
		t.Fatalf("expected wrapped redis error from Add, got %v", err)
	}
}
