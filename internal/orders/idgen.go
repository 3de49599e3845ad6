package orders

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator issues "<prefix><unix-millis>" identifiers. When two calls land
// in the same millisecond the later one is bumped forward, so identifiers
// from one generator never repeat.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	last   int64
	now    func() time.Time
}

func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix, now: time.Now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return g.prefix + strconv.FormatInt(ms, 10)
}
