package remotestore

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bebohany644546654/physica/sync"
)

// PingMonitor derives connectivity from the database answering pings.
// A transition is reported at most once per actual change; flapping is
// debounced by the ping interval itself.
type PingMonitor struct {
	ping     func(ctx context.Context) error
	interval time.Duration

	mu        stdsync.Mutex
	connected bool
	handlers  map[int]func(connected bool)
	nextID    int
	cancel    context.CancelFunc
}

var _ sync.NetworkMonitor = (*PingMonitor)(nil)

func NewPingMonitor(db *sqlx.DB, interval time.Duration) *PingMonitor {
	return &PingMonitor{
		ping:     db.PingContext,
		interval: interval,
		handlers: make(map[int]func(bool)),
	}
}

// Status performs a one-shot check.
func (m *PingMonitor) Status() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	up := m.ping(ctx) == nil

	m.mu.Lock()
	m.connected = up
	m.mu.Unlock()
	return up
}

func (m *PingMonitor) OnChange(fn func(connected bool)) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// Start begins the background ping loop. Stop by calling the returned func.
func (m *PingMonitor) Start() (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			pingCtx, pingCancel := context.WithTimeout(ctx, m.interval)
			up := m.ping(pingCtx) == nil
			pingCancel()
			m.report(up)
		}
	}()
	return cancel
}

func (m *PingMonitor) report(up bool) {
	m.mu.Lock()
	if up == m.connected {
		m.mu.Unlock()
		return
	}
	m.connected = up
	fns := make([]func(bool), 0, len(m.handlers))
	for _, fn := range m.handlers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(up)
	}
}
