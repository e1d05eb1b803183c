package psu

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/logging"
)

// Event is a power state observation.
type Event struct {
	On      bool      `json:"on"`
	Enabled bool      `json:"enabled"`
	At      time.Time `json:"at"`
}

// StateSource is polled by the Watcher. Plugin implements it.
type StateSource interface {
	State(ctx context.Context) bool
	Enabled() bool
}

// DefaultInterval is used when NewWatcher is given a non-positive interval.
const DefaultInterval = 30 * time.Second

// subscriberBuffer is the number of events a slow subscriber may lag behind
const subscriberBuffer = 8

// Watcher polls a StateSource and fans state changes out to subscribers.
type Watcher struct {
	source   StateSource
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	poke chan struct{}

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	last   *Event
}

// NewWatcher creates a watcher polling source every interval.
func NewWatcher(source StateSource, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		source:   source,
		interval: interval,
		logger:   logging.Named("watcher"),
		now:      time.Now,
		poke:     make(chan struct{}, 1),
		subs:     make(map[int]chan Event),
	}
}

// Subscribe returns a channel of state changes and a function that ends the
// subscription. The latest known state, if any, is delivered first.
func (w *Watcher) Subscribe() (<-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan Event, subscriberBuffer)
	w.subs[id] = ch
	if w.last != nil {
		ch <- *w.last
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if _, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Last returns the most recent observation.
func (w *Watcher) Last() (Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return Event{}, false
	}
	return *w.last, true
}

// Poke requests an immediate poll, e.g. after a power command.
func (w *Watcher) Poke() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done. The first poll happens immediately.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Watching PSU state", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.closeAll()
			return ctx.Err()
		case <-ticker.C:
			w.Poll(ctx)
		case <-w.poke:
			w.Poll(ctx)
		}
	}
}

// Poll queries the state once and publishes it if it changed.
func (w *Watcher) Poll(ctx context.Context) {
	ev := Event{
		Enabled: w.source.Enabled(),
		At:      w.now(),
	}
	if ev.Enabled {
		ev.On = w.source.State(ctx)
	}
	w.publish(ev)
}

func (w *Watcher) publish(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.last != nil && w.last.On == ev.On && w.last.Enabled == ev.Enabled {
		w.last.At = ev.At
		return
	}
	w.last = &ev

	w.logger.Debug("PSU state changed", zap.Bool("on", ev.On), zap.Bool("enabled", ev.Enabled))
	for id, ch := range w.subs {
		select {
		case ch <- ev:
		default:
			w.logger.Warn("Dropping event for slow subscriber", zap.Int("subscriber", id))
		}
	}
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
}
