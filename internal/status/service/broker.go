package service

import (
	"context"
	"log/slog"
	"sync"

	"ofertas/internal/status/metrics"
	"ofertas/internal/status/models"
)

// DefaultSubscriberBuffer is the queue depth of each subscriber.
const DefaultSubscriberBuffer = 64

// Subscriber receives status changes on its own goroutine.
type Subscriber func(ctx context.Context, ev models.StatusChanged)

type subscription struct {
	events chan models.StatusChanged
	done   chan struct{}
}

// Broker fans status changes out to in-process subscribers. Publish never
// waits on a subscriber: a full queue drops the event.
type Broker struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	nextID  int
	buffer  int
	closed  bool
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type BrokerOption func(*Broker)

func WithBrokerLogger(logger *slog.Logger) BrokerOption {
	return func(b *Broker) {
		b.logger = logger
	}
}

func WithBrokerMetrics(m *metrics.Metrics) BrokerOption {
	return func(b *Broker) {
		b.metrics = m
	}
}

func WithSubscriberBuffer(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subs:   make(map[int]*subscription),
		buffer: DefaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe starts delivering events to fn until the returned func is called
// or the broker is closed.
func (b *Broker) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	sub := &subscription{
		events: make(chan models.StatusChanged, b.buffer),
		done:   make(chan struct{}),
	}
	subID := b.nextID
	b.nextID++
	b.subs[subID] = sub
	if b.metrics != nil {
		b.metrics.ActiveSubscribers.Inc()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(sub.done)
		for ev := range sub.events {
			fn(context.Background(), ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(subID)
		})
	}
}

func (b *Broker) remove(subID int) {
	b.mu.Lock()
	sub, ok := b.subs[subID]
	if ok {
		delete(b.subs, subID)
		close(sub.events)
		if b.metrics != nil {
			b.metrics.ActiveSubscribers.Dec()
		}
	}
	b.mu.Unlock()
	if ok {
		<-sub.done
	}
}

// Publish hands ev to every subscriber without blocking.
func (b *Broker) Publish(ctx context.Context, ev models.StatusChanged) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			if b.metrics != nil {
				b.metrics.IncrementDropped()
			}
			if b.logger != nil {
				b.logger.WarnContext(ctx, "status subscriber full, event dropped",
					"contribution_id", ev.ID,
					"status", ev.Status,
				)
			}
		}
	}
}

// Close stops every subscriber after it drains its queue.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for subID, sub := range b.subs {
		delete(b.subs, subID)
		close(sub.events)
	}
	if b.metrics != nil {
		b.metrics.ActiveSubscribers.Set(0)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
