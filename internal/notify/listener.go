package notify

import (
	"context"
	"sync"

	"github.com/oshokin/catpoint/internal/api/message"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// LogListener writes every notification to the context logger.
type LogListener struct{}

// AlarmStatusChanged logs the new alarm status.
func (*LogListener) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	logger.InfoKV(ctx, "Alarm status notification",
		"alarm_status", status.String(),
		"description", status.Description(),
	)
}

// CatDetected logs the camera verdict.
func (*LogListener) CatDetected(ctx context.Context, detected bool) {
	logger.InfoKV(ctx, "Cat detection notification", "cat_detected", detected)
}

// DefaultSubscriberBuffer is the channel capacity of a new subscription.
const DefaultSubscriberBuffer = 16

// Broadcaster fans notifications out to subscribers.
// Slow subscribers lose events instead of blocking the controller.
type Broadcaster struct {
	// subscribers maps a subscription channel to itself for set semantics.
	subscribers map[chan message.Event]struct{}
	// buffer is the capacity of new subscription channels.
	buffer int
	// mu protects subscribers.
	mu sync.Mutex
}

// NewBroadcaster creates a broadcaster whose subscriptions buffer the given number of events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	return &Broadcaster{
		subscribers: make(map[chan message.Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe returns an event channel and a function that cancels the subscription.
// The channel is closed after cancel is called.
func (b *Broadcaster) Subscribe() (<-chan message.Event, func()) {
	ch := make(chan message.Event, b.buffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()

			close(ch)
		})
	}

	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// AlarmStatusChanged publishes an alarm status event.
func (b *Broadcaster) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	b.publish(ctx, message.Event{Kind: message.KindAlarmStatus, AlarmStatus: status})
}

// CatDetected publishes a cat detection event.
func (b *Broadcaster) CatDetected(ctx context.Context, detected bool) {
	b.publish(ctx, message.Event{Kind: message.KindCatDetected, CatDetected: detected})
}

func (b *Broadcaster) publish(ctx context.Context, event message.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			logger.WarnKV(ctx, "Dropping event for slow subscriber", "kind", event.Kind)
		}
	}
}
