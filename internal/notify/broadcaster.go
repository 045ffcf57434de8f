// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/holomush/muckdb/internal/dbref"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 100

// Broadcaster fans notifications out to per-entity subscribers. Messages to
// an entity with no subscribers are dropped.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int32][]chan Notification
	buffer int
	logger *slog.Logger
}

var _ Notifier = (*Broadcaster)(nil)

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBuffer sets the subscriber channel capacity.
func WithBuffer(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		b.buffer = n
	}
}

// WithLogger sets the logger used to report dropped messages.
func WithLogger(l *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		b.logger = l
	}
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subs:   make(map[int32][]chan Notification),
		buffer: DefaultBuffer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe returns a channel receiving every notification sent to ref.
func (b *Broadcaster) Subscribe(ref dbref.Ref) <-chan Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Notification, b.buffer)
	b.subs[ref.Number()] = append(b.subs[ref.Number()], ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *Broadcaster) Unsubscribe(ref dbref.Ref, ch <-chan Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[ref.Number()]
	for i, sub := range subs {
		if sub == ch {
			b.subs[ref.Number()] = slices.Delete(subs, i, i+1)
			close(sub)
			return
		}
	}
}

// Notify implements Notifier. A full subscriber buffer drops the message.
func (b *Broadcaster) Notify(ctx context.Context, to dbref.Ref, message string) {
	n := NewNotification(to, message)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[to.Number()] {
		select {
		case ch <- n:
		default:
			b.logger.WarnContext(ctx, "notification dropped: subscriber buffer full",
				"to", to.String(),
				"notification_id", n.ID.String(),
			)
		}
	}
}
