// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers user-facing text to entities. Delivery is fire and
// forget: a sender never learns whether anyone received the message.
package notify

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/muckdb/internal/dbref"
)

// Notifier sends message to the entity to.
type Notifier interface {
	Notify(ctx context.Context, to dbref.Ref, message string)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, to dbref.Ref, message string)

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, to dbref.Ref, message string) {
	f(ctx, to, message)
}

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, dbref.Ref, string) {})

// Notification is one delivered message.
type Notification struct {
	ID        ulid.ULID
	To        dbref.Ref
	Message   string
	Timestamp time.Time
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newID(now time.Time) ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy)
}

// NewNotification stamps a message with a fresh ULID and the current time.
func NewNotification(to dbref.Ref, message string) Notification {
	now := time.Now().UTC()
	return Notification{
		ID:        newID(now),
		To:        to,
		Message:   message,
		Timestamp: now,
	}
}
