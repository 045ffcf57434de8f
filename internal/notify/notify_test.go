// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/notify"
)

func receive(t *testing.T, ch <-chan notify.Notification) notify.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for notification")
		return notify.Notification{}
	}
}

func TestBroadcaster_DeliversToSubscriber(t *testing.T) {
	b := notify.NewBroadcaster()
	player := dbref.New(4, dbref.KindPlayer)
	ch := b.Subscribe(player)

	b.Notify(t.Context(), player, "hello")

	n := receive(t, ch)
	assert.Equal(t, "hello", n.Message)
	assert.True(t, n.To.Equal(player))
	assert.False(t, n.Timestamp.IsZero())
	assert.NotZero(t, n.ID)
}

func TestBroadcaster_MatchesByNumber(t *testing.T) {
	b := notify.NewBroadcaster()
	ch := b.Subscribe(dbref.New(4, dbref.KindUnknown))

	b.Notify(t.Context(), dbref.New(4, dbref.KindPlayer), "typed")
	assert.Equal(t, "typed", receive(t, ch).Message)
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := notify.NewBroadcaster()
	player := dbref.New(2, dbref.KindPlayer)
	ch1 := b.Subscribe(player)
	ch2 := b.Subscribe(player)

	b.Notify(t.Context(), player, "both")

	assert.Equal(t, "both", receive(t, ch1).Message)
	assert.Equal(t, "both", receive(t, ch2).Message)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := notify.NewBroadcaster()
	player := dbref.New(2, dbref.KindPlayer)
	ch := b.Subscribe(player)
	b.Unsubscribe(player, ch)

	_, ok := <-ch
	assert.False(t, ok)

	b.Notify(t.Context(), player, "nobody")
}

func TestBroadcaster_FullBufferDrops(t *testing.T) {
	b := notify.NewBroadcaster(notify.WithBuffer(1))
	player := dbref.New(2, dbref.KindPlayer)
	ch := b.Subscribe(player)

	b.Notify(t.Context(), player, "first")
	b.Notify(t.Context(), player, "second")

	assert.Equal(t, "first", receive(t, ch).Message)
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %q", n.Message)
	default:
	}
}

func TestNotificationIDsAreMonotonic(t *testing.T) {
	a := notify.NewNotification(dbref.God, "a")
	b := notify.NewNotification(dbref.God, "b")
	assert.Equal(t, -1, a.ID.Compare(b.ID))
}

func TestFunc(t *testing.T) {
	var got string
	n := notify.Func(func(_ context.Context, _ dbref.Ref, msg string) { got = msg })
	n.Notify(t.Context(), dbref.God, "hi")
	assert.Equal(t, "hi", got)

	notify.Discard.Notify(t.Context(), dbref.God, "ignored")
}
