package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staymatch/backend/internal/storage/models"
)

func TestEventBroadcaster_ReservationCommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	client := NewClient(hub)
	hub.Register(client)

	res := models.Reservation{ID: "r1", Username: "ana", PropertyID: 7, Source: models.SourceDirect}
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	res.SetDates(start, start.AddDate(0, 0, 1))

	NewEventBroadcaster(hub).BroadcastReservationCommitted(res, []time.Time{start, start.AddDate(0, 0, 1)})

	select {
	case data := <-client.Send():
		var msg struct {
			Type    MessageType        `json:"type"`
			Payload ReservationPayload `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, TypeReservationCommitted, msg.Type)
		assert.Equal(t, "r1", msg.Payload.ReservationID)
		assert.Equal(t, []string{"2025-08-01", "2025-08-02"}, msg.Payload.Days)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestEventBroadcaster_NilIsNoop(t *testing.T) {
	var b *EventBroadcaster
	assert.NotPanics(t, func() { b.BroadcastCatalogReloaded(1, 1) })
}

func TestHub_SendTo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	client := NewClient(hub)
	assert.False(t, hub.SendTo(client, []byte("early")), "unregistered client")

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	assert.True(t, hub.SendTo(client, []byte("pong")))
	assert.Equal(t, []byte("pong"), <-client.Send())

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.False(t, hub.SendTo(client, []byte("late")), "closed client")
}
