package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fritter/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) *models.ReputationEvent {
	t.Helper()
	select {
	case payload := <-c.Send:
		var event models.ReputationEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		return &event
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestHubFiltersEventsByFreet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	watched := uuid.New()
	everything := NewClient(hub, nil, uuid.New(), uuid.Nil)
	onlyOne := NewClient(hub, nil, uuid.New(), watched)
	hub.Attach(everything)
	hub.Attach(onlyOne)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	other := uuid.New()
	hub.Publish(&models.ReputationEvent{Type: "approved", FreetID: other})
	hub.Publish(&models.ReputationEvent{Type: "link_attached", FreetID: watched, URL: "https://a.example", Count: 2})

	assert.Equal(t, other, receive(t, everything).FreetID)
	second := receive(t, everything)
	assert.Equal(t, "link_attached", second.Type)

	got := receive(t, onlyOne)
	assert.Equal(t, watched, got.FreetID)
	assert.Equal(t, 2, got.Count)

	select {
	case <-onlyOne.Send:
		t.Fatal("filtered client received an unrelated event")
	default:
	}
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient(hub, nil, uuid.New(), uuid.Nil)
	hub.Attach(client)
	cancel()
	<-done

	_, ok := <-client.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestAttachAfterShutdownClosesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	late := NewClient(hub, nil, uuid.New(), uuid.Nil)
	hub.Attach(late)
	_, ok := <-late.Send
	assert.False(t, ok)

	// detaching from a stopped hub must not block
	hub.detach(late)
}
