package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	require.NotNil(t, hub)
	assert.NotNil(t, hub.subscribers)
	assert.False(t, hub.closed)
}

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	hub.Publish(Event{
		Type:   EventTurnStarted,
		TurnID: "turn-1",
		Data:   map[string]any{"baseline": 2},
	})

	select {
	case received := <-ch:
		assert.Equal(t, EventTurnStarted, received.Type)
		assert.Equal(t, "turn-1", received.TurnID)
		assert.Equal(t, 2, received.Data["baseline"])
		assert.False(t, received.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch1, unsub1 := hub.Subscribe()
	defer unsub1()
	ch2, unsub2 := hub.Subscribe()
	defer unsub2()

	hub.Publish(Event{Type: EventTurnCompleted})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			assert.Equal(t, EventTurnCompleted, received.Type)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHub_UnsubscribeByID(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch1, id1 := hub.SubscribeWithID()
	ch2, id2 := hub.SubscribeWithID()
	require.NotEmpty(t, id1)
	require.NotEqual(t, id1, id2)
	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.NotPanics(t, func() { hub.Unsubscribe(id1) })

	hub.Publish(Event{Type: EventTurnPhase})
	select {
	case received := <-ch2:
		assert.Equal(t, EventTurnPhase, received.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("remaining subscriber did not receive event")
	}
	assert.Equal(t, 1, hub.SubscriberCount())
	hub.Unsubscribe(id2)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	ch, _ := hub.Subscribe()

	hub.Close()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after hub close")
	assert.NotPanics(t, func() {
		hub.Publish(Event{Type: EventTurnStarted})
		hub.Close()
	})
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	for i := 0; i < DefaultSubscriberBuffer*3; i++ {
		hub.Publish(Event{Type: EventTurnPhase, Data: map[string]any{"i": i}})
	}

	assert.Len(t, ch, DefaultSubscriberBuffer, "publisher must not block on a slow subscriber")
	first := <-ch
	assert.Equal(t, 0, first.Data["i"])
}

func TestHub_PublishWithPresetTimestamp(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	preset := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(Event{Type: EventTurnTimeout, Timestamp: preset})

	received := <-ch
	assert.Equal(t, preset, received.Timestamp)
}

func TestHub_SubscribeAfterClose(t *testing.T) {
	hub := NewHub()
	hub.Close()

	ch, unsub := hub.Subscribe()
	unsub()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestHub_NilPublish(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Publish(Event{Type: EventTurnAborted}) })
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				hub.Publish(Event{Type: EventTurnPhase})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ch, 32)
}

func TestTracerProviderExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider("pagechat-test", "test", &buf)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "turn")
	span.SetAttributes(AttrTurnID.String("turn-1"), AttrBaseline.Int(2))
	AddEvent(ctx, "phase", AttrPhase.String("growing"))
	RecordError(ctx, nil)
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "turn"`)
	assert.Contains(t, buf.String(), "pagechat.turn.id")

	var nilProvider *TracerProvider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}
