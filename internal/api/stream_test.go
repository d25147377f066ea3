package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/realorai/internal/events"
)

func TestStreamRegistry_Lifecycle(t *testing.T) {
	reg := NewStreamRegistry(0)

	id, ch := reg.Register()
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, reg.Publish(context.Background(), events.Event{Type: events.PairScheduled}))
	ev := <-ch
	assert.Equal(t, events.PairScheduled, ev.Type)

	reg.Deregister(id)
	reg.Deregister(id)
	assert.Equal(t, 0, reg.Len())
	_, open := <-ch
	assert.False(t, open)
}

func TestStreamRegistry_DropsForSlowStreams(t *testing.T) {
	reg := NewStreamRegistry(0)
	_, ch := reg.Register()

	for i := 0; i < streamBuffer+5; i++ {
		require.NoError(t, reg.Publish(context.Background(), events.Event{Type: events.PairRemoved}))
	}
	assert.Len(t, ch, streamBuffer)
}

func TestStreamRegistry_Close(t *testing.T) {
	reg := NewStreamRegistry(0)
	_, a := reg.Register()
	_, b := reg.Register()

	reg.Close()
	assert.Equal(t, 0, reg.Len())
	_, openA := <-a
	_, openB := <-b
	assert.False(t, openA)
	assert.False(t, openB)
}
