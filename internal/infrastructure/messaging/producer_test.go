package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRenderEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	p := NewProducer(rdb, 100)
	id, err := p.PublishRenderEvent(context.Background(), &RenderEventMessage{
		RenderID:    "rid-1",
		Problem:     "x^2",
		Status:      "failed",
		FailedStage: "render",
		Error:       "exit status 1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := rdb.XRange(context.Background(), string(StreamVideoRender), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &msg))
	assert.Equal(t, "rid-1", msg.ID)
	assert.Equal(t, TypeRenderFailed, msg.Type)
	assert.Equal(t, "render", msg.Metadata["stage"])

	var event RenderEventMessage
	require.NoError(t, msg.UnmarshalPayload(&event))
	assert.Equal(t, "exit status 1", event.Error)
}

func TestPublishFailsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	p := NewProducer(rdb, 0)
	_, err := p.PublishRenderEvent(context.Background(), &RenderEventMessage{RenderID: "rid-2", Status: "succeeded"})
	assert.Error(t, err)
}
