package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeshare-backend/event"
)

type recordingSink struct {
	bodies [][]byte
	err    error
}

func (s *recordingSink) Send(_ context.Context, _ event.Type, body []byte) error {
	s.bodies = append(s.bodies, body)
	return s.err
}

func TestNotifier_EncodesEnvelope(t *testing.T) {
	sink := &recordingSink{}
	n := New(sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	bikeID := uuid.New()

	require.NoError(t, n.Handle(context.Background(), event.TripStarted{
		Header:    event.NewHeader(at),
		BikeID:    bikeID,
		RiderID:   uuid.New(),
		StationID: uuid.New(),
	}))

	require.Len(t, sink.bodies, 1)
	var got struct {
		Type       string         `json:"type"`
		OccurredAt time.Time      `json:"occurredAt"`
		Payload    map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(sink.bodies[0], &got))
	assert.Equal(t, "TripStarted", got.Type)
	assert.True(t, at.Equal(got.OccurredAt))
	assert.Equal(t, bikeID.String(), got.Payload["bikeId"])
}

func TestNotifier_SinkFailureDoesNotPropagate(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	var logs bytes.Buffer
	n := New(sink, slog.New(slog.NewTextHandler(&logs, nil)))

	err := n.Handle(context.Background(), event.BikeMaintenance{Header: event.NewHeader(time.Now()), BikeID: uuid.New()})

	assert.NoError(t, err)
	assert.Contains(t, logs.String(), "dashboard notification failed")
}

func TestLogSink(t *testing.T) {
	var logs bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&logs, nil)))

	require.NoError(t, sink.Send(context.Background(), event.TypeBikeMoved, []byte(`{"type":"BikeMoved"}`)))
	assert.Contains(t, logs.String(), `"type":"BikeMoved"`)
}

func TestRedisSink(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	sink, err := NewRedisSink(ctx, url, "fleet-events-test")
	require.NoError(t, err)
	defer sink.Close()

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	sub := redis.NewClient(opts).Subscribe(ctx, "fleet-events-test")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, sink.Send(ctx, event.TypeBikeMoved, []byte(`{"type":"BikeMoved"}`)))
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"BikeMoved"}`, msg.Payload)
}
