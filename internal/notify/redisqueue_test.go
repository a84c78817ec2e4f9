package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

func newMiniredisSink(t *testing.T) (*redisQueueSink, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &redisQueueSink{
		id:     "slots-queue",
		typ:    TypeRedisQueue,
		queue:  "court_slots",
		client: client,
		log:    logger.NopLogger{},
	}, srv
}

func TestRedisQueueSinkPushesWirePayload(t *testing.T) {
	sink, srv := newMiniredisSink(t)
	n := NewNotification(testSlot(), "clubspark")

	if err := sink.Publish(context.Background(), n); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	payloads, err := srv.List("court_slots")
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(payloads))
	}

	var got Notification
	if err := json.Unmarshal([]byte(payloads[0]), &got); err != nil {
		t.Fatalf("queued payload not valid JSON: %v", err)
	}
	if got.VenueID != n.VenueID || got.StartTime != n.StartTime {
		t.Fatalf("queued payload mismatch: %+v", got)
	}
}

func TestRedisQueueSinkRejectsInvalidNotification(t *testing.T) {
	sink, srv := newMiniredisSink(t)

	n := NewNotification(testSlot(), "clubspark")
	n.VenueID = ""
	if err := sink.Publish(context.Background(), n); err == nil {
		t.Fatalf("expected validation error")
	}
	if payloads, _ := srv.List("court_slots"); len(payloads) != 0 {
		t.Fatalf("invalid notification must not be queued, found %d", len(payloads))
	}
}

func TestRedisQueueSinkReportsPushFailure(t *testing.T) {
	sink, srv := newMiniredisSink(t)
	srv.SetError("READONLY you can't write against a read only replica")

	n := NewNotification(testSlot(), "clubspark")
	if err := sink.Publish(context.Background(), n); err == nil {
		t.Fatalf("expected push error")
	}
}
