package kafkax

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
)

type memoryDeduper struct {
	seen    map[string]string
	seenErr error
}

func (d *memoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	if d.seenErr != nil {
		return false, d.seenErr
	}
	_, ok := d.seen[eventID]
	return ok, nil
}

func (d *memoryDeduper) Record(_ context.Context, eventID string, eventType string) (bool, error) {
	if _, ok := d.seen[eventID]; ok {
		return false, nil
	}
	d.seen[eventID] = eventType
	return true, nil
}

func testMessage(eventID string) kafka.Message {
	return kafka.Message{
		Topic: "booking.created.v1",
		Key:   []byte("b-1"),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte("booking.created.v1")},
		},
	}
}

func TestProcessRetriesFailedHandler(t *testing.T) {
	dedupe := &memoryDeduper{seen: map[string]string{}}
	calls := 0
	c := &Consumer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		dedupe: dedupe,
		handler: func(context.Context, kafka.Message) error {
			calls++
			if calls == 1 {
				return errors.New("downstream unavailable")
			}
			return nil
		},
	}

	msg := testMessage("evt-1")
	if c.process(context.Background(), msg) {
		t.Fatal("expected failed handler to hold back the offset")
	}
	if _, recorded := dedupe.seen["evt-1"]; recorded {
		t.Fatal("expected no inbox record for a failed event")
	}

	// Redelivery succeeds and only then records the event.
	if !c.process(context.Background(), msg) {
		t.Fatal("expected successful retry to commit")
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
	if _, recorded := dedupe.seen["evt-1"]; !recorded {
		t.Fatal("expected inbox record after success")
	}
}

func TestProcessSkipsSeenEvent(t *testing.T) {
	dedupe := &memoryDeduper{seen: map[string]string{"evt-1": "booking.created.v1"}}
	calls := 0
	c := &Consumer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		dedupe: dedupe,
		handler: func(context.Context, kafka.Message) error {
			calls++
			return nil
		},
	}

	if !c.process(context.Background(), testMessage("evt-1")) {
		t.Fatal("expected duplicate to be committed")
	}
	if calls != 0 {
		t.Fatalf("expected handler to be skipped for duplicate, got %d calls", calls)
	}
}

func TestProcessHoldsOffsetOnDedupeError(t *testing.T) {
	dedupe := &memoryDeduper{seen: map[string]string{}, seenErr: errors.New("db down")}
	c := &Consumer{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		dedupe:  dedupe,
		handler: func(context.Context, kafka.Message) error { return nil },
	}

	if c.process(context.Background(), testMessage("evt-1")) {
		t.Fatal("expected dedupe error to hold back the offset")
	}
}
