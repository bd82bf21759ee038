// Package events publishes booking lifecycle notifications to Redis pub/sub.
// Publishing never fails the caller: undelivered messages are parked in a
// retry queue and re-sent by RunRetries.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shareit/pkg/models"
	"shareit/pkg/queue"
)

const (
	BookingCreated  = "booking.created"
	BookingApproved = "booking.approved"
	BookingRejected = "booking.rejected"
	BookingCanceled = "booking.canceled"
)

type Event struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	BookingID  uint                 `json:"bookingId"`
	ItemID     uint                 `json:"itemId"`
	BookerID   uint                 `json:"bookerId"`
	Status     models.BookingStatus `json:"status"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// ForBooking builds the event describing b. The event type follows the
// booking status.
func ForBooking(b models.Booking, at time.Time) Event {
	typ := BookingCreated
	switch b.Status {
	case models.StatusApproved:
		typ = BookingApproved
	case models.StatusRejected:
		typ = BookingRejected
	case models.StatusCanceled:
		typ = BookingCanceled
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		BookingID:  b.ID,
		ItemID:     b.ItemID,
		BookerID:   b.BookerID,
		Status:     b.Status,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop drops every event. It is used when no Redis is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Client is the part of *redis.Client the publisher needs.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	client      Client
	channel     string
	retries     *queue.Queue
	backoff     time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewRedisPublisher(client Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:      client,
		channel:     channel,
		retries:     queue.NewQueue(),
		backoff:     2 * time.Second,
		maxAttempts: 5,
		now:         time.Now,
	}
}

// Connect parses url, pings the server and returns a ready client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to encode event", "type", e.Type, "booking_id", e.BookingID, "err", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		slog.Warn("event publish failed, queued for retry", "type", e.Type, "booking_id", e.BookingID, "err", err)
		p.retries.Enqueue(queue.NewEntry(p.channel, payload, p.now().Add(p.backoff), p.maxAttempts))
		return
	}
	slog.Debug("event published", "type", e.Type, "booking_id", e.BookingID)
}

// Pending is the number of messages waiting for another attempt.
func (p *RedisPublisher) Pending() int {
	return p.retries.Size()
}

// PendingEvent describes a message waiting in the retry queue.
type PendingEvent struct {
	ID       string    `json:"id"`
	Channel  string    `json:"channel"`
	Attempts int       `json:"attempts"`
	RetryAt  time.Time `json:"retryAt"`
}

// Backlog lists the queued messages, oldest first.
func (p *RedisPublisher) Backlog() []PendingEvent {
	entries := p.retries.GetAll()
	out := make([]PendingEvent, 0, len(entries))
	for _, e := range entries {
		out = append(out, PendingEvent{ID: e.ID, Channel: e.Channel, Attempts: e.Attempts, RetryAt: e.RetryAt.UTC()})
	}
	return out
}

// RetryDue re-sends every queued message that is due and returns how many
// were delivered. Failed attempts back off linearly; exhausted messages are
// dropped.
func (p *RedisPublisher) RetryDue(ctx context.Context) int {
	sent := 0
	var again []*queue.Entry
	now := p.now()
	for {
		e := p.retries.Dequeue(now)
		if e == nil {
			break
		}
		if err := p.client.Publish(ctx, e.Channel, e.Payload).Err(); err != nil {
			if e.Exhausted() {
				slog.Error("dropping event after retries", "entry_id", e.ID, "attempts", e.Attempts, "err", err)
				continue
			}
			e.Attempts++
			e.RetryAt = now.Add(time.Duration(e.Attempts) * p.backoff)
			again = append(again, e)
			continue
		}
		sent++
	}
	for _, e := range again {
		p.retries.Enqueue(e)
	}
	return sent
}

// RunRetries drains the retry queue every interval until ctx is done.
func (p *RedisPublisher) RunRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.RetryDue(ctx); n > 0 {
				slog.Info("re-sent queued events", "count", n, "pending", p.Pending())
			}
		}
	}
}
