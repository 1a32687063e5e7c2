// Package notify delivers lifecycle events to job seekers and downstream
// consumers. Every publisher implements lifecycle.Notifier.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"jobboard/lifecycle-service/internal/lifecycle"
)

// RedisChannel is the pub/sub channel the gateway forwards to clients.
const RedisChannel = "portal:notifications"

// SubjectPrefix prefixes NATS subjects; the event kind is appended.
const SubjectPrefix = "portal.notifications."

// ─── Redis ───────────────────────────────────────────────────────────────────

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher returns a publisher on channel, or RedisChannel when
// channel is empty.
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = RedisChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Notify(ctx context.Context, ev lifecycle.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Kind, err)
	}
	return nil
}

// ─── NATS ────────────────────────────────────────────────────────────────────

// NATSPublisher publishes each event on portal.notifications.<kind>.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Notify(_ context.Context, ev lifecycle.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(ev.Kind), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", ev.Kind, err)
	}
	return nil
}

// Subject returns the NATS subject for kind.
func Subject(kind lifecycle.EventKind) string {
	return SubjectPrefix + string(kind)
}

// ─── Fanout ──────────────────────────────────────────────────────────────────

// Fanout delivers to every notifier and joins their errors.
type Fanout []lifecycle.Notifier

func (f Fanout) Notify(ctx context.Context, ev lifecycle.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
