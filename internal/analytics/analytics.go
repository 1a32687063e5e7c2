// Package analytics appends lifecycle events to ClickHouse for funnel and
// time-to-hire reporting. The sink is a lifecycle.Notifier so it rides the
// same best-effort delivery path as user notifications.
package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"jobboard/lifecycle-service/internal/lifecycle"
)

const createEventsTable = `
	CREATE TABLE IF NOT EXISTS lifecycle_events (
		type            LowCardinality(String),
		employer_id     String,
		job_seeker_id   String,
		application_id  String,
		internship_id   String,
		badge_id        String,
		from_status     LowCardinality(String),
		to_status       LowCardinality(String),
		application_ids Array(String),
		at              DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(at)
	ORDER BY (employer_id, at)`

var eventColumns = []string{
	"type", "employer_id", "job_seeker_id", "application_id", "internship_id", "badge_id",
	"from_status", "to_status", "application_ids", "at",
}

var insertEvent = "INSERT INTO lifecycle_events (" + strings.Join(eventColumns, ", ") +
	") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(eventColumns)), ", ") + ")"

// execer is the subset of clickhouse.Conn the sink uses.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ClickHouseSink writes one row per event.
type ClickHouseSink struct {
	conn   execer
	logger *zap.Logger
}

// NewClickHouseSink ensures the events table exists and returns the sink.
func NewClickHouseSink(ctx context.Context, conn clickhouse.Conn, logger *zap.Logger) (*ClickHouseSink, error) {
	return newSink(ctx, conn, logger)
}

func newSink(ctx context.Context, conn execer, logger *zap.Logger) (*ClickHouseSink, error) {
	if err := conn.Exec(ctx, createEventsTable); err != nil {
		return nil, fmt.Errorf("create lifecycle_events: %w", err)
	}
	return &ClickHouseSink{conn: conn, logger: logger}, nil
}

func (s *ClickHouseSink) Notify(ctx context.Context, ev lifecycle.Event) error {
	ids := ev.ApplicationIDs
	if ids == nil {
		ids = []string{}
	}
	if err := s.conn.Exec(ctx, insertEvent,
		string(ev.Kind), ev.EmployerID, ev.JobSeekerID, ev.ApplicationID, ev.InternshipID, ev.BadgeID,
		ev.From, ev.To, ids, ev.At.UTC(),
	); err != nil {
		return fmt.Errorf("insert lifecycle event %s: %w", ev.Kind, err)
	}
	s.logger.Debug("recorded lifecycle event",
		zap.String("type", string(ev.Kind)),
		zap.String("employerId", ev.EmployerID))
	return nil
}
