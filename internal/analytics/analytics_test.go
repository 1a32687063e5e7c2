package analytics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"jobboard/lifecycle-service/internal/lifecycle"
)

type fakeConn struct {
	queries [][]any
	err     error
}

func (f *fakeConn) Exec(_ context.Context, query string, args ...any) error {
	f.queries = append(f.queries, append([]any{query}, args...))
	return f.err
}

func TestNewSink_CreatesTable(t *testing.T) {
	conn := &fakeConn{}
	if _, err := newSink(context.Background(), conn, zap.NewNop()); err != nil {
		t.Fatalf("newSink: %v", err)
	}
	if len(conn.queries) != 1 || !strings.Contains(conn.queries[0][0].(string), "CREATE TABLE IF NOT EXISTS lifecycle_events") {
		t.Errorf("queries = %v", conn.queries)
	}
}

func TestNotify_InsertsOneRow(t *testing.T) {
	conn := &fakeConn{}
	sink, _ := newSink(context.Background(), conn, zap.NewNop())
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	err := sink.Notify(context.Background(), lifecycle.Event{
		Kind: lifecycle.EventStatusChanged, EmployerID: "emp-E", ApplicationID: "a1",
		From: "applied", To: "viewed", At: at,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	row := conn.queries[1]
	args := row[1:]
	if len(args) != len(eventColumns) {
		t.Fatalf("args = %d, columns = %d", len(args), len(eventColumns))
	}
	if args[0] != "status_changed" || args[1] != "emp-E" || args[7] != "viewed" {
		t.Errorf("args = %v", args)
	}
	if ids, ok := args[8].([]string); !ok || ids == nil {
		t.Errorf("application_ids must be a non-nil slice, got %#v", args[8])
	}
}

func TestNotify_PropagatesError(t *testing.T) {
	conn := &fakeConn{}
	sink, _ := newSink(context.Background(), conn, zap.NewNop())
	conn.err = errors.New("clickhouse unavailable")
	if err := sink.Notify(context.Background(), lifecycle.Event{Kind: lifecycle.EventBadgeAwarded}); err == nil {
		t.Error("expected insert error")
	}
}
