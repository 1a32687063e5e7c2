package reconcile_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jobboard/lifecycle-service/internal/reconcile"
)

type fakeSweeper struct {
	calls atomic.Int32
	found int
	err   error
	ran   chan struct{}
}

func (f *fakeSweeper) NotifyOrphanedHires(context.Context) (int, error) {
	f.calls.Add(1)
	if f.ran != nil {
		select {
		case f.ran <- struct{}{}:
		default:
		}
	}
	return f.found, f.err
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	s := reconcile.New(&fakeSweeper{}, nil, "every now and then")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() with an invalid cron expression should fail")
	}
}

func TestStart_SweepsImmediately(t *testing.T) {
	f := &fakeSweeper{ran: make(chan struct{}, 1)}
	s := reconcile.New(f, nil, "@every 1h")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("no sweep ran after Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSweep_Logging(t *testing.T) {
	tests := []struct {
		name    string
		sweeper *fakeSweeper
		level   zapcore.Level
		message string
	}{
		{"found", &fakeSweeper{found: 3}, zapcore.InfoLevel, "orphaned hires reported"},
		{"failure", &fakeSweeper{err: errors.New("db down")}, zapcore.ErrorLevel, "orphaned-hire sweep failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			s := reconcile.New(tt.sweeper, zap.New(core), "@every 1h")

			s.Sweep(context.Background())

			entries := logs.FilterMessage(tt.message).All()
			if len(entries) != 1 || entries[0].Level != tt.level {
				t.Fatalf("log entries = %+v", logs.All())
			}
			if tt.sweeper.calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", tt.sweeper.calls.Load())
			}
		})
	}
}
