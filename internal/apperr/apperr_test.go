package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"jobboard/lifecycle-service/internal/apperr"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want apperr.Kind
	}{
		{apperr.NotFound("application %s not found", "a1"), apperr.KindNotFound},
		{apperr.Unauthorized("nope"), apperr.KindUnauthorized},
		{apperr.Validation("bad"), apperr.KindValidation},
		{apperr.Conflict("dup"), apperr.KindConflict},
		{apperr.Storage("insert", errors.New("boom")), apperr.KindStorage},
		{fmt.Errorf("wrapped: %w", apperr.Conflict("dup")), apperr.KindConflict},
		{errors.New("plain"), apperr.KindStorage},
	}
	for _, c := range cases {
		if got := apperr.KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestIs_Nil(t *testing.T) {
	if apperr.Is(nil, apperr.KindStorage) {
		t.Error("Is(nil, STORAGE) should be false")
	}
}

func TestPublic_HidesStorageCause(t *testing.T) {
	err := apperr.Storage("update application", errors.New(`pq: relation "x" does not exist`))
	if got := apperr.Public(err); got != "internal storage error" {
		t.Errorf("Public() = %q, want generic storage message", got)
	}
	if got := apperr.Public(errors.New("raw")); got != "internal error" {
		t.Errorf("Public(raw) = %q, want %q", got, "internal error")
	}
}

func TestPublic_KeepsDomainMessage(t *testing.T) {
	err := apperr.Validation("rating must be between 1 and 5")
	if got := apperr.Public(err); got != "rating must be between 1 and 5" {
		t.Errorf("Public() = %q", got)
	}
}

func TestNew_CapturesStack(t *testing.T) {
	err := apperr.Storage("query", errors.New("boom"))
	if len(err.Stack) == 0 {
		t.Error("expected a captured stack trace")
	}
	if !errors.Is(err, err.Err) {
		t.Error("Unwrap should expose the cause")
	}
}
