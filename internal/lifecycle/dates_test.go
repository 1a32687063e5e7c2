package lifecycle_test

import (
	"testing"
	"time"

	"jobboard/lifecycle-service/internal/lifecycle"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddCalendarMonths(t *testing.T) {
	cases := []struct {
		start  time.Time
		months int
		want   time.Time
	}{
		{date(2024, 1, 15), 3, date(2024, 4, 15)},
		{date(2024, 1, 31), 1, date(2024, 2, 29)}, // leap year clamp
		{date(2023, 1, 31), 1, date(2023, 2, 28)},
		{date(2024, 3, 31), 1, date(2024, 4, 30)},
		{date(2024, 8, 31), 6, date(2025, 2, 28)},
		{date(2024, 11, 30), 3, date(2025, 2, 28)},
		{date(2024, 12, 1), 12, date(2025, 12, 1)},
		{date(2024, 5, 10), 0, date(2024, 5, 10)},
	}
	for _, c := range cases {
		if got := lifecycle.AddCalendarMonths(c.start, c.months); !got.Equal(c.want) {
			t.Errorf("AddCalendarMonths(%s, %d) = %s, want %s",
				c.start.Format(time.DateOnly), c.months, got.Format(time.DateOnly), c.want.Format(time.DateOnly))
		}
	}
}

// MonthsBetween must invert AddCalendarMonths for every start day and
// duration, including month-end starts that get clamped.
func TestMonthsBetween_InvertsAdd(t *testing.T) {
	for day := 1; day <= 31; day++ {
		start := date(2024, 1, day)
		for n := 0; n <= 24; n++ {
			end := lifecycle.AddCalendarMonths(start, n)
			if got := lifecycle.MonthsBetween(start, end); got != n {
				t.Errorf("MonthsBetween(%s, %s) = %d, want %d",
					start.Format(time.DateOnly), end.Format(time.DateOnly), got, n)
			}
		}
	}
}

func TestMonthsBetween_PartialMonth(t *testing.T) {
	if got := lifecycle.MonthsBetween(date(2024, 1, 15), date(2024, 4, 14)); got != 2 {
		t.Errorf("MonthsBetween(2024-01-15, 2024-04-14) = %d, want 2", got)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, 1, 15, 17, 45, 3, 9, time.UTC)
	if got := lifecycle.DateOnly(in); !got.Equal(date(2024, 1, 15)) {
		t.Errorf("DateOnly(%s) = %s", in, got)
	}
}

func TestParseDate(t *testing.T) {
	got, err := lifecycle.ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("ParseDate unexpected error: %v", err)
	}
	if !got.Equal(date(2024, 1, 15)) {
		t.Errorf("ParseDate = %s", got)
	}
	if _, err := lifecycle.ParseDate("15/01/2024"); err == nil {
		t.Error("ParseDate(15/01/2024) expected error")
	}
}
