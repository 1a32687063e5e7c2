package lifecycle_test

import (
	"testing"

	"jobboard/lifecycle-service/internal/lifecycle"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"applied", "viewed", "shortlisted", "interviewed", "offered", "hired", "rejected"}
	for _, s := range valid {
		got, err := lifecycle.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	for _, s := range []string{"", "UNKNOWN", "HIRED", " applied", "applied ", "in_review"} {
		if _, err := lifecycle.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

func TestStatuses_AllParse(t *testing.T) {
	if len(lifecycle.Statuses) != 7 {
		t.Fatalf("len(Statuses) = %d, want 7", len(lifecycle.Statuses))
	}
	for _, s := range lifecycle.Statuses {
		if _, err := lifecycle.ParseStatus(string(s)); err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
	}
}

// ── IsTerminal / IsHired ───────────────────────────────────────────────────

func TestIsTerminal(t *testing.T) {
	for _, s := range lifecycle.Statuses {
		want := s == lifecycle.StatusHired || s == lifecycle.StatusRejected
		if got := lifecycle.IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
		if got := lifecycle.IsHired(s); got != (s == lifecycle.StatusHired) {
			t.Errorf("IsHired(%s) = %v", s, got)
		}
	}
}

// ── IsTransitionAllowed: the graph is permissive ──────────────────────────

func TestIsTransitionAllowed_EveryValidPair(t *testing.T) {
	for _, from := range lifecycle.Statuses {
		for _, to := range lifecycle.Statuses {
			if !lifecycle.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be true", from, to)
			}
		}
	}
}

func TestIsTransitionAllowed_OutOfTerminal(t *testing.T) {
	cases := []struct {
		from lifecycle.Status
		to   lifecycle.Status
	}{
		{lifecycle.StatusHired, lifecycle.StatusApplied},
		{lifecycle.StatusRejected, lifecycle.StatusShortlisted},
		{lifecycle.StatusHired, lifecycle.StatusRejected},
	}
	for _, c := range cases {
		if !lifecycle.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true (terminal states are not locked)", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_UnknownStatus(t *testing.T) {
	if lifecycle.IsTransitionAllowed("bogus", lifecycle.StatusHired) {
		t.Error("IsTransitionAllowed(bogus → hired) should be false")
	}
	if lifecycle.IsTransitionAllowed(lifecycle.StatusApplied, "bogus") {
		t.Error("IsTransitionAllowed(applied → bogus) should be false")
	}
}

// ── Internship status / interview type ────────────────────────────────────

func TestParseInternshipStatus(t *testing.T) {
	for _, s := range []string{"active", "completed", "terminated"} {
		if _, err := lifecycle.ParseInternshipStatus(s); err != nil {
			t.Errorf("ParseInternshipStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := lifecycle.ParseInternshipStatus("paused"); err == nil {
		t.Error("ParseInternshipStatus(\"paused\") expected error")
	}
}

func TestInterviewType_RequiresLink(t *testing.T) {
	cases := map[lifecycle.InterviewType]bool{
		lifecycle.InterviewVideo:    true,
		lifecycle.InterviewOnline:   true,
		lifecycle.InterviewPhone:    false,
		lifecycle.InterviewInPerson: false,
	}
	for typ, want := range cases {
		if got := typ.RequiresLink(); got != want {
			t.Errorf("%s.RequiresLink() = %v, want %v", typ, got, want)
		}
	}
}
