package lifecycle

import (
	"context"
	"time"
)

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventStatusChanged        EventKind = "status_changed"
	EventInterviewScheduled   EventKind = "interview_scheduled"
	EventInternConfirmed      EventKind = "intern_confirmed"
	EventInternshipCompleted  EventKind = "internship_completed"
	EventBadgeAwarded         EventKind = "badge_awarded"
	EventInternshipTerminated EventKind = "internship_terminated"
	EventOrphanedHires        EventKind = "orphaned_hires"
)

// Event is what the service hands to its Notifier after a successful write.
type Event struct {
	Kind           EventKind  `json:"type"`
	EmployerID     string     `json:"employerId"`
	JobSeekerID    string     `json:"jobSeekerId,omitempty"`
	ApplicationID  string     `json:"applicationId,omitempty"`
	InternshipID   string     `json:"internshipId,omitempty"`
	BadgeID        string     `json:"badgeId,omitempty"`
	From           string     `json:"from,omitempty"`
	To             string     `json:"to,omitempty"`
	Interview      *Interview `json:"interview,omitempty"`
	ApplicationIDs []string   `json:"applicationIds,omitempty"`
	At             time.Time  `json:"at"`
}

// Notifier delivers events to job seekers and downstream consumers. Delivery
// is best-effort: the service logs a failed Notify and keeps the committed
// state.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
