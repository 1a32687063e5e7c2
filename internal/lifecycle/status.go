// Package lifecycle owns the job-application status machine and the
// internship and badge records derived from hiring an intern.
//
// Application status graph:
//
//	applied ──► viewed ──► shortlisted ──► interviewed ──► offered ──► hired
//	   │           │             │              │             │
//	   └───────────┴─────────────┴──────────────┴─────────────┴──► rejected
//
// The graph documents the usual order only. Employers may move an
// application between any two statuses, including out of hired and rejected.
package lifecycle

import "fmt"

// Status values mirror the job_applications.status column.
type Status string

const (
	StatusApplied     Status = "applied"
	StatusViewed      Status = "viewed"
	StatusShortlisted Status = "shortlisted"
	StatusInterviewed Status = "interviewed"
	StatusOffered     Status = "offered"
	StatusHired       Status = "hired"
	StatusRejected    Status = "rejected"
)

// Statuses lists every valid status in pipeline order.
var Statuses = []Status{
	StatusApplied,
	StatusViewed,
	StatusShortlisted,
	StatusInterviewed,
	StatusOffered,
	StatusHired,
	StatusRejected,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values. Matching is exact: no case folding or trimming.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusViewed, StatusShortlisted, StatusInterviewed,
		StatusOffered, StatusHired, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTerminal returns true for hired and rejected.
func IsTerminal(s Status) bool {
	return s == StatusHired || s == StatusRejected
}

// IsTransitionAllowed returns true when from → to may be persisted. Every
// pair of valid statuses is allowed, self-transitions included.
func IsTransitionAllowed(from, to Status) bool {
	if _, err := ParseStatus(string(from)); err != nil {
		return false
	}
	_, err := ParseStatus(string(to))
	return err == nil
}

// IsHired returns true when status is hired.
func IsHired(s Status) bool { return s == StatusHired }

// JobType mirrors jobs.job_type. Only internships produce Internship rows.
type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

// InternshipStatus values mirror internships.status.
type InternshipStatus string

const (
	InternshipActive     InternshipStatus = "active"
	InternshipCompleted  InternshipStatus = "completed"
	InternshipTerminated InternshipStatus = "terminated"
)

// ParseInternshipStatus converts a raw string to an InternshipStatus.
func ParseInternshipStatus(s string) (InternshipStatus, error) {
	st := InternshipStatus(s)
	switch st {
	case InternshipActive, InternshipCompleted, InternshipTerminated:
		return st, nil
	}
	return "", fmt.Errorf("unknown internship status %q", s)
}
