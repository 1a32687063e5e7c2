package lifecycle

import (
	"context"
	"time"
)

// Store is the persistence boundary of the lifecycle service. Implementations
// return *apperr.Error values: NOT_FOUND for missing rows, CONFLICT for
// uniqueness violations and STORAGE for everything else.
type Store interface {
	// InTx runs fn in one transaction. fn's error rolls the transaction back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetJob(ctx context.Context, jobID string) (*Job, error)
	GetApplication(ctx context.Context, appID string) (*Application, error)
	ListApplications(ctx context.Context, f ApplicationFilter) ([]Application, int, error)
	GetInternship(ctx context.Context, internshipID string) (*Internship, error)
	ListInternships(ctx context.Context, employerID string, status InternshipStatus) ([]Internship, error)
	ListBadges(ctx context.Context, jobSeekerID string) ([]Badge, error)

	// ListOrphanedHires returns hired internship-type applications with no
	// internship row. An empty employerID spans every employer.
	ListOrphanedHires(ctx context.Context, employerID string) ([]Application, error)
}

// Tx is the write side. Lock methods hold a row lock until the transaction
// ends so precondition checks and writes are one atomic step. The
// ...For... lookups return nil, nil when no row exists.
type Tx interface {
	InsertApplication(ctx context.Context, app Application) (*Application, error)
	LockApplication(ctx context.Context, appID string) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, appID string, status Status, respondedAt time.Time) (*Application, error)
	UpdateInterview(ctx context.Context, appID string, iv Interview) (*Application, error)

	InternshipForApplication(ctx context.Context, appID string) (*Internship, error)
	InsertInternship(ctx context.Context, in Internship) (*Internship, error)
	LockInternship(ctx context.Context, internshipID string) (*Internship, error)
	UpdateInternship(ctx context.Context, in Internship) (*Internship, error)

	BadgeForInternship(ctx context.Context, internshipID string) (*Badge, error)
	InsertBadge(ctx context.Context, b Badge) (*Badge, error)

	GetJob(ctx context.Context, jobID string) (*Job, error)
}
