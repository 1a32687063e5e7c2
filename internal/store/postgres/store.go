// Package postgres implements lifecycle.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobboard/lifecycle-service/internal/apperr"
	"jobboard/lifecycle-service/internal/lifecycle"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the pgx-backed lifecycle.Store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store using pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside a READ COMMITTED transaction. Row locks taken by the
// Lock methods serialise concurrent writers on the same application or
// internship; the UNIQUE constraints catch anything that slips past.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &txStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr("commit transaction", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*lifecycle.Job, error) {
	return getJob(ctx, s.pool, jobID)
}

func (s *Store) GetApplication(ctx context.Context, appID string) (*lifecycle.Application, error) {
	return getApplication(ctx, s.pool, appID, false)
}

func (s *Store) ListApplications(ctx context.Context, f lifecycle.ApplicationFilter) ([]lifecycle.Application, int, error) {
	where := []string{"j.employer_id = $1"}
	args := []any{f.EmployerID}
	if f.JobID != "" {
		args = append(args, f.JobID)
		where = append(where, fmt.Sprintf("a.job_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_applications a JOIN jobs j ON j.id = a.job_id WHERE `+cond,
		args...,
	).Scan(&total); err != nil {
		return nil, 0, mapErr("count applications", err)
	}

	args = append(args, f.PerPage, f.Offset())
	rows, err := s.pool.Query(ctx,
		applicationSelect+` WHERE `+cond+
			fmt.Sprintf(` ORDER BY a.applied_at DESC, a.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, mapErr("list applications", err)
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (s *Store) GetInternship(ctx context.Context, internshipID string) (*lifecycle.Internship, error) {
	return getInternship(ctx, s.pool, `WHERE id = $1`, internshipID)
}

func (s *Store) ListInternships(ctx context.Context, employerID string, status lifecycle.InternshipStatus) ([]lifecycle.Internship, error) {
	rows, err := s.pool.Query(ctx,
		internshipSelect+` WHERE employer_id = $1 AND ($2 = '' OR status = $2) ORDER BY start_date DESC, id`,
		employerID, string(status),
	)
	if err != nil {
		return nil, mapErr("list internships", err)
	}
	defer rows.Close()

	items := make([]lifecycle.Internship, 0)
	for rows.Next() {
		in, err := scanInternship(rows)
		if err != nil {
			return nil, mapErr("scan internship", err)
		}
		items = append(items, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list internships", err)
	}
	return items, nil
}

func (s *Store) ListBadges(ctx context.Context, jobSeekerID string) ([]lifecycle.Badge, error) {
	rows, err := s.pool.Query(ctx,
		badgeSelect+` WHERE job_seeker_id = $1 ORDER BY created_at DESC, id`,
		jobSeekerID,
	)
	if err != nil {
		return nil, mapErr("list badges", err)
	}
	defer rows.Close()

	items := make([]lifecycle.Badge, 0)
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, mapErr("scan badge", err)
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list badges", err)
	}
	return items, nil
}

func (s *Store) ListOrphanedHires(ctx context.Context, employerID string) ([]lifecycle.Application, error) {
	rows, err := s.pool.Query(ctx,
		applicationSelect+`
		 WHERE j.job_type = 'internship'
		   AND a.status   = 'hired'
		   AND ($1 = '' OR j.employer_id = $1)
		   AND NOT EXISTS (SELECT 1 FROM internships i WHERE i.application_id = a.id)
		 ORDER BY j.employer_id, a.responded_at DESC NULLS LAST, a.id`,
		employerID,
	)
	if err != nil {
		return nil, mapErr("list orphaned hires", err)
	}
	return collectApplications(rows)
}

// ─── Transaction ─────────────────────────────────────────────────────────────

type txStore struct {
	q querier
}

func (t *txStore) GetJob(ctx context.Context, jobID string) (*lifecycle.Job, error) {
	return getJob(ctx, t.q, jobID)
}

func (t *txStore) InsertApplication(ctx context.Context, app lifecycle.Application) (*lifecycle.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO job_applications
		   (id, job_id, job_seeker_id, status, applied_at,
		    applicant_name, applicant_email, applicant_phone, applicant_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		app.ID, app.JobID, app.JobSeekerID, string(app.Status), app.AppliedAt,
		app.Applicant.Name, app.Applicant.Email, app.Applicant.Phone, app.Applicant.Message,
	)
	if err != nil {
		return nil, mapErr("insert application", err)
	}
	return getApplication(ctx, t.q, app.ID, false)
}

func (t *txStore) LockApplication(ctx context.Context, appID string) (*lifecycle.Application, error) {
	return getApplication(ctx, t.q, appID, true)
}

func (t *txStore) UpdateApplicationStatus(ctx context.Context, appID string, status lifecycle.Status, respondedAt time.Time) (*lifecycle.Application, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE job_applications SET status = $1, responded_at = $2 WHERE id = $3`,
		string(status), respondedAt, appID,
	)
	if err != nil {
		return nil, mapErr("update application status", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("application %s not found", appID)
	}
	return getApplication(ctx, t.q, appID, false)
}

func (t *txStore) UpdateInterview(ctx context.Context, appID string, iv lifecycle.Interview) (*lifecycle.Application, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE job_applications
		 SET interview_date = $1, interview_type = $2, interview_link = NULLIF($3, ''), interview_notes = NULLIF($4, '')
		 WHERE id = $5`,
		iv.Date, string(iv.Type), iv.Link, iv.Notes, appID,
	)
	if err != nil {
		return nil, mapErr("update interview", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("application %s not found", appID)
	}
	return getApplication(ctx, t.q, appID, false)
}

func (t *txStore) InternshipForApplication(ctx context.Context, appID string) (*lifecycle.Internship, error) {
	in, err := getInternship(ctx, t.q, `WHERE application_id = $1`, appID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return in, err
}

func (t *txStore) InsertInternship(ctx context.Context, in lifecycle.Internship) (*lifecycle.Internship, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO internships
		   (id, application_id, job_id, job_seeker_id, employer_id,
		    start_date, end_date, duration_months, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		in.ID, in.ApplicationID, in.JobID, in.JobSeekerID, in.EmployerID,
		in.StartDate, in.EndDate, in.DurationMonths, string(in.Status), in.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("insert internship", err)
	}
	return getInternship(ctx, t.q, `WHERE id = $1`, in.ID)
}

func (t *txStore) LockInternship(ctx context.Context, internshipID string) (*lifecycle.Internship, error) {
	return getInternship(ctx, t.q, `WHERE id = $1 FOR UPDATE`, internshipID)
}

func (t *txStore) UpdateInternship(ctx context.Context, in lifecycle.Internship) (*lifecycle.Internship, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE internships
		 SET status = $1, completion_confirmed = $2, completion_confirmed_at = $3,
		     employer_feedback = $4, performance_rating = $5,
		     badge_awarded = $6, badge_awarded_at = $7
		 WHERE id = $8`,
		string(in.Status), in.CompletionConfirmed, in.CompletionConfirmedAt,
		in.EmployerFeedback, in.PerformanceRating,
		in.BadgeAwarded, in.BadgeAwardedAt, in.ID,
	)
	if err != nil {
		return nil, mapErr("update internship", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("internship %s not found", in.ID)
	}
	return getInternship(ctx, t.q, `WHERE id = $1`, in.ID)
}

func (t *txStore) BadgeForInternship(ctx context.Context, internshipID string) (*lifecycle.Badge, error) {
	b, err := scanBadge(t.q.QueryRow(ctx, badgeSelect+` WHERE internship_id = $1`, internshipID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("load badge", err)
	}
	return b, nil
}

func (t *txStore) InsertBadge(ctx context.Context, b lifecycle.Badge) (*lifecycle.Badge, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO internship_badges
		   (id, internship_id, job_seeker_id, company_name, job_title,
		    start_date, end_date, duration_months, performance_rating, employer_feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.InternshipID, b.JobSeekerID, b.CompanyName, b.JobTitle,
		b.StartDate, b.EndDate, b.DurationMonths, b.PerformanceRating, b.EmployerFeedback, b.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("insert badge", err)
	}
	return &b, nil
}

// ─── Queries ─────────────────────────────────────────────────────────────────

const applicationSelect = `
	SELECT a.id, a.job_id, a.job_seeker_id, j.employer_id, j.title, j.job_type,
	       a.status, a.applied_at, a.responded_at,
	       a.applicant_name, a.applicant_email, a.applicant_phone, a.applicant_message,
	       a.interview_date, a.interview_type, a.interview_link, a.interview_notes
	FROM job_applications a
	JOIN jobs j ON j.id = a.job_id`

const internshipSelect = `
	SELECT id, application_id, job_id, job_seeker_id, employer_id,
	       start_date, end_date, duration_months, status,
	       completion_confirmed, completion_confirmed_at, employer_feedback,
	       performance_rating, badge_awarded, badge_awarded_at, created_at
	FROM internships`

const badgeSelect = `
	SELECT id, internship_id, job_seeker_id, company_name, job_title,
	       start_date, end_date, duration_months, performance_rating,
	       employer_feedback, created_at
	FROM internship_badges`

func getJob(ctx context.Context, q querier, jobID string) (*lifecycle.Job, error) {
	var (
		job     lifecycle.Job
		jobType string
	)
	err := q.QueryRow(ctx,
		`SELECT j.id, j.employer_id, j.title, j.job_type, e.company_name
		 FROM jobs j JOIN employers e ON e.id = j.employer_id
		 WHERE j.id = $1`,
		jobID,
	).Scan(&job.ID, &job.EmployerID, &job.Title, &jobType, &job.CompanyName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if err != nil {
		return nil, mapErr("load job", err)
	}
	job.Type = lifecycle.JobType(jobType)
	return &job, nil
}

func getApplication(ctx context.Context, q querier, appID string, lock bool) (*lifecycle.Application, error) {
	query := applicationSelect + ` WHERE a.id = $1`
	if lock {
		query += ` FOR UPDATE OF a`
	}
	app, err := scanApplication(q.QueryRow(ctx, query, appID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("application %s not found", appID)
	}
	if err != nil {
		return nil, mapErr("load application", err)
	}
	return app, nil
}

func getInternship(ctx context.Context, q querier, where, arg string) (*lifecycle.Internship, error) {
	in, err := scanInternship(q.QueryRow(ctx, internshipSelect+` `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("internship %s not found", arg)
	}
	if err != nil {
		return nil, mapErr("load internship", err)
	}
	return in, nil
}

func collectApplications(rows pgx.Rows) ([]lifecycle.Application, error) {
	defer rows.Close()
	apps := make([]lifecycle.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, mapErr("scan application", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("read applications", err)
	}
	return apps, nil
}

func scanApplication(row pgx.Row) (*lifecycle.Application, error) {
	var (
		app                    lifecycle.Application
		jobType, status        string
		ivDate                 *time.Time
		ivType, ivLink, ivNote *string
	)
	if err := row.Scan(
		&app.ID, &app.JobID, &app.JobSeekerID, &app.EmployerID, &app.JobTitle, &jobType,
		&status, &app.AppliedAt, &app.RespondedAt,
		&app.Applicant.Name, &app.Applicant.Email, &app.Applicant.Phone, &app.Applicant.Message,
		&ivDate, &ivType, &ivLink, &ivNote,
	); err != nil {
		return nil, err
	}
	app.JobType = lifecycle.JobType(jobType)
	app.Status = lifecycle.Status(status)
	if ivDate != nil && ivType != nil {
		app.Interview = &lifecycle.Interview{
			Date:  *ivDate,
			Type:  lifecycle.InterviewType(*ivType),
			Link:  deref(ivLink),
			Notes: deref(ivNote),
		}
	}
	return &app, nil
}

func scanInternship(row pgx.Row) (*lifecycle.Internship, error) {
	var (
		in     lifecycle.Internship
		status string
	)
	if err := row.Scan(
		&in.ID, &in.ApplicationID, &in.JobID, &in.JobSeekerID, &in.EmployerID,
		&in.StartDate, &in.EndDate, &in.DurationMonths, &status,
		&in.CompletionConfirmed, &in.CompletionConfirmedAt, &in.EmployerFeedback,
		&in.PerformanceRating, &in.BadgeAwarded, &in.BadgeAwardedAt, &in.CreatedAt,
	); err != nil {
		return nil, err
	}
	in.Status = lifecycle.InternshipStatus(status)
	return &in, nil
}

func scanBadge(row pgx.Row) (*lifecycle.Badge, error) {
	var b lifecycle.Badge
	if err := row.Scan(
		&b.ID, &b.InternshipID, &b.JobSeekerID, &b.CompanyName, &b.JobTitle,
		&b.StartDate, &b.EndDate, &b.DurationMonths, &b.PerformanceRating,
		&b.EmployerFeedback, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mapErr classifies a pgx error. Unique violations become CONFLICT so a
// racing duplicate insert reports the same kind as the pre-check.
func mapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict("%s: duplicate %s", op, pgErr.ConstraintName)
	}
	return apperr.Storage(op, err)
}
