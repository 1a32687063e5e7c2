package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migration is one forward schema step.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// Migrations are applied in order. Employers and jobs are owned by the job
// board; only the columns the lifecycle reads are declared here.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "employers and jobs",
		Up: `
			CREATE TABLE IF NOT EXISTS employers (
				id           TEXT PRIMARY KEY,
				company_name TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS jobs (
				id          TEXT PRIMARY KEY,
				employer_id TEXT NOT NULL REFERENCES employers(id),
				title       TEXT NOT NULL,
				job_type    TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS jobs_employer_idx ON jobs (employer_id);`,
	},
	{
		Version:     2,
		Description: "job applications",
		Up: `
			CREATE TABLE IF NOT EXISTS job_applications (
				id                TEXT PRIMARY KEY,
				job_id            TEXT NOT NULL REFERENCES jobs(id),
				job_seeker_id     TEXT NOT NULL,
				status            TEXT NOT NULL DEFAULT 'applied'
				                  CHECK (status IN ('applied','viewed','shortlisted','interviewed','offered','hired','rejected')),
				applied_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				responded_at      TIMESTAMPTZ,
				applicant_name    TEXT NOT NULL DEFAULT '',
				applicant_email   TEXT NOT NULL DEFAULT '',
				applicant_phone   TEXT NOT NULL DEFAULT '',
				applicant_message TEXT NOT NULL DEFAULT '',
				interview_date    TIMESTAMPTZ,
				interview_type    TEXT CHECK (interview_type IN ('video','online','phone','in_person')),
				interview_link    TEXT,
				interview_notes   TEXT,
				UNIQUE (job_id, job_seeker_id)
			);
			CREATE INDEX IF NOT EXISTS job_applications_status_idx ON job_applications (status);`,
	},
	{
		Version:     3,
		Description: "internships and badges",
		Up: `
			CREATE TABLE IF NOT EXISTS internships (
				id                      TEXT PRIMARY KEY,
				application_id          TEXT NOT NULL UNIQUE REFERENCES job_applications(id),
				job_id                  TEXT NOT NULL REFERENCES jobs(id),
				job_seeker_id           TEXT NOT NULL,
				employer_id             TEXT NOT NULL,
				start_date              DATE NOT NULL,
				end_date                DATE NOT NULL,
				duration_months         INTEGER NOT NULL CHECK (duration_months > 0),
				status                  TEXT NOT NULL DEFAULT 'active'
				                        CHECK (status IN ('active','completed','terminated')),
				completion_confirmed    BOOLEAN NOT NULL DEFAULT FALSE,
				completion_confirmed_at TIMESTAMPTZ,
				employer_feedback       TEXT NOT NULL DEFAULT '',
				performance_rating      SMALLINT CHECK (performance_rating BETWEEN 1 AND 5),
				badge_awarded           BOOLEAN NOT NULL DEFAULT FALSE,
				badge_awarded_at        TIMESTAMPTZ,
				created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS internships_employer_idx ON internships (employer_id);
			CREATE TABLE IF NOT EXISTS internship_badges (
				id                 TEXT PRIMARY KEY,
				internship_id      TEXT NOT NULL UNIQUE REFERENCES internships(id),
				job_seeker_id      TEXT NOT NULL,
				company_name       TEXT NOT NULL,
				job_title          TEXT NOT NULL,
				start_date         DATE NOT NULL,
				end_date           DATE NOT NULL,
				duration_months    INTEGER NOT NULL,
				performance_rating SMALLINT NOT NULL CHECK (performance_rating BETWEEN 1 AND 5),
				employer_feedback  TEXT NOT NULL DEFAULT '',
				created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS internship_badges_seeker_idx ON internship_badges (job_seeker_id);`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Each step runs in its own transaction together with its version row.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
				m.Version, m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		logger.Info("applied migration", zap.Int("version", m.Version), zap.String("description", m.Description))
	}
	return nil
}
