// Package memory is an in-process lifecycle.Store. Transactions are
// serialised by one mutex and applied copy-on-commit, so a failed
// transaction leaves no partial writes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobboard/lifecycle-service/internal/apperr"
	"jobboard/lifecycle-service/internal/lifecycle"
)

type state struct {
	jobs         map[string]lifecycle.Job
	applications map[string]lifecycle.Application
	internships  map[string]lifecycle.Internship
	badges       map[string]lifecycle.Badge
}

func (s *state) clone() *state {
	c := &state{
		jobs:         make(map[string]lifecycle.Job, len(s.jobs)),
		applications: make(map[string]lifecycle.Application, len(s.applications)),
		internships:  make(map[string]lifecycle.Internship, len(s.internships)),
		badges:       make(map[string]lifecycle.Badge, len(s.badges)),
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.internships {
		c.internships[k] = v
	}
	for k, v := range s.badges {
		c.badges[k] = v
	}
	return c
}

// Store keeps every entity in maps.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		jobs:         make(map[string]lifecycle.Job),
		applications: make(map[string]lifecycle.Application),
		internships:  make(map[string]lifecycle.Internship),
		badges:       make(map[string]lifecycle.Badge),
	}}
}

// AddJob seeds a job posting. Job management lives outside the lifecycle.
func (s *Store) AddJob(job lifecycle.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.jobs[job.ID] = job
}

// PutApplication stores app as-is, bypassing the service. Used to build
// fixtures such as hires set directly through a status transition.
func (s *Store) PutApplication(app lifecycle.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.applications[app.ID] = app
}

// PutInternship stores in as-is.
func (s *Store) PutInternship(in lifecycle.Internship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.internships[in.ID] = in
}

// CountInternships returns how many internships reference appID.
func (s *Store) CountInternships(appID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, in := range s.st.internships {
		if in.ApplicationID == appID {
			n++
		}
	}
	return n
}

// CountBadges returns how many badges reference internshipID.
func (s *Store) CountBadges(internshipID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.st.badges {
		if b.InternshipID == internshipID {
			n++
		}
	}
	return n
}

// ─── lifecycle.Store ─────────────────────────────────────────────────────────

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*lifecycle.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{st: s.st}).GetJob(ctx, jobID)
}

func (s *Store) GetApplication(ctx context.Context, appID string) (*lifecycle.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{st: s.st}).LockApplication(ctx, appID)
}

func (s *Store) ListApplications(ctx context.Context, f lifecycle.ApplicationFilter) ([]lifecycle.Application, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []lifecycle.Application
	for _, a := range s.st.applications {
		if a.EmployerID != f.EmployerID {
			continue
		}
		if f.JobID != "" && a.JobID != f.JobID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].AppliedAt.Equal(all[j].AppliedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].AppliedAt.After(all[j].AppliedAt)
	})

	total := len(all)
	lo := f.Offset()
	if lo > total {
		lo = total
	}
	hi := lo + f.PerPage
	if hi > total {
		hi = total
	}
	return all[lo:hi], total, nil
}

func (s *Store) GetInternship(ctx context.Context, internshipID string) (*lifecycle.Internship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{st: s.st}).LockInternship(ctx, internshipID)
}

func (s *Store) ListInternships(ctx context.Context, employerID string, status lifecycle.InternshipStatus) ([]lifecycle.Internship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []lifecycle.Internship
	for _, in := range s.st.internships {
		if in.EmployerID != employerID {
			continue
		}
		if status != "" && in.Status != status {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (s *Store) ListBadges(ctx context.Context, jobSeekerID string) ([]lifecycle.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []lifecycle.Badge
	for _, b := range s.st.badges {
		if b.JobSeekerID == jobSeekerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListOrphanedHires(ctx context.Context, employerID string) ([]lifecycle.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	linked := make(map[string]bool, len(s.st.internships))
	for _, in := range s.st.internships {
		linked[in.ApplicationID] = true
	}

	var out []lifecycle.Application
	for _, a := range s.st.applications {
		if employerID != "" && a.EmployerID != employerID {
			continue
		}
		if a.JobType == lifecycle.JobTypeInternship && lifecycle.IsHired(a.Status) && !linked[a.ID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── lifecycle.Tx ────────────────────────────────────────────────────────────

type tx struct {
	st *state
}

func (t *tx) GetJob(_ context.Context, jobID string) (*lifecycle.Job, error) {
	job, ok := t.st.jobs[jobID]
	if !ok {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	return &job, nil
}

func (t *tx) InsertApplication(_ context.Context, app lifecycle.Application) (*lifecycle.Application, error) {
	for _, a := range t.st.applications {
		if a.JobID == app.JobID && a.JobSeekerID == app.JobSeekerID {
			return nil, apperr.Conflict("job seeker already applied to job %s", app.JobID)
		}
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	t.st.applications[app.ID] = app
	return &app, nil
}

func (t *tx) LockApplication(_ context.Context, appID string) (*lifecycle.Application, error) {
	app, ok := t.st.applications[appID]
	if !ok {
		return nil, apperr.NotFound("application %s not found", appID)
	}
	return &app, nil
}

func (t *tx) UpdateApplicationStatus(ctx context.Context, appID string, status lifecycle.Status, respondedAt time.Time) (*lifecycle.Application, error) {
	app, err := t.LockApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	app.Status = status
	app.RespondedAt = &respondedAt
	t.st.applications[appID] = *app
	return app, nil
}

func (t *tx) UpdateInterview(ctx context.Context, appID string, iv lifecycle.Interview) (*lifecycle.Application, error) {
	app, err := t.LockApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	app.Interview = &iv
	t.st.applications[appID] = *app
	return app, nil
}

func (t *tx) InternshipForApplication(_ context.Context, appID string) (*lifecycle.Internship, error) {
	for _, in := range t.st.internships {
		if in.ApplicationID == appID {
			return &in, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertInternship(ctx context.Context, in lifecycle.Internship) (*lifecycle.Internship, error) {
	if existing, _ := t.InternshipForApplication(ctx, in.ApplicationID); existing != nil {
		return nil, apperr.Conflict("application %s already has an internship", in.ApplicationID)
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	t.st.internships[in.ID] = in
	return &in, nil
}

func (t *tx) LockInternship(_ context.Context, internshipID string) (*lifecycle.Internship, error) {
	in, ok := t.st.internships[internshipID]
	if !ok {
		return nil, apperr.NotFound("internship %s not found", internshipID)
	}
	return &in, nil
}

func (t *tx) UpdateInternship(_ context.Context, in lifecycle.Internship) (*lifecycle.Internship, error) {
	if _, ok := t.st.internships[in.ID]; !ok {
		return nil, apperr.NotFound("internship %s not found", in.ID)
	}
	t.st.internships[in.ID] = in
	return &in, nil
}

func (t *tx) BadgeForInternship(_ context.Context, internshipID string) (*lifecycle.Badge, error) {
	for _, b := range t.st.badges {
		if b.InternshipID == internshipID {
			return &b, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertBadge(ctx context.Context, b lifecycle.Badge) (*lifecycle.Badge, error) {
	if existing, _ := t.BadgeForInternship(ctx, b.InternshipID); existing != nil {
		return nil, apperr.Conflict("internship %s already has a badge", b.InternshipID)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	t.st.badges[b.ID] = b
	return &b, nil
}
