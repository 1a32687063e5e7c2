package lifecycle

import (
	"context"
	"math"
	"net/mail"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"jobboard/lifecycle-service/internal/apperr"
	"jobboard/lifecycle-service/internal/telemetry"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Service is the Application Lifecycle Manager. It is transport-agnostic:
// the REST handler and the gRPC server both delegate to it.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracer overrides the default tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService returns a configured Service. A nil notifier discards events.
func NewService(store Store, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		tracer:   telemetry.GetTracer("jobboard/lifecycle-service/lifecycle"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─── Application status ──────────────────────────────────────────────────────

// TransitionStatus moves an application to newStatus and refreshes
// respondedAt, even when the status does not change.
func (s *Service) TransitionStatus(ctx context.Context, employerID, appID, newStatus string) (app *Application, err error) {
	ctx, span := s.start(ctx, "TransitionStatus", "application.id", appID)
	defer func() { finish(span, err) }()

	to, perr := ParseStatus(newStatus)
	if perr != nil {
		return nil, apperr.Validation("%s", perr.Error())
	}

	var from Status
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockApplication(ctx, appID)
		if err != nil {
			return err
		}
		if cur.EmployerID != employerID {
			return apperr.Unauthorized("application %s belongs to another employer", appID)
		}
		if !IsTransitionAllowed(cur.Status, to) {
			return apperr.Validation("transition %s → %s is not allowed", cur.Status, to)
		}
		from = cur.Status
		app, err = tx.UpdateApplicationStatus(ctx, appID, to, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	if IsTerminal(from) && from != to {
		s.logger.Info("application reopened from terminal status",
			zap.String("applicationId", appID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}

	s.publish(ctx, Event{
		Kind:          EventStatusChanged,
		EmployerID:    employerID,
		JobSeekerID:   app.JobSeekerID,
		ApplicationID: app.ID,
		From:          string(from),
		To:            string(to),
	})
	return app, nil
}

// ─── Interviews ──────────────────────────────────────────────────────────────

// InterviewRequest carries the raw scheduling input from a transport.
type InterviewRequest struct {
	Date  time.Time
	Type  string
	Link  string
	Notes string
}

// ScheduleInterview stores interview metadata on an application. It does not
// change the application's status.
func (s *Service) ScheduleInterview(ctx context.Context, employerID, appID string, req InterviewRequest) (app *Application, err error) {
	ctx, span := s.start(ctx, "ScheduleInterview", "application.id", appID)
	defer func() { finish(span, err) }()

	iv, err := s.validateInterview(req)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockApplication(ctx, appID)
		if err != nil {
			return err
		}
		if cur.EmployerID != employerID {
			return apperr.Unauthorized("application %s belongs to another employer", appID)
		}
		app, err = tx.UpdateInterview(ctx, appID, iv)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Kind:          EventInterviewScheduled,
		EmployerID:    employerID,
		JobSeekerID:   app.JobSeekerID,
		ApplicationID: app.ID,
		Interview:     &iv,
	})
	return app, nil
}

func (s *Service) validateInterview(req InterviewRequest) (Interview, error) {
	typ, err := ParseInterviewType(req.Type)
	if err != nil {
		return Interview{}, apperr.Validation("%s", err.Error())
	}
	if req.Date.IsZero() {
		return Interview{}, apperr.Validation("interview date is required")
	}
	if req.Date.Before(s.now()) {
		return Interview{}, apperr.Validation("interview date must not be in the past")
	}

	iv := Interview{Date: req.Date.UTC(), Type: typ, Notes: cleanText(req.Notes)}
	if typ.RequiresLink() {
		if req.Link == "" {
			return Interview{}, apperr.Validation("interview link is required for %s interviews", typ)
		}
		if err := validateMeetingLink(req.Link); err != nil {
			return Interview{}, apperr.Validation("%s", err.Error())
		}
		iv.Link = req.Link
	}
	return iv, nil
}

// ─── Internships ─────────────────────────────────────────────────────────────

// InternConfirmation is the result of ConfirmIntern: the new internship and
// the application forced to hired.
type InternConfirmation struct {
	Internship  *Internship  `json:"internship"`
	Application *Application `json:"application"`
}

// ConfirmIntern converts an internship-type application into an active
// Internship and sets the application to hired, in one transaction.
// Applications to jobs of any other type are rejected as VALIDATION before
// anything is written.
func (s *Service) ConfirmIntern(ctx context.Context, employerID, appID string, startDate time.Time, durationMonths int) (res *InternConfirmation, err error) {
	ctx, span := s.start(ctx, "ConfirmIntern", "application.id", appID)
	defer func() { finish(span, err) }()
	span.SetAttributes(telemetry.Int("internship.duration_months", durationMonths))

	if startDate.IsZero() {
		return nil, apperr.Validation("start date is required")
	}
	if durationMonths < 1 {
		return nil, apperr.Validation("duration must be a positive number of months")
	}
	start := DateOnly(startDate)

	var from Status
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		app, err := tx.LockApplication(ctx, appID)
		if err != nil {
			return err
		}
		if app.EmployerID != employerID {
			return apperr.Unauthorized("application %s belongs to another employer", appID)
		}
		if app.JobType != JobTypeInternship {
			return apperr.Validation("job %s is not an internship", app.JobID)
		}
		existing, err := tx.InternshipForApplication(ctx, appID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("application %s already has internship %s", appID, existing.ID)
		}

		now := s.now().UTC()
		in, err := tx.InsertInternship(ctx, Internship{
			ApplicationID:  app.ID,
			JobID:          app.JobID,
			JobSeekerID:    app.JobSeekerID,
			EmployerID:     app.EmployerID,
			StartDate:      start,
			EndDate:        AddCalendarMonths(start, durationMonths),
			DurationMonths: durationMonths,
			Status:         InternshipActive,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		hired, err := tx.UpdateApplicationStatus(ctx, appID, StatusHired, now)
		if err != nil {
			return err
		}
		from = app.Status
		res = &InternConfirmation{Internship: in, Application: hired}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Kind:          EventInternConfirmed,
		EmployerID:    employerID,
		JobSeekerID:   res.Internship.JobSeekerID,
		ApplicationID: appID,
		InternshipID:  res.Internship.ID,
		From:          string(from),
		To:            string(StatusHired),
	})
	return res, nil
}

// MarkCompleted records completion without rating, feedback or badge.
func (s *Service) MarkCompleted(ctx context.Context, employerID, internshipID string) (in *Internship, err error) {
	ctx, span := s.start(ctx, "MarkCompleted", "internship.id", internshipID)
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := s.lockOwnedInternship(ctx, tx, employerID, internshipID)
		if err != nil {
			return err
		}
		if cur.Status != InternshipActive {
			return apperr.Conflict("internship %s is %s, not active", internshipID, cur.Status)
		}
		now := s.now().UTC()
		cur.Status = InternshipCompleted
		cur.CompletionConfirmed = true
		cur.CompletionConfirmedAt = &now
		in, err = tx.UpdateInternship(ctx, *cur)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Kind:          EventInternshipCompleted,
		EmployerID:    employerID,
		JobSeekerID:   in.JobSeekerID,
		ApplicationID: in.ApplicationID,
		InternshipID:  in.ID,
	})
	return in, nil
}

// BadgeAward is the result of CompleteWithBadge.
type BadgeAward struct {
	Internship *Internship `json:"internship"`
	Badge      *Badge      `json:"badge"`
}

// CompleteWithBadge completes an internship with a rating and issues the
// job seeker's badge. An internship completed earlier without a badge may
// still be awarded one; a second badge is a conflict.
func (s *Service) CompleteWithBadge(ctx context.Context, employerID, internshipID string, rating int, feedback string) (res *BadgeAward, err error) {
	ctx, span := s.start(ctx, "CompleteWithBadge", "internship.id", internshipID)
	defer func() { finish(span, err) }()
	span.SetAttributes(telemetry.Int("internship.performance_rating", rating))

	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("performance rating must be between 1 and 5")
	}
	feedback = cleanText(feedback)

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := s.lockOwnedInternship(ctx, tx, employerID, internshipID)
		if err != nil {
			return err
		}
		if cur.Status == InternshipTerminated {
			return apperr.Conflict("internship %s was terminated", internshipID)
		}
		if cur.BadgeAwarded {
			return apperr.Conflict("internship %s already has a badge", internshipID)
		}
		existing, err := tx.BadgeForInternship(ctx, internshipID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("internship %s already has badge %s", internshipID, existing.ID)
		}
		job, err := tx.GetJob(ctx, cur.JobID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		cur.Status = InternshipCompleted
		cur.CompletionConfirmed = true
		if cur.CompletionConfirmedAt == nil {
			cur.CompletionConfirmedAt = &now
		}
		cur.PerformanceRating = &rating
		cur.EmployerFeedback = feedback
		cur.BadgeAwarded = true
		cur.BadgeAwardedAt = &now
		updated, err := tx.UpdateInternship(ctx, *cur)
		if err != nil {
			return err
		}

		badge, err := tx.InsertBadge(ctx, Badge{
			InternshipID:      updated.ID,
			JobSeekerID:       updated.JobSeekerID,
			CompanyName:       job.CompanyName,
			JobTitle:          job.Title,
			StartDate:         updated.StartDate,
			EndDate:           updated.EndDate,
			DurationMonths:    updated.DurationMonths,
			PerformanceRating: rating,
			EmployerFeedback:  feedback,
			CreatedAt:         now,
		})
		if err != nil {
			return err
		}
		res = &BadgeAward{Internship: updated, Badge: badge}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Kind:          EventBadgeAwarded,
		EmployerID:    employerID,
		JobSeekerID:   res.Internship.JobSeekerID,
		ApplicationID: res.Internship.ApplicationID,
		InternshipID:  res.Internship.ID,
		BadgeID:       res.Badge.ID,
	})
	return res, nil
}

// TerminateInternship ends an active internship early. The reason is kept in
// the feedback field.
func (s *Service) TerminateInternship(ctx context.Context, employerID, internshipID, reason string) (in *Internship, err error) {
	ctx, span := s.start(ctx, "TerminateInternship", "internship.id", internshipID)
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := s.lockOwnedInternship(ctx, tx, employerID, internshipID)
		if err != nil {
			return err
		}
		if cur.Status != InternshipActive {
			return apperr.Conflict("internship %s is %s, not active", internshipID, cur.Status)
		}
		cur.Status = InternshipTerminated
		cur.EmployerFeedback = cleanText(reason)
		in, err = tx.UpdateInternship(ctx, *cur)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Kind:          EventInternshipTerminated,
		EmployerID:    employerID,
		JobSeekerID:   in.JobSeekerID,
		ApplicationID: in.ApplicationID,
		InternshipID:  in.ID,
	})
	return in, nil
}

func (s *Service) lockOwnedInternship(ctx context.Context, tx Tx, employerID, internshipID string) (*Internship, error) {
	in, err := tx.LockInternship(ctx, internshipID)
	if err != nil {
		return nil, err
	}
	if in.EmployerID != employerID {
		return nil, apperr.Unauthorized("internship %s belongs to another employer", internshipID)
	}
	return in, nil
}

// ─── Reconciliation ──────────────────────────────────────────────────────────

// ListOrphanedHires reports the employer's hired internship applications that
// have no internship row. Orphans are data, not errors.
func (s *Service) ListOrphanedHires(ctx context.Context, employerID string) (apps []Application, err error) {
	ctx, span := s.start(ctx, "ListOrphanedHires", "employer.id", employerID)
	defer func() { finish(span, err) }()

	if employerID == "" {
		return nil, apperr.Unauthorized("employer identity is required")
	}
	apps, err = s.store.ListOrphanedHires(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []Application{}
	}
	return apps, nil
}

// OrphanedHireReport groups orphaned hires across all employers by employer id.
func (s *Service) OrphanedHireReport(ctx context.Context) (map[string][]Application, error) {
	apps, err := s.store.ListOrphanedHires(ctx, "")
	if err != nil {
		return nil, err
	}
	report := make(map[string][]Application)
	for _, a := range apps {
		report[a.EmployerID] = append(report[a.EmployerID], a)
	}
	return report, nil
}

// NotifyOrphanedHires sends one reminder per employer with orphaned hires
// and returns the number of orphaned applications found.
func (s *Service) NotifyOrphanedHires(ctx context.Context) (int, error) {
	report, err := s.OrphanedHireReport(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for employerID, apps := range report {
		ids := make([]string, 0, len(apps))
		for _, a := range apps {
			ids = append(ids, a.ID)
		}
		total += len(ids)
		s.publish(ctx, Event{
			Kind:           EventOrphanedHires,
			EmployerID:     employerID,
			ApplicationIDs: ids,
		})
	}
	return total, nil
}

// ─── Reads and applications ──────────────────────────────────────────────────

// SubmitApplication records a job seeker's application at applied status.
func (s *Service) SubmitApplication(ctx context.Context, jobSeekerID, jobID string, applicant Applicant) (app *Application, err error) {
	ctx, span := s.start(ctx, "SubmitApplication", "job.id", jobID)
	defer func() { finish(span, err) }()

	if jobSeekerID == "" {
		return nil, apperr.Unauthorized("job seeker identity is required")
	}
	applicant = Applicant{
		Name:    cleanText(applicant.Name),
		Email:   cleanText(applicant.Email),
		Phone:   cleanText(applicant.Phone),
		Message: cleanText(applicant.Message),
	}
	if applicant.Email != "" {
		if _, perr := mail.ParseAddress(applicant.Email); perr != nil {
			return nil, apperr.Validation("applicant email is not valid")
		}
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		app, err = tx.InsertApplication(ctx, Application{
			JobID:       job.ID,
			JobSeekerID: jobSeekerID,
			EmployerID:  job.EmployerID,
			JobTitle:    job.Title,
			JobType:     job.Type,
			Status:      StatusApplied,
			AppliedAt:   s.now().UTC(),
			Applicant:   applicant,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// GetApplication returns one application owned by employerID.
func (s *Service) GetApplication(ctx context.Context, employerID, appID string) (*Application, error) {
	app, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.EmployerID != employerID {
		return nil, apperr.Unauthorized("application %s belongs to another employer", appID)
	}
	return app, nil
}

// ListApplications returns one page of the employer's applicants, newest
// first.
func (s *Service) ListApplications(ctx context.Context, f ApplicationFilter) (*ApplicationPage, error) {
	if f.EmployerID == "" {
		return nil, apperr.Unauthorized("employer identity is required")
	}
	if f.Status != "" {
		if _, err := ParseStatus(string(f.Status)); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.Page-1 > math.MaxInt/f.PerPage {
		return nil, apperr.Validation("page is out of range")
	}

	items, total, err := s.store.ListApplications(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Application{}
	}
	return &ApplicationPage{Items: items, Total: total, Page: f.Page, PerPage: f.PerPage}, nil
}

// GetInternship returns one internship owned by employerID.
func (s *Service) GetInternship(ctx context.Context, employerID, internshipID string) (*Internship, error) {
	in, err := s.store.GetInternship(ctx, internshipID)
	if err != nil {
		return nil, err
	}
	if in.EmployerID != employerID {
		return nil, apperr.Unauthorized("internship %s belongs to another employer", internshipID)
	}
	return in, nil
}

// ListInternships returns the employer's internships, optionally filtered by
// status.
func (s *Service) ListInternships(ctx context.Context, employerID, status string) ([]Internship, error) {
	if employerID == "" {
		return nil, apperr.Unauthorized("employer identity is required")
	}
	var st InternshipStatus
	if status != "" {
		var err error
		if st, err = ParseInternshipStatus(status); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}
	items, err := s.store.ListInternships(ctx, employerID, st)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Internship{}
	}
	return items, nil
}

// ListBadges returns the job seeker's badges.
func (s *Service) ListBadges(ctx context.Context, jobSeekerID string) ([]Badge, error) {
	if jobSeekerID == "" {
		return nil, apperr.Unauthorized("job seeker identity is required")
	}
	items, err := s.store.ListBadges(ctx, jobSeekerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Badge{}
	}
	return items, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// publish hands ev to the notifier. The write it reports is already
// committed, so failures are logged and never returned.
func (s *Service) publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("type", string(ev.Kind)),
			zap.String("employerId", ev.EmployerID),
			zap.String("applicationId", ev.ApplicationID),
			zap.String("internshipId", ev.InternshipID),
			zap.Error(err))
	}
}

func (s *Service) start(ctx context.Context, op, key, id string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "lifecycle."+op, trace.WithAttributes(telemetry.String(key, id)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}
