package lifecycle

import "time"

// Job is the slice of a job posting the lifecycle needs: its owner, type and
// the labels snapshotted onto badges.
type Job struct {
	ID          string  `json:"id"`
	EmployerID  string  `json:"employerId"`
	Title       string  `json:"title"`
	Type        JobType `json:"type"`
	CompanyName string  `json:"companyName"`
}

// Applicant is the contact snapshot captured when the job seeker applied.
// It does not follow later profile edits.
type Applicant struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

// Application is a job seeker's application joined with its job's owner and
// type.
type Application struct {
	ID          string     `json:"id"`
	JobID       string     `json:"jobId"`
	JobSeekerID string     `json:"jobSeekerId"`
	EmployerID  string     `json:"employerId"`
	JobTitle    string     `json:"jobTitle"`
	JobType     JobType    `json:"jobType"`
	Status      Status     `json:"status"`
	AppliedAt   time.Time  `json:"appliedAt"`
	RespondedAt *time.Time `json:"respondedAt"`
	Applicant   Applicant  `json:"applicant"`
	Interview   *Interview `json:"interview,omitempty"`
}

// Internship tracks a hired intern from confirmation to completion or
// termination.
type Internship struct {
	ID                    string           `json:"id"`
	ApplicationID         string           `json:"applicationId"`
	JobID                 string           `json:"jobId"`
	JobSeekerID           string           `json:"jobSeekerId"`
	EmployerID            string           `json:"employerId"`
	StartDate             time.Time        `json:"startDate"`
	EndDate               time.Time        `json:"endDate"`
	DurationMonths        int              `json:"durationMonths"`
	Status                InternshipStatus `json:"status"`
	CompletionConfirmed   bool             `json:"completionConfirmed"`
	CompletionConfirmedAt *time.Time       `json:"completionConfirmedAt"`
	EmployerFeedback      string           `json:"employerFeedback,omitempty"`
	PerformanceRating     *int             `json:"performanceRating"`
	BadgeAwarded          bool             `json:"badgeAwarded"`
	BadgeAwardedAt        *time.Time       `json:"badgeAwardedAt"`
	CreatedAt             time.Time        `json:"createdAt"`
}

// Badge is an immutable credential. Every field is copied at award time.
type Badge struct {
	ID                string    `json:"id"`
	InternshipID      string    `json:"internshipId"`
	JobSeekerID       string    `json:"jobSeekerId"`
	CompanyName       string    `json:"companyName"`
	JobTitle          string    `json:"jobTitle"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	DurationMonths    int       `json:"durationMonths"`
	PerformanceRating int       `json:"performanceRating"`
	EmployerFeedback  string    `json:"employerFeedback,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ApplicationFilter narrows an employer's applicant list.
type ApplicationFilter struct {
	EmployerID string
	JobID      string
	Status     Status
	Page       int
	PerPage    int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Offset returns the row offset of the filter's page.
func (f ApplicationFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// ApplicationPage is one page of applications plus the unpaginated total.
type ApplicationPage struct {
	Items   []Application `json:"items"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"perPage"`
}
