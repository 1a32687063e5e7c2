package lifecycle

import (
	"fmt"
	"net/url"
	"time"
)

// InterviewType mirrors job_applications.interview_type.
type InterviewType string

const (
	InterviewVideo    InterviewType = "video"
	InterviewOnline   InterviewType = "online"
	InterviewPhone    InterviewType = "phone"
	InterviewInPerson InterviewType = "in_person"
)

// ParseInterviewType converts a raw string to an InterviewType.
func ParseInterviewType(s string) (InterviewType, error) {
	it := InterviewType(s)
	switch it {
	case InterviewVideo, InterviewOnline, InterviewPhone, InterviewInPerson:
		return it, nil
	}
	return "", fmt.Errorf("unknown interview type %q", s)
}

// RequiresLink is true for remote interview types.
func (t InterviewType) RequiresLink() bool {
	return t == InterviewVideo || t == InterviewOnline
}

// Interview is the scheduling metadata stored on an application.
type Interview struct {
	Date  time.Time     `json:"date"`
	Type  InterviewType `json:"type"`
	Link  string        `json:"link,omitempty"`
	Notes string        `json:"notes,omitempty"`
}

// validateMeetingLink accepts absolute http(s) URLs with a host.
func validateMeetingLink(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("interview link is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("interview link must be an absolute http(s) URL")
	}
	return nil
}
