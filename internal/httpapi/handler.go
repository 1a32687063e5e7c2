// Package httpapi implements the REST transport of the lifecycle service.
//
// Employer routes expect an x-employer-id header and job seeker routes an
// x-job-seeker-id header, both forwarded by the gateway.
//
// Routes:
//
//	GET  /applications                             → employer's applicants (paged)
//	POST /applications                             → job seeker applies
//	GET  /applications/{id}                        → one application
//	POST /applications/{id}/status                 → change status
//	POST /applications/{id}/interview              → schedule interview
//	POST /applications/{id}/confirm-intern         → create internship, set hired
//	GET  /internships                              → employer's internships
//	GET  /internships/{id}                         → one internship
//	POST /internships/{id}/complete                → mark completed
//	POST /internships/{id}/complete-with-badge     → complete and award badge
//	POST /internships/{id}/terminate               → terminate
//	GET  /orphaned-hires                           → hired interns without internship
//	GET  /badges                                   → job seeker's badges
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobboard/lifecycle-service/internal/apperr"
	"jobboard/lifecycle-service/internal/lifecycle"
)

const (
	employerHeader  = "x-employer-id"
	jobSeekerHeader = "x-job-seeker-id"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler adapts lifecycle.Service to HTTP.
type Handler struct {
	svc    *lifecycle.Service
	logger *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(svc *lifecycle.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts all lifecycle routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/applications", h.handleApplications)
	mux.HandleFunc("/applications/", h.handleApplicationAction)
	mux.HandleFunc("/internships", h.handleInternships)
	mux.HandleFunc("/internships/", h.handleInternshipAction)
	mux.HandleFunc("/orphaned-hires", h.handleOrphanedHires)
	mux.HandleFunc("/badges", h.handleBadges)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleApplications handles GET|POST /applications
func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listApplications(w, r)
	case http.MethodPost:
		h.submitApplication(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleApplicationAction handles /applications/{id}[/{action}]
func (h *Handler) handleApplicationAction(w http.ResponseWriter, r *http.Request) {
	appID, action, ok := splitPath(r.URL.Path)
	if !ok {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getApplication(w, r, appID)
		return
	}

	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch action {
	case "status":
		h.transitionStatus(w, r, appID)
	case "interview":
		h.scheduleInterview(w, r, appID)
	case "confirm-intern":
		h.confirmIntern(w, r, appID)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// handleInternships handles GET /internships
func (h *Handler) handleInternships(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}
	items, err := h.svc.ListInternships(r.Context(), employerID, r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, items)
}

// handleInternshipAction handles /internships/{id}[/{action}]
func (h *Handler) handleInternshipAction(w http.ResponseWriter, r *http.Request) {
	internshipID, action, ok := splitPath(r.URL.Path)
	if !ok {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getInternship(w, r, internshipID)
		return
	}

	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch action {
	case "complete":
		h.markCompleted(w, r, internshipID)
	case "complete-with-badge":
		h.completeWithBadge(w, r, internshipID)
	case "terminate":
		h.terminateInternship(w, r, internshipID)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// handleOrphanedHires handles GET /orphaned-hires
func (h *Handler) handleOrphanedHires(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}
	apps, err := h.svc.ListOrphanedHires(r.Context(), employerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, apps)
}

// handleBadges handles GET /badges
func (h *Handler) handleBadges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jobSeekerID, ok := requireHeader(w, r, jobSeekerHeader)
	if !ok {
		return
	}
	badges, err := h.svc.ListBadges(r.Context(), jobSeekerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, badges)
}

// ─── Application handlers ─────────────────────────────────────────────────────

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := queryInt(q.Get("page"))
	if err != nil {
		jsonError(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	perPage, err := queryInt(q.Get("perPage"))
	if err != nil {
		jsonError(w, "perPage must be an integer", http.StatusBadRequest)
		return
	}

	res, err := h.svc.ListApplications(r.Context(), lifecycle.ApplicationFilter{
		EmployerID: employerID,
		JobID:      q.Get("jobId"),
		Status:     lifecycle.Status(q.Get("status")),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	jobSeekerID, ok := requireHeader(w, r, jobSeekerHeader)
	if !ok {
		return
	}

	var body struct {
		JobID   string `json:"jobId"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.JobID == "" {
		jsonError(w, "body must contain jobId", http.StatusBadRequest)
		return
	}

	app, err := h.svc.SubmitApplication(r.Context(), jobSeekerID, body.JobID, lifecycle.Applicant{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Message: body.Message,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonCreated(w, app)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request, appID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}
	app, err := h.svc.GetApplication(r.Context(), employerID, appID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) transitionStatus(w http.ResponseWriter, r *http.Request, appID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		jsonError(w, "body must contain status", http.StatusBadRequest)
		return
	}

	app, err := h.svc.TransitionStatus(r.Context(), employerID, appID, body.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) scheduleInterview(w http.ResponseWriter, r *http.Request, appID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}

	var body struct {
		Date  time.Time `json:"date"`
		Type  string    `json:"type"`
		Link  string    `json:"link"`
		Notes string    `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "body must contain an RFC 3339 date and a type", http.StatusBadRequest)
		return
	}

	app, err := h.svc.ScheduleInterview(r.Context(), employerID, appID, lifecycle.InterviewRequest{
		Date:  body.Date,
		Type:  body.Type,
		Link:  body.Link,
		Notes: body.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) confirmIntern(w http.ResponseWriter, r *http.Request, appID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}

	var body struct {
		StartDate      string `json:"startDate"`
		DurationMonths int    `json:"durationMonths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	start, err := parseDay(body.StartDate)
	if err != nil {
		jsonError(w, "startDate must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	res, err := h.svc.ConfirmIntern(r.Context(), employerID, appID, start, body.DurationMonths)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonCreated(w, res)
}

// ─── Internship handlers ──────────────────────────────────────────────────────

func (h *Handler) getInternship(w http.ResponseWriter, r *http.Request, internshipID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}
	in, err := h.svc.GetInternship(r.Context(), employerID, internshipID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, in)
}

func (h *Handler) markCompleted(w http.ResponseWriter, r *http.Request, internshipID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}
	in, err := h.svc.MarkCompleted(r.Context(), employerID, internshipID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, in)
}

func (h *Handler) completeWithBadge(w http.ResponseWriter, r *http.Request, internshipID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}

	var body struct {
		PerformanceRating int    `json:"performanceRating"`
		Feedback          string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	res, err := h.svc.CompleteWithBadge(r.Context(), employerID, internshipID, body.PerformanceRating, body.Feedback)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) terminateInternship(w http.ResponseWriter, r *http.Request, internshipID string) {
	employerID, ok := requireHeader(w, r, employerHeader)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	in, err := h.svc.TerminateInternship(r.Context(), employerID, internshipID, body.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, in)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// fail writes err with the status code of its kind. Storage failures are
// logged with their cause and answered with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	jsonError(w, apperr.Public(err), code)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func requireHeader(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.Header.Get(name)
	if v == "" {
		jsonError(w, "missing "+name+" header", http.StatusUnauthorized)
		return "", false
	}
	return v, true
}

// splitPath parses /{collection}/{id}[/{action}].
func splitPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[1] != "":
		return parts[1], "", true
	case len(parts) == 3 && parts[1] != "":
		return parts[1], parts[2], true
	}
	return "", "", false
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// parseDay accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := lifecycle.ParseDate(raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func jsonOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func jsonCreated(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusCreated, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
