package httpapi_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"jobboard/lifecycle-service/internal/httpapi"
	"jobboard/lifecycle-service/internal/lifecycle"
	"jobboard/lifecycle-service/internal/store/memory"
)

var now = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	st.AddJob(lifecycle.Job{ID: "job-intern", EmployerID: "emp-E", Title: "Backend Intern", Type: lifecycle.JobTypeInternship, CompanyName: "Acme Ltd"})
	st.AddJob(lifecycle.Job{ID: "job-full", EmployerID: "emp-E", Title: "Backend Engineer", Type: lifecycle.JobTypeFullTime, CompanyName: "Acme Ltd"})

	svc := lifecycle.NewService(st, nil, nil, lifecycle.WithClock(func() time.Time { return now }))
	mux := http.NewServeMux()
	httpapi.NewHandler(svc, nil).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, srv *httptest.Server, method, path, header, id, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if header != "" {
		req.Header.Set(header, id)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func apply(t *testing.T, srv *httptest.Server, jobID, seeker string) string {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/applications", "x-job-seeker-id", seeker, `{"jobId":"`+jobID+`","name":"Sam"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("apply status = %d, body = %v", resp.StatusCode, body)
	}
	return body["id"].(string)
}

func TestMissingIdentityHeader(t *testing.T) {
	srv, _ := newServer(t)

	resp, body := do(t, srv, http.MethodGet, "/applications", "", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(body["error"].(string), "x-employer-id") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestTransitionStatus(t *testing.T) {
	srv, _ := newServer(t)
	appID := apply(t, srv, "job-full", "seeker-1")

	resp, body := do(t, srv, http.MethodPost, "/applications/"+appID+"/status", "x-employer-id", "emp-E", `{"status":"shortlisted"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["status"] != "shortlisted" || body["respondedAt"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv, _ := newServer(t)
	appID := apply(t, srv, "job-full", "seeker-1")

	tests := []struct {
		name   string
		method string
		path   string
		header string
		id     string
		body   string
		want   int
	}{
		{"invalid status", http.MethodPost, "/applications/" + appID + "/status", "x-employer-id", "emp-E", `{"status":"ghosted"}`, http.StatusBadRequest},
		{"foreign employer", http.MethodPost, "/applications/" + appID + "/status", "x-employer-id", "emp-X", `{"status":"viewed"}`, http.StatusForbidden},
		{"unknown application", http.MethodGet, "/applications/nope", "x-employer-id", "emp-E", "", http.StatusNotFound},
		{"not an internship", http.MethodPost, "/applications/" + appID + "/confirm-intern", "x-employer-id", "emp-E", `{"startDate":"2024-02-01","durationMonths":3}`, http.StatusBadRequest},
		{"duplicate application", http.MethodPost, "/applications", "x-job-seeker-id", "seeker-1", `{"jobId":"job-full"}`, http.StatusConflict},
		{"unknown action", http.MethodPost, "/applications/" + appID + "/archive", "x-employer-id", "emp-E", "", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/applications/" + appID, "x-employer-id", "emp-E", "", http.StatusMethodNotAllowed},
		{"bad start date", http.MethodPost, "/applications/" + appID + "/confirm-intern", "x-employer-id", "emp-E", `{"startDate":"01/02/2024","durationMonths":3}`, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/applications?page=two", "x-employer-id", "emp-E", "", http.StatusBadRequest},
		{"page out of range", http.MethodGet, "/applications?page=" + strconv.Itoa(math.MaxInt), "x-employer-id", "emp-E", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.header, tt.id, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestInternshipFlow(t *testing.T) {
	srv, st := newServer(t)
	appID := apply(t, srv, "job-intern", "seeker-1")

	resp, body := do(t, srv, http.MethodPost, "/applications/"+appID+"/confirm-intern", "x-employer-id", "emp-E", `{"startDate":"2024-02-01","durationMonths":3}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("confirm status = %d, body = %v", resp.StatusCode, body)
	}
	in := body["internship"].(map[string]any)
	if in["endDate"] != "2024-05-01T00:00:00Z" || in["status"] != "active" {
		t.Errorf("internship = %v", in)
	}
	if app := body["application"].(map[string]any); app["status"] != "hired" {
		t.Errorf("application status = %v, want hired", app["status"])
	}
	internshipID := in["id"].(string)

	resp, _ = do(t, srv, http.MethodPost, "/applications/"+appID+"/confirm-intern", "x-employer-id", "emp-E", `{"startDate":"2024-02-01","durationMonths":3}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second confirm status = %d, want 409", resp.StatusCode)
	}

	resp, body = do(t, srv, http.MethodPost, "/internships/"+internshipID+"/complete-with-badge", "x-employer-id", "emp-E", `{"performanceRating":5,"feedback":"<b>Great</b> work"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("badge status = %d, body = %v", resp.StatusCode, body)
	}
	badge := body["badge"].(map[string]any)
	if badge["companyName"] != "Acme Ltd" || badge["employerFeedback"] != "Great work" {
		t.Errorf("badge = %v", badge)
	}
	if st.CountBadges(internshipID) != 1 {
		t.Errorf("badges = %d, want 1", st.CountBadges(internshipID))
	}

	resp, _ = do(t, srv, http.MethodPost, "/internships/"+internshipID+"/complete-with-badge", "x-employer-id", "emp-E", `{"performanceRating":4}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second badge status = %d, want 409", resp.StatusCode)
	}

	resp, _ = do(t, srv, http.MethodPost, "/internships/"+internshipID+"/terminate", "x-employer-id", "emp-E", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("terminate completed status = %d, want 409", resp.StatusCode)
	}
}

func TestScheduleInterview(t *testing.T) {
	srv, _ := newServer(t)
	appID := apply(t, srv, "job-full", "seeker-1")

	resp, body := do(t, srv, http.MethodPost, "/applications/"+appID+"/interview", "x-employer-id", "emp-E",
		`{"date":"2024-01-12T14:00:00Z","type":"video","link":"https://meet.example.com/abc"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	iv := body["interview"].(map[string]any)
	if iv["type"] != "video" || iv["link"] != "https://meet.example.com/abc" {
		t.Errorf("interview = %v", iv)
	}
	if body["status"] != "applied" {
		t.Errorf("status changed to %v", body["status"])
	}

	resp, _ = do(t, srv, http.MethodPost, "/applications/"+appID+"/interview", "x-employer-id", "emp-E",
		`{"date":"2024-01-12T14:00:00Z","type":"video"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing link status = %d, want 400", resp.StatusCode)
	}
}

func TestOrphanedHires(t *testing.T) {
	srv, _ := newServer(t)
	orphan := apply(t, srv, "job-intern", "seeker-1")
	apply(t, srv, "job-intern", "seeker-2")

	do(t, srv, http.MethodPost, "/applications/"+orphan+"/status", "x-employer-id", "emp-E", `{"status":"hired"}`)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/orphaned-hires", nil)
	req.Header.Set("x-employer-id", "emp-E")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var apps []lifecycle.Application
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != orphan {
		t.Errorf("orphans = %+v, want [%s]", apps, orphan)
	}
}

func TestListApplicationsPaging(t *testing.T) {
	srv, _ := newServer(t)
	for _, seeker := range []string{"s1", "s2", "s3"} {
		apply(t, srv, "job-full", seeker)
	}

	resp, body := do(t, srv, http.MethodGet, "/applications?perPage=2&page=2", "x-employer-id", "emp-E", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["total"].(float64) != 3 || len(body["items"].([]any)) != 1 {
		t.Errorf("page = %v", body)
	}
}
