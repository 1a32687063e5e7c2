package grpcserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"jobboard/lifecycle-service/internal/grpcserver"
	"jobboard/lifecycle-service/internal/lifecycle"
	"jobboard/lifecycle-service/internal/store/memory"
)

var now = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	conn  *grpc.ClientConn
	svc   *lifecycle.Service
	store *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memory.New()
	st.AddJob(lifecycle.Job{ID: "job-intern", EmployerID: "emp-E", Title: "Backend Intern", Type: lifecycle.JobTypeInternship, CompanyName: "Acme Ltd"})
	svc := lifecycle.NewService(st, nil, nil, lifecycle.WithClock(func() time.Time { return now }))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	grpcserver.Register(srv, grpcserver.NewServer(svc))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &harness{conn: conn, svc: svc, store: st}
}

func (h *harness) call(t *testing.T, employerID, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	ctx := context.Background()
	if employerID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-employer-id", employerID)
	}
	out := new(structpb.Struct)
	err = h.conn.Invoke(ctx, "/"+grpcserver.ServiceName+"/"+method, in, out)
	return out, err
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("code = %s, want %s (err %v)", got, want, err)
	}
}

func TestMissingMetadata(t *testing.T) {
	h := newHarness(t)
	_, err := h.call(t, "", "ListOrphanedHires", map[string]any{})
	wantCode(t, err, codes.Unauthenticated)
}

func TestInternshipLifecycleOverGRPC(t *testing.T) {
	h := newHarness(t)
	app, err := h.svc.SubmitApplication(context.Background(), "seeker-1", "job-intern", lifecycle.Applicant{Name: "Sam"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, err := h.call(t, "emp-E", "ConfirmIntern", map[string]any{
		"applicationId":  app.ID,
		"startDate":      "2024-01-31",
		"durationMonths": 1,
	})
	if err != nil {
		t.Fatalf("ConfirmIntern: %v", err)
	}
	in := out.GetFields()["internship"].GetStructValue().GetFields()
	if got := in["endDate"].GetStringValue(); got != "2024-02-29T00:00:00Z" {
		t.Errorf("endDate = %s, want 2024-02-29 (leap-year clamp)", got)
	}
	internshipID := in["id"].GetStringValue()

	_, err = h.call(t, "emp-E", "ConfirmIntern", map[string]any{
		"applicationId": app.ID, "startDate": "2024-01-31", "durationMonths": 1,
	})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = h.call(t, "emp-X", "TerminateInternship", map[string]any{"internshipId": internshipID})
	wantCode(t, err, codes.PermissionDenied)

	out, err = h.call(t, "emp-E", "TerminateInternship", map[string]any{"internshipId": internshipID, "reason": "left early"})
	if err != nil {
		t.Fatalf("TerminateInternship: %v", err)
	}
	if got := out.GetFields()["status"].GetStringValue(); got != "terminated" {
		t.Errorf("status = %s, want terminated", got)
	}

	_, err = h.call(t, "emp-E", "MarkCompleted", map[string]any{"internshipId": internshipID})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = h.call(t, "emp-E", "CompleteWithBadge", map[string]any{"internshipId": internshipID, "performanceRating": 4})
	wantCode(t, err, codes.FailedPrecondition)
}

func TestTransitionAndOrphans(t *testing.T) {
	h := newHarness(t)
	app, err := h.svc.SubmitApplication(context.Background(), "seeker-1", "job-intern", lifecycle.Applicant{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = h.call(t, "emp-E", "TransitionStatus", map[string]any{"applicationId": app.ID, "newStatus": "ghosted"})
	wantCode(t, err, codes.InvalidArgument)

	out, err := h.call(t, "emp-E", "TransitionStatus", map[string]any{"applicationId": app.ID, "newStatus": "hired"})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if out.GetFields()["status"].GetStringValue() != "hired" {
		t.Errorf("status = %v", out.GetFields()["status"])
	}

	out, err = h.call(t, "emp-E", "ListOrphanedHires", map[string]any{})
	if err != nil {
		t.Fatalf("ListOrphanedHires: %v", err)
	}
	apps := out.GetFields()["applications"].GetListValue().GetValues()
	if len(apps) != 1 || apps[0].GetStructValue().GetFields()["id"].GetStringValue() != app.ID {
		t.Errorf("orphans = %v", apps)
	}

	_, err = h.call(t, "emp-E", "TransitionStatus", map[string]any{"applicationId": "missing", "newStatus": "viewed"})
	wantCode(t, err, codes.NotFound)
}

func TestScheduleInterviewOverGRPC(t *testing.T) {
	h := newHarness(t)
	app, err := h.svc.SubmitApplication(context.Background(), "seeker-1", "job-intern", lifecycle.Applicant{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = h.call(t, "emp-E", "ScheduleInterview", map[string]any{"applicationId": app.ID, "date": "tomorrow", "type": "phone"})
	wantCode(t, err, codes.InvalidArgument)

	out, err := h.call(t, "emp-E", "ScheduleInterview", map[string]any{
		"applicationId": app.ID,
		"date":          "2024-01-11T10:00:00Z",
		"type":          "in_person",
		"notes":         "Reception, 3rd floor",
	})
	if err != nil {
		t.Fatalf("ScheduleInterview: %v", err)
	}
	iv := out.GetFields()["interview"].GetStructValue().GetFields()
	if iv["type"].GetStringValue() != "in_person" || iv["notes"].GetStringValue() != "Reception, 3rd floor" {
		t.Errorf("interview = %v", iv)
	}
}

func TestIntegerFieldsRejectNonIntegers(t *testing.T) {
	h := newHarness(t)
	app, err := h.svc.SubmitApplication(context.Background(), "seeker-1", "job-intern", lifecycle.Applicant{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, months := range []any{2.9, 1e20, -1e20} {
		_, err := h.call(t, "emp-E", "ConfirmIntern", map[string]any{
			"applicationId": app.ID, "startDate": "2024-01-15", "durationMonths": months,
		})
		wantCode(t, err, codes.InvalidArgument)
	}
	if n := h.store.CountInternships(app.ID); n != 0 {
		t.Fatalf("internships = %d after rejected calls, want 0", n)
	}

	out, err := h.call(t, "emp-E", "ConfirmIntern", map[string]any{
		"applicationId": app.ID, "startDate": "2024-01-15", "durationMonths": 2.0,
	})
	if err != nil {
		t.Fatalf("ConfirmIntern(2.0): %v", err)
	}
	in := out.GetFields()["internship"].GetStructValue().GetFields()
	internshipID := in["id"].GetStringValue()
	if got := in["durationMonths"].GetNumberValue(); got != 2 {
		t.Errorf("durationMonths = %v, want 2", got)
	}

	_, err = h.call(t, "emp-E", "CompleteWithBadge", map[string]any{"internshipId": internshipID, "performanceRating": 5.7})
	wantCode(t, err, codes.InvalidArgument)
	if n := h.store.CountBadges(internshipID); n != 0 {
		t.Errorf("badges = %d after rejected call, want 0", n)
	}
}
