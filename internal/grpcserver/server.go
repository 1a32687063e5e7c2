// Package grpcserver implements the LifecycleService gRPC server.
//
// It delegates all business logic to lifecycle.Service and handles only the
// gRPC transport concerns: metadata extraction, error mapping and conversion
// between domain values and google.protobuf.Struct messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"jobboard/lifecycle-service/internal/apperr"
	"jobboard/lifecycle-service/internal/lifecycle"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jobboard.lifecycle.v1.LifecycleService"

// LifecycleServer is the server API of LifecycleService.
type LifecycleServer interface {
	TransitionStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScheduleInterview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmIntern(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkCompleted(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteWithBadge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TerminateInternship(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrphanedHires(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements LifecycleServer.
type Server struct {
	svc *lifecycle.Service
}

// NewServer constructs a gRPC Server backed by the given lifecycle.Service.
func NewServer(svc *lifecycle.Service) *Server {
	return &Server{svc: svc}
}

// Register mounts s on registrar.
func Register(registrar grpc.ServiceRegistrar, s LifecycleServer) {
	registrar.RegisterService(&serviceDesc, s)
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// TransitionStatus moves an application to a new status.
func (s *Server) TransitionStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	app, err := s.svc.TransitionStatus(ctx, employerID, str(req, "applicationId"), str(req, "newStatus"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(app)
}

// ScheduleInterview records interview metadata. date is an RFC 3339 string.
func (s *Server) ScheduleInterview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var date time.Time
	if raw := str(req, "date"); raw != "" {
		if date, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, "date must be an RFC 3339 timestamp")
		}
	}
	app, err := s.svc.ScheduleInterview(ctx, employerID, str(req, "applicationId"), lifecycle.InterviewRequest{
		Date:  date,
		Type:  str(req, "type"),
		Link:  str(req, "link"),
		Notes: str(req, "notes"),
	})
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(app)
}

// ConfirmIntern creates the internship for a hired intern.
func (s *Server) ConfirmIntern(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var start time.Time
	if raw := str(req, "startDate"); raw != "" {
		if start, err = lifecycle.ParseDate(raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, "startDate must be YYYY-MM-DD")
		}
	}
	months, err := num(req, "durationMonths")
	if err != nil {
		return nil, err
	}
	res, err := s.svc.ConfirmIntern(ctx, employerID, str(req, "applicationId"), start, months)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(res)
}

// MarkCompleted completes an active internship without a badge.
func (s *Server) MarkCompleted(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	in, err := s.svc.MarkCompleted(ctx, employerID, str(req, "internshipId"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(in)
}

// CompleteWithBadge completes an internship and awards its badge.
func (s *Server) CompleteWithBadge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	rating, err := num(req, "performanceRating")
	if err != nil {
		return nil, err
	}
	res, err := s.svc.CompleteWithBadge(ctx, employerID, str(req, "internshipId"), rating, str(req, "feedback"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(res)
}

// TerminateInternship ends an active internship early.
func (s *Server) TerminateInternship(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	in, err := s.svc.TerminateInternship(ctx, employerID, str(req, "internshipId"), str(req, "reason"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(in)
}

// ListOrphanedHires returns the caller's hired interns without an internship,
// wrapped as {"applications": [...]}.
func (s *Server) ListOrphanedHires(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	employerID, err := employerIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	apps, err := s.svc.ListOrphanedHires(ctx, employerID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"applications": apps})
}

// ─── Service descriptor ──────────────────────────────────────────────────────

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TransitionStatus", Handler: unary("TransitionStatus", LifecycleServer.TransitionStatus)},
		{MethodName: "ScheduleInterview", Handler: unary("ScheduleInterview", LifecycleServer.ScheduleInterview)},
		{MethodName: "ConfirmIntern", Handler: unary("ConfirmIntern", LifecycleServer.ConfirmIntern)},
		{MethodName: "MarkCompleted", Handler: unary("MarkCompleted", LifecycleServer.MarkCompleted)},
		{MethodName: "CompleteWithBadge", Handler: unary("CompleteWithBadge", LifecycleServer.CompleteWithBadge)},
		{MethodName: "TerminateInternship", Handler: unary("TerminateInternship", LifecycleServer.TerminateInternship)},
		{MethodName: "ListOrphanedHires", Handler: unary("ListOrphanedHires", LifecycleServer.ListOrphanedHires)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobboard/lifecycle/v1/lifecycle.proto",
}

type rpc func(LifecycleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call rpc) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(LifecycleServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// employerIDFromCtx extracts the x-employer-id value forwarded by the gateway
// via gRPC metadata.
func employerIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-employer-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-employer-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors. Storage failures and
// errors outside the taxonomy become a generic Internal.
func toGRPCError(err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, apperr.Public(err))
	case apperr.KindUnauthorized:
		return status.Error(codes.PermissionDenied, apperr.Public(err))
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, apperr.Public(err))
	case apperr.KindConflict:
		return status.Error(codes.FailedPrecondition, apperr.Public(err))
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}

// toStruct converts v to a Struct through its JSON form, so the wire shape
// matches the REST responses.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func str(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// num reads an integer field. Struct numbers are doubles, so fractional,
// non-finite and out-of-range values are rejected rather than truncated. A
// missing field reads as 0 and is left to the service to validate.
func num(req *structpb.Struct, key string) (int, error) {
	v := req.GetFields()[key].GetNumberValue()
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
	return int(v), nil
}
