package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"quicktable/internal/domain"
	"quicktable/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	availabilityServiceName = "quicktable.availability.v1.Availability"
	methodGetSlots          = "/" + availabilityServiceName + "/GetSlots"
	methodGetDays           = "/" + availabilityServiceName + "/GetDays"
)

// AvailabilityServer answers slot and date-picker queries. Messages are
// google.protobuf.Struct values carrying the same fields as the JSON API.
type AvailabilityServer interface {
	GetSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetDays(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSlots", Handler: getSlotsHandler},
		{MethodName: "GetDays", Handler: getDaysHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quicktable/availability/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

func getSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).GetSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetSlots}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).GetSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getDaysHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).GetDays(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetDays}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).GetDays(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type AvailabilityService struct {
	reservations domain.ReservationService
}

func NewAvailabilityService(reservations domain.ReservationService) *AvailabilityService {
	return &AvailabilityService{reservations: reservations}
}

// GetSlots takes {slug, date, partySize} and returns
// {restaurantId, date, partySize, slots}.
func (s *AvailabilityService) GetSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	slug := strings.TrimSpace(fields["slug"].GetStringValue())
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}
	date := strings.TrimSpace(fields["date"].GetStringValue())
	if date == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	party, err := intField(fields, "partySize", defaultPartySize)
	if err != nil {
		return nil, err
	}

	restaurant, slots, err := s.reservations.Slots(ctx, slug, date, party)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return toStruct(map[string]any{
		"restaurantId": restaurant.ID,
		"date":         date,
		"partySize":    party,
		"slots":        slots,
	})
}

// GetDays takes {slug, from?, days?} and returns {days}.
func (s *AvailabilityService) GetDays(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	slug := strings.TrimSpace(fields["slug"].GetStringValue())
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}

	var from time.Time
	if raw := strings.TrimSpace(fields["from"].GetStringValue()); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		from = d
	}
	days, err := intField(fields, "days", 0)
	if err != nil {
		return nil, err
	}
	if days < 0 || days > 366 {
		return nil, status.Error(codes.InvalidArgument, "days must be between 1 and 366")
	}

	summaries, err := s.reservations.Days(ctx, slug, from, days)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return toStruct(map[string]any{"days": summaries})
}

func intField(fields map[string]*structpb.Value, name string, fallback int) (int, error) {
	v, ok := fields[name]
	if !ok {
		return fallback, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", name)
	}
	return int(n.NumberValue), nil
}

// toStruct goes through JSON so responses carry the HTTP API's field names.
func toStruct(payload map[string]any) (*structpb.Struct, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out, err := structpb.NewStruct(generic)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// grpcError maps domain errors onto status codes, hiding internal failures.
func grpcError(ctx context.Context, err error) error {
	code := codes.Internal
	switch statusFor(err) {
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusConflict:
		code = codes.AlreadyExists
	case http.StatusUnprocessableEntity:
		code = codes.FailedPrecondition
	case http.StatusTooManyRequests:
		code = codes.ResourceExhausted
	}
	if code == codes.Internal {
		zerolog.Ctx(ctx).Error().Err(err).Msg("grpc request failed")
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
