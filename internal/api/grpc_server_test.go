package api

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"quicktable/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func dialGRPC(t *testing.T, env *testEnv, cfg config.APIConfig) (*grpc.ClientConn, *GRPCServer) {
	t.Helper()
	logger := zerolog.New(io.Discard)

	lis := bufconn.Listen(1 << 20)
	srv := newGRPCServer(cfg, env.deps, lis, &logger)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, srv
}

func callStruct(ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func TestGRPCHealth(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	conn, srv := dialGRPC(t, env, testAPIConfig())
	srv.refreshHealth(context.Background())

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: availabilityServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, env.db.Close())
	srv.refreshHealth(context.Background())
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestGRPCGetSlots(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	env.book(t, "19:00", 6)
	conn, _ := dialGRPC(t, env, testAPIConfig())

	resp, err := callStruct(context.Background(), conn, methodGetSlots, map[string]any{
		"slug": env.restaurant.Slug, "date": env.tomorrow, "partySize": 2,
	})
	require.NoError(t, err)

	fields := resp.GetFields()
	assert.Equal(t, env.restaurant.ID, fields["restaurantId"].GetStringValue())
	assert.Equal(t, 2.0, fields["partySize"].GetNumberValue())

	byTime := map[string]float64{}
	for _, v := range fields["slots"].GetListValue().GetValues() {
		slot := v.GetStructValue().GetFields()
		byTime[slot["time"].GetStringValue()] = slot["availableCapacity"].GetNumberValue()
	}
	assert.Equal(t, 48.0, byTime["18:30"])
	assert.Equal(t, 42.0, byTime["19:00"])
	assert.Equal(t, 42.0, byTime["19:30"])
	assert.Equal(t, 48.0, byTime["20:00"])
}

func TestGRPCGetSlotsErrors(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	conn, _ := dialGRPC(t, env, testAPIConfig())
	ctx := context.Background()

	tests := []struct {
		name   string
		fields map[string]any
		want   codes.Code
	}{
		{"MissingSlug", map[string]any{"date": env.tomorrow}, codes.InvalidArgument},
		{"MissingDate", map[string]any{"slug": env.restaurant.Slug}, codes.InvalidArgument},
		{"FractionalParty", map[string]any{"slug": env.restaurant.Slug, "date": env.tomorrow, "partySize": 2.5}, codes.InvalidArgument},
		{"ZeroParty", map[string]any{"slug": env.restaurant.Slug, "date": env.tomorrow, "partySize": 0}, codes.InvalidArgument},
		{"UnknownRestaurant", map[string]any{"slug": "nowhere", "date": env.tomorrow}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callStruct(ctx, conn, methodGetSlots, tt.fields)
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGRPCGetDays(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	conn, _ := dialGRPC(t, env, testAPIConfig())

	resp, err := callStruct(context.Background(), conn, methodGetDays, map[string]any{
		"slug": env.restaurant.Slug, "days": 3,
	})
	require.NoError(t, err)
	days := resp.GetFields()["days"].GetListValue().GetValues()
	require.Len(t, days, 3)
	assert.Equal(t, env.tomorrow, days[1].GetStructValue().GetFields()["date"].GetStringValue())

	_, err = callStruct(context.Background(), conn, methodGetDays, map[string]any{
		"slug": env.restaurant.Slug, "from": "14-10-2026",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCAuth(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys:      []config.APIClientKey{{Name: "pos", Key: "secret"}},
	}
	env := newTestEnv(t, testAPIConfig())
	conn, _ := dialGRPC(t, env, cfg)
	fields := map[string]any{"slug": env.restaurant.Slug, "date": env.tomorrow}

	_, err := callStruct(context.Background(), conn, methodGetSlots, fields)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "nope")
	_, err = callStruct(bad, conn, methodGetSlots, fields)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	good := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "secret")
	_, err = callStruct(good, conn, methodGetSlots, fields)
	assert.NoError(t, err)

	_, err = healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	assert.NoError(t, err)
}

func TestGRPCAuth_RateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}

	auth := NewGRPCAuth(cfg)
	interceptor := auth.Unary()
	info := &grpc.UnaryServerInfo{FullMethod: methodGetSlots}
	handler := func(_ context.Context, _ any) (any, error) { return "ok", nil }

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key1"))

	_, err := interceptor(ctx, "req", info, handler)
	assert.NoError(t, err)

	_, err = interceptor(ctx, "req", info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	other := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key2"))
	_, err = interceptor(other, "req", info, handler)
	assert.NoError(t, err)
}

func TestChainUnaryInterceptors(t *testing.T) {
	var order []string
	mark := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}

	chained := ChainUnaryInterceptors(mark("logging"), mark("auth"))
	resp, err := chained(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "test"},
		func(_ context.Context, _ any) (any, error) {
			order = append(order, "handler")
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, []string{"logging", "auth", "handler"}, order)
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(nil)
	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "test"},
		func(ctx context.Context, _ any) (any, error) {
			return "ok", nil
		})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}
