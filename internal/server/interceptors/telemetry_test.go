package interceptors

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"auth-service/internal/logging"
)

func TestTelemetryUnary_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	interceptor := TelemetryUnary(logging.NewJSON(&buf, "info"), nil)

	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unauthenticated, "nope")
	}
	_, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/test.Service/M"}, failing)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("error passthrough: got %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"method":"/test.Service/M"`, `"code":"Unauthenticated"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}
}

func TestTelemetryUnary_SkipMethods(t *testing.T) {
	var buf bytes.Buffer
	interceptor := TelemetryUnary(logging.NewJSON(&buf, "debug"), map[string]bool{"/test.Service/Skip": true})

	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Skip"}, okHandler)
	if err != nil || resp != "success" {
		t.Fatalf("interceptor = (%v, %v)", resp, err)
	}
	if buf.Len() != 0 {
		t.Errorf("skipped method was logged: %s", buf.String())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"unknown", context.Background(), "unknown"},
		{"forwarded", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "10.0.0.1, 10.0.0.2")), "10.0.0.1"},
		{"real ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "10.0.0.3")), "10.0.0.3"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}}), "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientIP(tt.ctx); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
