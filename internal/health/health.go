// Package health reports readiness through the standard gRPC health service,
// driven by pings against the service's backing stores.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"auth-service/internal/logging"
)

// DefaultInterval is how often Run re-checks dependencies.
const DefaultInterval = 15 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger, e.g. (*sql.DB).PingContext.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker pings named dependencies and mirrors the result into a grpc health server,
// for the overall "" service and for each name in services.
type Checker struct {
	server   *grpchealth.Server
	services []string
	pingers  map[string]Pinger
	timeout  time.Duration
	logger   logging.Logger
}

// NewChecker returns a Checker. With no pingers every check reports SERVING.
func NewChecker(server *grpchealth.Server, services []string, pingers map[string]Pinger, logger logging.Logger) *Checker {
	return &Checker{
		server:   server,
		services: services,
		pingers:  pingers,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Check pings every dependency once and updates the serving status.
// It returns the joined ping errors, nil when all are reachable.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.pingers))
	for name := range c.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := c.pingers[name].Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	err := errors.Join(errs...)

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		c.logger.Warn(ctx, "readiness check failed", "error", err)
	}
	c.server.SetServingStatus("", status)
	for _, svc := range c.services {
		c.server.SetServingStatus(svc, status)
	}
	return err
}

// Run checks immediately and then every interval until ctx is done, after which
// the health server is shut down so clients see NOT_SERVING while draining.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	_ = c.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			_ = c.Check(ctx)
		}
	}
}
