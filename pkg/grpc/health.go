package grpc

import (
	"context"
	"fmt"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthCheck configures WaitHealthy
type HealthCheck struct {
	MaxRetries   int
	RetryDelay   time.Duration
	CheckTimeout time.Duration
}

// DefaultHealthCheck returns the default health check configuration
func DefaultHealthCheck() HealthCheck {
	return HealthCheck{
		MaxRetries:   5,
		RetryDelay:   time.Second,
		CheckTimeout: 5 * time.Second,
	}
}

// Check asks the remote health service whether the minifier is serving
func (c *Client) Check(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.Conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check failed: status %s", resp.Status)
	}
	return nil
}

// WaitHealthy polls the health service until it reports serving or the retries run out
func WaitHealthy(ctx context.Context, c *Client, config HealthCheck) error {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = DefaultHealthCheck().CheckTimeout
	}

	var lastErr error
	for retry := 0; retry < config.MaxRetries; retry++ {
		checkCtx, cancel := context.WithTimeout(ctx, config.CheckTimeout)
		lastErr = c.Check(checkCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		if retry == config.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.RetryDelay):
		}
	}
	return fmt.Errorf("minifier at %s not healthy after %d attempts: %w", c.Address, config.MaxRetries, lastErr)
}
