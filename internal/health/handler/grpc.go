package handler

import (
	"context"
	"log"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall ("") status.
const ServiceName = "moon-oracle"

// DefaultSyncInterval is how often SyncStatus re-pings the store.
const DefaultSyncInterval = 15 * time.Second

// StatusSetter is implemented by *health.Server from google.golang.org/grpc/health.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// CheckOnce pings the store and publishes SERVING or NOT_SERVING. A nil pinger is always SERVING.
func CheckOnce(ctx context.Context, pinger Pinger, setter StatusSetter) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			log.Printf("health: store ping failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	setter.SetServingStatus("", status)
	setter.SetServingStatus(ServiceName, status)
	return status
}

// SyncStatus runs CheckOnce immediately and then every interval until ctx is done.
func SyncStatus(ctx context.Context, pinger Pinger, setter StatusSetter, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	last := CheckOnce(ctx, pinger, setter)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s := CheckOnce(ctx, pinger, setter); s != last {
				log.Printf("health: status changed %s -> %s", last, s)
				last = s
			}
		}
	}
}
