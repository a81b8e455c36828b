package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"cordpulse/internal/cache"
	"cordpulse/pkg/contracts/domain"
)

// Health status values.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// DatasetProbe reports whether the dataset can be served.
type DatasetProbe interface {
	Load(ctx context.Context) (domain.Status, error)
	CachedEntry() (cache.Entry, bool)
	CacheStats() cache.Stats
}

// ConnectionCounter reports live WebSocket sessions.
type ConnectionCounter interface {
	ActiveConnections() int
}

// HealthService provides health check functionality
type HealthService struct {
	version     string
	buildTime   string
	gitCommit   string
	dataset     DatasetProbe
	connections ConnectionCounter
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHealthService creates a health service. connections may be nil.
func NewHealthService(version, buildTime, gitCommit string, dataset DatasetProbe, connections ConnectionCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:     version,
		buildTime:   buildTime,
		gitCommit:   gitCommit,
		dataset:     dataset,
		connections: connections,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck loads the dataset (from cache when warm) and reports
// not_ready when any dependency fails.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"dataset": hs.checkDatasetHealth(ctx),
		},
	}
	if hs.connections != nil {
		status.Services["websocket"] = ServiceHealth{
			Status:  StatusReady,
			Message: fmt.Sprintf("%d active connections", hs.connections.ActiveConnections()),
		}
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "Service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

func (hs *HealthService) checkDatasetHealth(ctx context.Context) ServiceHealth {
	if hs.dataset == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "dataset service not initialized"}
	}

	loaded, err := hs.dataset.Load(ctx)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: loaded.Message}
	}

	details := map[string]interface{}{
		"records": loaded.Records,
		"columns": loaded.Columns,
		"cache":   hs.dataset.CacheStats(),
	}
	if entry, ok := hs.dataset.CachedEntry(); ok {
		details["cached_at"] = entry.CachedAt
		details["expires_at"] = entry.ExpiresAt
	}
	return ServiceHealth{Status: StatusReady, Message: loaded.Message, Details: details}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.gitCommit != "" {
		result["git_commit"] = hs.gitCommit
	}
	return result
}
