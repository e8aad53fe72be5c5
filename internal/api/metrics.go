package api

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"
)

// StatsProvider exposes connection pool statistics. *database.DB implements it.
type StatsProvider interface {
	Stats() sql.DBStats
}

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Auth          AuthMetrics      `json:"auth"`
	Components    map[string]bool  `json:"components,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// AuthMetrics summarises the account store and policy table.
type AuthMetrics struct {
	Accounts   int `json:"accounts"`
	Operations int `json:"operations"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, auth and component metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Auth: AuthMetrics{
			Operations: len(s.pipeline.Policies().Operations()),
		},
	}

	count, err := s.accounts.Count(r.Context())
	if err != nil {
		s.logger.Warn("counting accounts for metrics failed", "error", err)
	}
	metrics.Auth.Accounts = count

	if len(s.health) > 0 {
		metrics.Components = make(map[string]bool, len(s.health))
		for name, hc := range s.health {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			metrics.Components[name] = hc.HealthCheck(ctx) == nil
			cancel()
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
