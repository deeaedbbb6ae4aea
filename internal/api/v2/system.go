package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/regenpgc/trialbase/internal/buildinfo"
	"github.com/regenpgc/trialbase/internal/logger"
)

// healthTimeout bounds the database ping of the health check.
const healthTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string        `json:"status"`
	Version        string        `json:"version"`
	BuildDate      string        `json:"buildDate"`
	DatabaseStatus string        `json:"databaseStatus"`
	DatabaseError  string        `json:"databaseError,omitempty"`
	Uptime         string        `json:"uptime"`
	UptimeSeconds  float64       `json:"uptimeSeconds"`
	Timestamp      string        `json:"timestamp"`
	System         SystemMetrics `json:"system"`
}

// SystemMetrics reports host and process memory. Fields gopsutil cannot read
// on the platform stay zero.
type SystemMetrics struct {
	GoVersion          string  `json:"goVersion"`
	NumCPU             int     `json:"numCpu"`
	Goroutines         int     `json:"goroutines"`
	MemoryTotalMB      float64 `json:"memoryTotalMb"`
	MemoryUsedPercent  float64 `json:"memoryUsedPercent"`
	ProcessMemoryMB    float64 `json:"processMemoryMb"`
	DatabaseOpenConns  int     `json:"databaseOpenConnections"`
	DatabaseInUseConns int     `json:"databaseInUseConnections"`
}

// HealthCheck handles GET /api/v2/health. An unreachable database answers
// 503 with status "degraded".
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	build := buildinfo.Current()
	resp := HealthResponse{
		Status:         "healthy",
		Version:        build.GetVersion(),
		BuildDate:      build.GetBuildDate(),
		DatabaseStatus: "connected",
		Uptime:         uptime.Round(time.Second).String(),
		UptimeSeconds:  uptime.Seconds(),
		Timestamp:      time.Now().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:  runtime.Version(),
			NumCPU:     runtime.NumCPU(),
			Goroutines: runtime.NumGoroutine(),
		},
	}

	code := http.StatusOK
	if err := c.pingDatabase(ctx.Request().Context(), &resp.System); err != nil {
		code = http.StatusServiceUnavailable
		resp.Status = "degraded"
		resp.DatabaseStatus = "disconnected"
		resp.DatabaseError = err.Error()
		c.log.Warn("health check failed", logger.Error(err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.System.MemoryTotalMB = float64(vm.Total) / 1024 / 1024
		resp.System.MemoryUsedPercent = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits in int32
		if info, err := proc.MemoryInfo(); err == nil {
			resp.System.ProcessMemoryMB = float64(info.RSS) / 1024 / 1024
		}
	}

	if code != http.StatusOK {
		return ctx.JSON(code, Envelope{
			Metadata: Metadata{
				Datafiles: []string{},
				Status:    []Status{{Message: "database unreachable", MessageType: MessageError}},
			},
			Result: Result{Data: resp},
		})
	}
	return ctx.JSON(code, single(resp))
}

func (c *Controller) pingDatabase(ctx context.Context, sys *SystemMetrics) error {
	sqlDB, err := c.Trials.DB().DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}

	stats := sqlDB.Stats()
	sys.DatabaseOpenConns = stats.OpenConnections
	sys.DatabaseInUseConns = stats.InUse
	if c.metrics != nil {
		c.metrics.Datastore.UpdateConnectionStats(stats)
	}
	return nil
}
