package server

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/aristath/portfoliobot/internal/services"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// EngineStatusProvider reports order engine state
type EngineStatusProvider interface {
	Status() services.EngineStatus
}

// SystemStatus is the /api/system/status response
type SystemStatus struct {
	Status        string                     `json:"status"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Goroutines    int                        `json:"goroutines"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	DiskFreeBytes uint64                     `json:"disk_free_bytes"`
	DiskUsedPct   float64                    `json:"disk_used_percent"`
	Databases     map[string]*database.Stats `json:"databases"`
	Engine        *services.EngineStatus     `json:"engine,omitempty"`
}

// SystemHandlers serves health and host status
type SystemHandlers struct {
	databases map[string]*database.DB
	engine    EngineStatusProvider
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. engine may be nil.
func NewSystemHandlers(databases map[string]*database.DB, engine EngineStatusProvider, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		engine:    engine,
		dataDir:   dataDir,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth checks every database
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, db := range h.databases {
		if err := db.HealthCheck(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		h.log.Warn().Interface("failed", failed).Msg("Health check failed")
		writeJSON(w, h.log, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"databases": failed,
		})
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "portfoliobot",
	})
}

// HandleSystemStatus returns host and database statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, h.snapshot())
}

func (h *SystemHandlers) snapshot() SystemStatus {
	status := SystemStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make(map[string]*database.Stats, len(h.databases)),
	}

	// A short sample keeps the endpoint responsive
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		status.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		status.MemoryPercent = memStat.UsedPercent
	}

	if h.dataDir != "" {
		if usage, err := disk.Usage(h.dataDir); err != nil {
			h.log.Warn().Err(err).Msg("Failed to get disk usage")
		} else {
			status.DiskFreeBytes = usage.Free
			status.DiskUsedPct = usage.UsedPercent
		}
	}

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats, err := h.databases[name].GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			status.Status = "degraded"
			continue
		}
		status.Databases[name] = stats
	}

	if h.engine != nil {
		engineStatus := h.engine.Status()
		status.Engine = &engineStatus
	}

	return status
}
