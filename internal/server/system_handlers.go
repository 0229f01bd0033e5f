package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ghostportfolio/server/internal/database"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	dbStatus := make(map[string]string, len(h.databases))
	healthy := true
	for _, db := range h.databases {
		if err := db.Conn().PingContext(r.Context()); err != nil {
			dbStatus[db.Name()] = "unreachable"
			healthy = false
		} else {
			dbStatus[db.Name()] = "ok"
		}
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	h.writeJSON(w, map[string]interface{}{
		"status":      status,
		"cpu_percent": cpuPercent,
		"ram_percent": memPercent,
		"databases":   dbStatus,
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]map[string]interface{}, 0, len(h.databases))

	for _, db := range h.databases {
		entry := map[string]interface{}{
			"name":    db.Name(),
			"size_mb": h.getFileSizeMB(db.Path()),
		}

		var pageCount, pageSize int
		if err := db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount); err == nil {
			entry["page_count"] = pageCount
		}
		if err := db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize); err == nil {
			entry["page_size"] = pageSize
		}

		stats = append(stats, entry)
	}

	h.writeJSON(w, map[string]interface{}{
		"databases": stats,
		"data_dir":  h.dataDir,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sample so the status endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getFileSizeMB returns a file's size in MB, including its WAL sidecar
func (h *SystemHandlers) getFileSizeMB(path string) float64 {
	var totalSize int64

	for _, p := range []string{path, path + "-wal"} {
		if info, err := os.Stat(filepath.Clean(p)); err == nil {
			totalSize += info.Size()
		}
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
