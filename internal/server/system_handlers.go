// Package server provides the HTTP server and routing for the tipster dashboard.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/tipster/internal/database"
	"github.com/aristath/tipster/internal/dataset"
	"github.com/aristath/tipster/internal/reliability"
	"github.com/aristath/tipster/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	cacheDB     *database.DB
	data        *dataset.Assembler
	sched       *scheduler.Scheduler
	r2Backups   *reliability.R2BackupService

	// Set after job registration in main.go.
	refreshJob scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	cacheDB *database.DB,
	data *dataset.Assembler,
	sched *scheduler.Scheduler,
	r2Backups *reliability.R2BackupService,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		cacheDB:     cacheDB,
		data:        data,
		sched:       sched,
		r2Backups:   r2Backups,
	}
}

// SetRefreshJob registers the dataset refresh job for manual triggering
func (h *SystemHandlers) SetRefreshJob(job scheduler.Job) {
	h.refreshJob = job
}

// SystemStatusResponse is the payload for GET /api/system/status
type SystemStatusResponse struct {
	Status        string            `json:"status"`
	UptimeHours   float64           `json:"uptime_hours"`
	CPUPercent    float64           `json:"cpu_percent"`
	RAMPercent    float64           `json:"ram_percent"`
	DatasetLoaded bool              `json:"dataset_loaded"`
	LoadID        string            `json:"load_id,omitempty"`
	Epoch         int64             `json:"epoch,omitempty"`
	LoadedAt      string            `json:"loaded_at,omitempty"`
	AgeMinutes    float64           `json:"age_minutes,omitempty"`
	Degraded      map[string]string `json:"degraded,omitempty"`
}

// HandleSystemStatus returns process health and the current dataset's vitals
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
	}

	if ds := h.data.Current(); ds != nil {
		response.DatasetLoaded = true
		response.LoadID = ds.LoadID
		response.Epoch = ds.Epoch
		response.LoadedAt = ds.LoadedAt.Format(time.RFC3339)
		response.AgeMinutes = time.Since(ds.LoadedAt).Minutes()
		response.Degraded = ds.Degraded
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// JobsStatusResponse is the payload for GET /api/system/jobs
type JobsStatusResponse struct {
	TotalJobs int                 `json:"total_jobs"`
	Jobs      []scheduler.JobInfo `json:"jobs"`
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	jobs := h.sched.Jobs()
	response := JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DatabaseStatsResponse is the payload for GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Name        string  `json:"name"`
	SizeMB      float64 `json:"size_mb"`
	WALSizeMB   float64 `json:"wal_size_mb"`
	PageCount   int64   `json:"page_count"`
	PageSize    int64   `json:"page_size"`
	FreePages   int64   `json:"free_pages"`
	LastChecked string  `json:"last_checked"`
}

// HandleDatabaseStats returns size and page statistics for the cache database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	stats, err := h.cacheDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := DatabaseStatsResponse{
		Name:        h.cacheDB.Name(),
		SizeMB:      float64(stats.SizeBytes) / 1024 / 1024,
		WALSizeMB:   float64(stats.WALSizeBytes) / 1024 / 1024,
		PageCount:   stats.PageCount,
		PageSize:    stats.PageSize,
		FreePages:   stats.FreelistCount,
		LastChecked: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DiskUsageResponse is the payload for GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	BackupsMB float64 `json:"backups_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	dataDirSize := h.getDirSize(h.dataDir)
	backupsDir := filepath.Join(h.dataDir, "backups")
	backupsSize := h.getDirSize(backupsDir)

	response := DiskUsageResponse{
		DataDirMB: dataDirSize,
		BackupsMB: backupsSize,
		TotalMB:   dataDirSize,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling window so the status endpoint stays responsive.
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

// BackupsResponse is the payload for GET /api/system/backups
type BackupsResponse struct {
	Enabled bool                     `json:"enabled"`
	Backups []reliability.BackupInfo `json:"backups"`
}

// HandleBackups lists offsite backup archives, newest first
func (h *SystemHandlers) HandleBackups(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Listing offsite backups")

	if h.r2Backups == nil {
		h.writeJSON(w, BackupsResponse{Enabled: false, Backups: []reliability.BackupInfo{}})
		return
	}

	backups, err := h.r2Backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list offsite backups")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if backups == nil {
		backups = []reliability.BackupInfo{}
	}

	h.writeJSON(w, BackupsResponse{Enabled: true, Backups: backups})
}

// SourceStatus describes one feed source's cache state
type SourceStatus struct {
	Name      string `json:"name"`
	Required  bool   `json:"required"`
	TTL       string `json:"ttl"`
	Cached    bool   `json:"cached"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Stale     bool   `json:"stale,omitempty"`
}

// DatasetStatusResponse is the payload for GET /api/dataset/status
type DatasetStatusResponse struct {
	Loaded   bool              `json:"loaded"`
	LoadID   string            `json:"load_id,omitempty"`
	Epoch    int64             `json:"epoch,omitempty"`
	LoadedAt string            `json:"loaded_at,omitempty"`
	Degraded map[string]string `json:"degraded,omitempty"`
	Sources  []SourceStatus    `json:"sources"`
}

// HandleDatasetStatus reports the install state of the current dataset and
// the cache state of every feed source behind it
func (h *SystemHandlers) HandleDatasetStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting dataset status")

	type cacheRow struct {
		size      int64
		expiresAt int64
	}
	cached := make(map[string]cacheRow)

	rows, err := h.cacheDB.Conn().Query("SELECT source, LENGTH(data), expires_at FROM feed_sources")
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query feed source cache")
	} else {
		defer rows.Close()
		for rows.Next() {
			var source string
			var row cacheRow
			if err := rows.Scan(&source, &row.size, &row.expiresAt); err != nil {
				h.log.Warn().Err(err).Msg("Failed to scan feed source row")
				continue
			}
			cached[source] = row
		}
	}

	now := time.Now()
	known := dataset.Sources()
	sources := make([]SourceStatus, 0, len(known))
	for _, src := range known {
		status := SourceStatus{
			Name:     src.Name,
			Required: src.Required,
			TTL:      src.TTL.String(),
		}
		if row, ok := cached[src.Name]; ok {
			expiry := time.Unix(row.expiresAt, 0)
			status.Cached = true
			status.SizeBytes = row.size
			status.ExpiresAt = expiry.UTC().Format(time.RFC3339)
			status.Stale = expiry.Before(now)
		}
		sources = append(sources, status)
	}

	response := DatasetStatusResponse{Sources: sources}
	if ds := h.data.Current(); ds != nil {
		response.Loaded = true
		response.LoadID = ds.LoadID
		response.Epoch = ds.Epoch
		response.LoadedAt = ds.LoadedAt.Format(time.RFC3339)
		response.Degraded = ds.Degraded
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleTriggerRefresh triggers a dataset refresh immediately
// POST /api/system/refresh
func (h *SystemHandlers) HandleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.refreshJob == nil {
		h.log.Warn().Msg("Refresh job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "Refresh job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual dataset refresh triggered")

	job := h.refreshJob
	go func() {
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Msg("Manual dataset refresh failed")
		}
	}()

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Dataset refresh triggered successfully",
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
