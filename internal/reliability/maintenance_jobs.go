package reliability

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/aristath/tipster/internal/database"
	"github.com/aristath/tipster/internal/sourcecache"
	"github.com/rs/zerolog"
)

// Disk space thresholds for the data directory, in GB.
const (
	diskSpaceCriticalGB = 0.5
	diskSpaceWarningGB  = 5.0
)

// DailyMaintenanceJob keeps the cache database lean: it purges expired
// rows, truncates the WAL, compacts the file, and checks free disk
// space. Each step runs even when an earlier one fails.
type DailyMaintenanceJob struct {
	db      *database.DB
	cache   *sourcecache.Repository
	dataDir string
	log     zerolog.Logger
}

// DailyMaintenanceConfig holds dependencies for the maintenance job.
type DailyMaintenanceConfig struct {
	DB      *database.DB
	Cache   *sourcecache.Repository
	DataDir string
	Log     zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job.
func NewDailyMaintenanceJob(cfg DailyMaintenanceConfig) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:      cfg.DB,
		cache:   cfg.Cache,
		dataDir: cfg.DataDir,
		log:     cfg.Log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes all maintenance steps and joins their errors.
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	var errs []error

	if err := j.purgeExpiredRows(); err != nil {
		j.log.Error().Err(err).Msg("Failed to purge expired cache rows")
		errs = append(errs, fmt.Errorf("purge expired rows: %w", err))
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Error().Err(err).Msg("WAL checkpoint failed")
		errs = append(errs, fmt.Errorf("wal checkpoint: %w", err))
	}

	if err := j.vacuum(); err != nil {
		j.log.Error().Err(err).Msg("Vacuum failed")
		errs = append(errs, fmt.Errorf("vacuum: %w", err))
	}

	if err := j.checkDiskSpace(); err != nil {
		j.log.Error().Err(err).Msg("Disk space check failed")
		errs = append(errs, fmt.Errorf("disk space: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")

	return nil
}

func (j *DailyMaintenanceJob) purgeExpiredRows() error {
	deleted, err := j.cache.DeleteAllExpired()
	if err != nil {
		return err
	}

	var total int64
	for _, n := range deleted {
		total += n
	}

	j.log.Debug().Int64("rows", total).Msg("Purged expired cache rows")
	return nil
}

// vacuum compacts the database and logs how much space it reclaimed.
func (j *DailyMaintenanceJob) vacuum() error {
	before, err := j.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats before vacuum: %w", err)
	}

	if err := j.db.Vacuum(); err != nil {
		return err
	}

	after, err := j.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats after vacuum: %w", err)
	}

	beforeBytes := before.PageCount * before.PageSize
	afterBytes := after.PageCount * after.PageSize

	j.log.Debug().
		Int64("before_bytes", beforeBytes).
		Int64("after_bytes", afterBytes).
		Int64("reclaimed_bytes", beforeBytes-afterBytes).
		Msg("Vacuum completed")

	return nil
}

// checkDiskSpace warns when the data directory's filesystem runs low.
// Only logs; a full disk will surface as write errors soon enough.
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(j.dataDir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", j.dataDir, err)
	}

	availableGB := float64(stat.Bavail) * float64(stat.Bsize) / (1024 * 1024 * 1024)

	switch {
	case availableGB < diskSpaceCriticalGB:
		j.log.Error().
			Float64("available_gb", availableGB).
			Msg("Critically low disk space")
	case availableGB < diskSpaceWarningGB:
		j.log.Warn().
			Float64("available_gb", availableGB).
			Msg("Low disk space")
	default:
		j.log.Debug().
			Float64("available_gb", availableGB).
			Msg("Disk space OK")
	}

	return nil
}
