// Package reliability keeps the cache database healthy and backed up:
// local VACUUM INTO snapshots with rotation, compressed offsite copies
// in R2, and a daily maintenance job for checkpoints and disk checks.
//
// Everything in the cache database can be rebuilt from the upstream CSV
// exports given enough time, so backups here buy fast recovery rather
// than durability. That keeps retention windows short.
package reliability

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/tipster/internal/database"
	"github.com/rs/zerolog"
)

// localRetentionDays is how long daily snapshots are kept on disk.
const localRetentionDays = 14

// BackupService manages local snapshots of the cache database.
type BackupService struct {
	db        *database.DB
	backupDir string
	log       zerolog.Logger
}

// NewBackupService creates a backup service writing under backupDir.
func NewBackupService(db *database.DB, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:        db,
		backupDir: backupDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// BackupTo writes a standalone copy of the database to destPath using
// VACUUM INTO, which produces a compact single file with no WAL sidecar.
func (s *BackupService) BackupTo(destPath string) error {
	s.log.Debug().Str("backup_path", destPath).Msg("Backing up database")

	// VACUUM INTO refuses to overwrite an existing file
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale backup file: %w", err)
	}

	if _, err := s.db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	s.log.Debug().
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("Backup created")

	return nil
}

// DailyBackup writes a date-stamped snapshot, verifies it, and rotates
// snapshots older than the retention window.
func (s *BackupService) DailyBackup() error {
	s.log.Info().Msg("Starting daily backup")
	startTime := time.Now()

	dailyDir := filepath.Join(s.backupDir, "daily")
	if err := os.MkdirAll(dailyDir, 0755); err != nil {
		return fmt.Errorf("failed to create daily backup directory: %w", err)
	}

	backupName := fmt.Sprintf("cache_%s.db", time.Now().Format("2006-01-02"))
	backupPath := filepath.Join(dailyDir, backupName)

	if err := s.BackupTo(backupPath); err != nil {
		return fmt.Errorf("failed to backup cache.db: %w", err)
	}

	if err := s.verifyBackup(backupPath); err != nil {
		os.Remove(backupPath)
		return fmt.Errorf("backup verification failed: %w", err)
	}

	if err := s.rotateDailyBackups(dailyDir); err != nil {
		// The snapshot itself succeeded, so rotation problems only warn
		s.log.Warn().Err(err).Msg("Failed to rotate daily backups")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("backup_path", backupPath).
		Msg("Daily backup completed")

	return nil
}

// RestoreFromBackup copies the most recent verified snapshot over
// destPath and returns the snapshot it used.
func (s *BackupService) RestoreFromBackup(destPath string) (string, error) {
	s.log.Warn().Str("dest", destPath).Msg("Searching for backup to restore")

	backupPath := s.findMostRecentBackup(filepath.Join(s.backupDir, "daily"))
	if backupPath == "" {
		return "", fmt.Errorf("no backup found for cache database")
	}

	if err := s.verifyBackup(backupPath); err != nil {
		return "", fmt.Errorf("latest backup %s is corrupt: %w", backupPath, err)
	}

	if err := copyFile(backupPath, destPath); err != nil {
		return "", fmt.Errorf("failed to restore from %s: %w", backupPath, err)
	}

	s.log.Info().Str("backup", backupPath).Msg("Restored database from backup")
	return backupPath, nil
}

// verifyBackup opens the snapshot and runs an integrity check on it.
func (s *BackupService) verifyBackup(backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// rotateDailyBackups deletes snapshots older than the retention window.
func (s *BackupService) rotateDailyBackups(dailyDir string) error {
	cutoff := time.Now().AddDate(0, 0, -localRetentionDays)

	entries, err := os.ReadDir(dailyDir)
	if err != nil {
		return fmt.Errorf("failed to read daily backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("cache_*.db", entry.Name()); !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dailyDir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.log.Warn().Str("path", path).Err(err).Msg("Failed to delete old backup")
			} else {
				s.log.Debug().Str("path", path).Msg("Deleted old backup")
			}
		}
	}

	return nil
}

// findMostRecentBackup returns the newest snapshot in dir, or "".
func (s *BackupService) findMostRecentBackup(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var mostRecent string
	var mostRecentTime time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("cache_*.db", entry.Name()); !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().After(mostRecentTime) {
			mostRecent = filepath.Join(dir, entry.Name())
			mostRecentTime = info.ModTime()
		}
	}

	return mostRecent
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// DailyBackupJob wraps BackupService.DailyBackup for the scheduler.
type DailyBackupJob struct {
	service *BackupService
}

// NewDailyBackupJob creates a new daily backup job.
func NewDailyBackupJob(service *BackupService) *DailyBackupJob {
	return &DailyBackupJob{service: service}
}

// Run executes the daily backup.
func (j *DailyBackupJob) Run() error {
	return j.service.DailyBackup()
}

// Name returns the job name for the scheduler.
func (j *DailyBackupJob) Name() string {
	return "daily_backup"
}
