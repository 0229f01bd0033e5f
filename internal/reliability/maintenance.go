package reliability

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghostportfolio/server/internal/database"
)

// MaintenanceJob performs periodic database maintenance
type MaintenanceJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(databases []*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() {
	j.log.Info().Msg("Starting maintenance")
	startTime := time.Now()

	// Integrity check for all databases
	for _, db := range j.databases {
		j.log.Debug().Str("database", db.Name()).Msg("Running integrity check")

		if err := j.checkIntegrity(db); err != nil {
			j.log.Error().
				Str("database", db.Name()).
				Err(err).
				Msg("Integrity check failed")
		}
	}

	// WAL checkpoint for all databases (prevent bloat)
	for _, db := range j.databases {
		j.log.Debug().Str("database", db.Name()).Msg("Running WAL checkpoint")

		if err := db.Checkpoint(); err != nil {
			j.log.Warn().
				Str("database", db.Name()).
				Err(err).
				Msg("WAL checkpoint failed")
			// Not critical, continue
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Maintenance completed successfully")
}

// checkIntegrity runs PRAGMA integrity_check on a database
func (j *MaintenanceJob) checkIntegrity(db *database.DB) error {
	var result string
	if err := db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned %q", result)
	}
	return nil
}
