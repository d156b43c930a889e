// Package journal implements the engine's optional evaluation journal (Component O):
// a single best-effort table recording one row per completed Context.Evaluate call.
// The journal is never read back by the engine itself — it is a pure observability
// sink, adapted from the teacher's internal/repository dialector-selection idiom but
// reduced to the one table this domain actually needs.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/mpengine/mpcore/internal/obslog"
	"github.com/mpengine/mpcore/pkg/mpconfig"
	"github.com/mpengine/mpcore/pkg/telemetry"
)

// EvaluationRun records one completed (or failed) Context.Evaluate call.
type EvaluationRun struct {
	ID              string `gorm:"primaryKey"`
	Base            string
	PrecisionDigits int
	NodeCount       int
	UnitCount       int
	DurationMillis  int64
	Success         bool
	ErrorMessage    string
	CreatedAt       time.Time
}

func (EvaluationRun) TableName() string { return "evaluation_runs" }

// Journal wraps a GORM connection scoped to the evaluation_runs table.
type Journal struct {
	db *gorm.DB
}

// Open connects to the journal store described by cfg. An empty cfg.Type disables
// the journal: Open returns (nil, nil), and RecordRun on a nil *Journal is a no-op,
// so callers never need to branch on whether a journal was configured.
func Open(cfg mpconfig.JournalConfig) (*Journal, error) {
	if cfg.Type == "" {
		return nil, nil
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "mpcore_journal.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		dialector = postgres.Open(dsn)
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported journal type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal store: %w", err)
	}
	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("enable journal telemetry: %w", err)
		}
	}
	if err := db.AutoMigrate(&EvaluationRun{}); err != nil {
		return nil, fmt.Errorf("migrate journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// RecordRun inserts a row describing one Evaluate call. Failure is logged at WARN and
// swallowed: the journal is best-effort and must never fail an evaluation that
// otherwise succeeded. RecordRun on a nil *Journal (no journal configured) is a no-op.
func (j *Journal) RecordRun(ctx context.Context, run EvaluationRun) {
	if j == nil {
		return
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if err := j.db.WithContext(ctx).Create(&run).Error; err != nil {
		obslog.Global().Warn("failed to record evaluation run", "error", err)
	}
}

// Close releases the underlying connection. A no-op on a nil *Journal.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
