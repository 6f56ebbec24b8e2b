// Package store persists benchmark runs in SQLite.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/elektrokombinacija/fleetplan/internal/logger"
)

// BenchmarkRun is one (scenario, method) measurement.
type BenchmarkRun struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey"`
	RunID          string    `gorm:"index"` // Groups rows from one bench invocation
	Scenario       string    `gorm:"index"`
	Method         string
	Robots         int
	Operations     int
	Makespan       float64
	RuntimeMs      float64
	Collisions     int
	PausesInserted int
	SafeMakespan   float64 // Makespan after the safety pass; 0 when disabled
	Success        bool
	Error          string
	CreatedAt      time.Time
}

// Store wraps the benchmark database.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, logg *logger.Logger) (*Store, error) {
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open benchmark store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&BenchmarkRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate benchmark store: %w", err)
	}

	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{db: db, log: logg.With("service", "Store", "path", path)}, nil
}

// Record inserts a run, assigning an ID when it has none.
func (s *Store) Record(ctx context.Context, run *BenchmarkRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record benchmark run: %w", err)
	}
	s.log.Debug("benchmark run recorded", "id", run.ID, "scenario", run.Scenario, "method", run.Method)
	return nil
}

// Runs returns the rows of one bench invocation in insertion order.
func (s *Store) Runs(ctx context.Context, runID string) ([]BenchmarkRun, error) {
	var runs []BenchmarkRun
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at, scenario, method").
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list benchmark runs: %w", err)
	}
	return runs, nil
}

// MethodStats aggregates successful runs of one method.
type MethodStats struct {
	Method       string
	Runs         int
	MeanMakespan float64
	MeanRuntime  float64
}

// Stats aggregates successful runs per method across every invocation.
func (s *Store) Stats(ctx context.Context) ([]MethodStats, error) {
	var stats []MethodStats
	err := s.db.WithContext(ctx).
		Model(&BenchmarkRun{}).
		Select("method, COUNT(*) AS runs, AVG(makespan) AS mean_makespan, AVG(runtime_ms) AS mean_runtime").
		Where("success = ?", true).
		Group("method").
		Order("method").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate benchmark runs: %w", err)
	}
	return stats, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
