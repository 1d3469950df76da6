package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresWriter implements Writer using PostgreSQL.
type PostgresWriter struct {
	pool         *pgxpool.Pool
	cfg          Config
	mu           sync.RWMutex
	datasetCache map[string]int64 // cache dataset IDs
}

// NewPostgresWriter creates a new PostgreSQL catalog writer.
func NewPostgresWriter(cfg Config) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	w := &PostgresWriter{
		pool:         pool,
		cfg:          cfg,
		datasetCache: make(map[string]int64),
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Println("[catalog] connected to PostgreSQL catalog")
	return w, nil
}

// EnsureDataset registers or retrieves a dataset entry.
func (w *PostgresWriter) EnsureDataset(ctx context.Context, name, fingerprint string, values int) (int64, error) {
	cacheKey := name + "|" + fingerprint
	w.mu.RLock()
	if id, ok := w.datasetCache[cacheKey]; ok {
		w.mu.RUnlock()
		return id, nil
	}
	w.mu.RUnlock()

	query := `
		INSERT INTO _bench_datasets (namespace, name, fingerprint, value_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, name, fingerprint)
		DO UPDATE SET updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := w.pool.QueryRow(ctx, query, w.cfg.Namespace, name, fingerprint, int64(values)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure dataset: %w", err)
	}

	w.mu.Lock()
	w.datasetCache[cacheKey] = id
	w.mu.Unlock()

	return id, nil
}

// RecordRun writes one benchmark run. Re-recording a run id overwrites it.
func (w *PostgresWriter) RecordRun(ctx context.Context, rec RunRecord) error {
	datasetID, err := w.EnsureDataset(ctx, rec.Dataset, rec.Fingerprint, rec.Values)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO _bench_runs (
			run_id, dataset_id, correlation_id, trial, requested_workers, workers,
			partitions, sequential_ns, parallel_ns, match, first_mismatch, speedup,
			efficiency, producer_version, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id)
		DO UPDATE SET
			partitions = EXCLUDED.partitions,
			sequential_ns = EXCLUDED.sequential_ns,
			parallel_ns = EXCLUDED.parallel_ns,
			match = EXCLUDED.match,
			first_mismatch = EXCLUDED.first_mismatch,
			speedup = EXCLUDED.speedup,
			efficiency = EXCLUDED.efficiency,
			created_at = NOW()
	`

	var correlationID *string
	if rec.CorrelationID != "" {
		correlationID = &rec.CorrelationID
	}

	_, err = w.pool.Exec(ctx, query,
		rec.RunID,
		datasetID,
		correlationID,
		rec.Trial,
		rec.RequestedWorkers,
		rec.Workers,
		rec.Partitions,
		rec.Sequential.Nanoseconds(),
		rec.Parallel.Nanoseconds(),
		rec.Match,
		int64(rec.FirstMismatch),
		rec.Speedup,
		rec.Efficiency,
		rec.ProducerVersion,
		rec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	log.Printf("[catalog] recorded run %s for %s", rec.RunID, rec.Dataset)
	return nil
}

// Close releases database connections.
func (w *PostgresWriter) Close() error {
	w.pool.Close()
	return nil
}
