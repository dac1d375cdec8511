package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// DB is the subset of *pgxpool.Pool the Postgres store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	insertSimulation = `INSERT INTO simulations (code, created_at, product_type, analysis)
VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO NOTHING`

	selectSimulation = `SELECT code, created_at, analysis FROM simulations WHERE code = $1`
)

// PostgresStore keeps simulations in the simulations table.
type PostgresStore struct {
	db     DB
	now    func() time.Time
	logger *zap.Logger
}

// Connect opens a connection pool and verifies the database responds.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// NewPostgresStore creates a store on db.
func NewPostgresStore(db DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, now: time.Now, logger: logger}
}

// Save stores analysis under a new reference code.
func (p *PostgresStore) Save(ctx context.Context, analysis credit.Analysis) (Record, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		record := newRecord(analysis, p.now().UTC())
		data, err := json.Marshal(record.Analysis)
		if err != nil {
			return Record{}, fmt.Errorf("failed to encode simulation: %w", err)
		}

		tag, err := p.db.Exec(ctx, insertSimulation, record.Code, record.CreatedAt, analysis.Profile.ProductType, data)
		if err != nil {
			return Record{}, fmt.Errorf("failed to save simulation %s: %w", record.Code, err)
		}
		if tag.RowsAffected() == 1 {
			p.logger.Debug("simulation saved",
				zap.String("op", "storage.PostgresStore.Save"),
				zap.String("code", record.Code),
			)
			return record, nil
		}
	}
	return Record{}, fmt.Errorf("failed to allocate a unique reference code after %d attempts", maxCodeAttempts)
}

// Get returns the record for code.
func (p *PostgresStore) Get(ctx context.Context, code string) (Record, error) {
	var (
		record Record
		data   []byte
	)
	err := p.db.QueryRow(ctx, selectSimulation, code).Scan(&record.Code, &record.CreatedAt, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load simulation %s: %w", code, err)
	}
	if err := json.Unmarshal(data, &record.Analysis); err != nil {
		return Record{}, fmt.Errorf("failed to decode simulation %s: %w", code, err)
	}
	return record, nil
}
