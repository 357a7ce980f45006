// Package postgres stores stage records in a PostgreSQL table.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// Store is a PostgreSQL store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded migrations in file name order. Each migration is
// idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

func (s *Store) Append(ctx context.Context, r *store.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	var data any
	if len(r.Data) > 0 {
		data = string(r.Data)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO launch_records (request_id, stage, phase, tx_hash, block_number, data, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
	`, r.RequestID, string(r.Stage), string(r.Phase), r.TxHash.Hex(), int64(r.BlockNumber), data, r.RecordedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch record: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, requestID string) ([]store.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stage, phase, tx_hash, block_number, data, recorded_at
		FROM launch_records
		WHERE request_id = $1
		ORDER BY id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query launch records: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var (
			r           store.Record
			stage       string
			phase       string
			txHash      string
			blockNumber int64
			data        []byte
		)
		if err := rows.Scan(&stage, &phase, &txHash, &blockNumber, &data, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan launch record: %w", err)
		}
		r.RequestID = requestID
		r.Stage = launch.Stage(stage)
		r.Phase = store.Phase(phase)
		r.TxHash = common.HexToHash(txHash)
		r.BlockNumber = uint64(blockNumber)
		r.Data = data
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
