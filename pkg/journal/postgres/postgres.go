package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cashdesk/pkg/journal"

	"github.com/lib/pq"
)

// PostgresJournal keeps the operation journal in a PostgreSQL table so it
// survives workstation reinstalls and can be queried by branch tooling.
type PostgresJournal struct {
	db *sql.DB
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "cashdesk",
		SSLMode:  "disable",
	}
}

// NewPostgresJournal opens a connection pool and ensures the journal table
// exists.
func NewPostgresJournal(cfg Config) (*PostgresJournal, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	j := &PostgresJournal{db: db}

	if err := j.initTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}

	return j, nil
}

func (j *PostgresJournal) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operation_journal (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			drawer_session_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			fee_amount BIGINT NOT NULL,
			reference TEXT,
			receipt_ref TEXT,
			description TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_reference
			ON operation_journal(reference) WHERE reference <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_journal_drawer_session
			ON operation_journal(drawer_session_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := j.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}

// Append adds a record.
func (j *PostgresJournal) Append(ctx context.Context, record journal.Record) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO operation_journal
			(id, type, drawer_session_id, account_id, amount, fee_amount,
			 reference, receipt_ref, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.Type, record.DrawerSessionID, record.AccountID,
		record.Amount, record.FeeAmount, record.Reference, record.ReceiptRef,
		record.Description, record.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return journal.ErrDuplicateReference
		}
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// GetByReference retrieves the record with the given reference.
func (j *PostgresJournal) GetByReference(ctx context.Context, reference string) (*journal.Record, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, type, drawer_session_id, account_id, amount, fee_amount,
			reference, receipt_ref, description, created_at
		 FROM operation_journal WHERE reference = $1`,
		reference,
	)

	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query journal record: %w", err)
	}
	return record, nil
}

// ListBySession lists records for one drawer session, oldest first.
func (j *PostgresJournal) ListBySession(ctx context.Context, drawerSessionID string) ([]journal.Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, type, drawer_session_id, account_id, amount, fee_amount,
			reference, receipt_ref, description, created_at
		 FROM operation_journal
		 WHERE drawer_session_id = $1
		 ORDER BY created_at`,
		drawerSessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal records: %w", err)
	}
	defer rows.Close()

	var records []journal.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal records: %w", err)
	}
	return records, nil
}

// Close closes the connection pool.
func (j *PostgresJournal) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*journal.Record, error) {
	var record journal.Record
	err := s.Scan(
		&record.ID, &record.Type, &record.DrawerSessionID, &record.AccountID,
		&record.Amount, &record.FeeAmount, &record.Reference, &record.ReceiptRef,
		&record.Description, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
