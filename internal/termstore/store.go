// Package termstore persists clinical vocabulary in PostgreSQL. It backs the
// ETL tool that builds the newline-delimited whitelist data files consumed by
// the knowledge base.
package termstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Kind classifies a stored term.
type Kind string

const (
	KindClinical   Kind = "clinical"
	KindCommonWord Kind = "common_word"
)

// Term is one vocabulary entry.
type Term struct {
	ID            int64     `db:"id" json:"id"`
	Term          string    `db:"term" json:"term"`
	Kind          Kind      `db:"kind" json:"kind"`
	SourceDataset string    `db:"source_dataset" json:"source_dataset"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BatchInsertResult summarizes one batch insert.
type BatchInsertResult struct {
	Inserted int64         `json:"inserted"`
	Skipped  int64         `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Stats summarizes store contents.
type Stats struct {
	TotalTerms    int64 `json:"total_terms"`
	ClinicalTerms int64 `json:"clinical_terms"`
	CommonWords   int64 `json:"common_words"`
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Defaults returns store configuration defaults.
func Defaults() Config {
	return Config{
		DatabaseURL:     "postgres://localhost:5432/deid?sslmode=disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store is a PostgreSQL-backed clinical term store.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore connects to the database and ensures the schema exists.
func NewStore(config Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Term store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
	)

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS clinical_terms (
			id BIGSERIAL PRIMARY KEY,
			term TEXT NOT NULL,
			kind TEXT NOT NULL,
			source_dataset TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (term, kind)
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// BatchInsert adds terms efficiently, skipping duplicates.
func (s *Store) BatchInsert(ctx context.Context, terms []*Term) (*BatchInsertResult, error) {
	if len(terms) == 0 {
		return &BatchInsertResult{}, nil
	}

	start := time.Now()

	valueStrings := make([]string, 0, len(terms))
	valueArgs := make([]interface{}, 0, len(terms)*3)
	for i, term := range terms {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		valueArgs = append(valueArgs,
			strings.ToLower(strings.TrimSpace(term.Term)),
			term.Kind,
			term.SourceDataset,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO clinical_terms (term, kind, source_dataset)
		VALUES %s
		ON CONFLICT (term, kind) DO NOTHING`,
		strings.Join(valueStrings, ","))

	res, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		s.logger.Error("Batch insert failed", zap.Error(err))
		return nil, fmt.Errorf("batch insert failed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		inserted = int64(len(terms))
	}

	result := &BatchInsertResult{
		Inserted: inserted,
		Skipped:  int64(len(terms)) - inserted,
		Duration: time.Since(start),
	}

	s.logger.Debug("Batch insert completed",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("duplicates_skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// ExportTerms writes all terms of a kind as a newline-delimited list, the
// file format internal/knowledge consumes.
func (s *Store) ExportTerms(ctx context.Context, kind Kind, w io.Writer) (int64, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT term FROM clinical_terms WHERE kind = $1 ORDER BY term`, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return count, fmt.Errorf("failed to scan term: %w", err)
		}
		if _, err := fmt.Fprintln(w, term); err != nil {
			return count, fmt.Errorf("failed to write term: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to iterate terms: %w", err)
	}

	s.logger.Info("Exported terms", zap.String("kind", string(kind)), zap.Int64("count", count))
	return count, nil
}

// GetStats returns store statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE kind = 'clinical') AS clinical,
			COUNT(*) FILTER (WHERE kind = 'common_word') AS common
		FROM clinical_terms`
	row := s.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&stats.TotalTerms, &stats.ClinicalTerms, &stats.CommonWords); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//")+1 {
				parts[0] = userPart[:idx] + ":***"
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
