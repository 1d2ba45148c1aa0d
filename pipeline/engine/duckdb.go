package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/gear6io/terrapipe/pkg/errors"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
)

// Package-specific error codes for the DuckDB engine
var (
	OpenFailed      = errors.MustNewCode("duckdb.open_failed")
	ExtensionFailed = errors.MustNewCode("duckdb.extension_failed")
	SecretFailed    = errors.MustNewCode("duckdb.secret_failed")
)

// Config holds DuckDB engine settings.
type Config struct {
	// MaxMemoryMB caps engine memory. Zero leaves the engine default.
	MaxMemoryMB int `yaml:"max_memory_mb"`
	// Threads caps worker threads. Zero leaves the engine default.
	Threads int `yaml:"threads"`
}

// DefaultConfig returns the default DuckDB engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxMemoryMB: 1024,
	}
}

// S3Credentials configures access to S3-compatible object storage for
// remote dataset URIs. Zero value means anonymous/public access.
type S3Credentials struct {
	KeyID    string `yaml:"key_id"`
	Secret   string `yaml:"secret"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// DuckDB implements Engine on an embedded DuckDB connection.
type DuckDB struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger
}

// Open creates a DuckDB engine on an in-memory database and bootstraps the
// extensions the pipeline needs (httpfs for remote reads, spatial for the
// geometry vocabulary).
func Open(ctx context.Context, config Config, logger zerolog.Logger) (*DuckDB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.New(OpenFailed, "failed to open DuckDB connection", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.New(OpenFailed, "failed to ping DuckDB", err)
	}

	// One ingest session owns one working table; a single connection keeps
	// temp state and attached secrets on that connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	e := &DuckDB{
		db:     db,
		config: config,
		logger: logger.With().Str("component", "duckdb").Logger(),
	}

	if err := e.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return e, nil
}

// initialize loads extensions and applies engine pragmas.
func (e *DuckDB) initialize(ctx context.Context) error {
	extensions := []string{
		"INSTALL httpfs; LOAD httpfs;",
		"INSTALL spatial; LOAD spatial;",
	}
	for _, ext := range extensions {
		if _, err := e.db.ExecContext(ctx, ext); err != nil {
			return errors.New(ExtensionFailed, "extension setup failed", err).
				AddContext("statement", ext)
		}
	}

	pragmas := []string{
		"SET enable_object_cache = true",
		"SET enable_http_metadata_cache = true",
	}
	if e.config.MaxMemoryMB > 0 {
		pragmas = append(pragmas, fmt.Sprintf("SET memory_limit = '%dMB'", e.config.MaxMemoryMB))
	}
	if e.config.Threads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("SET threads = %d", e.config.Threads))
	}
	for _, pragma := range pragmas {
		if _, err := e.db.ExecContext(ctx, pragma); err != nil {
			e.logger.Warn().Err(err).Str("pragma", pragma).Msg("Failed to apply pragma")
		}
	}

	e.logger.Debug().Msg("DuckDB engine initialized")
	return nil
}

// ConfigureS3 creates a DuckDB secret for S3-compatible object storage.
func (e *DuckDB) ConfigureS3(ctx context.Context, creds S3Credentials) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, buildS3SecretSQL(creds)); err != nil {
		return errors.New(SecretFailed, "failed to create S3 secret", err)
	}
	return nil
}

// buildS3SecretSQL renders the CREATE SECRET statement for S3 access.
func buildS3SecretSQL(creds S3Credentials) string {
	stmt := "CREATE OR REPLACE SECRET remote_store (TYPE S3"
	if creds.KeyID != "" {
		stmt += ", KEY_ID " + sqlgen.QuoteLiteral(creds.KeyID)
		stmt += ", SECRET " + sqlgen.QuoteLiteral(creds.Secret)
	}
	if creds.Region != "" {
		stmt += ", REGION " + sqlgen.QuoteLiteral(creds.Region)
	}
	if creds.Endpoint != "" {
		stmt += ", ENDPOINT " + sqlgen.QuoteLiteral(creds.Endpoint)
	}
	return stmt + ")"
}

// Exec runs a statement with no result rows.
func (e *DuckDB) Exec(ctx context.Context, query string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, query); err != nil {
		return errors.New(QueryFailed, "statement execution failed", err)
	}
	return nil
}

// Query runs a metadata-sized query and stringifies every cell.
func (e *DuckDB) Query(ctx context.Context, query string) ([][]string, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.New(QueryFailed, "query execution failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.New(ScanFailed, "failed to get result columns", err)
	}

	var result [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.New(ScanFailed, "failed to scan result row", err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(ScanFailed, "error iterating result rows", err)
	}

	return result, nil
}

// ScalarInt64 runs a query expected to yield exactly one integer cell.
func (e *DuckDB) ScalarInt64(ctx context.Context, query string) (int64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	var v int64
	if err := e.db.QueryRowContext(ctx, query).Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.New(EmptyResult, "scalar query returned no rows", err)
		}
		return 0, errors.New(QueryFailed, "scalar query failed", err)
	}
	return v, nil
}

// ScalarString runs a query expected to yield exactly one string cell.
func (e *DuckDB) ScalarString(ctx context.Context, query string) (string, error) {
	if err := e.checkOpen(); err != nil {
		return "", err
	}

	var v sql.NullString
	if err := e.db.QueryRowContext(ctx, query).Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", errors.New(EmptyResult, "scalar query returned no rows", err)
		}
		return "", errors.New(QueryFailed, "scalar query failed", err)
	}
	return v.String, nil
}

// Close releases the underlying connection.
func (e *DuckDB) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func (e *DuckDB) checkOpen() error {
	if e.db == nil {
		return errors.New(NotConnected, "engine is closed", nil)
	}
	return nil
}
