// Package engine defines the query-engine contract the pipeline runs
// against, and its DuckDB implementation. Bulk data never crosses this
// boundary: ingest materializes engine-side tables and export streams
// engine-side to files, so the Go-visible result surface is metadata-sized.
package engine

import (
	"context"

	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for engine operations
var (
	QueryFailed  = errors.MustNewCode("engine.query_failed")
	ScanFailed   = errors.MustNewCode("engine.scan_failed")
	EmptyResult  = errors.MustNewCode("engine.empty_result")
	NotConnected = errors.MustNewCode("engine.not_connected")
)

// Engine executes query text against local and remote columnar sources.
// Implementations must support the spatial function vocabulary
// (ST_GeometryType, ST_Intersects, ST_Intersection, ST_MakeValid,
// ST_XMin/…/ST_YMax) and a remote parquet reader with glob and
// hive-partition path expansion.
type Engine interface {
	// Exec runs a statement with no result rows (DDL, COPY).
	Exec(ctx context.Context, query string) error

	// Query runs a metadata-sized query and returns every value as a
	// string. NULLs come back as empty strings.
	Query(ctx context.Context, query string) ([][]string, error)

	// ScalarInt64 runs a query expected to yield exactly one integer cell.
	ScalarInt64(ctx context.Context, query string) (int64, error)

	// ScalarString runs a query expected to yield exactly one string cell.
	ScalarString(ctx context.Context, query string) (string, error)
}
