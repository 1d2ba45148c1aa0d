// Package ingest materializes the filtered, optionally clipped working
// table one pipeline session operates on. One session owns at most one
// working table; re-ingest replaces it wholesale.
package ingest

import (
	"context"
	"strings"

	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/geo"
	"github.com/gear6io/terrapipe/pipeline/schema"
	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/rs/zerolog"
)

// Package-specific error codes for ingest
var (
	LoadFailed     = errors.MustNewCode("ingest.load_failed")
	CountFailed    = errors.MustNewCode("ingest.count_failed")
	InvalidTable   = errors.MustNewCode("ingest.invalid_table")
	InvalidDataset = errors.MustNewCode("ingest.invalid_dataset")
	SessionClosed  = errors.MustNewCode("ingest.session_closed")
)

// State is the ingest state machine position.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateLoading
	StateReady
	StateEmpty
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options controls one ingest call.
type Options struct {
	Dataset *schema.RemoteDataset
	// Extent limits ingest to a viewport. Nil loads the whole dataset (the
	// degraded slow path, logged as such).
	Extent *geo.Extent
	// RepairGeometry wraps the geometry in validity repair before filtering.
	RepairGeometry bool
	// Clip truncates geometries exactly to the extent instead of merely
	// filtering by intersection.
	Clip bool
}

// Result reports one ingest call. Zero rows is a distinguished success,
// not a failure.
type Result struct {
	State    State
	RowCount int64
	Schema   *schema.Descriptor
}

// Empty reports whether ingest succeeded with nothing to export.
func (r Result) Empty() bool {
	return r.State == StateEmpty
}

// Session owns the working table for one pipeline session. Not safe for
// concurrent ingest calls; concurrent callers serialize or use separate
// sessions.
type Session struct {
	engine         engine.Engine
	prober         *schema.Prober
	policy         schema.DropPolicy
	table          string
	geometryColumn string
	bboxColumn     string
	logger         zerolog.Logger

	state    State
	desc     *schema.Descriptor
	columns  []string
	geomCol  string
	bboxCol  string
	hasBBox  bool
	clipped  bool
	rowCount int64
	closed   bool
}

// NewSession creates an ingest session. The table name is validated once
// here; every later query embeds it quoted.
func NewSession(eng engine.Engine, policy schema.DropPolicy, table, geometryColumn, bboxColumn string, logger zerolog.Logger) (*Session, error) {
	if err := sqlgen.ValidateIdentifier(table); err != nil {
		return nil, errors.New(InvalidTable, "invalid working table name", err)
	}
	if geometryColumn == "" {
		geometryColumn = "geometry"
	}
	if bboxColumn == "" {
		bboxColumn = "bbox"
	}
	return &Session{
		engine:         eng,
		prober:         schema.NewProber(eng, logger),
		policy:         policy,
		table:          table,
		geometryColumn: geometryColumn,
		bboxColumn:     bboxColumn,
		geomCol:        geometryColumn,
		bboxCol:        bboxColumn,
		logger:         logger.With().Str("component", "ingest").Logger(),
		state:          StateIdle,
	}, nil
}

// Table returns the working table name.
func (s *Session) Table() string { return s.table }

// GeometryColumn returns the geometry column name in the working table,
// reflecting any footer-metadata override from the last ingest.
func (s *Session) GeometryColumn() string { return s.geomCol }

// BBoxColumn returns the bbox column name, empty when the dataset has none.
func (s *Session) BBoxColumn() string {
	if !s.hasBBox {
		return ""
	}
	return s.bboxCol
}

// Columns returns the working table column names from the last ingest.
func (s *Session) Columns() []string { return s.columns }

// State returns the current state machine position.
func (s *Session) State() State { return s.state }

// RowCount returns the working table row count from the last ingest.
func (s *Session) RowCount() int64 { return s.rowCount }

// Clipped reports whether the last ingest truncated geometries to the extent.
func (s *Session) Clipped() bool { return s.clipped }

// Ingest materializes the working table from the remote dataset. The
// previous working table, if any, is replaced; no append, no merge.
func (s *Session) Ingest(ctx context.Context, opts Options) (Result, error) {
	if s.closed {
		return s.fail(errors.New(SessionClosed, "session is closed", nil))
	}
	if opts.Dataset == nil {
		return s.fail(errors.New(InvalidDataset, "dataset is required", nil))
	}
	if opts.Extent != nil {
		if err := opts.Extent.Validate(); err != nil {
			return s.fail(err)
		}
	} else {
		s.logger.Warn().Str("uri", opts.Dataset.URI).
			Msg("No extent supplied, loading entire dataset")
	}

	s.state = StateProbing
	desc, err := s.prober.Probe(ctx, opts.Dataset)
	if err != nil {
		return s.fail(err)
	}

	// Footer metadata wins over configured column names when present. The
	// override holds for this ingest only; the configured defaults stay
	// untouched for the next dataset.
	geomCol, bboxCol := s.geometryColumn, s.bboxColumn
	if meta := schema.ReadGeoMetadata(ctx, s.engine, opts.Dataset); meta.PrimaryColumn != "" {
		geomCol = meta.PrimaryColumn
		if meta.BBoxColumn != "" {
			bboxCol = meta.BBoxColumn
		}
	}
	s.geomCol = geomCol
	s.bboxCol = bboxCol
	s.hasBBox = desc.Has(bboxCol)

	projection := schema.Project(s.policy, opts.Dataset.TypeKey, desc, geomCol, bboxCol)

	// Repair must reach the filter too: intersection predicates on invalid
	// geometry are undefined, so the exact stage tests the repaired
	// expression, not the raw column.
	filterGeomExpr := sqlgen.QuoteIdentifier(geomCol)
	if opts.RepairGeometry {
		filterGeomExpr = sqlgen.RepairExpression(filterGeomExpr)
	}
	filter := sqlgen.BuildFilter(opts.Extent, filterGeomExpr, bboxCol, s.hasBBox)

	s.state = StateLoading
	query := s.buildLoadQuery(opts, desc, projection, filter, geomCol, bboxCol)
	if err := s.engine.Exec(ctx, query); err != nil {
		return s.fail(errors.New(LoadFailed, "failed to materialize working table", err).
			AddContext("uri", opts.Dataset.URI))
	}

	count, err := s.engine.ScalarInt64(ctx, "SELECT count(*) FROM "+sqlgen.QuoteIdentifier(s.table))
	if err != nil {
		return s.fail(errors.New(CountFailed, "failed to count working table rows", err))
	}

	s.desc = desc
	s.clipped = opts.Clip && opts.Extent != nil
	s.rowCount = count

	if count == 0 {
		s.state = StateEmpty
	} else {
		s.state = StateReady
	}

	s.logger.Info().
		Str("uri", opts.Dataset.URI).
		Int64("rows", count).
		Bool("clipped", s.clipped).
		Bool("repaired", opts.RepairGeometry).
		Str("state", s.state.String()).
		Msg("Ingest complete")

	return Result{State: s.state, RowCount: count, Schema: desc}, nil
}

// buildLoadQuery assembles the CREATE OR REPLACE TABLE ... AS SELECT for
// one ingest. The geometry column may be wrapped in repair and clip
// expressions; when it is, the bbox struct is recomputed from the final
// geometry expression, never copied from the source row.
func (s *Session) buildLoadQuery(opts Options, desc *schema.Descriptor, projection []string, filter sqlgen.Filter, geomCol, bboxCol string) string {
	names := projection
	if names == nil {
		names = desc.Names()
	}
	s.columns = names

	geomExpr := sqlgen.QuoteIdentifier(geomCol)
	if opts.RepairGeometry {
		geomExpr = sqlgen.RepairExpression(geomExpr)
	}
	clipping := opts.Clip && opts.Extent != nil
	if clipping {
		geomExpr = sqlgen.ClipExpression(geomExpr, opts.Extent)
	}
	geometryRewritten := geomExpr != sqlgen.QuoteIdentifier(geomCol)

	selectList := make([]string, 0, len(names))
	for _, name := range names {
		switch {
		case strings.EqualFold(name, geomCol) && geometryRewritten:
			selectList = append(selectList, geomExpr+" AS "+sqlgen.QuoteIdentifier(geomCol))
		case strings.EqualFold(name, bboxCol) && s.hasBBox && geometryRewritten:
			selectList = append(selectList, sqlgen.BBoxStruct(geomExpr)+" AS "+sqlgen.QuoteIdentifier(bboxCol))
		default:
			selectList = append(selectList, sqlgen.QuoteIdentifier(name))
		}
	}

	query := "CREATE OR REPLACE TABLE " + sqlgen.QuoteIdentifier(s.table) +
		" AS SELECT " + strings.Join(selectList, ", ") +
		" FROM " + opts.Dataset.SourceExpr()
	if filter.Predicate != "" {
		query += " WHERE " + filter.Predicate
	}
	return query
}

func (s *Session) fail(err error) (Result, error) {
	s.state = StateFailed
	s.rowCount = 0
	return Result{State: StateFailed}, err
}

// Close drops the working table and ends the session.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.state = StateIdle
	return s.engine.Exec(ctx, "DROP TABLE IF EXISTS "+sqlgen.QuoteIdentifier(s.table))
}
