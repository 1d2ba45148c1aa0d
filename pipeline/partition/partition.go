// Package partition splits the working table by geometry type and builds
// the per-type export queries, ordered for deterministic map stacking.
package partition

import (
	"context"
	"sort"
	"strings"

	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/geo"
	"github.com/gear6io/terrapipe/pipeline/ingest"
	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/rs/zerolog"
)

// Package-specific error codes for partitioning
var (
	EnumerationFailed = errors.MustNewCode("partition.enumeration_failed")
)

// Partition is one geometry-type slice of the working table. Derived
// transiently; never persisted.
type Partition struct {
	GeometryType geo.GeometryType
	// Priority is the stacking priority: 1 polygon, 2 line, 3 point,
	// 99 unknown. Lower draws first.
	Priority int
	// Predicate selects this partition's rows from the working table.
	Predicate string
}

// Partitioner enumerates geometry-type partitions of a working table.
type Partitioner struct {
	engine engine.Engine
	logger zerolog.Logger
}

// NewPartitioner creates a partitioner.
func NewPartitioner(eng engine.Engine, logger zerolog.Logger) *Partitioner {
	return &Partitioner{
		engine: eng,
		logger: logger.With().Str("component", "partitioner").Logger(),
	}
}

// Partition enumerates the distinct geometry types of non-null geometries
// in the session's working table, ordered by stacking priority ascending
// then discovery order. Zero partitions is a valid terminal state, not an
// error: nothing to export.
func (p *Partitioner) Partition(ctx context.Context, session *ingest.Session) ([]Partition, error) {
	geomCol := sqlgen.QuoteIdentifier(session.GeometryColumn())
	table := sqlgen.QuoteIdentifier(session.Table())

	query := "SELECT DISTINCT " + sqlgen.GeometryTypeExpr(geomCol) +
		" FROM " + table +
		" WHERE " + geomCol + " IS NOT NULL"

	rows, err := p.engine.Query(ctx, query)
	if err != nil {
		return nil, errors.New(EnumerationFailed, "failed to enumerate geometry types", err).
			AddContext("table", session.Table())
	}

	partitions := make([]Partition, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		tag := geo.NormalizeGeometryType(row[0])
		partitions = append(partitions, Partition{
			GeometryType: tag,
			Priority:     tag.StackingPriority(),
			Predicate: sqlgen.GeometryTypeExpr(geomCol) + " = " +
				sqlgen.QuoteLiteral(string(tag)),
		})
	}

	// Priority ascending, discovery order within a priority.
	sort.SliceStable(partitions, func(i, j int) bool {
		return partitions[i].Priority < partitions[j].Priority
	})

	p.logger.Debug().
		Int("partitions", len(partitions)).
		Str("table", session.Table()).
		Msg("Enumerated geometry partitions")

	return partitions, nil
}

// BuildExportQuery renders the SELECT streaming one partition to a file.
// For clipped working tables the bbox struct is recomputed from the stored
// geometry so the exported bounds always describe the clipped shape.
func BuildExportQuery(session *ingest.Session, part Partition) string {
	table := sqlgen.QuoteIdentifier(session.Table())
	geomCol := sqlgen.QuoteIdentifier(session.GeometryColumn())
	bboxCol := session.BBoxColumn()

	selectList := "*"
	if session.Clipped() && bboxCol != "" {
		parts := make([]string, 0, len(session.Columns()))
		for _, name := range session.Columns() {
			if strings.EqualFold(name, bboxCol) {
				parts = append(parts, sqlgen.BBoxStruct(geomCol)+" AS "+sqlgen.QuoteIdentifier(bboxCol))
			} else {
				parts = append(parts, sqlgen.QuoteIdentifier(name))
			}
		}
		selectList = strings.Join(parts, ", ")
	}

	return "SELECT " + selectList + " FROM " + table + " WHERE " + part.Predicate
}
