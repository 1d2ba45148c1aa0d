package ingest

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/gear6io/terrapipe/pipeline/engine/enginetest"
	"github.com/gear6io/terrapipe/pipeline/geo"
	"github.com/gear6io/terrapipe/pipeline/schema"
	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeRows() [][]string {
	return [][]string{
		{"id", "VARCHAR", "YES", "", "", ""},
		{"names", "STRUCT(primary VARCHAR)", "YES", "", "", ""},
		{"bbox", "STRUCT(xmin FLOAT, xmax FLOAT, ymin FLOAT, ymax FLOAT)", "YES", "", "", ""},
		{"geometry", "GEOMETRY", "YES", "", "", ""},
	}
}

func newTestSession(t *testing.T, fake *enginetest.Fake, policy schema.DropPolicy) *Session {
	t.Helper()
	s, err := NewSession(fake, policy, "working_extract", "geometry", "bbox", zerolog.Nop())
	require.NoError(t, err)
	return s
}

func testOptions(extent *geo.Extent) Options {
	return Options{
		Dataset: &schema.RemoteDataset{
			URI:     "s3://bucket/theme=buildings/*.parquet",
			Theme:   "buildings",
			TypeKey: "building",
		},
		Extent: extent,
	}
}

func TestIngestHappyPath(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 1234})

	s := newTestSession(t, fake, nil)
	extent := &geo.Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10}

	result, err := s.Ingest(context.Background(), testOptions(extent))
	require.NoError(t, err)
	assert.Equal(t, StateReady, result.State)
	assert.Equal(t, int64(1234), result.RowCount)
	assert.False(t, result.Empty())
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, "bbox", s.BBoxColumn())

	creates := fake.ExecutedMatching(`CREATE OR REPLACE TABLE "working_extract"`)
	require.Len(t, creates, 1)
	// Two-stage filter: bbox pushdown plus exact intersection.
	assert.Contains(t, creates[0], `"bbox".xmin <= 10`)
	assert.Contains(t, creates[0], "ST_Intersects")
	// No clip requested: geometry passes through untouched.
	assert.NotContains(t, creates[0], "ST_Intersection")
	assert.NotContains(t, creates[0], "ST_MakeValid")
}

func TestIngestEmptyResultIsNotFailure(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 0})

	s := newTestSession(t, fake, nil)
	result, err := s.Ingest(context.Background(), testOptions(&geo.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}))

	require.NoError(t, err)
	assert.Equal(t, StateEmpty, result.State)
	assert.True(t, result.Empty())
	assert.Equal(t, int64(0), result.RowCount)
}

func TestIngestClipRecomputesBBox(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 10})

	s := newTestSession(t, fake, nil)
	opts := testOptions(&geo.Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10})
	opts.Clip = true

	_, err := s.Ingest(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, s.Clipped())

	creates := fake.ExecutedMatching("CREATE OR REPLACE TABLE")
	require.Len(t, creates, 1)
	assert.Contains(t, creates[0], "ST_Intersection")
	// The stored bbox derives from the clipped geometry, not the source row.
	assert.Contains(t, creates[0], "ST_XMin")
	assert.Contains(t, creates[0], `AS "bbox"`)
	bboxStructIdx := strings.Index(creates[0], "{'xmin': ST_XMin")
	assert.GreaterOrEqual(t, bboxStructIdx, 0)
}

func TestIngestRepairWrapsGeometry(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 10})

	s := newTestSession(t, fake, nil)
	opts := testOptions(&geo.Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10})
	opts.RepairGeometry = true

	_, err := s.Ingest(context.Background(), opts)
	require.NoError(t, err)

	creates := fake.ExecutedMatching("CREATE OR REPLACE TABLE")
	require.Len(t, creates, 1)
	assert.Contains(t, creates[0], `ST_MakeValid("geometry")`)
	// Repair alone also invalidates the source bbox.
	assert.Contains(t, creates[0], "{'xmin': ST_XMin")

	// The intersection predicate tests the repaired geometry, never the
	// raw column: intersection on invalid geometry is undefined.
	whereIdx := strings.Index(creates[0], " WHERE ")
	require.GreaterOrEqual(t, whereIdx, 0)
	assert.Contains(t, creates[0][whereIdx:], `ST_Intersects(ST_MakeValid("geometry")`)
}

func TestIngestRepairAndClipFilterOnRepairedGeometry(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 10})

	s := newTestSession(t, fake, nil)
	opts := testOptions(&geo.Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10})
	opts.RepairGeometry = true
	opts.Clip = true

	_, err := s.Ingest(context.Background(), opts)
	require.NoError(t, err)

	creates := fake.ExecutedMatching("CREATE OR REPLACE TABLE")
	require.Len(t, creates, 1)
	// Clip truncates the repaired geometry in the SELECT list.
	assert.Contains(t, creates[0], `ST_Intersection(ST_MakeValid("geometry")`)

	whereIdx := strings.Index(creates[0], " WHERE ")
	require.GreaterOrEqual(t, whereIdx, 0)
	assert.Contains(t, creates[0][whereIdx:], `ST_Intersects(ST_MakeValid("geometry")`)
}

func TestIngestAppliesDropPolicy(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 5})

	policy := schema.DropPolicy{"building": {"names"}}
	s := newTestSession(t, fake, policy)

	_, err := s.Ingest(context.Background(), testOptions(&geo.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}))
	require.NoError(t, err)

	creates := fake.ExecutedMatching("CREATE OR REPLACE TABLE")
	require.Len(t, creates, 1)
	assert.NotContains(t, creates[0], `"names"`)
	assert.Contains(t, creates[0], `"geometry"`)
	assert.Contains(t, creates[0], `"bbox"`)
}

func TestIngestNoExtentLoadsEverything(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 999})

	s := newTestSession(t, fake, nil)
	result, err := s.Ingest(context.Background(), testOptions(nil))

	require.NoError(t, err)
	assert.Equal(t, StateReady, result.State)

	creates := fake.ExecutedMatching("CREATE OR REPLACE TABLE")
	require.Len(t, creates, 1)
	assert.NotContains(t, creates[0], "WHERE")
}

func TestIngestProbeFailureAbortsPipeline(t *testing.T) {
	fake := enginetest.New().Script(enginetest.Response{
		Match: "CREATE OR REPLACE TEMP TABLE",
		Err:   stderrors.New("IO Error"),
	})

	s := newTestSession(t, fake, nil)
	result, err := s.Ingest(context.Background(), testOptions(nil))

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, schema.Unavailable))
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, StateFailed, s.State())

	// No partial working table: the load never ran.
	assert.Empty(t, fake.ExecutedMatching(`CREATE OR REPLACE TABLE "working_extract"`))
}

func TestIngestLoadFailure(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: `CREATE OR REPLACE TABLE "working_extract"`, Err: stderrors.New("out of memory")})

	s := newTestSession(t, fake, nil)
	result, err := s.Ingest(context.Background(), testOptions(nil))

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, LoadFailed))
	assert.Equal(t, StateFailed, result.State)
}

func TestIngestInvalidExtent(t *testing.T) {
	s := newTestSession(t, enginetest.New(), nil)
	_, err := s.Ingest(context.Background(), testOptions(&geo.Extent{XMin: 10, YMin: 0, XMax: -10, YMax: 1}))

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, geo.InvalidExtent))
}

// Re-ingest fully replaces the working table, leaving no residue.
func TestReIngestReplacesWorkingTable(t *testing.T) {
	fake := enginetest.New().
		Script(enginetest.Response{Match: "DESCRIBE", Rows: describeRows()}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 42})

	s := newTestSession(t, fake, nil)
	opts := testOptions(&geo.Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10})

	first, err := s.Ingest(context.Background(), opts)
	require.NoError(t, err)
	second, err := s.Ingest(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.RowCount, second.RowCount)

	creates := fake.ExecutedMatching(`CREATE OR REPLACE TABLE "working_extract"`)
	require.Len(t, creates, 2)
	// Identical inputs produce the same replace-semantics statement.
	assert.Equal(t, creates[0], creates[1])
}

// Footer-metadata column overrides hold for one ingest only; the next
// dataset starts from the configured defaults again.
func TestReIngestResetsColumnOverrides(t *testing.T) {
	geoJSON := `{"primary_column":"geom","columns":{"geom":{"encoding":"WKB",` +
		`"covering":{"bbox":{"xmin":["bbox_struct","xmin"]}}}}}`
	rows := [][]string{
		{"id", "VARCHAR", "YES", "", "", ""},
		{"bbox", "STRUCT(xmin FLOAT, xmax FLOAT, ymin FLOAT, ymax FLOAT)", "YES", "", "", ""},
		{"bbox_struct", "STRUCT(xmin FLOAT, xmax FLOAT, ymin FLOAT, ymax FLOAT)", "YES", "", "", ""},
		{"geometry", "GEOMETRY", "YES", "", "", ""},
		{"geom", "GEOMETRY", "YES", "", "", ""},
	}
	fake := enginetest.New().
		Script(enginetest.Response{Match: "withmeta", Rows: [][]string{{geoJSON}}}).
		Script(enginetest.Response{Match: "DESCRIBE", Rows: rows}).
		Script(enginetest.Response{Match: "SELECT count(*)", Scalar: 3})

	s := newTestSession(t, fake, nil)
	extent := &geo.Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10}

	first := testOptions(extent)
	first.Dataset.URI = "s3://bucket/withmeta/*.parquet"
	_, err := s.Ingest(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, "geom", s.GeometryColumn())
	assert.Equal(t, "bbox_struct", s.BBoxColumn())

	second := testOptions(extent)
	second.Dataset.URI = "s3://bucket/plain/*.parquet"
	_, err = s.Ingest(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, "geometry", s.GeometryColumn())
	assert.Equal(t, "bbox", s.BBoxColumn())

	creates := fake.ExecutedMatching(`CREATE OR REPLACE TABLE "working_extract"`)
	require.Len(t, creates, 2)
	assert.Contains(t, creates[0], `ST_Intersects("geom"`)
	assert.Contains(t, creates[1], `ST_Intersects("geometry"`)
}

func TestIngestNilDataset(t *testing.T) {
	s := newTestSession(t, enginetest.New(), nil)

	result, err := s.Ingest(context.Background(), Options{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, InvalidDataset))
	assert.Equal(t, StateFailed, result.State)
}

func TestSessionClose(t *testing.T) {
	fake := enginetest.New()
	s := newTestSession(t, fake, nil)

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background())) // idempotent

	drops := fake.ExecutedMatching("DROP TABLE IF EXISTS")
	assert.Len(t, drops, 1)

	_, err := s.Ingest(context.Background(), testOptions(nil))
	assert.True(t, errors.HasCode(err, SessionClosed))
}

func TestNewSessionRejectsBadTableName(t *testing.T) {
	_, err := NewSession(enginetest.New(), nil, "bad;table", "geometry", "bbox", zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, InvalidTable))
}
