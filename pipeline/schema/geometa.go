package schema

import (
	"context"

	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/tidwall/gjson"
)

// GeoMetadata is the subset of the GeoParquet "geo" footer metadata the
// pipeline cares about: which column holds geometry and which struct column,
// if any, carries the pre-computed per-row bounds.
type GeoMetadata struct {
	PrimaryColumn string
	Encoding      string
	BBoxColumn    string
}

// ReadGeoMetadata pulls the "geo" key-value entry from the dataset's parquet
// footer. Missing or unparsable metadata is not an error: the pipeline falls
// back to configured column names, so the zero value comes back instead.
func ReadGeoMetadata(ctx context.Context, eng engine.Engine, dataset *RemoteDataset) GeoMetadata {
	query := "SELECT decode(value) FROM parquet_kv_metadata(" +
		"(SELECT file FROM glob(" + sqlgen.QuoteLiteral(dataset.URI) + ") LIMIT 1)" +
		") WHERE key = 'geo' LIMIT 1"

	raw, err := eng.ScalarString(ctx, query)
	if err != nil || raw == "" {
		return GeoMetadata{}
	}
	return parseGeoMetadata(raw)
}

// parseGeoMetadata extracts the primary geometry column, its encoding, and
// the covering bbox column from raw "geo" JSON.
func parseGeoMetadata(raw string) GeoMetadata {
	if !gjson.Valid(raw) {
		return GeoMetadata{}
	}

	meta := GeoMetadata{
		PrimaryColumn: gjson.Get(raw, "primary_column").String(),
	}
	if meta.PrimaryColumn == "" {
		return GeoMetadata{}
	}

	col := gjson.Get(raw, "columns."+meta.PrimaryColumn)
	meta.Encoding = col.Get("encoding").String()

	// Covering points at the bbox struct column:
	// "covering": {"bbox": {"xmin": ["bbox", "xmin"], ...}}
	xminPath := col.Get("covering.bbox.xmin")
	if xminPath.IsArray() {
		parts := xminPath.Array()
		if len(parts) > 0 {
			meta.BBoxColumn = parts[0].String()
		}
	}

	return meta
}
