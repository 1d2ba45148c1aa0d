package schema

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/gear6io/terrapipe/pipeline/engine/enginetest"
	"github.com/stretchr/testify/assert"
)

const sampleGeoJSON = `{
	"version": "1.1.0",
	"primary_column": "geometry",
	"columns": {
		"geometry": {
			"encoding": "WKB",
			"geometry_types": ["Polygon", "MultiPolygon"],
			"covering": {
				"bbox": {
					"xmin": ["bbox", "xmin"],
					"ymin": ["bbox", "ymin"],
					"xmax": ["bbox", "xmax"],
					"ymax": ["bbox", "ymax"]
				}
			}
		}
	}
}`

func TestParseGeoMetadata(t *testing.T) {
	meta := parseGeoMetadata(sampleGeoJSON)

	assert.Equal(t, "geometry", meta.PrimaryColumn)
	assert.Equal(t, "WKB", meta.Encoding)
	assert.Equal(t, "bbox", meta.BBoxColumn)
}

func TestParseGeoMetadataNoCovering(t *testing.T) {
	raw := `{"primary_column": "geom", "columns": {"geom": {"encoding": "WKB"}}}`
	meta := parseGeoMetadata(raw)

	assert.Equal(t, "geom", meta.PrimaryColumn)
	assert.Empty(t, meta.BBoxColumn)
}

func TestParseGeoMetadataMalformed(t *testing.T) {
	assert.Equal(t, GeoMetadata{}, parseGeoMetadata("not json"))
	assert.Equal(t, GeoMetadata{}, parseGeoMetadata(`{"columns": {}}`))
	assert.Equal(t, GeoMetadata{}, parseGeoMetadata(""))
}

func TestReadGeoMetadata(t *testing.T) {
	fake := enginetest.New().Script(enginetest.Response{
		Match: "parquet_kv_metadata",
		Rows:  [][]string{{sampleGeoJSON}},
	})

	meta := ReadGeoMetadata(context.Background(), fake, &RemoteDataset{URI: "s3://bucket/*.parquet"})
	assert.Equal(t, "geometry", meta.PrimaryColumn)
	assert.Equal(t, "bbox", meta.BBoxColumn)
}

// Footer metadata is advisory; engine failure degrades to the zero value.
func TestReadGeoMetadataEngineFailure(t *testing.T) {
	fake := enginetest.New().Script(enginetest.Response{
		Match: "parquet_kv_metadata",
		Err:   stderrors.New("no files found"),
	})

	meta := ReadGeoMetadata(context.Background(), fake, &RemoteDataset{URI: "s3://bucket/*.parquet"})
	assert.Equal(t, GeoMetadata{}, meta)
}
