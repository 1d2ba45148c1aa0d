// Package schema discovers and shapes the column structure of remote
// GeoParquet datasets: zero-row schema probing, GeoParquet footer metadata,
// and the column projection that drops known-heavy optional columns.
package schema

import (
	"strings"

	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for dataset handling
var (
	InvalidDataset = errors.MustNewCode("schema.invalid_dataset")
)

// RemoteDataset identifies a columnar geometry source. The URI may be a
// local path, an object-storage URI, a glob, or a hive-partitioned prefix.
// Immutable; supplied by the caller per ingest call.
type RemoteDataset struct {
	// URI locates the parquet data, glob and hive patterns included.
	URI string `yaml:"uri"`
	// Theme is the parent theme key carried through to layer registration.
	Theme string `yaml:"theme"`
	// TypeKey selects the column drop policy entry for this dataset.
	TypeKey string `yaml:"type_key"`
}

// Validate checks that the dataset is usable.
func (d *RemoteDataset) Validate() error {
	if strings.TrimSpace(d.URI) == "" {
		return errors.New(InvalidDataset, "dataset URI is required", nil)
	}
	return nil
}

// SourceExpr renders the engine table function reading this dataset.
// Hive partition keys in the path become columns.
func (d *RemoteDataset) SourceExpr() string {
	return "read_parquet(" + sqlgen.QuoteLiteral(d.URI) + ", hive_partitioning = true)"
}
