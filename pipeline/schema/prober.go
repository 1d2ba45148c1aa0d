package schema

import (
	"context"

	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/rs/zerolog"
)

// Package-specific error codes for schema probing
var (
	Unavailable = errors.MustNewCode("schema.unavailable")
)

// probeTable is the zero-row materialization the introspection runs against.
const probeTable = "__schema_probe"

// Prober discovers a remote dataset's columns without transferring data.
type Prober struct {
	engine engine.Engine
	logger zerolog.Logger
}

// NewProber creates a schema prober.
func NewProber(eng engine.Engine, logger zerolog.Logger) *Prober {
	return &Prober{
		engine: eng,
		logger: logger.With().Str("component", "schema-prober").Logger(),
	}
}

// Probe materializes zero rows of the dataset (metadata-only cost, the
// parquet footer is all that moves) and introspects the result. Failures
// surface as schema.unavailable; retry policy is the caller's decision.
func (p *Prober) Probe(ctx context.Context, dataset *RemoteDataset) (*Descriptor, error) {
	if err := dataset.Validate(); err != nil {
		return nil, err
	}

	materialize := "CREATE OR REPLACE TEMP TABLE " + probeTable +
		" AS SELECT * FROM " + dataset.SourceExpr() + " LIMIT 0"
	if err := p.engine.Exec(ctx, materialize); err != nil {
		return nil, errors.New(Unavailable, "failed to resolve remote dataset", err).
			AddContext("uri", dataset.URI)
	}
	defer func() {
		// Best effort; the temp table is connection-scoped anyway.
		_ = p.engine.Exec(ctx, "DROP TABLE IF EXISTS "+probeTable)
	}()

	rows, err := p.engine.Query(ctx, "DESCRIBE "+probeTable)
	if err != nil {
		return nil, errors.New(Unavailable, "failed to introspect dataset schema", err).
			AddContext("uri", dataset.URI)
	}
	if len(rows) == 0 {
		return nil, errors.New(Unavailable, "dataset reports no columns", nil).
			AddContext("uri", dataset.URI)
	}

	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, errors.New(Unavailable, "malformed schema introspection row", nil).
				AddContext("uri", dataset.URI)
		}
		columns = append(columns, Column{Name: row[0], Type: row[1]})
	}

	p.logger.Debug().
		Str("uri", dataset.URI).
		Int("columns", len(columns)).
		Msg("Probed dataset schema")

	return NewDescriptor(columns), nil
}
