// Package pipeline wires the ingest, partition and export stages into one
// extent-filtered dataset-to-layer-files run.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"context"

	"github.com/rs/zerolog"

	"github.com/gear6io/terrapipe/pipeline/config"
	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/export"
	"github.com/gear6io/terrapipe/pipeline/geo"
	"github.com/gear6io/terrapipe/pipeline/ingest"
	"github.com/gear6io/terrapipe/pipeline/partition"
	"github.com/gear6io/terrapipe/pipeline/queue"
	"github.com/gear6io/terrapipe/pipeline/schema"
	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for pipeline runs
var (
	AllExportsFailed = errors.MustNewCode("pipeline.all_exports_failed")
)

// Request is one ingest-and-export cycle.
type Request struct {
	Dataset schema.RemoteDataset
	// Extent limits the run to a viewport. Nil loads the whole dataset.
	Extent *geo.Extent
}

// PartitionFailure records one partition that could not be exported while
// the rest of the run continued.
type PartitionFailure struct {
	GeometryType geo.GeometryType
	Err          error
}

// RunResult is the aggregate outcome of one run.
type RunResult struct {
	State    ingest.State
	RowCount int64
	// Layers lists successfully exported files, in export order. The same
	// entries are also enqueued for registration.
	Layers   []queue.LayerCreationInfo
	Failures []PartitionFailure
}

// Pipeline drives one session: probe, load, partition, export, enqueue.
// Not safe for concurrent Run calls.
type Pipeline struct {
	cfg         *config.Config
	session     *ingest.Session
	partitioner *partition.Partitioner
	exporter    *export.Exporter
	queue       *queue.RegistrationQueue
	sink        ProgressSink
	logger      zerolog.Logger
}

// New builds a pipeline on an open engine. notifier may be nil; sink may
// be nil to discard progress.
func New(eng engine.Engine, cfg *config.Config, notifier export.ReleaseNotifier, sink ProgressSink, logger zerolog.Logger) (*Pipeline, error) {
	session, err := ingest.NewSession(eng, cfg.Columns, cfg.Ingest.TableName, cfg.Ingest.GeometryColumn, cfg.Ingest.BBoxColumn, logger)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = nopSink{}
	}

	codec := export.ParseCodecOrDefault(cfg.Export.Compression)
	return &Pipeline{
		cfg:         cfg,
		session:     session,
		partitioner: partition.NewPartitioner(eng, logger),
		exporter:    export.New(eng, codec, notifier, cfg.Retry, logger),
		queue:       queue.New(),
		sink:        sink,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Queue exposes the registration queue the host drains after a run.
func (p *Pipeline) Queue() *queue.RegistrationQueue {
	return p.queue
}

// Run executes one full cycle. A run with zero matching rows succeeds with
// StateEmpty and no layers. Individual partition export failures do not
// abort the rest; they are collected in RunResult.Failures. Run fails
// outright only when ingest fails or every partition export failed.
func (p *Pipeline) Run(ctx context.Context, req Request) (*RunResult, error) {
	p.sink.Publish(Progress{Stage: StageLoading, Detail: req.Dataset.TypeKey})

	result, err := p.session.Ingest(ctx, ingest.Options{
		Dataset:        &req.Dataset,
		Extent:         req.Extent,
		RepairGeometry: p.cfg.Ingest.RepairGeometry,
		Clip:           p.cfg.Ingest.Clip,
	})
	if err != nil {
		return nil, err
	}

	if result.Empty() {
		p.logger.Info().Str("type", req.Dataset.TypeKey).Msg("No rows in extent, nothing to export")
		p.sink.Publish(Progress{Stage: StageComplete, Detail: "empty"})
		return &RunResult{State: ingest.StateEmpty}, nil
	}

	p.sink.Publish(Progress{Stage: StagePartitioning})
	parts, err := p.partitioner.Partition(ctx, p.session)
	if err != nil {
		return nil, err
	}

	run := &RunResult{
		State:    result.State,
		RowCount: result.RowCount,
	}

	for i, part := range parts {
		p.sink.Publish(Progress{
			Stage:  StageExporting,
			Detail: string(part.GeometryType),
			Step:   i + 1,
			Steps:  len(parts),
		})

		info, err := p.exportPartition(ctx, req.Dataset, part)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn().
				Err(err).
				Str("geometry_type", string(part.GeometryType)).
				Msg("Partition export failed, continuing with remaining partitions")
			run.Failures = append(run.Failures, PartitionFailure{GeometryType: part.GeometryType, Err: err})
			continue
		}

		p.queue.Enqueue(*info)
		run.Layers = append(run.Layers, *info)
	}

	if len(parts) > 0 && len(run.Layers) == 0 {
		return nil, errors.New(AllExportsFailed, "every partition export failed", run.Failures[0].Err).
			AddContext("partitions", fmt.Sprintf("%d", len(parts)))
	}

	p.sink.Publish(Progress{Stage: StageComplete})
	return run, nil
}

func (p *Pipeline) exportPartition(ctx context.Context, dataset schema.RemoteDataset, part partition.Partition) (*queue.LayerCreationInfo, error) {
	layerName := fmt.Sprintf("%s_%s", dataset.TypeKey, strings.ToLower(string(part.GeometryType)))
	targetPath := filepath.Join(p.cfg.Export.Directory, layerName+".parquet")

	artifact, err := p.exporter.Export(ctx, partition.BuildExportQuery(p.session, part), targetPath)
	if err != nil {
		return nil, err
	}

	return &queue.LayerCreationInfo{
		FilePath:         artifact.ActualPath,
		LayerName:        layerName,
		GeometryType:     part.GeometryType,
		StackingPriority: part.Priority,
		Theme:            dataset.Theme,
		TypeKey:          dataset.TypeKey,
		RowCount:         artifact.RowCount,
	}, nil
}

// Close drops the working table. The registration queue survives Close so
// the host can still drain it.
func (p *Pipeline) Close(ctx context.Context) error {
	return p.session.Close(ctx)
}
