// Package export writes partition query results to compressed parquet
// files, surviving the host holding open handles on the destination.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/gear6io/terrapipe/pkg/retry"
)

// Package-specific error codes for export operations
var (
	ExportCopyFailed = errors.MustNewCode("export.copy_failed")
	ExportDirFailed  = errors.MustNewCode("export.dir_failed")
)

// Rows per parquet row group. Balances compression ratio against read
// amplification for map-tile style partial reads.
const defaultRowGroupSize = 100000

// ReleaseNotifier asks the host to drop any open handles on a file before
// the exporter deletes it. Implementations must be synchronous: when the
// call returns, the host holds no handle it is willing to give up.
type ReleaseNotifier interface {
	ReleaseFile(path string)
}

// Artifact describes one completed export. ActualPath is authoritative and
// may differ from the requested path when the original file stayed locked.
type Artifact struct {
	RequestedPath string
	ActualPath    string
	RowCount      int64
}

// Exporter streams query results into parquet files via the engine's COPY
// statement, applying the overwrite protocol around locked destinations.
type Exporter struct {
	eng          engine.Engine
	codec        Codec
	notifier     ReleaseNotifier
	policy       retry.Policy
	rowGroupSize int
	logger       zerolog.Logger

	verify func(string) (int64, error)
}

// New creates an exporter. notifier may be nil when no host process holds
// handles on exported files.
func New(eng engine.Engine, codec Codec, notifier ReleaseNotifier, policy retry.Policy, logger zerolog.Logger) *Exporter {
	return &Exporter{
		eng:          eng,
		codec:        codec,
		notifier:     notifier,
		policy:       policy,
		rowGroupSize: defaultRowGroupSize,
		logger:       logger.With().Str("component", "exporter").Logger(),
		verify:       VerifyArtifact,
	}
}

// Export runs query through COPY into targetPath. Callers must use the
// returned Artifact.ActualPath; when the destination could not be replaced
// the output lives at a uniquely suffixed sibling path instead.
func (e *Exporter) Export(ctx context.Context, query string, targetPath string) (*Artifact, error) {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return nil, errors.New(ExportDirFailed, "failed to create export directory", err).AddContext("path", targetPath)
	}

	writePath := targetPath
	if fileExists(targetPath) {
		if !e.clearTarget(ctx, targetPath) {
			writePath = tempPath(targetPath)
			e.logger.Warn().
				Str("target", targetPath).
				Str("temp", writePath).
				Msg("Destination still locked, writing to temporary path")
		}
	}

	copySQL := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION %s, ROW_GROUP_SIZE %d)",
		query, sqlgen.QuoteLiteral(writePath), e.codec.SQL(), e.rowGroupSize)
	if err := e.eng.Exec(ctx, copySQL); err != nil {
		return nil, errors.New(ExportCopyFailed, "export query failed", err).AddContext("path", writePath)
	}

	rows, err := e.verify(writePath)
	if err != nil {
		// Never leave a known-bad artifact where the host could register it.
		_ = os.Remove(writePath)
		return nil, err
	}

	actualPath := writePath
	if writePath != targetPath && e.replaceTarget(ctx, writePath, targetPath) {
		actualPath = targetPath
	}

	e.logger.Debug().
		Str("path", actualPath).
		Int64("rows", rows).
		Str("compression", string(e.codec)).
		Msg("Export complete")

	return &Artifact{
		RequestedPath: targetPath,
		ActualPath:    actualPath,
		RowCount:      rows,
	}, nil
}

// clearTarget asks the host to release the file, then tries bounded
// deletes. Reports whether the path is gone.
func (e *Exporter) clearTarget(ctx context.Context, path string) bool {
	if e.notifier != nil {
		e.notifier.ReleaseFile(path)
	}

	err := retry.Do(ctx, e.policy, func(context.Context) error {
		return removeIfPresent(path)
	}, e.logger)
	return err == nil
}

// replaceTarget moves the temp file into place with delete+rename under
// backoff. On persistent failure the temp file is left as-is and becomes
// the authoritative output.
func (e *Exporter) replaceTarget(ctx context.Context, tempFile, targetPath string) bool {
	err := retry.Do(ctx, e.policy, func(context.Context) error {
		if err := removeIfPresent(targetPath); err != nil {
			return err
		}
		return os.Rename(tempFile, targetPath)
	}, e.logger)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("path", tempFile).
			Msg("Could not rename into place, temporary path is authoritative")
		return false
	}
	return true
}

func removeIfPresent(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// tempPath keeps the original extension so a fallback artifact is still
// recognizable to extension-matching consumers.
func tempPath(target string) string {
	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)
	return fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], ext)
}
