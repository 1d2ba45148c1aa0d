package export

import (
	"os"

	"github.com/apache/arrow-go/v18/parquet/file"

	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for artifact verification
var (
	ExportEmptyArtifact      = errors.MustNewCode("export.empty_artifact")
	ExportArtifactUnreadable = errors.MustNewCode("export.artifact_unreadable")
)

// VerifyArtifact confirms an exported file is a complete, non-empty parquet
// artifact and returns its row count. A COPY that succeeds but leaves a
// zero-byte or zero-row file (interrupted remote reads do this) is reported
// as ExportEmptyArtifact, not success.
func VerifyArtifact(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.New(ExportEmptyArtifact, "exported file is missing", err).AddContext("path", path)
	}
	if info.Size() == 0 {
		return 0, errors.New(ExportEmptyArtifact, "exported file is empty", nil).AddContext("path", path)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return 0, errors.New(ExportArtifactUnreadable, "exported file has no readable parquet footer", err).AddContext("path", path)
	}
	defer rdr.Close()

	rows := rdr.NumRows()
	if rows == 0 {
		return 0, errors.New(ExportEmptyArtifact, "exported file contains no rows", nil).AddContext("path", path)
	}
	return rows, nil
}
