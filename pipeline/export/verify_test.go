package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/terrapipe/pkg/errors"
)

func writeParquetFile(t *testing.T, path string, rows int) {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	for i := 0; i < rows; i++ {
		b.Field(0).(*array.Int64Builder).Append(int64(i))
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	_ = f.Close()
}

func TestVerifyArtifactCountsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	writeParquetFile(t, path, 7)

	rows, err := VerifyArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rows)
}

func TestVerifyArtifactMissingFile(t *testing.T) {
	_, err := VerifyArtifact(filepath.Join(t.TempDir(), "absent.parquet"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ExportEmptyArtifact))
}

func TestVerifyArtifactZeroByteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := VerifyArtifact(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ExportEmptyArtifact))
}

func TestVerifyArtifactZeroRowFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "norows.parquet")
	writeParquetFile(t, path, 0)

	_, err := VerifyArtifact(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ExportEmptyArtifact))
}

func TestVerifyArtifactGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not a parquet file"), 0o644))

	_, err := VerifyArtifact(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ExportArtifactUnreadable))
}
