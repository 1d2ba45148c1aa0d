package export

import (
	"strings"

	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for compression handling
var (
	ExportCompressionUnsupported = errors.MustNewCode("export.compression_unsupported")
)

// Codec is a parquet compression algorithm accepted by the engine's COPY
// statement.
type Codec string

const (
	CodecUncompressed Codec = "uncompressed"
	CodecSnappy       Codec = "snappy"
	CodecGzip         Codec = "gzip"
	CodecZstd         Codec = "zstd"
	CodecBrotli       Codec = "brotli"
	CodecLZ4          Codec = "lz4"
)

// DefaultCodec is used whenever a configured codec fails validation.
const DefaultCodec = CodecZstd

// ParseCodec validates a configured compression name against the allow-list.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "uncompressed":
		return CodecUncompressed, nil
	case "snappy":
		return CodecSnappy, nil
	case "gzip", "gz":
		return CodecGzip, nil
	case "zstd":
		return CodecZstd, nil
	case "brotli":
		return CodecBrotli, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return DefaultCodec, errors.New(ExportCompressionUnsupported, "unsupported compression codec", nil).AddContext("codec", name)
	}
}

// ParseCodecOrDefault falls back to DefaultCodec for unknown names instead
// of failing the export.
func ParseCodecOrDefault(name string) Codec {
	codec, err := ParseCodec(name)
	if err != nil {
		return DefaultCodec
	}
	return codec
}

// SQL returns the codec spelled the way the COPY statement expects it.
func (c Codec) SQL() string {
	return strings.ToUpper(string(c))
}

// ArrowCompression maps the codec onto the parquet library's codec enum,
// used when inspecting exported files.
func (c Codec) ArrowCompression() compress.Compression {
	switch c {
	case CodecSnappy:
		return compress.Codecs.Snappy
	case CodecGzip:
		return compress.Codecs.Gzip
	case CodecZstd:
		return compress.Codecs.Zstd
	case CodecBrotli:
		return compress.Codecs.Brotli
	case CodecLZ4:
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}
