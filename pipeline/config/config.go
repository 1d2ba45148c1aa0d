// Package config loads and validates pipeline configuration from YAML and
// constructs the process logger.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/export"
	"github.com/gear6io/terrapipe/pipeline/schema"
	"github.com/gear6io/terrapipe/pipeline/sqlgen"
	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/gear6io/terrapipe/pkg/retry"
)

// Package-specific error codes for configuration
var (
	ErrFileReadFailed   = errors.MustNewCode("config.file_read_failed")
	ErrFileParseFailed  = errors.MustNewCode("config.file_parse_failed")
	ErrValidationFailed = errors.MustNewCode("config.validation_failed")
)

// Config is the root pipeline configuration.
type Config struct {
	Log    LogConfig            `yaml:"log"`
	Engine engine.Config        `yaml:"engine"`
	S3     engine.S3Credentials `yaml:"s3"`
	Ingest IngestConfig         `yaml:"ingest"`
	Export ExportConfig         `yaml:"export"`
	Retry  retry.Policy         `yaml:"retry"`
	// Columns maps a dataset type key to column names safe to drop on
	// ingest. Loaded once; never mutated afterwards.
	Columns schema.DropPolicy `yaml:"columns"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`     // Whether to log to console
	FilePath   string `yaml:"file_path"`   // Path to log file, empty disables file logging
	MaxSize    int    `yaml:"max_size"`    // Max file size in MB before rotation
	MaxBackups int    `yaml:"max_backups"` // Max number of rotated files kept
	Cleanup    bool   `yaml:"cleanup"`     // Whether to truncate the log file on startup
}

// IngestConfig controls the working table produced per ingest call.
type IngestConfig struct {
	TableName      string `yaml:"table_name"`
	GeometryColumn string `yaml:"geometry_column"`
	BBoxColumn     string `yaml:"bbox_column"`
	RepairGeometry bool   `yaml:"repair_geometry"`
	Clip           bool   `yaml:"clip"`
}

// ExportConfig controls file output.
type ExportConfig struct {
	Directory   string `yaml:"directory"`
	Compression string `yaml:"compression"`
}

// LoadDefault returns the default configuration.
func LoadDefault() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Console:    true,
			MaxSize:    100,
			MaxBackups: 3,
			Cleanup:    true,
		},
		Engine: engine.DefaultConfig(),
		Ingest: IngestConfig{
			TableName:      "working_table",
			GeometryColumn: "geometry",
			BBoxColumn:     "bbox",
			RepairGeometry: true,
			Clip:           false,
		},
		Export: ExportConfig{
			Directory:   "./export",
			Compression: string(export.DefaultCodec),
		},
		Retry: retry.DefaultPolicy(),
	}
}

// Load reads configuration from a YAML file. Fields absent from the file
// keep their defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrFileReadFailed, "failed to read config file", err).AddContext("path", filename)
	}

	config := LoadDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.New(ErrFileParseFailed, "failed to parse config file", err).AddContext("path", filename)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values that would produce broken
// query text or an unusable export directory.
func (c *Config) Validate() error {
	if err := sqlgen.ValidateIdentifier(c.Ingest.TableName); err != nil {
		return errors.New(ErrValidationFailed, "invalid ingest table name", err)
	}
	if err := sqlgen.ValidateIdentifier(c.Ingest.GeometryColumn); err != nil {
		return errors.New(ErrValidationFailed, "invalid geometry column name", err)
	}
	if err := sqlgen.ValidateIdentifier(c.Ingest.BBoxColumn); err != nil {
		return errors.New(ErrValidationFailed, "invalid bbox column name", err)
	}
	if c.Export.Directory == "" {
		return errors.New(ErrValidationFailed, "export directory is required", nil)
	}
	if _, err := export.ParseCodec(c.Export.Compression); err != nil {
		// Unknown codecs fall back rather than fail; record the substitution.
		c.Export.Compression = string(export.DefaultCodec)
	}
	return nil
}
