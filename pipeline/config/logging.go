package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for log setup
var (
	ErrLogDirFailed      = errors.MustNewCode("config.log_dir_failed")
	ErrLogFileFailed     = errors.MustNewCode("config.log_file_failed")
	ErrLogRotationFailed = errors.MustNewCode("config.log_rotation_failed")
)

// LogManager handles log file rotation and management
type LogManager struct {
	config     *LogConfig
	currentLog *os.File
}

// NewLogManager creates a new log manager
func NewLogManager(cfg *LogConfig) *LogManager {
	return &LogManager{config: cfg}
}

// CleanupLogFile clears the log file before starting logging
func CleanupLogFile(filePath string) error {
	if filePath == "" {
		return nil
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.New(ErrLogDirFailed, "failed to create log directory", err)
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return errors.New(ErrLogFileFailed, "failed to open log file for cleanup", err)
	}
	return file.Close()
}

// GetWriter returns a writer for the configured log file, rotating first
// when the file exceeds the size limit.
func (lm *LogManager) GetWriter() (io.Writer, error) {
	if lm.config.FilePath == "" {
		return nil, errors.New(ErrLogFileFailed, "no log file path specified", nil)
	}

	if err := os.MkdirAll(filepath.Dir(lm.config.FilePath), 0755); err != nil {
		return nil, errors.New(ErrLogDirFailed, "failed to create log directory", err)
	}

	if err := lm.checkRotation(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(lm.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, errors.New(ErrLogFileFailed, "failed to open log file", err)
	}
	lm.currentLog = file
	return file, nil
}

func (lm *LogManager) checkRotation() error {
	if lm.config.MaxSize <= 0 {
		return nil
	}

	info, err := os.Stat(lm.config.FilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New(ErrLogRotationFailed, "failed to stat log file", err)
	}

	if info.Size() < int64(lm.config.MaxSize)*1024*1024 {
		return nil
	}
	return lm.rotateLog()
}

func (lm *LogManager) rotateLog() error {
	if lm.currentLog != nil {
		lm.currentLog.Close()
		lm.currentLog = nil
	}

	timestamp := time.Now().Format("2006-01-02-15-04-05")
	backupPath := fmt.Sprintf("%s.%s", lm.config.FilePath, timestamp)
	if err := os.Rename(lm.config.FilePath, backupPath); err != nil {
		return errors.New(ErrLogRotationFailed, "failed to rotate log file", err)
	}
	return lm.pruneBackups()
}

// pruneBackups removes the oldest rotated files beyond MaxBackups.
func (lm *LogManager) pruneBackups() error {
	if lm.config.MaxBackups <= 0 {
		return nil
	}

	logDir := filepath.Dir(lm.config.FilePath)
	logBase := filepath.Base(lm.config.FilePath)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return errors.New(ErrLogRotationFailed, "failed to list log directory", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, logBase+".") {
			backups = append(backups, filepath.Join(logDir, name))
		}
	}

	// Timestamp suffixes sort chronologically.
	sort.Strings(backups)
	for len(backups) > lm.config.MaxBackups {
		if err := os.Remove(backups[0]); err != nil {
			return errors.New(ErrLogRotationFailed, "failed to remove old backup", err).AddContext("backup_path", backups[0])
		}
		backups = backups[1:]
	}
	return nil
}

// Close closes the log manager and any open files
func (lm *LogManager) Close() error {
	if lm.currentLog != nil {
		return lm.currentLog.Close()
	}
	return nil
}

// SetupLogger creates a configured zerolog logger based on the configuration
func SetupLogger(cfg *Config) (zerolog.Logger, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer

	if cfg.Log.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.Log.FilePath != "" {
		if cfg.Log.Cleanup {
			if err := CleanupLogFile(cfg.Log.FilePath); err != nil {
				return zerolog.Logger{}, err
			}
		}

		fileWriter, err := NewLogManager(&cfg.Log).GetWriter()
		if err != nil {
			return zerolog.Logger{}, err
		}
		writers = append(writers, fileWriter)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).With().
		Timestamp().
		Str("component", "terrapipe").
		Logger()
	return logger, nil
}
