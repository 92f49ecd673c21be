package repositories

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
)

// DataDir is the directory holding every JSON document of the application
type DataDir struct {
	path   string
	logger *zap.Logger
}

// NewDataDir wraps path
func NewDataDir(path string, logger *zap.Logger) *DataDir {
	return &DataDir{path: path, logger: logger}
}

// Path returns the directory path
func (d *DataDir) Path() string {
	return d.path
}

// CheckConnection verifies the directory exists and accepts writes
func (d *DataDir) CheckConnection(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("%w: stat data dir: %v", domain.ErrStorage, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrStorage, d.path)
	}

	probe, err := os.CreateTemp(d.path, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: data dir not writable: %v", domain.ErrStorage, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// EnsureCollections creates the data directory if needed
func (d *DataDir) EnsureCollections(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", domain.ErrStorage, err)
	}
	d.logger.Debug("data directory ready", zap.String("path", d.path))
	return nil
}

var _ domain.HealthChecker = (*DataDir)(nil)
