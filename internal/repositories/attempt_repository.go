package repositories

import (
	"context"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
)

// FileAttemptRepository stores failed-login counters in a single JSON file
type FileAttemptRepository struct {
	store *jsonStore[domain.AttemptTable]
}

// NewFileAttemptRepository creates a repository backed by path
func NewFileAttemptRepository(path string, logger *zap.Logger) *FileAttemptRepository {
	fallback := func() domain.AttemptTable {
		return domain.AttemptTable{}
	}
	usable := func(t domain.AttemptTable) bool {
		return t != nil
	}
	return &FileAttemptRepository{
		store: newJSONStore(path, 0o600, logger, fallback, usable),
	}
}

// Load implements domain.AttemptRepository
func (r *FileAttemptRepository) Load(ctx context.Context) (domain.AttemptTable, error) {
	table, _, err := r.store.load(ctx)
	if err != nil {
		return nil, err
	}
	if table == nil {
		table = domain.AttemptTable{}
	}
	return table, nil
}

// Update implements domain.AttemptRepository
func (r *FileAttemptRepository) Update(ctx context.Context, fn func(table domain.AttemptTable) error) error {
	return r.store.update(ctx, fn)
}

var _ domain.AttemptRepository = (*FileAttemptRepository)(nil)
