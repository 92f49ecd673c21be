package repositories

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
)

// FileListRepository stores the list document in a single JSON file
type FileListRepository struct {
	store  *jsonStore[*domain.List]
	logger *zap.Logger
}

// NewFileListRepository creates a repository backed by path
func NewFileListRepository(path string, logger *zap.Logger) *FileListRepository {
	fallback := func() *domain.List {
		return domain.NewDefaultList(uuid.NewString())
	}
	usable := func(l *domain.List) bool {
		return l != nil && l.HasSections()
	}
	return &FileListRepository{
		store:  newJSONStore(path, 0o644, logger, fallback, usable),
		logger: logger,
	}
}

// Load returns the list. A missing file is initialised with the default
// document so the generated section id stays stable across requests.
func (r *FileListRepository) Load(ctx context.Context) (*domain.List, error) {
	list, missing, err := r.store.load(ctx)
	if err != nil {
		return nil, err
	}
	if !missing {
		list.Normalize()
		return list, nil
	}

	var created *domain.List
	if err := r.store.update(ctx, func(l *domain.List) error {
		created = l
		return nil
	}); err != nil {
		return nil, err
	}
	r.logger.Info("initialised list document", zap.String("path", r.store.path))
	created.Normalize()
	return created, nil
}

// Update implements domain.ListRepository
func (r *FileListRepository) Update(ctx context.Context, fn func(list *domain.List) error) error {
	return r.store.update(ctx, func(l *domain.List) error {
		l.Normalize()
		return fn(l)
	})
}

var _ domain.ListRepository = (*FileListRepository)(nil)
