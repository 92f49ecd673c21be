package repositories

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
)

const userDocumentVersion = 1

// FileUserRepository stores accounts in a single owner-only JSON file
type FileUserRepository struct {
	store *jsonStore[*domain.UserDocument]
	now   func() time.Time
}

// NewFileUserRepository creates a repository backed by path
func NewFileUserRepository(path string, logger *zap.Logger, now func() time.Time) *FileUserRepository {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	fallback := func() *domain.UserDocument {
		return &domain.UserDocument{
			Users: []*domain.User{},
			Meta:  domain.UserMeta{Version: userDocumentVersion, LastModified: now()},
		}
	}
	usable := func(d *domain.UserDocument) bool {
		return d != nil
	}
	return &FileUserRepository{
		store: newJSONStore(path, 0o600, logger, fallback, usable),
		now:   now,
	}
}

// Load implements domain.UserRepository
func (r *FileUserRepository) Load(ctx context.Context) (*domain.UserDocument, error) {
	doc, _, err := r.store.load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Users == nil {
		doc.Users = []*domain.User{}
	}
	return doc, nil
}

// Update implements domain.UserRepository. meta.last_modified is stamped on every write.
func (r *FileUserRepository) Update(ctx context.Context, fn func(doc *domain.UserDocument) error) error {
	return r.store.update(ctx, func(doc *domain.UserDocument) error {
		if doc.Users == nil {
			doc.Users = []*domain.User{}
		}
		if err := fn(doc); err != nil {
			return err
		}
		if doc.Meta.Version == 0 {
			doc.Meta.Version = userDocumentVersion
		}
		doc.Meta.LastModified = r.now()
		return nil
	})
}

var _ domain.UserRepository = (*FileUserRepository)(nil)
