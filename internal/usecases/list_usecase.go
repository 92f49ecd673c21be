package usecases

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/domain"
)

// ListUsecase implements every operation on the to-do list.
// Each mutation loads the whole document, changes it and writes it back
// through ListRepository.Update, so an operation is all-or-nothing.
type ListUsecase struct {
	repo   domain.ListRepository
	clock  clock.Clock
	newID  func() string
	logger *zap.Logger
}

// NewListUsecase wires the usecase to its repository
func NewListUsecase(repo domain.ListRepository, clk clock.Clock, logger *zap.Logger) *ListUsecase {
	if clk == nil {
		clk = clock.Real{}
	}
	return &ListUsecase{
		repo:   repo,
		clock:  clk,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// errNoChange aborts an Update without writing and is never returned to callers
var errNoChange = errors.New("no change")

func sectionNotFound() error { return domain.NewError(domain.ErrNotFound, "Section not found") }
func itemNotFound() error    { return domain.NewError(domain.ErrNotFound, "Item not found") }
func parentNotFound() error  { return domain.NewError(domain.ErrNotFound, "Parent item not found") }
func childNotFound() error   { return domain.NewError(domain.ErrNotFound, "Child item not found") }

// GetList returns the whole document
func (u *ListUsecase) GetList(ctx context.Context) (*domain.List, error) {
	return u.repo.Load(ctx)
}

// UpdateSettings merges the provided keys into the list settings
func (u *ListUsecase) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var out domain.Settings
	err := u.repo.Update(ctx, func(l *domain.List) error {
		if patch.HideCompleted != nil {
			l.Settings.HideCompleted = *patch.HideCompleted
		}
		if patch.Theme != nil {
			l.Settings.Theme = *patch.Theme
		}
		out = l.Settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSection appends a section after the highest existing position
func (u *ListUsecase) CreateSection(ctx context.Context, title string) (*domain.Section, error) {
	var created *domain.Section
	err := u.repo.Update(ctx, func(l *domain.List) error {
		created = &domain.Section{
			ID:       u.newID(),
			Title:    strings.TrimSpace(title),
			Position: nextPosition(l.Sections),
			Items:    []*domain.Item{},
		}
		l.Sections = append(l.Sections, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("section created", zap.String("id", created.ID), zap.Int("position", created.Position))
	return created, nil
}

// GetSection returns one section
func (u *ListUsecase) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	l, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	s, _ := l.FindSection(id)
	if s == nil {
		return nil, sectionNotFound()
	}
	return s, nil
}

// UpdateSection changes title and/or collapsed state
func (u *ListUsecase) UpdateSection(ctx context.Context, id string, patch domain.SectionPatch) (*domain.Section, error) {
	var updated *domain.Section
	err := u.repo.Update(ctx, func(l *domain.List) error {
		s, _ := l.FindSection(id)
		if s == nil {
			return sectionNotFound()
		}
		if patch.Title != nil {
			s.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Collapsed != nil {
			s.Collapsed = *patch.Collapsed
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReorderSection moves a section in front of the first section whose
// position is at least target and renumbers all sections densely.
func (u *ListUsecase) ReorderSection(ctx context.Context, id string, target int) (*domain.Section, error) {
	var moved *domain.Section
	err := u.repo.Update(ctx, func(l *domain.List) error {
		s, idx := l.FindSection(id)
		if s == nil {
			return sectionNotFound()
		}
		l.Sections = removeAt(l.Sections, idx)
		l.Sections, _ = insertBefore(l.Sections, s, target)
		reindexInOrder(l.Sections)
		moved = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("section reordered", zap.String("id", id), zap.Int("position", moved.Position))
	return moved, nil
}

// DeleteSection removes a section. It reports false without touching the
// document when the id is unknown or the section is the last one.
// Remaining positions are left as they are.
func (u *ListUsecase) DeleteSection(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := u.repo.Update(ctx, func(l *domain.List) error {
		if len(l.Sections) <= 1 {
			return errNoChange
		}
		_, idx := l.FindSection(id)
		if idx < 0 {
			return errNoChange
		}
		l.Sections = removeAt(l.Sections, idx)
		deleted = true
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return false, err
	}
	if deleted {
		u.logger.Info("section deleted", zap.String("id", id))
	}
	return deleted, nil
}

// CreateItem appends a new item to a section
func (u *ListUsecase) CreateItem(ctx context.Context, sectionID, title string) (*domain.Item, error) {
	var created *domain.Item
	err := u.repo.Update(ctx, func(l *domain.List) error {
		s, _ := l.FindSection(sectionID)
		if s == nil {
			return sectionNotFound()
		}
		now := u.clock.Now()
		created = &domain.Item{
			ID:        u.newID(),
			Title:     strings.TrimSpace(title),
			Position:  nextPosition(s.Items),
			CreatedAt: now,
			UpdatedAt: now,
			Children:  []*domain.Child{},
		}
		s.Items = append(s.Items, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("item created", zap.String("id", created.ID), zap.String("section_id", sectionID))
	return created, nil
}

// GetItem returns one item
func (u *ListUsecase) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	l, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	it, _, _ := l.FindItem(id)
	if it == nil {
		return nil, itemNotFound()
	}
	return it, nil
}

// UpdateItem applies a partial update and refreshes updatedAt
func (u *ListUsecase) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var updated *domain.Item
	err := u.repo.Update(ctx, func(l *domain.List) error {
		it, _, _ := l.FindItem(id)
		if it == nil {
			return itemNotFound()
		}
		if patch.Title != nil {
			it.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			it.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Completed != nil {
			it.Completed = *patch.Completed
		}
		if patch.Priority.Set {
			it.Priority = patch.Priority.Value
		}
		if patch.DueDate.Set {
			it.DueDate = patch.DueDate.Value
		}
		if patch.Position != nil {
			it.Position = *patch.Position
		}
		it.UpdatedAt = u.clock.Now()
		updated = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleItem flips the completed flag
func (u *ListUsecase) ToggleItem(ctx context.Context, id string) (*domain.Item, error) {
	var toggled *domain.Item
	err := u.repo.Update(ctx, func(l *domain.List) error {
		it, _, _ := l.FindItem(id)
		if it == nil {
			return itemNotFound()
		}
		it.Completed = !it.Completed
		it.UpdatedAt = u.clock.Now()
		toggled = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toggled, nil
}

// DeleteItem removes an item; false means the id is unknown
func (u *ListUsecase) DeleteItem(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := u.repo.Update(ctx, func(l *domain.List) error {
		_, s, idx := l.FindItem(id)
		if s == nil {
			return errNoChange
		}
		s.Items = removeAt(s.Items, idx)
		deleted = true
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return false, err
	}
	return deleted, nil
}

// MoveItem moves an item within its section or into another one.
// With a target position the item is placed in front of the first sibling
// at or after that position, otherwise it is appended. Both the source and
// the target section are renumbered densely afterwards.
func (u *ListUsecase) MoveItem(ctx context.Context, id string, targetSectionID *string, targetPosition *int) (*domain.Item, error) {
	var moved *domain.Item
	err := u.repo.Update(ctx, func(l *domain.List) error {
		it, source, idx := l.FindItem(id)
		if it == nil {
			return itemNotFound()
		}
		source.Items = removeAt(source.Items, idx)

		target := source
		if targetSectionID != nil {
			if s, _ := l.FindSection(*targetSectionID); s != nil {
				target = s
			}
		}

		it.UpdatedAt = u.clock.Now()
		if targetPosition != nil {
			it.Position = *targetPosition
			target.Items, _ = insertBefore(target.Items, it, *targetPosition)
		} else {
			it.Position = nextPosition(target.Items)
			target.Items = append(target.Items, it)
		}

		reindexByPosition(target.Items)
		if target != source {
			reindexByPosition(source.Items)
		}
		moved = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("item moved", zap.String("id", id), zap.Int("position", moved.Position))
	return moved, nil
}

// AddChild appends a sub-task to an item
func (u *ListUsecase) AddChild(ctx context.Context, parentID, title string) (*domain.Child, error) {
	var created *domain.Child
	err := u.repo.Update(ctx, func(l *domain.List) error {
		parent, _, _ := l.FindItem(parentID)
		if parent == nil {
			return parentNotFound()
		}
		created = &domain.Child{
			ID:       u.newID(),
			Title:    strings.TrimSpace(title),
			Position: nextPosition(parent.Children),
		}
		parent.Children = append(parent.Children, created)
		parent.UpdatedAt = u.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateChild applies a partial update to a sub-task
func (u *ListUsecase) UpdateChild(ctx context.Context, parentID, childID string, patch domain.ChildPatch) (*domain.Child, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var updated *domain.Child
	err := u.repo.Update(ctx, func(l *domain.List) error {
		parent, child, err := findChild(l, parentID, childID)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			child.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Completed != nil {
			child.Completed = *patch.Completed
		}
		if patch.Position != nil {
			child.Position = *patch.Position
		}
		parent.UpdatedAt = u.clock.Now()
		updated = child
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleChild flips the completed flag of a sub-task
func (u *ListUsecase) ToggleChild(ctx context.Context, parentID, childID string) (*domain.Child, error) {
	var toggled *domain.Child
	err := u.repo.Update(ctx, func(l *domain.List) error {
		parent, child, err := findChild(l, parentID, childID)
		if err != nil {
			return err
		}
		child.Completed = !child.Completed
		parent.UpdatedAt = u.clock.Now()
		toggled = child
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toggled, nil
}

// DeleteChild removes a sub-task; false means parent or child is unknown
func (u *ListUsecase) DeleteChild(ctx context.Context, parentID, childID string) (bool, error) {
	deleted := false
	err := u.repo.Update(ctx, func(l *domain.List) error {
		parent, _, _ := l.FindItem(parentID)
		if parent == nil {
			return errNoChange
		}
		_, idx := parent.FindChild(childID)
		if idx < 0 {
			return errNoChange
		}
		parent.Children = removeAt(parent.Children, idx)
		parent.UpdatedAt = u.clock.Now()
		deleted = true
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return false, err
	}
	return deleted, nil
}

func findChild(l *domain.List, parentID, childID string) (*domain.Item, *domain.Child, error) {
	parent, _, _ := l.FindItem(parentID)
	if parent == nil {
		return nil, nil, childNotFound()
	}
	child, _ := parent.FindChild(childID)
	if child == nil {
		return nil, nil, childNotFound()
	}
	return parent, child, nil
}
