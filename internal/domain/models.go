package domain

import "time"

// Priority is the urgency marker of an item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Theme values accepted in list settings
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Settings holds per-list display options
type Settings struct {
	HideCompleted bool   `json:"hideCompleted"`
	Theme         string `json:"theme"`
}

// List is the root aggregate persisted as a single document.
// It always holds at least one section.
type List struct {
	Settings Settings   `json:"settings"`
	Sections []*Section `json:"sections"`
}

// Section is a named, ordered bucket of items
type Section struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Position  int     `json:"position"`
	Collapsed bool    `json:"collapsed"`
	Items     []*Item `json:"items"`
}

// Item is a task owned by exactly one section
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Priority    *Priority `json:"priority"`
	DueDate     *string   `json:"dueDate"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Children    []*Child  `json:"children"`
}

// Child is a sub-task of an item. Children do not nest further.
type Child struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Position  int    `json:"position"`
}

// NewDefaultList returns the document used when nothing usable is on disk
func NewDefaultList(sectionID string) *List {
	return &List{
		Settings: Settings{
			HideCompleted: false,
			Theme:         ThemeAuto,
		},
		Sections: []*Section{
			{
				ID:       sectionID,
				Title:    "",
				Position: 0,
				Items:    []*Item{},
			},
		},
	}
}

// Normalize drops null entries and replaces nil collections with empty
// ones so the document always serializes arrays instead of nulls.
func (l *List) Normalize() {
	if l.Settings.Theme == "" {
		l.Settings.Theme = ThemeAuto
	}
	l.Sections = compact(l.Sections)
	for _, s := range l.Sections {
		s.Items = compact(s.Items)
		for _, it := range s.Items {
			it.Children = compact(it.Children)
		}
	}
}

// HasSections reports whether at least one non-null section is present
func (l *List) HasSections() bool {
	for _, s := range l.Sections {
		if s != nil {
			return true
		}
	}
	return false
}

func compact[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// FindSection returns the section with the given id and its index
func (l *List) FindSection(id string) (*Section, int) {
	for i, s := range l.Sections {
		if s.ID == id {
			return s, i
		}
	}
	return nil, -1
}

// FindItem returns the item with the given id, its owning section and its index within that section
func (l *List) FindItem(id string) (*Item, *Section, int) {
	for _, s := range l.Sections {
		for i, it := range s.Items {
			if it.ID == id {
				return it, s, i
			}
		}
	}
	return nil, nil, -1
}

// FindChild returns the child with the given id and its index
func (it *Item) FindChild(id string) (*Child, int) {
	for i, c := range it.Children {
		if c.ID == id {
			return c, i
		}
	}
	return nil, -1
}
