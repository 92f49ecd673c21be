package usecases

import (
	"sort"

	"github.com/your-org/todostack/internal/domain"
)

// positioned is implemented by every ordered entity of the list tree
type positioned interface {
	*domain.Section | *domain.Item | *domain.Child
}

func positionOf[T positioned](v T) int {
	switch e := any(v).(type) {
	case *domain.Section:
		return e.Position
	case *domain.Item:
		return e.Position
	case *domain.Child:
		return e.Position
	}
	return 0
}

func setPosition[T positioned](v T, pos int) {
	switch e := any(v).(type) {
	case *domain.Section:
		e.Position = pos
	case *domain.Item:
		e.Position = pos
	case *domain.Child:
		e.Position = pos
	}
}

// nextPosition returns one past the highest position, 0 for an empty slice
func nextPosition[T positioned](siblings []T) int {
	next := 0
	for _, s := range siblings {
		if p := positionOf(s) + 1; p > next {
			next = p
		}
	}
	return next
}

// insertBefore places v in front of the first sibling whose position is at
// least target, or appends it when no sibling qualifies. It returns the
// new slice and the index v landed at.
func insertBefore[T positioned](siblings []T, v T, target int) ([]T, int) {
	idx := len(siblings)
	for i, s := range siblings {
		if positionOf(s) >= target {
			idx = i
			break
		}
	}
	siblings = append(siblings, v)
	copy(siblings[idx+1:], siblings[idx:])
	siblings[idx] = v
	return siblings, idx
}

// removeAt drops the element at index i
func removeAt[T any](s []T, i int) []T {
	return append(s[:i], s[i+1:]...)
}

// reindexInOrder assigns dense positions following slice order
func reindexInOrder[T positioned](siblings []T) {
	for i, s := range siblings {
		setPosition(s, i)
	}
}

// reindexByPosition stable-sorts by the current position field and then
// assigns dense positions
func reindexByPosition[T positioned](siblings []T) {
	sort.SliceStable(siblings, func(i, j int) bool {
		return positionOf(siblings[i]) < positionOf(siblings[j])
	})
	reindexInOrder(siblings)
}
