package planner

import (
	"meno/internal/model"
)

// Ref is how a rendered row points back at its record.
type Ref struct {
	// ID is the item's stable id, when the row had one.
	ID string
	// Index is the row's position in the filtered list, or -1.
	Index int
	// Title is the row's displayed title, used only for id-less records.
	Title string
}

// IDRef refers to an item by id alone.
func IDRef(id string) Ref {
	return Ref{ID: id, Index: -1}
}

// Resolve maps ref to a position in source, trying in order:
//
//  1. the stable id;
//  2. the filtered position, mapped onto the unfiltered sequence;
//  3. title and type under the current filter.
//
// Steps 2 and 3 never pick a record that carries a different id than the
// one asked for. Resolve returns -1 when nothing matches.
func Resolve(source []model.Item, filter model.Type, ref Ref) int {
	if ref.ID != "" {
		for i, it := range source {
			if it.ID == ref.ID {
				return i
			}
		}
	}

	if ref.Index >= 0 {
		idx := FilterIndices(source, filter)
		if ref.Index < len(idx) {
			cand := idx[ref.Index]
			if ref.ID == "" || source[cand].ID == "" {
				return cand
			}
		}
	}

	if ref.Title != "" {
		for i, it := range source {
			if it.ID != "" {
				continue
			}
			if it.Title == ref.Title && Matches(it, filter) {
				return i
			}
		}
	}
	return -1
}

// resolveInType resolves ref within the same-type subsequence of source
// (the dashboard's per-variant tables): id first, then the row position
// inside that variant.
func resolveInType(source []model.Item, t model.Type, ref Ref) int {
	if ref.ID != "" {
		for i, it := range source {
			if it.ID == ref.ID && it.Type() == t {
				return i
			}
		}
	}
	if ref.Index >= 0 {
		idx := FilterIndices(source, t)
		if ref.Index < len(idx) {
			cand := idx[ref.Index]
			if ref.ID == "" || source[cand].ID == "" {
				return cand
			}
		}
	}
	return -1
}
