package domain

import (
	"log/slog"
	"sort"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// MatchResult is the outcome of mapping old objects onto new ones.
type MatchResult struct {
	// Pairs is ordered by old object name.
	Pairs   []m.ObjectPair
	Removed []m.SharedObject
	Added   []m.SharedObject
	// Renamed maps an old object name to the new name it was force-mapped to.
	Renamed map[string]string
}

// ChangedSoname counts pairs whose SONAME differs between the sides.
func (r MatchResult) ChangedSoname() int {
	count := 0

	for _, pair := range r.Pairs {
		if pair.SONAMEChanged() {
			count++
		}
	}

	return count
}

// IsRenamed reports whether the pair was produced by the single-object fallback.
func (r MatchResult) IsRenamed(old string) bool {
	_, ok := r.Renamed[old]
	return ok
}

type matchRule struct {
	name string
	key  func(m.SharedObject) string
}

// matchRules are applied in priority order. Each rule only matches when
// exactly one new object carries the key.
var matchRules = []matchRule{
	{name: "soname", key: func(o m.SharedObject) string { return o.SONAME }},
	{name: "name", key: func(o m.SharedObject) string { return o.Name }},
	{name: "short-name", key: func(o m.SharedObject) string { return o.ShortName }},
	{name: "shortest-name", key: func(o m.SharedObject) string { return o.ShortestName }},
}

// MatchObjects maps every old object to at most one new object.
//
// Rules run as priority tiers over all old objects: an old object left
// unmatched by a rule gets the next one, and a new object already claimed
// cannot be claimed again. When nothing matched and each side holds exactly
// one object, the two are paired and reported as renamed.
func MatchObjects(oldObjects, newObjects []m.SharedObject) MatchResult {
	oldSorted := sortedObjects(oldObjects)
	newSorted := sortedObjects(newObjects)

	matched := make(map[int]int, len(oldSorted))
	claimed := make(map[int]bool, len(newSorted))

	for _, rule := range matchRules {
		index := indexObjects(newSorted, rule.key)

		for i, obj := range oldSorted {
			if _, done := matched[i]; done {
				continue
			}

			key := rule.key(obj)
			if key == "" {
				continue
			}

			candidates := index[key]
			if len(candidates) != 1 {
				continue
			}

			j := candidates[0]
			if claimed[j] {
				continue
			}

			matched[i] = j
			claimed[j] = true

			slog.Debug("Matched object", "old", obj.Name, "new", newSorted[j].Name, "rule", rule.name)
		}
	}

	result := MatchResult{Renamed: map[string]string{}}

	if len(matched) == 0 && len(oldSorted) == 1 && len(newSorted) == 1 {
		matched[0] = 0
		claimed[0] = true
		result.Renamed[oldSorted[0].Name] = newSorted[0].Name

		slog.Debug("Matched single object by fallback", "old", oldSorted[0].Name, "new", newSorted[0].Name)
	}

	for i, obj := range oldSorted {
		j, ok := matched[i]
		if !ok {
			result.Removed = append(result.Removed, obj)
			continue
		}

		result.Pairs = append(result.Pairs, m.ObjectPair{Old: obj, New: newSorted[j]})
	}

	for j, obj := range newSorted {
		if !claimed[j] {
			result.Added = append(result.Added, obj)
		}
	}

	return result
}

func sortedObjects(objects []m.SharedObject) []m.SharedObject {
	sorted := make([]m.SharedObject, len(objects))
	copy(sorted, objects)

	sort.SliceStable(sorted, func(i, j int) bool {
		return m.LessFold(sorted[i].Name, sorted[j].Name)
	})

	return sorted
}

func indexObjects(objects []m.SharedObject, key func(m.SharedObject) string) map[string][]int {
	index := make(map[string][]int, len(objects))

	for i, obj := range objects {
		k := key(obj)
		if k == "" {
			continue
		}

		index[k] = append(index[k], i)
	}

	return index
}
