package hierarchy

import "sort"

// candidate unifies the new node and its existing siblings into one list
// for findBestDifferentiator/planRestructure to partition (spec §4.5:
// "combine {new node} ∪ existing siblings; partition by
// findBestDifferentiator").
type candidate struct {
	nodeID       string // "" for the new node
	oldCode      string // "" for the new node
	company      string
	sourceDomain string
	earliestTag  string
	dateBucket   string
	insertionIdx int
}

// differentiatorLevel names which attribute findBestDifferentiator picked,
// in the priority order from spec §4.5.
type differentiatorLevel int

const (
	byCompany differentiatorLevel = iota
	byDomain
	byTag
	byDateBucket
	byInsertionOrder
)

func (l differentiatorLevel) String() string {
	switch l {
	case byCompany:
		return "company"
	case byDomain:
		return "source domain"
	case byTag:
		return "earliest metadata tag"
	case byDateBucket:
		return "creation date"
	default:
		return "insertion order"
	}
}

// groupKey extracts the value a given level groups by.
func groupKey(level differentiatorLevel, c candidate) string {
	switch level {
	case byCompany:
		return c.company
	case byDomain:
		return c.sourceDomain
	case byTag:
		return c.earliestTag
	case byDateBucket:
		return c.dateBucket
	default:
		return ""
	}
}

// findBestDifferentiator picks the highest-priority level that yields >= 2
// non-empty groups when applied to candidates; otherwise falls back to
// insertion order (spec §4.5).
func findBestDifferentiator(candidates []candidate) (differentiatorLevel, map[string][]candidate, []string) {
	for _, level := range []differentiatorLevel{byCompany, byDomain, byTag, byDateBucket} {
		groups, order := partitionBy(level, candidates)
		if len(order) >= 2 {
			return level, groups, order
		}
	}
	groups, order := partitionBy(byInsertionOrder, candidates)
	return byInsertionOrder, groups, order
}

// partitionBy groups candidates by groupKey(level, c), skipping empty keys
// (an empty company/domain/tag doesn't count as a distinguishing group),
// preserving first-seen order for deterministic numbering. byInsertionOrder
// gives every candidate its own singleton group, ordered by insertionIdx.
func partitionBy(level differentiatorLevel, candidates []candidate) (map[string][]candidate, []string) {
	groups := make(map[string][]candidate)
	var order []string

	if level == byInsertionOrder {
		sorted := append([]candidate(nil), candidates...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].insertionIdx < sorted[j].insertionIdx })
		for _, c := range sorted {
			key := c.nodeID
			if key == "" {
				key = "__new__"
			}
			groups[key] = []candidate{c}
			order = append(order, key)
		}
		return groups, order
	}

	for _, c := range candidates {
		key := groupKey(level, c)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	if len(order) < 2 {
		return groups, order
	}

	total := 0
	for _, k := range order {
		total += len(groups[k])
	}
	if total != len(candidates) {
		// Some candidates had empty keys at this level — they can't be
		// placed into any group, so this level doesn't cleanly partition
		// the whole set and isn't usable.
		return groups, nil
	}
	return groups, order
}
