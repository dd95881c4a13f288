package hierarchy

import (
	"fmt"
	"sort"
	"time"

	"github.com/nodecurio/curator/internal/store"
)

// dateBucket buckets a timestamp to year-month, the granularity spec §4.5
// uses for the "creation date bucket" differentiation level.
func dateBucket(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01")
}

// newNodeKey is the candidate key used for the node being imported, which
// has no NodeID yet.
const newNodeKey = ""

// planRestructure is a pure function: given the node being imported and its
// existing siblings under basePath, it produces the code to assign the new
// node and the set of sibling code mutations needed to keep the tree
// unambiguous (spec §4.5).
func planRestructure(newNode NewNode, basePath string, siblings []Sibling, view store.View) (*Plan, error) {
	if len(siblings) == 0 {
		code := basePath + ".1"
		if !codePattern.MatchString(code) {
			return nil, fmt.Errorf("hierarchy: assigned code %q does not match codePattern", code)
		}
		return &Plan{
			NewNodeCode:     code,
			AnySiblingMoved: false,
			Description:     fmt.Sprintf("no existing siblings under %s; assigned %s", basePath, code),
		}, nil
	}

	candidates := make([]candidate, 0, len(siblings)+1)
	for _, s := range siblings {
		candidates = append(candidates, candidate{
			nodeID:       s.NodeID,
			oldCode:      s.Code,
			company:      s.Company,
			sourceDomain: s.SourceDomain,
			earliestTag:  s.EarliestTag,
			dateBucket:   dateBucket(s.CreatedAt),
			insertionIdx: s.InsertionIdx,
		})
	}
	candidates = append(candidates, candidate{
		nodeID:       newNodeKey,
		company:      newNode.Company,
		sourceDomain: newNode.SourceDomain,
		earliestTag:  newNode.EarliestTag,
		dateBucket:   dateBucket(newNode.CreatedAt),
		insertionIdx: len(siblings),
	})

	trail := &planTrail{}
	suffixes, err := assignCodes(candidates, basePath, 1, trail)
	if err != nil {
		return nil, err
	}

	newCode := basePath + "." + suffixes[newNodeKey]
	if !codePattern.MatchString(newCode) {
		return nil, fmt.Errorf("hierarchy: assigned code %q does not match codePattern", newCode)
	}

	seen := map[string]string{newCode: "new node"}
	var mutations []Mutation
	anyMoved := false
	for _, s := range siblings {
		suffix, ok := suffixes[s.NodeID]
		if !ok {
			return nil, fmt.Errorf("hierarchy: sibling %s missing from assignment", s.NodeID)
		}
		newSiblingCode := basePath + "." + suffix
		if !codePattern.MatchString(newSiblingCode) {
			return nil, fmt.Errorf("hierarchy: assigned code %q does not match codePattern", newSiblingCode)
		}
		if owner, dup := seen[newSiblingCode]; dup {
			return nil, fmt.Errorf("hierarchy: duplicate assigned code %q (%s and node %s)", newSiblingCode, owner, s.NodeID)
		}
		seen[newSiblingCode] = s.NodeID
		if newSiblingCode != s.Code {
			mutations = append(mutations, Mutation{
				NodeID:  s.NodeID,
				OldCode: s.Code,
				NewCode: newSiblingCode,
				View:    view,
			})
			anyMoved = true
		}
	}

	return &Plan{
		NewNodeCode:     newCode,
		Mutations:       mutations,
		AnySiblingMoved: anyMoved,
		Description:     trail.String(),
	}, nil
}

// planTrail accumulates a human-readable account of the splits
// assignCodes performed, for Plan.Description.
type planTrail struct {
	lines []string
}

func (t *planTrail) add(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

func (t *planTrail) String() string {
	out := ""
	for i, l := range t.lines {
		if i > 0 {
			out += "; "
		}
		out += l
	}
	return out
}

// assignCodes recursively partitions candidates by findBestDifferentiator,
// numbering each group 1..N in first-seen order and recursing into any
// group with more than one member until every candidate has a unique
// dot-separated suffix, capping recursion at maxRestructureDepth (spec
// §4.5: "at the cap, use raw insertion-order indices").
func assignCodes(candidates []candidate, basePath string, depth int, trail *planTrail) (map[string]string, error) {
	result := make(map[string]string, len(candidates))

	if depth > maxRestructureDepth {
		sorted := append([]candidate(nil), candidates...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].insertionIdx < sorted[j].insertionIdx })
		for i, c := range sorted {
			result[c.nodeID] = fmt.Sprintf("%d", i+1)
		}
		trail.add("depth cap (%d) reached under %s; used insertion order for %d node(s)", maxRestructureDepth, basePath, len(candidates))
		return result, nil
	}

	level, groups, order := findBestDifferentiator(candidates)
	trail.add("split %d node(s) under %s by %s", len(candidates), basePath, level)

	for i, key := range order {
		idx := i + 1
		group := groups[key]
		if len(group) == 1 {
			result[group[0].nodeID] = fmt.Sprintf("%d", idx)
			continue
		}
		subPath := fmt.Sprintf("%s.%d", basePath, idx)
		subSuffixes, err := assignCodes(group, subPath, depth+1, trail)
		if err != nil {
			return nil, err
		}
		for _, c := range group {
			sub, ok := subSuffixes[c.nodeID]
			if !ok {
				return nil, fmt.Errorf("hierarchy: candidate missing from recursive assignment under %s", subPath)
			}
			result[c.nodeID] = fmt.Sprintf("%d.%s", idx, sub)
		}
	}
	return result, nil
}
