package hierarchy

import (
	"fmt"
	"sort"

	"github.com/nodecurio/curator/internal/store"
)

// Invalidator is implemented by the hierarchy cache (C11); Engine calls it with every code touched by a plan so cached subtree/ancestry
// lookups under those prefixes get dropped. A nil Invalidator is valid — it
// just means no cache sits in front of the store yet.
type Invalidator interface {
	InvalidatePrefixes(view store.View, codes ...string)
}

// Engine resolves basePath siblings from storage, runs planRestructure, and
// commits the result atomically — the only part of this package that
// touches storage (spec §4.5).
type Engine struct {
	store *store.Store
	cache Invalidator
}

func NewEngine(s *store.Store, cache Invalidator) *Engine {
	return &Engine{store: s, cache: cache}
}

// earliestTag returns the first denormalized metadata tag on a node, used
// as the "earliest metadata tag" differentiation level. Nodes carry their
// tags in insertion order (internal/store's refreshMetadataTags appends in
// the order AddMetadata/SetMetadata wrote them), so the first entry is the
// earliest.
func earliestTag(n store.Node) string {
	if len(n.MetadataTags) == 0 {
		return ""
	}
	return n.MetadataTags[0]
}

// siblingsUnder loads every existing node at basePath's next level and
// converts it into the Sibling shape planRestructure needs, ordering
// InsertionIdx by CreatedAt (oldest first) since the store does not track a
// separate insertion sequence.
func (e *Engine) siblingsUnder(view store.View, basePath string) ([]Sibling, error) {
	nodes, err := e.store.GetSubtree(view, basePath)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: load siblings under %s: %w", basePath, err)
	}

	// GetSubtree includes basePath itself if some node occupies it exactly;
	// restructuring only concerns children one level down, so keep only
	// those whose code is strictly longer than basePath.
	var direct []store.Node
	for _, n := range nodes {
		code := codeForView(n, view)
		if code != basePath && len(code) > len(basePath) {
			direct = append(direct, n)
		}
	}

	sort.SliceStable(direct, func(i, j int) bool { return direct[i].CreatedAt.Before(direct[j].CreatedAt) })

	siblings := make([]Sibling, 0, len(direct))
	for i, n := range direct {
		siblings = append(siblings, Sibling{
			NodeID:       n.ID,
			Code:         codeForView(n, view),
			Company:      n.Company,
			SourceDomain: n.SourceDomain,
			EarliestTag:  earliestTag(n),
			CreatedAt:    n.CreatedAt,
			InsertionIdx: i,
		})
	}
	return siblings, nil
}

func codeForView(n store.Node, view store.View) string {
	if view == store.ViewOrganization {
		return n.OrganizationHierarchyCode
	}
	return n.FunctionHierarchyCode
}

// Restructure resolves basePath's current children, plans the code
// assignment for a freshly-imported node, and atomically commits any
// sibling moves the plan requires. It does not assign the new node's own
// code onto storage — the caller (the import orchestrator) still needs to
// create the node, so it passes the winning code from the returned Plan
// into that create call. Invalidates the hierarchy cache for every touched
// prefix on success.
func (e *Engine) Restructure(view store.View, basePath string, newNode NewNode) (*Plan, error) {
	siblings, err := e.siblingsUnder(view, basePath)
	if err != nil {
		return nil, err
	}

	plan, err := planRestructure(newNode, basePath, siblings, view)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: plan restructure under %s: %w", basePath, err)
	}

	if len(plan.Mutations) > 0 {
		moves := make(map[string]string, len(plan.Mutations))
		for _, m := range plan.Mutations {
			moves[m.NodeID] = m.NewCode
		}
		reason := fmt.Sprintf("sibling split under %s to accommodate new node", basePath)
		if err := e.store.ApplyRestructurePlan(view, moves, reason); err != nil {
			return nil, fmt.Errorf("hierarchy: apply restructure under %s: %w", basePath, err)
		}
	}

	if e.cache != nil {
		touched := make([]string, 0, len(plan.Mutations)+2)
		touched = append(touched, basePath, plan.NewNodeCode)
		for _, m := range plan.Mutations {
			touched = append(touched, m.OldCode, m.NewCode)
		}
		e.cache.InvalidatePrefixes(view, touched...)
	}

	return plan, nil
}

// RestructureOnMove re-plans basePath after an explicit user-initiated code
// change for an existing node (spec §4.5's "moved" transition), treating
// the moved node like a fresh arrival at its new parent.
func (e *Engine) RestructureOnMove(view store.View, nodeID string, basePath string, moved NewNode) (*Plan, error) {
	siblings, err := e.siblingsUnder(view, basePath)
	if err != nil {
		return nil, err
	}
	filtered := siblings[:0:0]
	for _, s := range siblings {
		if s.NodeID != nodeID {
			filtered = append(filtered, s)
		}
	}

	plan, err := planRestructure(moved, basePath, filtered, view)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: plan move under %s: %w", basePath, err)
	}

	if len(plan.Mutations) > 0 {
		moves := make(map[string]string, len(plan.Mutations))
		for _, m := range plan.Mutations {
			moves[m.NodeID] = m.NewCode
		}
		if err := e.store.ApplyRestructurePlan(view, moves, fmt.Sprintf("sibling split under %s after moving node %s", basePath, nodeID)); err != nil {
			return nil, fmt.Errorf("hierarchy: apply restructure after move under %s: %w", basePath, err)
		}
	}

	if e.cache != nil {
		touched := make([]string, 0, len(plan.Mutations)+2)
		touched = append(touched, basePath, plan.NewNodeCode)
		for _, m := range plan.Mutations {
			touched = append(touched, m.OldCode, m.NewCode)
		}
		e.cache.InvalidatePrefixes(view, touched...)
	}

	return plan, nil
}
