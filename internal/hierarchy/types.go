// Package hierarchy implements the Hierarchy Engine (C5): code assignment
// and conflict resolution across the two parallel hierarchy views
// (spec §4.5). planRestructure is a pure function over in-memory sibling
// descriptions; Engine (execute.go) is the only part that touches storage.
package hierarchy

import (
	"regexp"
	"time"

	"github.com/nodecurio/curator/internal/store"
)

// Sibling describes one existing node under a base path, carrying exactly
// the attributes findBestDifferentiator needs (spec §4.5's differentiation
// levels: company, source domain, earliest metadata tag, creation date,
// insertion order).
type Sibling struct {
	NodeID       string
	Code         string
	Company      string
	SourceDomain string
	EarliestTag  string
	CreatedAt    time.Time
	InsertionIdx int
}

// NewNode describes the node being imported, prior to code assignment.
type NewNode struct {
	Company      string
	SourceDomain string
	EarliestTag  string
	CreatedAt    time.Time
}

// Mutation is one code change produced by a restructure plan.
type Mutation struct {
	NodeID  string
	OldCode string
	NewCode string
	View    store.View
}

// Plan is planRestructure's pure output (spec §4.5).
type Plan struct {
	NewNodeCode   string
	Mutations     []Mutation
	AnySiblingMoved bool
	Description   string
}

// codePattern validates a finished hierarchy code (spec §4.5:
// "^[A-Z0-9]+\.[A-Z0-9]+\.[A-Z](\.[A-Za-z0-9]+)*$").
var codePattern = regexp.MustCompile(`^[A-Z0-9]+\.[A-Z0-9]+\.[A-Z](\.[A-Za-z0-9]+)*$`)

// maxRestructureDepth caps the recursive differentiation (spec §4.5 design
// note: "cap at 10; at the cap, use raw insertion-order indices").
const maxRestructureDepth = 10
