package store

import "time"

// View selects which of the two parallel hierarchy codes a query or
// mutation targets (spec §3).
type View string

const (
	ViewFunction     View = "function"
	ViewOrganization View = "organization"
)

// Node is the central curated item (spec §3).
type Node struct {
	ID                        string
	Title                     string
	URL                       string
	SourceDomain              string
	Company                   string
	SegmentCode               string
	CategoryCode              string
	ContentTypeCode           string
	FunctionHierarchyCode     string
	OrganizationHierarchyCode string
	FunctionParentID          string
	OrganizationParentID      string
	ExtractedFields           map[string]any
	MetadataTags              []string
	ShortDescription          string
	PhraseDescription         string
	AISummary                 string
	KeyConcepts               []string
	Descriptor                string
	LogoURL                   string
	IsDeleted                 bool
	DateAdded                 time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// NodeDraft is the input to Create: only the fields known at commit time.
type NodeDraft struct {
	Title                     string
	URL                       string
	SourceDomain              string
	Company                   string
	SegmentCode               string
	CategoryCode              string
	ContentTypeCode           string
	FunctionHierarchyCode     string
	OrganizationHierarchyCode string
	FunctionParentID          string
	OrganizationParentID      string
	ExtractedFields           map[string]any
	ShortDescription          string
}

// NodeDelta is a partial update; nil fields are left unchanged.
type NodeDelta struct {
	Title                     *string
	Company                   *string
	ShortDescription          *string
	PhraseDescription         *string
	AISummary                 *string
	KeyConcepts               []string
	LogoURL                   *string
	FunctionHierarchyCode     *string
	OrganizationHierarchyCode *string
	FunctionParentID          *string
	OrganizationParentID      *string

	// TriggeredBy attributes a hierarchy code change to its cause for the
	// audit log (spec §3's triggered_by enum). Zero value defaults to
	// TriggeredByUserMove, since most callers of Update are user-initiated
	// edits; callers driving the change from elsewhere (enrichment,
	// restructure) must set this explicitly.
	TriggeredBy TriggeredBy
}

// MetadataCode is a typed tag, confidence-scored, attached to a node.
type MetadataCode struct {
	Type       string
	Code       string
	Confidence float64
	Source     string
}

// MetadataType enumerates the fixed set of registry types (spec §3).
var MetadataTypes = map[string]bool{
	"ORG": true, "DOM": true, "FNC": true, "TEC": true, "CON": true,
	"IND": true, "AUD": true, "PRC": true, "LIC": true, "LNG": true,
	"PLT": true, "SEG": true, "CAT": true, "TYP": true,
}

// ChangeType enumerates hierarchy_audit_log.change_type values.
type ChangeType string

const (
	ChangeCreated      ChangeType = "created"
	ChangeUpdated      ChangeType = "updated"
	ChangeMoved        ChangeType = "moved"
	ChangeRestructured ChangeType = "restructured"
	ChangeMerged       ChangeType = "merged"
	ChangeDeleted      ChangeType = "deleted"
)

// TriggeredBy enumerates hierarchy_audit_log.triggered_by values.
type TriggeredBy string

const (
	TriggeredByImport      TriggeredBy = "import"
	TriggeredByUserMove    TriggeredBy = "user_move"
	TriggeredByRestructure TriggeredBy = "restructure"
	TriggeredByMerge       TriggeredBy = "merge"
	TriggeredByEnrichment  TriggeredBy = "enrichment"
)

// AuditEntry is an append-only record of a hierarchy or metadata change.
type AuditEntry struct {
	ID             int64
	NodeID         string
	HierarchyType  View
	OldCode        string
	NewCode        string
	ChangeType     ChangeType
	TriggeredBy    TriggeredBy
	Reason         string
	RelatedNodeIDs []string
	Metadata       map[string]any
	ChangedAt      time.Time
}

// Filter narrows listPaginated/keywordSearch results (spec §4.4).
type Filter struct {
	Segment      string
	Category     string
	ContentType  string
	Organization string
	DateFrom     *time.Time
	DateTo       *time.Time
	HasMetadata  bool // true => require at least one code with confidence >= MetadataConfidenceThreshold
}

// MetadataConfidenceThreshold is the cutoff used by Filter.HasMetadata
// (spec §4.4: "codeConfidence ≥ threshold after Phase 2").
const MetadataConfidenceThreshold = 0.5

// Page is a single page of results plus pagination bookkeeping (spec §4.4).
type Page struct {
	Data       []Node
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasMore    bool
}

// Facets carries counts used to drive search UI facet widgets.
type Facets struct {
	Segments     map[string]int
	Categories   map[string]int
	ContentTypes map[string]int
	TopOrgs      map[string]int
}

// SearchResult is keywordSearch's return value: a page plus facets.
type SearchResult struct {
	Page
	Facets Facets
}

// JobStatus enumerates processing_queue.status values (spec §4.6).
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// JobPhase names which pipeline stage a queued job represents. Only
// "enrichment" exists today (the Phase-2 Enricher), but the column is a
// free-form string so a future phase can reuse the same queue.
const PhaseEnrichment = "enrichment"

// Job is a row in processing_queue.
type Job struct {
	ID             string
	NodeID         string
	Phase          string
	Status         JobStatus
	Priority       int
	Attempts       int
	MaxAttempts    int
	ErrorMessage   string
	Owner          string
	NextEligibleAt time.Time
	ClaimedAt      *time.Time
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

// JobStats summarizes queue depth by status, for the queue stats endpoint.
type JobStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}
