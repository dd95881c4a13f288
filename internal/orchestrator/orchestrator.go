// Package orchestrator implements the Import Orchestrator (C7): the single
// public import(url, options) operation that drives one URL through
// validation, fetch, extraction, classification, hierarchy planning and
// commit, then queues the Phase-2 Enricher (spec §4.8).
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nodecurio/curator/internal/classify"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/extract"
	"github.com/nodecurio/curator/internal/hierarchy"
	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/queue"
	"github.com/nodecurio/curator/internal/store"
	"github.com/nodecurio/curator/internal/urlvalidate"
)

// Options controls one Import call (spec §4.8: "forceRefresh,
// createQueueJob (default true)").
type Options struct {
	ForceRefresh   bool
	CreateQueueJob bool
}

// DefaultOptions returns the spec's default: createQueueJob true,
// forceRefresh false.
func DefaultOptions() Options {
	return Options{CreateQueueJob: true}
}

// HierarchyCodes carries the two winning codes assigned during planning.
type HierarchyCodes struct {
	Function     string
	Organization string
}

// Result is import(url, options)'s return value (spec §4.8).
type Result struct {
	Success        bool
	NodeID         string
	Cached         bool
	Classification classify.Classification
	HierarchyCodes HierarchyCodes
	Metadata       []store.MetadataCode
	Phase2Queued   bool
	Phase2JobID    string
}

// Orchestrator wires together C1-C6 and C8 behind the one import operation.
// It is serial per-request; many requests run concurrently across separate
// goroutines/HTTP handlers (spec §5: "Import Orchestrator is serial
// per-request but many requests may run in parallel").
type Orchestrator struct {
	store        *store.Store
	fetcher      *extract.Fetcher
	registry     *extract.Registry
	classifier   *classify.Classifier
	function     *hierarchy.Engine
	organization *hierarchy.Engine
	queue        *queue.Queue
}

func New(s *store.Store, fetcher *extract.Fetcher, registry *extract.Registry, classifier *classify.Classifier, function, organization *hierarchy.Engine, q *queue.Queue) *Orchestrator {
	return &Orchestrator{
		store:        s,
		fetcher:      fetcher,
		registry:     registry,
		classifier:   classifier,
		function:     function,
		organization: organization,
		queue:        q,
	}
}

// Import runs the 8-state pipeline in spec §4.8. An error from validation,
// the duplicate check, fetching or extraction leaves no persisted change.
// The later writes are not one transaction: each Restructure call in step 5
// commits its sibling moves before store.Create runs in step 6, and the
// classifier metadata is added in its own transaction after the node
// insert, so an error from step 5 onward can leave the earlier writes in
// place.
func (o *Orchestrator) Import(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	// 1. Validating (C1).
	canonicalURL, err := urlvalidate.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	// 2. Duplicate check.
	existing, err := o.store.GetByURL(canonicalURL)
	if err != nil {
		return nil, err
	}
	if existing != nil && !opts.ForceRefresh {
		logging.Orchestrator("import %s: duplicate of node %s, forceRefresh=false, returning cached", canonicalURL, existing.ID)
		return &Result{
			Success: true,
			NodeID:  existing.ID,
			Cached:  true,
			HierarchyCodes: HierarchyCodes{
				Function:     existing.FunctionHierarchyCode,
				Organization: existing.OrganizationHierarchyCode,
			},
		}, nil
	}
	if existing != nil {
		o.classifier.Invalidate(canonicalURL)
	}

	// 3. Fetching (C2+C3).
	fetched, err := o.fetcher.Fetch(ctx, canonicalURL)
	if err != nil {
		return nil, mapFetchErr(err)
	}

	extractor := o.registry.Select(canonicalURL)
	content, err := extractor.Extract(ctx, canonicalURL, fetched.Body, fetched.ContentType)
	if err != nil {
		return nil, mapExtractErr(err)
	}

	// 4. Classifying (C4). Never fatal — Classify already falls back to
	// URL-pattern matching internally on any LLM failure.
	domain := hostOf(canonicalURL)
	classification := o.classifier.Classify(ctx, canonicalURL, classify.Input{
		URL:            canonicalURL,
		Title:          content.Title,
		Domain:         domain,
		Description:    content.Description,
		Author:         content.Author,
		SiteName:       content.SiteName,
		ContentExcerpt: content.MainContentMD,
	}, opts.ForceRefresh)

	// 5. Planning codes (C5.planRestructure for both views).
	functionBase := fmt.Sprintf("%s.%s.%s", classification.Segment, classification.Category, classification.ContentType)
	orgBase := fmt.Sprintf("%s.%s.%s", classification.Organization, classification.Category, classification.ContentType)

	newNode := hierarchy.NewNode{
		Company:      classification.Organization,
		SourceDomain: domain,
	}

	functionPlan, err := o.function.Restructure(store.ViewFunction, functionBase, newNode)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindInternal, err, "plan function hierarchy")
	}
	orgPlan, err := o.organization.Restructure(store.ViewOrganization, orgBase, newNode)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindInternal, err, "plan organization hierarchy")
	}

	// 6. Committing: store.Create writes the node, its FTS row and the
	// "created" audit entry in one transaction (internal/store/node.go).
	// The sibling mutations each Restructure call above already applied
	// are committed in their own transaction ahead of this one — see
	// DESIGN.md's Open Question note on this two-step commit.
	draft := store.NodeDraft{
		Title:                     content.Title,
		URL:                       canonicalURL,
		SourceDomain:              domain,
		Company:                   classification.Organization,
		SegmentCode:               classification.Segment,
		CategoryCode:              classification.Category,
		ContentTypeCode:           classification.ContentType,
		FunctionHierarchyCode:     functionPlan.NewNodeCode,
		OrganizationHierarchyCode: orgPlan.NewNodeCode,
		ExtractedFields:           content.TypeSpecific,
		ShortDescription:          truncate(content.Description, 160),
	}

	node, err := o.store.Create(draft)
	if err != nil {
		return nil, err
	}

	metadata := classificationMetadata(classification)
	if len(metadata) > 0 {
		if err := o.store.AddMetadata(node.ID, metadata); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Success:        true,
		NodeID:         node.ID,
		Classification: classification,
		HierarchyCodes: HierarchyCodes{Function: functionPlan.NewNodeCode, Organization: orgPlan.NewNodeCode},
		Metadata:       metadata,
	}

	// 7. Queuing Phase 2.
	if opts.CreateQueueJob {
		job, err := o.queue.EnqueuePriority(node.ID, store.PhaseEnrichment, 0)
		if err != nil {
			logging.OrchestratorError("import %s: enqueue phase 2 failed for node %s: %v", canonicalURL, node.ID, err)
		} else {
			result.Phase2Queued = true
			result.Phase2JobID = job.ID
		}
	}

	logging.Orchestrator("imported %s as node %s (function=%s organization=%s phase2Queued=%v)",
		canonicalURL, node.ID, result.HierarchyCodes.Function, result.HierarchyCodes.Organization, result.Phase2Queued)

	// 8. Return.
	return result, nil
}

// classificationMetadata turns a Classification into the SEG/CAT/TYP/ORG
// metadata codes addMetadata records at commit time (spec §4.8 step 6:
// "insert metadata (from classifier)").
func classificationMetadata(c classify.Classification) []store.MetadataCode {
	var codes []store.MetadataCode
	add := func(mtype, code string) {
		if code == "" {
			return
		}
		codes = append(codes, store.MetadataCode{Type: mtype, Code: code, Confidence: c.Confidence, Source: "classify"})
	}
	add("SEG", c.Segment)
	add("CAT", c.Category)
	add("TYP", c.ContentType)
	if c.Organization != "" && c.Organization != classify.DefaultOrganization {
		add("ORG", c.Organization)
	}
	return codes
}

// mapFetchErr classifies internal/extract's typed fetch failures into the
// curatorerrors kinds spec §4.8 step 3 names (FETCH/NETWORK/SSRF/
// CONTENT_TOO_LARGE/TIMEOUT).
func mapFetchErr(err error) error {
	switch e := err.(type) {
	case *extract.SizeExceeded:
		return curatorerrors.Newf(curatorerrors.KindContentTooLarge, "content exceeded %d bytes", e.Limit)
	case *extract.UpstreamRateLimited:
		return curatorerrors.Newf(curatorerrors.KindRateLimitExceeded, "upstream rate limited, retry after %ds", e.RetryAfterSeconds)
	case *extract.TransientFetchError:
		if e.Cause != nil && ctxDeadline(e.Cause) {
			return curatorerrors.Wrap(curatorerrors.KindTimeout, e.Cause, "fetch timed out")
		}
		return curatorerrors.Wrap(curatorerrors.KindFetchFailed, e.Cause, "fetch failed, retryable")
	case *extract.PermanentFetchError:
		// A redirect target rejected by internal/extract's CheckRedirect
		// hook (e.g. SSRF_BLOCKED) already carries its own Kind; preserve
		// it instead of collapsing every permanent failure into
		// FETCH_FAILED.
		if classified, ok := e.Cause.(*curatorerrors.Error); ok {
			return classified
		}
		return curatorerrors.Wrap(curatorerrors.KindFetchFailed, e.Cause, "fetch failed")
	default:
		return curatorerrors.Wrap(curatorerrors.KindFetchFailed, err, "fetch failed")
	}
}

// mapExtractErr classifies internal/extract's parse failure into a scrape
// error kind.
func mapExtractErr(err error) error {
	if e, ok := err.(*extract.ParseError); ok {
		return curatorerrors.Wrap(curatorerrors.KindScrapeInvalidContent, e.Cause, "extraction could not parse content")
	}
	return curatorerrors.Wrap(curatorerrors.KindScrapeFailed, err, "extraction failed")
}

func ctxDeadline(err error) bool {
	return err == context.DeadlineExceeded || strings.Contains(err.Error(), "context deadline exceeded")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
