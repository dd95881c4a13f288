// Package enrich implements the Phase-2 Enricher (C9): a queue.Handler that
// takes a claimed job, loads its node, runs a deep LLM analysis pass, and
// writes back an improved title, descriptions, metadata codes, and (when
// the enriched company changes the differentiation the Hierarchy Engine
// already committed to) a regenerated hierarchy code — the background half
// of the pipeline the Phase-1 Classifier's internal/classify starts (spec
// §4.7).
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/hierarchy"
	"github.com/nodecurio/curator/internal/llmclient"
	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/notify"
	"github.com/nodecurio/curator/internal/store"
)

// sourceTag marks every metadata code this package writes, distinguishing
// Phase-2 assertions from any other subsystem that writes node_metadata.
const sourceTag = "enrich"

// Enricher is the queue.Handler for processing_queue rows whose phase is
// store.PhaseEnrichment. It owns no goroutines of its own — internal/queue
// runs Handle on its worker pool.
type Enricher struct {
	llm          *llmclient.Client
	store        *store.Store
	function     *hierarchy.Engine
	organization *hierarchy.Engine
	bus          *notify.Bus
}

// New constructs an Enricher. function and organization may be the same
// *hierarchy.Engine instance — the engine is parametrized by store.View per
// call, not by construction — but are accepted separately because the
// orchestrator already keeps one Engine per view (see DESIGN.md).
func New(llm *llmclient.Client, s *store.Store, function, organization *hierarchy.Engine, bus *notify.Bus) *Enricher {
	return &Enricher{llm: llm, store: s, function: function, organization: organization, bus: bus}
}

// Handle implements queue.Handler. It is intentionally the only exported
// entry point into this package; everything a caller needs is either
// already on the claimed store.Job or loaded fresh from storage here, so
// retries start from durable state rather than in-memory leftovers.
func (e *Enricher) Handle(ctx context.Context, job store.Job) error {
	node, err := e.store.Get(job.NodeID, false)
	if err != nil {
		return err
	}

	result, err := e.llm.GenerateJSON(ctx, "enrich", systemPrompt(), userPrompt(node), responseSchema())
	if err != nil {
		return err
	}

	var raw rawOutput
	if jsonErr := json.Unmarshal(result.JSON, &raw); jsonErr != nil {
		return curatorerrors.Wrap(curatorerrors.KindLLMParsingError, jsonErr, "parse enrichment response")
	}

	codes := normalizeCodes(raw.toRawCodes(), sourceTag)
	if err := e.store.SetMetadata(node.ID, codes); err != nil {
		return err
	}

	companyChanged := raw.Company != "" && raw.Company != node.Company

	delta := store.NodeDelta{
		AISummary: stringPtr(raw.AISummary),
	}
	if raw.Title != "" {
		delta.Title = stringPtr(raw.Title)
	}
	if raw.Company != "" {
		delta.Company = stringPtr(raw.Company)
	}
	if raw.ShortDescription != "" {
		delta.ShortDescription = stringPtr(raw.ShortDescription)
	}
	if raw.PhraseDescription != "" {
		delta.PhraseDescription = stringPtr(raw.PhraseDescription)
	}
	if len(raw.KeyConcepts) > 0 {
		delta.KeyConcepts = raw.KeyConcepts
	}
	if raw.LogoURL != "" {
		delta.LogoURL = stringPtr(raw.LogoURL)
	}

	updated, err := e.store.Update(node.ID, delta)
	if err != nil {
		return err
	}

	hierarchyUpdated := false
	if companyChanged {
		hierarchyUpdated, err = e.regenerateHierarchyCodes(updated)
		if err != nil {
			return err
		}
	}

	logging.Enrich("enriched node %s (company-changed=%v hierarchy-updated=%v codes=%d)",
		node.ID, companyChanged, hierarchyUpdated, len(codes))

	if e.bus != nil {
		e.bus.Publish(notify.Event{
			Type: notify.EventEnrichmentComplete,
			Payload: notify.EnrichmentComplete{
				NodeID:           node.ID,
				Success:          true,
				HierarchyUpdated: hierarchyUpdated,
			},
		})
	}
	return nil
}

// regenerateHierarchyCodes re-plans both parallel views for a node whose
// enriched company no longer matches the company its original hierarchy
// code split on (spec §4.7: "regenerate hierarchy codes if classification
// changed"). It returns whether either view's code actually moved.
func (e *Enricher) regenerateHierarchyCodes(n *store.Node) (bool, error) {
	moved := false

	newCode, err := e.replan(e.function, store.ViewFunction, n)
	if err != nil {
		return false, err
	}
	if newCode != "" && newCode != n.FunctionHierarchyCode {
		moved = true
		n.FunctionHierarchyCode = newCode
	}

	newCode, err = e.replan(e.organization, store.ViewOrganization, n)
	if err != nil {
		return false, err
	}
	if newCode != "" && newCode != n.OrganizationHierarchyCode {
		moved = true
		n.OrganizationHierarchyCode = newCode
	}

	if !moved {
		return false, nil
	}

	delta := store.NodeDelta{
		FunctionHierarchyCode:     stringPtr(n.FunctionHierarchyCode),
		OrganizationHierarchyCode: stringPtr(n.OrganizationHierarchyCode),
		TriggeredBy:               store.TriggeredByEnrichment,
	}
	if _, err := e.store.Update(n.ID, delta); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Enricher) replan(engine *hierarchy.Engine, view store.View, n *store.Node) (string, error) {
	if engine == nil {
		return "", nil
	}
	code := n.FunctionHierarchyCode
	if view == store.ViewOrganization {
		code = n.OrganizationHierarchyCode
	}
	if code == "" {
		return "", nil
	}
	basePath := parentPath(code)
	if basePath == "" {
		return "", nil
	}

	plan, err := engine.RestructureOnMove(view, n.ID, basePath, hierarchy.NewNode{
		Company:      n.Company,
		SourceDomain: n.SourceDomain,
		EarliestTag:  firstTag(n.MetadataTags),
		CreatedAt:    n.CreatedAt,
	})
	if err != nil {
		return "", err
	}
	return plan.NewNodeCode, nil
}

// parentPath strips a hierarchy code's trailing segment, e.g.
// "A.LLM.T.2.1" -> "A.LLM.T.2". A code with no dot has no parent.
func parentPath(code string) string {
	idx := strings.LastIndex(code, ".")
	if idx < 0 {
		return ""
	}
	return code[:idx]
}

func firstTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

func stringPtr(s string) *string { return &s }

// rawOutput is the shape the enrichment LLM call returns.
type rawOutput struct {
	Title             string          `json:"title"`
	Company           string          `json:"company"`
	ShortDescription  string          `json:"shortDescription"`
	PhraseDescription string          `json:"phraseDescription"`
	AISummary         string          `json:"aiSummary"`
	KeyConcepts       []string        `json:"keyConcepts"`
	LogoURL           string          `json:"logoUrl"`
	MetadataCodes     []rawOutputCode `json:"metadataCodes"`
}

type rawOutputCode struct {
	Type       string  `json:"type"`
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

func (r rawOutput) toRawCodes() []rawMetadataCode {
	out := make([]rawMetadataCode, 0, len(r.MetadataCodes))
	for _, c := range r.MetadataCodes {
		out = append(out, rawMetadataCode{Type: c.Type, Code: c.Code, Confidence: c.Confidence})
	}
	return out
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a deep-research analyst enriching an already-classified content node. ")
	b.WriteString("Improve its title if you can word it more precisely, identify the producing company, ")
	b.WriteString("write a short description (<= 160 chars), a one-phrase description, a multi-sentence summary, ")
	b.WriteString("a list of key concepts, a logo URL if known, and a bag of typed metadata codes.\n\n")
	b.WriteString("Metadata code types (attach zero or more codes per type, each with a confidence in [0,1]):\n")
	for mtype := range store.MetadataTypes {
		fmt.Fprintf(&b, "  %s\n", mtype)
	}
	b.WriteString("\nCodes should be short identifiers (they will be uppercased and space-normalized automatically). ")
	b.WriteString("Respond with strict JSON matching the schema.\n")
	return b.String()
}

func userPrompt(n *store.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", n.URL)
	fmt.Fprintf(&b, "Title: %s\n", n.Title)
	fmt.Fprintf(&b, "Domain: %s\n", n.SourceDomain)
	if n.Company != "" {
		fmt.Fprintf(&b, "Known company: %s\n", n.Company)
	}
	if n.ShortDescription != "" {
		fmt.Fprintf(&b, "Existing short description: %s\n", n.ShortDescription)
	}
	for k, v := range n.ExtractedFields {
		fmt.Fprintf(&b, "%s: %v\n", k, v)
	}
	return b.String()
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":             {Type: genai.TypeString},
			"company":           {Type: genai.TypeString},
			"shortDescription":  {Type: genai.TypeString},
			"phraseDescription": {Type: genai.TypeString},
			"aiSummary":         {Type: genai.TypeString},
			"keyConcepts":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"logoUrl":           {Type: genai.TypeString},
			"metadataCodes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":       {Type: genai.TypeString},
						"code":       {Type: genai.TypeString},
						"confidence": {Type: genai.TypeNumber},
					},
					Required: []string{"type", "code", "confidence"},
				},
			},
		},
		Required: []string{"aiSummary"},
	}
}
