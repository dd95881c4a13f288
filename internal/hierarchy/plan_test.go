package hierarchy

import (
	"testing"
	"time"

	"github.com/nodecurio/curator/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRestructure_NoSiblingsAssignsDotOne(t *testing.T) {
	plan, err := planRestructure(NewNode{Company: "OpenAI"}, "A.LLM.T", nil, store.ViewFunction)
	require.NoError(t, err)
	assert.Equal(t, "A.LLM.T.1", plan.NewNodeCode)
	assert.Empty(t, plan.Mutations)
	assert.False(t, plan.AnySiblingMoved)
}

func TestPlanRestructure_SplitsByCompanyOnConflict(t *testing.T) {
	// Scenario S2: an existing OpenAI node occupies A.LLM.T.1; importing an
	// Anthropic node at the same slot should split both under company.
	existing := Sibling{
		NodeID:       "existing-1",
		Code:         "A.LLM.T.1",
		Company:      "OpenAI",
		SourceDomain: "openai.com",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		InsertionIdx: 0,
	}
	newNode := NewNode{
		Company:      "Anthropic",
		SourceDomain: "anthropic.com",
		CreatedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	plan, err := planRestructure(newNode, "A.LLM.T.1", []Sibling{existing}, store.ViewFunction)
	require.NoError(t, err)

	assert.True(t, plan.AnySiblingMoved)
	require.Len(t, plan.Mutations, 1)
	assert.Equal(t, "existing-1", plan.Mutations[0].NodeID)
	assert.Equal(t, "A.LLM.T.1", plan.Mutations[0].OldCode)
	assert.NotEqual(t, plan.Mutations[0].OldCode, plan.Mutations[0].NewCode)
	assert.NotEqual(t, plan.NewNodeCode, plan.Mutations[0].NewCode)
	assert.Contains(t, plan.NewNodeCode, "A.LLM.T.1.")
}

func TestPlanRestructure_FallsBackToInsertionOrderWhenUndifferentiated(t *testing.T) {
	existing := Sibling{
		NodeID:       "existing-1",
		Code:         "A.LLM.T.1",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		InsertionIdx: 0,
	}
	newNode := NewNode{CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}

	plan, err := planRestructure(newNode, "A.LLM.T.1", []Sibling{existing}, store.ViewFunction)
	require.NoError(t, err)
	assert.True(t, plan.AnySiblingMoved)
	assert.Contains(t, plan.Description, "insertion order")
}

func TestPlanRestructure_ProducesUniqueCodesForManySiblings(t *testing.T) {
	var siblings []Sibling
	companies := []string{"OpenAI", "Anthropic", "Google", "Meta"}
	for i, c := range companies {
		siblings = append(siblings, Sibling{
			NodeID:       c,
			Code:         "A.LLM.T.1",
			Company:      c,
			CreatedAt:    time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC),
			InsertionIdx: i,
		})
	}
	newNode := NewNode{Company: "Cohere", CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}

	plan, err := planRestructure(newNode, "A.LLM.T.1", siblings, store.ViewFunction)
	require.NoError(t, err)

	seen := map[string]bool{plan.NewNodeCode: true}
	for _, m := range plan.Mutations {
		assert.False(t, seen[m.NewCode], "duplicate code %s", m.NewCode)
		seen[m.NewCode] = true
	}
	assert.Len(t, seen, len(companies)+1)
}

func TestPlanRestructure_RejectsMalformedBasePath(t *testing.T) {
	plan, err := planRestructure(NewNode{}, "not-a-valid-code", nil, store.ViewFunction)
	require.Error(t, err)
	assert.Nil(t, plan)
}
