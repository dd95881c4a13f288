package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var count int
	require.NoError(t, s2.DB().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&count))
	require.Equal(t, len(migrations), count)
}

func TestCreateGetUpdateSoftDelete(t *testing.T) {
	s := openTestStore(t)

	n, err := s.Create(NodeDraft{
		Title:                 "Example Article",
		URL:                   "https://example.com/a",
		Company:               "Example Inc",
		SegmentCode:           "R",
		CategoryCode:          "GHUB",
		ContentTypeCode:       "A",
		FunctionHierarchyCode: "R.GHUB.A",
		ExtractedFields:       map[string]any{"wordCount": float64(500)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)

	fetched, err := s.Get(n.ID, false)
	require.NoError(t, err)
	require.Equal(t, "Example Article", fetched.Title)

	newTitle := "Updated Title"
	updated, err := s.Update(n.ID, NodeDelta{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, "Updated Title", updated.Title)

	require.NoError(t, s.SoftDelete(n.ID))
	_, err = s.Get(n.ID, false)
	require.Error(t, err)
	require.Equal(t, curatorerrors.KindNodeNotFound, curatorerrors.KindOf(err))

	stillThere, err := s.Get(n.ID, true)
	require.NoError(t, err)
	require.True(t, stillThere.IsDeleted)
}

func TestGetByURL(t *testing.T) {
	s := openTestStore(t)

	n, err := s.Create(NodeDraft{
		Title: "dup", URL: "https://example.com/dup",
		FunctionHierarchyCode: "T.OTH.A", OrganizationHierarchyCode: "UNKN.OTH.A",
	})
	require.NoError(t, err)

	found, err := s.GetByURL("https://example.com/dup")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, n.ID, found.ID)

	missing, err := s.GetByURL("https://example.com/nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, s.SoftDelete(n.ID))
	afterDelete, err := s.GetByURL("https://example.com/dup")
	require.NoError(t, err)
	require.Nil(t, afterDelete)
}

func TestDuplicateHierarchyCodeRejected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Create(NodeDraft{URL: "https://a.com", FunctionHierarchyCode: "R.GHUB.A"})
	require.NoError(t, err)

	_, err = s.Create(NodeDraft{URL: "https://b.com", FunctionHierarchyCode: "R.GHUB.A"})
	require.Error(t, err)
	require.Equal(t, curatorerrors.KindDatabaseConstraintViolation, curatorerrors.KindOf(err))
}

func TestListPaginated(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.Create(NodeDraft{URL: "https://example.com/" + string(rune('a'+i)), SegmentCode: "R"})
		require.NoError(t, err)
	}

	page, err := s.ListPaginated(Filter{Segment: "R"}, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 2)
	require.True(t, page.HasMore)

	page2, err := s.ListPaginated(Filter{Segment: "R"}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2.Data, 1)
	require.False(t, page2.HasMore)
}

func TestKeywordSearch(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Create(NodeDraft{
		URL:             "https://example.com/golang",
		Title:           "Go concurrency patterns",
		SegmentCode:     "R",
		CategoryCode:    "GHUB",
		ContentTypeCode: "A",
	})
	require.NoError(t, err)
	_, err = s.Create(NodeDraft{URL: "https://example.com/python", Title: "Python async tutorial"})
	require.NoError(t, err)

	result, err := s.KeywordSearch("concurrency", Filter{}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, 1, result.Facets.Segments["R"])
}

func TestMetadataUsageCountInvariant(t *testing.T) {
	s := openTestStore(t)
	n, err := s.Create(NodeDraft{URL: "https://example.com/x"})
	require.NoError(t, err)

	require.NoError(t, s.AddMetadata(n.ID, []MetadataCode{
		{Type: "TEC", Code: "GOLANG", Confidence: 0.9, Source: "enrichment"},
	}))

	var usage int
	require.NoError(t, s.DB().QueryRow(`SELECT usage_count FROM metadata_code_registry WHERE type='TEC' AND code='GOLANG'`).Scan(&usage))
	require.Equal(t, 1, usage)

	require.NoError(t, s.SetMetadata(n.ID, nil))
	require.NoError(t, s.DB().QueryRow(`SELECT usage_count FROM metadata_code_registry WHERE type='TEC' AND code='GOLANG'`).Scan(&usage))
	require.Equal(t, 0, usage)
}

func TestHierarchySubtreeAndAncestry(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Create(NodeDraft{URL: "https://example.com/1", FunctionHierarchyCode: "R"})
	require.NoError(t, err)
	_, err = s.Create(NodeDraft{URL: "https://example.com/2", FunctionHierarchyCode: "R.GHUB"})
	require.NoError(t, err)
	child, err := s.Create(NodeDraft{URL: "https://example.com/3", FunctionHierarchyCode: "R.GHUB.A"})
	require.NoError(t, err)

	subtree, err := s.GetSubtree(ViewFunction, "R")
	require.NoError(t, err)
	require.Len(t, subtree, 3)

	ancestry, err := s.GetAncestry(ViewFunction, child.ID)
	require.NoError(t, err)
	require.Len(t, ancestry, 2)
	require.Equal(t, "R", ancestry[0].FunctionHierarchyCode)
	require.Equal(t, "R.GHUB", ancestry[1].FunctionHierarchyCode)
}

func TestGetTree_ReturnsEveryNonDeletedNodeInView(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Create(NodeDraft{URL: "https://example.com/1", FunctionHierarchyCode: "R"})
	require.NoError(t, err)
	child, err := s.Create(NodeDraft{URL: "https://example.com/2", FunctionHierarchyCode: "R.GHUB"})
	require.NoError(t, err)
	require.NoError(t, s.SoftDelete(child.ID))
	_, err = s.Create(NodeDraft{URL: "https://example.com/3", FunctionHierarchyCode: "S.DOCS.G"})
	require.NoError(t, err)

	tree, err := s.GetTree(ViewFunction)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	var codes []string
	for _, n := range tree {
		codes = append(codes, n.FunctionHierarchyCode)
	}
	require.Contains(t, codes, "R")
	require.Contains(t, codes, "S.DOCS.G")
	require.NotContains(t, codes, "R.GHUB")
}

func TestApplyRestructurePlanWritesAudit(t *testing.T) {
	s := openTestStore(t)
	n, err := s.Create(NodeDraft{URL: "https://example.com/1", FunctionHierarchyCode: "R.GHUB.A"})
	require.NoError(t, err)

	require.NoError(t, s.ApplyRestructurePlan(ViewFunction, map[string]string{n.ID: "R.GHUB.A.1"}, "differentiator applied"))

	moved, err := s.Get(n.ID, false)
	require.NoError(t, err)
	require.Equal(t, "R.GHUB.A.1", moved.FunctionHierarchyCode)

	log, err := s.GetAuditLog(n.ID)
	require.NoError(t, err)
	require.NotEmpty(t, log)
	require.Equal(t, ChangeRestructured, log[len(log)-1].ChangeType)
}
