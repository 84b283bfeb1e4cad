package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

func testDocumentRegistry(t *testing.T) (*Registry, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vec := vectorstore.Open(db.Conn())
	emb, err := embedding.NewService(nil, db.Conn(), 1<<20, 10, 10*time.Millisecond)
	require.NoError(t, err)
	pipe := ingest.NewPipeline(db, vec, emb, func() int64 { return 1000 })

	reg := NewRegistry()
	RegisterDocumentTools(reg, db, pipe)
	return reg, db
}

func TestIngestDocumentThenListAndGetDocument(t *testing.T) {
	reg, _ := testDocumentRegistry(t)

	_, rerr := callTool(t, reg, "ingest_document", map[string]any{
		"project_id": "proj", "path": "README.md", "content": "# Title\n\nSome content about bazel builds.",
	})
	require.Nil(t, rerr)

	listRes, rerr := callTool(t, reg, "list_documents", map[string]any{"project_id": "proj"})
	require.Nil(t, rerr)
	docs := listRes.(map[string]any)["documents"].([]string)
	require.Contains(t, docs, "README.md")

	getRes, rerr := callTool(t, reg, "get_document", map[string]any{"project_id": "proj", "path": "README.md"})
	require.Nil(t, rerr)
	chunks := getRes.(map[string]any)["chunks"].([]store.DocumentChunk)
	require.NotEmpty(t, chunks)
}

func TestGetDocumentMissingReturnsNotFound(t *testing.T) {
	reg, _ := testDocumentRegistry(t)
	_, rerr := callTool(t, reg, "get_document", map[string]any{"project_id": "proj", "path": "missing.md"})
	require.NotNil(t, rerr)
	require.Equal(t, KindNotFound, rerr.Kind)
}

func TestSearchDocumentsRequiresQuery(t *testing.T) {
	reg, _ := testDocumentRegistry(t)
	_, rerr := callTool(t, reg, "search_documents", map[string]any{"project_id": "proj", "query": ""})
	require.NotNil(t, rerr)
	require.Equal(t, KindInvalidParams, rerr.Kind)
}

func TestSearchDocumentsFindsIngestedChunk(t *testing.T) {
	reg, _ := testDocumentRegistry(t)
	_, rerr := callTool(t, reg, "ingest_document", map[string]any{
		"project_id": "proj", "path": "notes.md", "content": "deploys run through terraform nightly",
	})
	require.Nil(t, rerr)

	res, rerr := callTool(t, reg, "search_documents", map[string]any{"project_id": "proj", "query": "terraform"})
	require.Nil(t, rerr)
	results := res.(map[string]any)["results"].([]store.DocumentChunk)
	require.NotEmpty(t, results)
}
