package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mira-dev/mira/internal/store"
)

func testBuildRegistry(t *testing.T) (*Registry, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := NewRegistry()
	RegisterBuildTools(reg, db, func() int64 { return 1000 })
	return reg, db
}

func TestRecordBuildDefaultsStatusAndCanEndImmediately(t *testing.T) {
	reg, _ := testBuildRegistry(t)

	res, rerr := callTool(t, reg, "record_build", map[string]any{"command": "go build ./...", "ended": true})
	require.Nil(t, rerr)
	runID := res.(map[string]any)["run_id"].(string)
	require.NotEmpty(t, runID)
}

func TestRecordBuildErrorAndGetBuildErrorsUnresolvedOnly(t *testing.T) {
	reg, _ := testBuildRegistry(t)

	res, rerr := callTool(t, reg, "record_build", map[string]any{"command": "go test ./..."})
	require.Nil(t, rerr)
	runID := res.(map[string]any)["run_id"].(string)

	errRes, rerr := callTool(t, reg, "record_build_error", map[string]any{"run_id": runID, "message": "boom", "category": "test"})
	require.Nil(t, rerr)
	errID := errRes.(map[string]any)["id"].(string)

	listRes, rerr := callTool(t, reg, "get_build_errors", map[string]any{"run_id": runID, "unresolved_only": true})
	require.Nil(t, rerr)
	errs := listRes.(map[string]any)["errors"].([]store.BuildError)
	require.Len(t, errs, 1)

	_, rerr = callTool(t, reg, "resolve_error", map[string]any{"error_id": errID, "resolved_by": "alice"})
	require.Nil(t, rerr)

	listRes, rerr = callTool(t, reg, "get_build_errors", map[string]any{"run_id": runID, "unresolved_only": true})
	require.Nil(t, rerr)
	errs = listRes.(map[string]any)["errors"].([]store.BuildError)
	require.Empty(t, errs)
}

func TestResolveErrorNotFound(t *testing.T) {
	reg, _ := testBuildRegistry(t)
	_, rerr := callTool(t, reg, "resolve_error", map[string]any{"error_id": "missing", "resolved_by": "alice"})
	require.NotNil(t, rerr)
	require.Equal(t, KindNotFound, rerr.Kind)
}

func TestRecordBuildErrorRequiresRunIDAndMessage(t *testing.T) {
	reg, _ := testBuildRegistry(t)
	_, rerr := callTool(t, reg, "record_build_error", map[string]any{"run_id": "", "message": "x"})
	require.NotNil(t, rerr)
	require.Equal(t, KindInvalidParams, rerr.Kind)
}
