package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/pfis-go/internal/predict"
	"github.com/Benny93/pfis-go/internal/report"
	"github.com/Benny93/pfis-go/internal/storage"
)

var created = time.Date(2016, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *storage.MemoryStore {
	t.Helper()

	preds := []predict.Prediction{
		{NavIndex: 1, Rank: 1, PoolSize: 3, From: "Lorg/demo/UserService;.load()V", To: "Lorg/demo/UserService;.save()V", Timestamp: created},
		{NavIndex: 2, Rank: predict.MissRank, From: "Lorg/demo/UserService;.save()V", To: "Lorg/demo/FeedLoader;.fetch()V", Timestamp: created},
		{NavIndex: 3, Rank: 2, PoolSize: 4, From: "Lorg/demo/FeedLoader;.fetch()V", To: "Lorg/demo/UserService;.load()V", Timestamp: created},
	}
	results := []storage.Result{
		{Algorithm: "PFIS", FileName: "pfis.txt", Predictions: preds, Summary: report.Summarize("PFIS", preds)},
		{Algorithm: "Recency", FileName: "recency.txt", Predictions: preds[:1], Summary: report.Summarize("Recency", preds[:1])},
	}

	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, &storage.Run{
		ID: "old", CreatedAt: created, Session: "old.db", Navigations: 4, Algorithms: []string{"PFIS"},
	}, results[:1]))
	require.NoError(t, store.SaveRun(ctx, &storage.Run{
		ID: "new", CreatedAt: created.Add(time.Hour), Session: "new.db", Navigations: 4, Algorithms: []string{"PFIS", "Recency"},
	}, results))
	return store
}

// connect serves a new server over in-memory transports and returns a
// client session connected to it.
func connect(t *testing.T, store RunReader) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	server := NewServer(store)
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "pfis-test", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func readResource(t *testing.T, session *mcp.ClientSession, uri string) string {
	t.Helper()
	result, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: uri})
	require.NoError(t, err, uri)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, uri, result.Contents[0].URI)
	return result.Contents[0].Text
}

func TestServer_Tools(t *testing.T) {
	t.Parallel()

	session := connect(t, storage.NewMemoryStore())

	result, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	toolNames := make(map[string]bool)
	for _, tool := range result.Tools {
		toolNames[tool.Name] = true
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	assert.Len(t, result.Tools, 4)
	for _, expected := range []string{"pfis_list_runs", "pfis_run_summary", "pfis_predictions", "pfis_search"} {
		assert.True(t, toolNames[expected], "Should have tool: %s", expected)
	}
}

func TestServer_HandleToolCalls(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestStore(t))

	t.Run("ListRuns", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_list_runs", map[string]any{}))
		assert.Contains(t, result, "Prediction Runs (2)")
		assert.Less(t, strings.Index(result, "**new**"), strings.Index(result, "**old**"))
	})

	t.Run("SummaryDefaultsToLatest", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_run_summary", map[string]any{}))
		assert.Contains(t, result, "# Run new")
		assert.Contains(t, result, "| PFIS | 2 | 1 | 1 | 2 | 2 |")
		assert.Contains(t, result, "| Recency |")
	})

	t.Run("SummaryByID", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_run_summary", map[string]any{"run_id": "old"}))
		assert.Contains(t, result, "# Run old")
		assert.NotContains(t, result, "Recency")
	})

	t.Run("SummaryUnknownRun", func(t *testing.T) {
		result := callTool(t, session, "pfis_run_summary", map[string]any{"run_id": "missing"})
		assert.True(t, result.IsError)
	})

	t.Run("Predictions", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_predictions", map[string]any{
			"algorithm": "pfis",
			"limit":     2,
		}))

		lines := strings.Split(strings.TrimSuffix(result, "\n"), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, report.Header(), lines[0])
		assert.Contains(t, lines[2], "999999")
	})

	t.Run("PredictionsUnknownAlgorithm", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_predictions", map[string]any{"algorithm": "Oracle"}))
		assert.Contains(t, result, "not found")
		assert.Contains(t, result, "PFIS, Recency")
	})

	t.Run("PredictionsEmptyAlgorithm", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_predictions", map[string]any{"algorithm": ""}))
		assert.Contains(t, result, "No algorithm provided")
	})

	t.Run("Search", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_search", map[string]any{
			"query": "FeedLoader",
			"limit": 10,
		}))
		assert.Contains(t, result, "navigation 2")
		assert.Contains(t, result, "(miss)")
		assert.Contains(t, result, "rank 2 of 4")
	})

	t.Run("SearchEmptyQuery", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_search", map[string]any{"query": "  "}))
		assert.Contains(t, result, "No query provided")
	})

	t.Run("SearchNoResults", func(t *testing.T) {
		result := textOf(t, callTool(t, session, "pfis_search", map[string]any{"query": "nothing"}))
		assert.Equal(t, "No results found", result)
	})

	t.Run("UnknownTool", func(t *testing.T) {
		_, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "unknown_tool", Arguments: map[string]any{}})
		assert.Error(t, err)
	})
}

func TestServer_EmptyStore(t *testing.T) {
	t.Parallel()

	session := connect(t, storage.NewMemoryStore())

	result := textOf(t, callTool(t, session, "pfis_list_runs", map[string]any{}))
	assert.Contains(t, result, "No runs stored")

	assert.Contains(t, readResource(t, session, "pfis://latest"), "No runs stored")

	predictions := callTool(t, session, "pfis_predictions", map[string]any{"algorithm": "PFIS"})
	assert.True(t, predictions.IsError)
}

func TestServer_Resources(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestStore(t))
	ctx := context.Background()

	t.Run("ReadEveryResource", func(t *testing.T) {
		result, err := session.ListResources(ctx, nil)
		require.NoError(t, err)
		require.Len(t, result.Resources, 3)
		for _, res := range result.Resources {
			assert.NotEmpty(t, res.Name)
			assert.NotEmpty(t, res.Description)
			assert.Equal(t, "text/markdown", res.MIMEType)
			assert.NotEmpty(t, readResource(t, session, res.URI), res.URI)
		}
	})

	t.Run("Runs", func(t *testing.T) {
		assert.Contains(t, readResource(t, session, "pfis://runs"), "Prediction Runs (2)")
	})

	t.Run("ReportFormat", func(t *testing.T) {
		content := readResource(t, session, "pfis://report-format")
		assert.Contains(t, content, report.AllFile)
		assert.Contains(t, content, "No. of Ties")
	})

	t.Run("ToolSchema", func(t *testing.T) {
		templates, err := session.ListResourceTemplates(ctx, nil)
		require.NoError(t, err)
		require.Len(t, templates.ResourceTemplates, 1)

		content := readResource(t, session, "pfis://schemas/pfis_predictions")
		assert.Contains(t, content, `"algorithm"`)
		assert.Contains(t, content, "Maximum number of rows")
	})

	t.Run("ReadUnknownResource", func(t *testing.T) {
		for _, uri := range []string{"pfis://unknown", "pfis://schemas/unknown_tool"} {
			_, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
			assert.Error(t, err, uri)
		}
	})
}

func TestServer_RunStopsWithContext(t *testing.T) {
	t.Parallel()

	_, serverTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(storage.NewMemoryStore()).Serve(ctx, serverTransport) }()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
