// Package mcp provides the MCP (Model Context Protocol) server that exposes
// stored prediction runs over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/pfis-go/internal/report"
	"github.com/Benny93/pfis-go/internal/storage"
)

const (
	serverName    = "pfis-go"
	serverVersion = "0.1.0"

	defaultLimit = 20
)

// Server represents the MCP server.
type Server struct {
	store  RunReader
	server *mcp.Server
}

// RunReader is the part of storage.RunStore the server reads from.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*storage.Run, error)
	ListRuns(ctx context.Context) ([]*storage.Run, error)
	GetResults(ctx context.Context, id string) ([]storage.Result, error)
	SearchPredictions(ctx context.Context, query string, limit int) ([]storage.PredictionHit, error)
}

// Tool arguments

type ListRunsArgs struct{}

type RunSummaryArgs struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Run ID; the latest run when omitted"`
}

type PredictionsArgs struct {
	RunID     string `json:"run_id,omitempty" jsonschema:"Run ID; the latest run when omitted"`
	Algorithm string `json:"algorithm" jsonschema:"Algorithm name"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of rows"`
}

type SearchArgs struct {
	Query string `json:"query" jsonschema:"Class, method or file name"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

// NewServer creates a new MCP server.
func NewServer(store RunReader) *Server {
	s := &Server{
		store: store,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
	}

	s.registerTools()
	s.registerResources()

	return s
}

// Run serves MCP over stdin and stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves MCP over the given transport.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pfis_list_runs",
		Description: "List the stored prediction runs, newest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ ListRunsArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(s.handleListRuns(ctx))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pfis_run_summary",
		Description: "Summarize how well each algorithm of a run predicted the programmer's navigations: hits at 1, 5 and 10 and mean reciprocal rank.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args RunSummaryArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(s.handleRunSummary(ctx, args.RunID))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pfis_predictions",
		Description: "Show the per-navigation predictions of one algorithm of a run as a tab-delimited table.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args PredictionsArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(s.handlePredictions(ctx, args.RunID, args.Algorithm, args.Limit))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pfis_search",
		Description: "Find predictions whose source or target location matches the query, across all runs.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
		limit := args.Limit
		if limit <= 0 {
			limit = defaultLimit
		}
		return toolResult(s.handleSearch(ctx, args.Query, limit))
	})
}

func (s *Server) registerResources() {
	s.addTextResource(&mcp.Resource{
		URI:         "pfis://runs",
		Name:        "Prediction Runs",
		Description: "Stored prediction runs",
	}, s.handleListRuns)

	s.addTextResource(&mcp.Resource{
		URI:         "pfis://latest",
		Name:        "Latest Run Summary",
		Description: "Accuracy of every algorithm in the most recent run",
	}, func(ctx context.Context) (string, error) {
		return s.handleRunSummary(ctx, "")
	})

	s.addTextResource(&mcp.Resource{
		URI:         "pfis://report-format",
		Name:        "Report Format",
		Description: "Columns of the prediction tables",
	}, func(context.Context) (string, error) {
		return getReportFormat(), nil
	})

	schemas := toolSchemas()
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaURIPrefix + "{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema of the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		schema, ok := schemas[strings.TrimPrefix(uri, schemaURIPrefix)]
		if !ok {
			return nil, fmt.Errorf("unknown tool schema: %q", uri)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: uri, MIMEType: "application/schema+json", Text: schema},
			},
		}, nil
	})
}

const schemaURIPrefix = "pfis://schemas/"

// toolSchemas maps tool names to the JSON schema of their arguments.
func toolSchemas() map[string]string {
	m := make(map[string]string)
	addSchema[ListRunsArgs](m, "pfis_list_runs")
	addSchema[RunSummaryArgs](m, "pfis_run_summary")
	addSchema[PredictionsArgs](m, "pfis_predictions")
	addSchema[SearchArgs](m, "pfis_search")
	return m
}

func addSchema[T any](m map[string]string, name string) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return
	}
	m[name] = string(data)
}

func (s *Server) addTextResource(res *mcp.Resource, read func(context.Context) (string, error)) {
	res.MIMEType = "text/markdown"
	s.server.AddResource(res, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := read(ctx)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      req.Params.URI,
					MIMEType: res.MIMEType,
					Text:     text,
				},
			},
		}, nil
	})
}

// toolResult wraps handler output as text content. Handler errors become
// tool errors reported to the client.
func toolResult(text string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// Tool Handlers

func (s *Server) handleListRuns(ctx context.Context) (string, error) {
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "No runs stored. Run `pfis predict` first.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Prediction Runs (%d)\n\n", len(runs)))
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("- **%s** %s\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05")))
		sb.WriteString(fmt.Sprintf("  Session: `%s` (%d navigations)\n", run.Session, run.Navigations))
		sb.WriteString(fmt.Sprintf("  Algorithms: %s\n", strings.Join(run.Algorithms, ", ")))
	}
	return sb.String(), nil
}

// resolveRun returns the run with the given ID, or the latest run.
func (s *Server) resolveRun(ctx context.Context, runID string) (*storage.Run, error) {
	if runID != "" {
		return s.store.GetRun(ctx, runID)
	}
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs stored: %w", storage.ErrRunNotFound)
	}
	return runs[0], nil
}

func (s *Server) handleRunSummary(ctx context.Context, runID string) (string, error) {
	run, err := s.resolveRun(ctx, runID)
	if errors.Is(err, storage.ErrRunNotFound) && runID == "" {
		return "No runs stored. Run `pfis predict` first.", nil
	}
	if err != nil {
		return "", err
	}

	results, err := s.store.GetResults(ctx, run.ID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Run %s\n\n", run.ID))
	sb.WriteString(fmt.Sprintf("Session: `%s`, %d navigations\n\n", run.Session, run.Navigations))
	sb.WriteString("| Algorithm | Scored | Misses | Hit@1 | Hit@5 | Hit@10 | MRR |\n")
	sb.WriteString("|-----------|--------|--------|-------|-------|--------|-----|\n")
	for _, r := range results {
		sum := r.Summary
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %.4f |\n",
			r.Algorithm, sum.Scored, sum.Misses, sum.Hit1, sum.Hit5, sum.Hit10, sum.MRR))
	}
	return sb.String(), nil
}

func (s *Server) handlePredictions(ctx context.Context, runID, algorithm string, limit int) (string, error) {
	if algorithm == "" {
		return "No algorithm provided", nil
	}

	run, err := s.resolveRun(ctx, runID)
	if err != nil {
		return "", err
	}
	results, err := s.store.GetResults(ctx, run.ID)
	if err != nil {
		return "", err
	}

	for _, r := range results {
		if !strings.EqualFold(r.Algorithm, algorithm) {
			continue
		}
		preds := r.Predictions
		if limit > 0 && len(preds) > limit {
			preds = preds[:limit]
		}
		var sb strings.Builder
		if err := report.Write(&sb, preds); err != nil {
			return "", err
		}
		return sb.String(), nil
	}
	return fmt.Sprintf("Algorithm %q not found in run %s. Available: %s",
		algorithm, run.ID, strings.Join(run.Algorithms, ", ")), nil
}

func (s *Server) handleSearch(ctx context.Context, query string, limit int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "No query provided", nil
	}

	hits, err := s.store.SearchPredictions(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Predictions matching %q (%d)\n\n", query, len(hits)))
	for _, hit := range hits {
		p := hit.Prediction
		outcome := fmt.Sprintf("rank %d of %d", p.Rank, p.PoolSize)
		if p.Miss() {
			outcome = "miss"
		}
		sb.WriteString(fmt.Sprintf("- run %s, %s, navigation %d: `%s` -> `%s` (%s)\n",
			hit.RunID, hit.Algorithm, p.NavIndex, p.From, p.To, outcome))
	}
	return sb.String(), nil
}

// Resource Handlers

func getReportFormat() string {
	var sb strings.Builder
	sb.WriteString("# Prediction Report Format\n\n")
	sb.WriteString("Each algorithm writes one tab-delimited table; every table is also appended to `")
	sb.WriteString(report.AllFile)
	sb.WriteString("` under the algorithm name.\n\n")
	sb.WriteString("| Column | Meaning |\n")
	sb.WriteString("|--------|---------|\n")
	sb.WriteString("| `Prediction` | Navigation index, starting at 1 |\n")
	sb.WriteString("| `Timestamp` | When the navigation happened |\n")
	sb.WriteString("| `Rank` | Rank of the actual target; 999999 for a miss |\n")
	sb.WriteString("| `Out of` | Number of ranked candidates |\n")
	sb.WriteString("| `No. of Ties` | Candidates scored equal to the target |\n")
	sb.WriteString("| `From loc` | Source of the navigation |\n")
	sb.WriteString("| `To loc` | Target of the navigation |\n")
	sb.WriteString("| `Top predictions` | Best candidates, when configured |\n")
	return sb.String()
}
