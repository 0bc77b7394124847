// Package cmd provides CLI command implementations for pfis.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/pfis-go/internal/compiler"
	"github.com/Benny93/pfis-go/internal/config"
	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/logging"
	"github.com/Benny93/pfis-go/internal/report"
	"github.com/Benny93/pfis-go/internal/session"
	"github.com/Benny93/pfis-go/internal/storage"
	"github.com/Benny93/pfis-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

const timeLayout = "2006-01-02 15:04:05"

// Env is bound into every command's Run method.
type Env struct {
	ConfigPath string
	Logger     *slog.Logger
	In         io.Reader
	Out        io.Writer
}

// loadConfig reads the configuration file, falling back to the defaults
// when it does not exist.
func (e *Env) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// loadSession loads the session log named by db, or the configured one.
func (e *Env) loadSession(ctx context.Context, cfg *config.Config, db string) (*events.Log, error) {
	if db != "" {
		cfg.Session.DB = db
	}
	helper, err := session.NewHelper(cfg)
	if err != nil {
		return nil, err
	}
	log, err := events.LoadSQLite(ctx, cfg.Session.DB, helper, e.Logger)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return log, nil
}

func (e *Env) confirm(prompt string) bool {
	fmt.Fprintf(e.Out, "%s [y/N] ", prompt)
	var response string
	_, _ = fmt.Fscanln(e.In, &response)
	return response == "y" || response == "Y"
}

func (e *Env) success(format string, args ...any) {
	_, _ = color.New(color.FgGreen).Fprintf(e.Out, format+"\n", args...)
}

// InitCmd writes the default configuration.
type InitCmd struct {
	Force bool `short:"f" help:"Overwrite an existing configuration"`
}

// Run executes the init command.
func (c *InitCmd) Run(env *Env) error {
	if _, err := os.Stat(env.ConfigPath); err == nil && !c.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", env.ConfigPath)
	}

	if err := config.Write(env.ConfigPath, config.DefaultConfig()); err != nil {
		return err
	}

	env.success("Wrote %s", env.ConfigPath)
	return nil
}

// PredictCmd replays a session and predicts every navigation.
type PredictCmd struct {
	DB       string `arg:"" optional:"" help:"Session database (overrides session.db)"`
	Output   string `short:"o" help:"Report directory (overrides output.dir)"`
	NoReport bool   `help:"Do not write report files"`
	NoStore  bool   `help:"Do not save the run"`
}

// Run executes the predict command.
func (c *PredictCmd) Run(env *Env) error {
	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	c.apply(cfg)

	var store storage.RunStore
	if !c.NoStore {
		badger, err := openStore(cfg.Store.Path, false)
		if err != nil {
			return err
		}
		defer func() { _ = badger.Close() }()
		store = badger
	}

	ctx, cancel := signalContext()
	defer cancel()

	outcome, err := session.NewEvaluator(cfg, store, env.Logger).Run(ctx)
	if err != nil {
		return err
	}

	printOutcome(env.Out, outcome)
	if cfg.Output.Dir != "" {
		fmt.Fprintf(env.Out, "  Reports:        %s\n", cfg.Output.Dir)
	}
	if outcome.Run.ID != "" {
		env.success("\n✓ Run %s saved", outcome.Run.ID)
	} else {
		env.success("\n✓ Evaluation complete")
	}
	return nil
}

func (c *PredictCmd) apply(cfg *config.Config) {
	if c.DB != "" {
		cfg.Session.DB = c.DB
	}
	if c.Output != "" {
		cfg.Output.Dir = c.Output
	}
	if c.NoReport {
		cfg.Output.Dir = ""
	}
}

// NavpathCmd prints the navigation path of a session.
type NavpathCmd struct {
	DB string `arg:"" optional:"" help:"Session database (overrides session.db)"`
}

// Run executes the navpath command.
func (c *NavpathCmd) Run(env *Env) error {
	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	log, err := env.loadSession(context.Background(), cfg, c.DB)
	if err != nil {
		return err
	}

	path, err := events.BuildNavigationPath(log, session.PathOptions(cfg))
	if err != nil {
		return fmt.Errorf("building navigation path: %w", err)
	}
	if path.Len() == 0 {
		fmt.Fprintln(env.Out, "No navigations found")
		return nil
	}

	fmt.Fprintln(env.Out, "Navigation\tTimestamp\tFrom loc\tTo loc")
	for i, nav := range path {
		fmt.Fprintf(env.Out, "%d\t%s\t%s\t%s\n", i, nav.To.Timestamp.Format(timeLayout), nav.FromString(), nav.To.String())
	}
	return nil
}

// GraphCmd compiles the whole session into a graph and prints its size.
type GraphCmd struct {
	DB       string `arg:"" optional:"" help:"Session database (overrides session.db)"`
	Variants bool   `help:"Add variant_of topology"`
}

// Run executes the graph command.
func (c *GraphCmd) Run(env *Env) error {
	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	log, err := env.loadSession(ctx, cfg, c.DB)
	if err != nil {
		return err
	}
	records := log.Records()
	if len(records) == 0 {
		fmt.Fprintln(env.Out, "Session is empty")
		return nil
	}

	tokenizer, err := session.NewTokenizer(cfg.Lexicon)
	if err != nil {
		return err
	}
	opts := compiler.Options{VariantTopology: c.Variants || cfg.Graph.VariantTopology}
	comp := compiler.New(log, log.Helper(), tokenizer, opts, env.Logger)
	// The window is half-open, so extend just past the last record.
	if err := comp.ExtendTo(ctx, records[len(records)-1].Timestamp.Add(time.Nanosecond)); err != nil {
		return fmt.Errorf("compiling graph: %w", err)
	}

	stats := comp.Graph().Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		if k != "nodes" && k != "edges" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	cs := comp.Stats()
	fmt.Fprintf(env.Out, "Graph for %s\n", cfg.Session.DB)
	fmt.Fprintf(env.Out, "  Nodes:          %d\n", stats["nodes"])
	fmt.Fprintf(env.Out, "  Edges:          %d\n", stats["edges"])
	for _, k := range keys {
		fmt.Fprintf(env.Out, "    %-14s %d\n", k+":", stats[k])
	}
	fmt.Fprintf(env.Out, "  Facts:          %d\n", cs.Facts)
	fmt.Fprintf(env.Out, "  Offsets:        %d\n", cs.Offsets)
	fmt.Fprintf(env.Out, "  Skipped:        %d\n", cs.Skipped)
	return nil
}

// RunsCmd manages stored runs.
type RunsCmd struct {
	List   RunsListCmd   `cmd:"" default:"1" help:"List stored runs"`
	Show   RunsShowCmd   `cmd:"" help:"Show the accuracy of a run"`
	Delete RunsDeleteCmd `cmd:"" help:"Delete a run"`
}

// RunsListCmd lists stored runs.
type RunsListCmd struct{}

// Run executes the runs list command.
func (c *RunsListCmd) Run(env *Env) error {
	store, err := env.loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(env.Out, "No runs stored")
		return nil
	}

	fmt.Fprintln(env.Out, "Stored runs:")
	for _, run := range runs {
		fmt.Fprintf(env.Out, "\n  %s\n", run.ID)
		fmt.Fprintf(env.Out, "    Created:      %s\n", run.CreatedAt.Format(timeLayout))
		fmt.Fprintf(env.Out, "    Session:      %s\n", run.Session)
		fmt.Fprintf(env.Out, "    Navigations:  %d\n", run.Navigations)
		fmt.Fprintf(env.Out, "    Algorithms:   %s\n", strings.Join(run.Algorithms, ", "))
	}
	return nil
}

// RunsShowCmd prints the summaries of one run.
type RunsShowCmd struct {
	ID string `arg:"" optional:"" help:"Run ID (default: latest)"`
}

// Run executes the runs show command.
func (c *RunsShowCmd) Run(env *Env) error {
	store, err := env.loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	run, err := resolveRun(ctx, store, c.ID)
	if err != nil {
		return err
	}
	results, err := store.GetResults(ctx, run.ID)
	if err != nil {
		return err
	}

	printOutcome(env.Out, &session.Outcome{Run: run, Results: results})
	return nil
}

// RunsDeleteCmd deletes a stored run.
type RunsDeleteCmd struct {
	ID    string `arg:"" help:"Run ID"`
	Force bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the runs delete command.
func (c *RunsDeleteCmd) Run(env *Env) error {
	store, err := env.loadStorage(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !c.Force && !env.confirm(fmt.Sprintf("Delete run %s?", c.ID)) {
		fmt.Fprintln(env.Out, "Aborted")
		return nil
	}

	if err := store.DeleteRun(context.Background(), c.ID); err != nil {
		return err
	}
	env.success("Deleted run %s", c.ID)
	return nil
}

// ReportCmd prints or rewrites the prediction tables of a stored run.
type ReportCmd struct {
	ID        string `arg:"" optional:"" help:"Run ID (default: latest)"`
	Algorithm string `short:"a" help:"Only this algorithm"`
	Output    string `short:"o" help:"Write the report files to this directory instead of stdout"`
}

// Run executes the report command.
func (c *ReportCmd) Run(env *Env) error {
	store, err := env.loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	run, err := resolveRun(ctx, store, c.ID)
	if err != nil {
		return err
	}
	results, err := store.GetResults(ctx, run.ID)
	if err != nil {
		return err
	}

	written := 0
	for _, r := range results {
		if c.Algorithm != "" && !strings.EqualFold(r.Algorithm, c.Algorithm) {
			continue
		}
		written++

		if c.Output != "" {
			if err := report.Save(c.Output, r.Algorithm, r.FileName, r.Predictions); err != nil {
				return fmt.Errorf("writing report for %s: %w", r.Algorithm, err)
			}
			continue
		}
		fmt.Fprintf(env.Out, "\n%s\n", r.Algorithm)
		if err := report.Write(env.Out, r.Predictions); err != nil {
			return err
		}
	}

	if written == 0 {
		return fmt.Errorf("algorithm %q not found in run %s", c.Algorithm, run.ID)
	}
	if c.Output != "" {
		env.success("Wrote %d reports to %s", written, c.Output)
	}
	return nil
}

// WatchCmd re-evaluates the session whenever its database changes.
type WatchCmd struct {
	DB       string        `arg:"" optional:"" help:"Session database (overrides session.db)"`
	Interval time.Duration `default:"2s" help:"Quiet period before re-evaluating"`
	NoStore  bool          `help:"Do not save runs"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(env *Env) error {
	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	if c.DB != "" {
		cfg.Session.DB = c.DB
	}

	var store storage.RunStore
	if !c.NoStore {
		badger, err := openStore(cfg.Store.Path, false)
		if err != nil {
			return err
		}
		defer func() { _ = badger.Close() }()
		store = badger
	}
	evaluator := session.NewEvaluator(cfg, store, env.Logger)

	fmt.Fprintln(env.Out, "## Watch Mode")
	fmt.Fprintf(env.Out, "Watching %s for changes (Ctrl+C to stop)\n\n", cfg.Session.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		select {
		case <-osSignalChannel():
			fmt.Fprintln(env.Out, "\nStopping watch mode...")
			cancel()
		case <-ctx.Done():
		}
	}()

	evaluate := func(ctx context.Context) error {
		outcome, err := evaluator.Run(ctx)
		if err != nil {
			return err
		}
		printOutcome(env.Out, outcome)
		return nil
	}
	if err := evaluate(ctx); err != nil {
		env.Logger.Warn("initial evaluation failed", "error", err)
	}

	watcher := &session.Watcher{Path: cfg.Session.DB, Interval: c.Interval, Logger: env.Logger}
	err = watcher.Watch(ctx, evaluate)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(env.Out, "Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(env *Env) error {
	store, err := env.loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	// No output besides JSON-RPC on stdout.
	server := mcp.NewServer(store)
	err = server.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CleanCmd deletes the run store and optionally the reports.
type CleanCmd struct {
	Force   bool `short:"f" help:"Skip confirmation"`
	Reports bool `help:"Also delete the report directory"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(env *Env) error {
	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}

	var targets []string
	for _, dir := range []string{cfg.Store.Path, reportDir(cfg, c.Reports)} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			targets = append(targets, dir)
		}
	}
	if len(targets) == 0 {
		return fmt.Errorf("nothing to clean at %s", cfg.Store.Path)
	}

	if !c.Force && !env.confirm(fmt.Sprintf("Delete %s?", strings.Join(targets, ", "))) {
		fmt.Fprintln(env.Out, "Aborted")
		return nil
	}

	for _, dir := range targets {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("deleting %s: %w", dir, err)
		}
		env.success("Deleted %s", dir)
	}
	return nil
}

func reportDir(cfg *config.Config, include bool) string {
	if !include {
		return ""
	}
	return cfg.Output.Dir
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openStore opens the badger store at path. A read-only store must exist.
func openStore(path string, readOnly bool) (*storage.BadgerStore, error) {
	if readOnly {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("no runs stored at %s. Run 'pfis predict' first", path)
		}
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	store := storage.NewBadgerStore()
	if err := store.Initialize(path, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func (e *Env) loadStorage(readOnly bool) (*storage.BadgerStore, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg.Store.Path, readOnly)
}

// resolveRun returns the run with the given ID, or the latest run.
func resolveRun(ctx context.Context, store storage.RunStore, id string) (*storage.Run, error) {
	if id != "" {
		return store.GetRun(ctx, id)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs stored. Run 'pfis predict' first")
	}
	return runs[0], nil
}

// printOutcome prints one line of accuracy figures per algorithm.
func printOutcome(w io.Writer, outcome *session.Outcome) {
	run := outcome.Run
	fmt.Fprintf(w, "Session %s: %d navigations\n\n", run.Session, run.Navigations)

	width := len("Algorithm")
	for _, r := range outcome.Results {
		width = max(width, len(r.Algorithm))
	}

	fmt.Fprintf(w, "  %-*s  %6s  %6s  %6s  %6s  %6s\n", width, "Algorithm", "Hit@1", "Hit@5", "Hit@10", "Misses", "MRR")
	for _, r := range outcome.Results {
		s := r.Summary
		fmt.Fprintf(w, "  %-*s  %6d  %6d  %6d  %6d  %6.3f\n", width, r.Algorithm, s.Hit1, s.Hit5, s.Hit10, s.Misses, s.MRR)
	}
	if run.Duration > 0 {
		fmt.Fprintf(w, "\n  Duration:       %.2fs\n", run.Duration.Seconds())
	}
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Config  string           `short:"c" default:"pfis.yaml" help:"Configuration file"`
	Verbose int              `short:"v" type:"counter" help:"Increase log output (-v info, -vv debug)"`
	Quiet   bool             `short:"q" help:"Suppress log output"`

	// Commands
	Init    InitCmd    `cmd:"" help:"Write the default configuration"`
	Predict PredictCmd `cmd:"" help:"Predict every navigation of a session"`
	Navpath NavpathCmd `cmd:"" help:"Print the navigation path of a session"`
	Graph   GraphCmd   `cmd:"" help:"Compile a session into a graph and print its size"`
	Runs    RunsCmd    `cmd:"" help:"Manage stored runs"`
	Report  ReportCmd  `cmd:"" help:"Print the prediction tables of a stored run"`
	Watch   WatchCmd   `cmd:"" help:"Re-evaluate the session whenever it changes"`
	MCP     MCPCmd     `cmd:"" help:"Start MCP server (stdio transport)"`
	Clean   CleanCmd   `cmd:"" help:"Delete stored runs"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	return c.execute(args, os.Stdin, os.Stdout, os.Stderr)
}

func (c *CLI) execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	parser, err := kong.New(c,
		kong.Name("pfis"),
		kong.Description("Information-foraging navigation prediction for recorded programming sessions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	env := &Env{
		ConfigPath: c.Config,
		Logger:     logging.New(stderr, logging.LevelFromVerbosity(c.Verbose, c.Quiet)),
		In:         stdin,
		Out:        stdout,
	}
	return kongCtx.Run(env)
}
