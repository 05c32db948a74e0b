package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/traingraph/internal/build"
	"github.com/aristath/traingraph/internal/compiler"
	"github.com/aristath/traingraph/internal/config"
	"github.com/aristath/traingraph/internal/events"
	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/persistence"
	"github.com/aristath/traingraph/internal/registry"
	"github.com/aristath/traingraph/internal/tui"
)

// defaultSource names the built-in recipe, used when no recipe path is given.
const defaultSource = "default"

const usage = `usage: traingraph <command> [flags] [recipe...]

commands:
  init      write the default recipe and project settings
  compile   compile recipes to a JSON task schema
  dot       render a recipe or compiled .json schema as Graphviz DOT
  history   list, show or delete stored schemas
  view      browse a recipe, compiled .json schema or stored schema in the terminal
`

func main() {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	settings *config.Settings
	reg      *registry.Registry
	stdout   io.Writer
	stderr   io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}

	settings, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a := &app{
		settings: settings,
		reg:      registry.Default(),
		stdout:   stdout,
		stderr:   stderr,
	}

	switch args[0] {
	case "init":
		return a.initProject(args[1:])
	case "compile":
		return a.compile(ctx, args[1:])
	case "dot":
		return a.dot(ctx, args[1:])
	case "history":
		return a.history(ctx, args[1:])
	case "view":
		return a.view(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// loadRecipe reads a recipe file, or returns the built-in recipe for defaultSource.
func loadRecipe(source string) (*config.Recipe, error) {
	if source == defaultSource {
		return config.DefaultRecipe(), nil
	}
	return config.LoadRecipe(source)
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) openStore(ctx context.Context) (*persistence.SQLiteStore, error) {
	store, err := persistence.NewSQLiteStore(ctx, a.settings.Database, a.reg)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", a.settings.Database, err)
	}
	return store, nil
}

// compiledOutput is the JSON document written by compile.
type compiledOutput struct {
	Source  string       `json:"source"`
	GraphID string       `json:"graph_id,omitempty"`
	Outputs []string     `json:"outputs"`
	Schema  graph.Schema `json:"schema"`
}

func (a *app) compile(ctx context.Context, args []string) error {
	fs := a.newFlagSet("compile")
	outPath := fs.String("o", "", "write JSON to this file instead of stdout")
	save := fs.Bool("save", false, "store compiled schemas in the database")
	project := fs.String("project", a.settings.Project, "project identifier passed to readers")
	jobs := fs.Int("j", a.settings.Concurrency, "max concurrent compiles")
	indent := fs.Bool("indent", a.settings.Indent, "indent JSON output")
	verbose := fs.Bool("v", false, "log compile progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources := fs.Args()
	if len(sources) == 0 {
		sources = []string{defaultSource}
	}

	cfg := build.RunnerConfig{
		ConcurrencyLimit: *jobs,
		Project:          *project,
		Loader:           loadRecipe,
	}

	if *save {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		cfg.Store = store
	}

	var logDone chan struct{}
	if *verbose {
		bus := events.NewEventBus()
		cfg.Bus = bus
		logDone = logEvents(bus.SubscribeAll(events.DefaultBufferSize), a.stderr)
		defer func() {
			bus.Close()
			<-logDone
		}()
	}

	results, err := build.NewRunner(cfg, compiler.New(a.reg)).Run(ctx, sources)
	if err != nil {
		return err
	}

	var docs []compiledOutput
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		docs = append(docs, compiledOutput{
			Source:  res.Source,
			GraphID: res.GraphID,
			Outputs: res.Outputs,
			Schema:  res.Schema,
		})
	}

	var payload any = docs
	if len(sources) == 1 && len(docs) == 1 {
		payload = docs[0]
	}
	if len(docs) > 0 {
		if err := a.writeJSON(*outPath, payload, *indent); err != nil {
			return err
		}
	}

	return errors.Join(errs...)
}

func (a *app) writeJSON(path string, v any, indent bool) error {
	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// logEvents logs compile and batch events until the subscription closes.
func logEvents(sub <-chan events.Event, w io.Writer) chan struct{} {
	logger := log.New(w, "", log.LstdFlags)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sub {
			switch e := event.(type) {
			case events.CompileStartedEvent:
				logger.Printf("compiling %s", e.Src)
			case events.CompileCompletedEvent:
				logger.Printf("compiled %s: %d tasks in %s", e.Src, e.Tasks, e.Duration.Round(time.Microsecond))
			case events.CompileFailedEvent:
				logger.Printf("failed %s: %v", e.Src, e.Err)
			case events.BatchProgressEvent:
				logger.Printf("progress: %d/%d done, %d failed", e.Completed+e.Failed, e.Total, e.Failed)
			case events.BreakerChangedEvent:
				logger.Printf("store breaker %s -> %s", e.From, e.To)
			}
		}
	}()
	return done
}

// loadSchema returns the schema for source. A .json file holding compiled
// output (a "schema" key) is decoded as is; anything else is read as a recipe
// and compiled.
func (a *app) loadSchema(project, source string) (graph.Schema, []string, error) {
	if source == defaultSource || config.FormatFromPath(source) != config.FormatJSON {
		recipe, err := loadRecipe(source)
		if err != nil {
			return nil, nil, err
		}
		return compiler.New(a.reg).CompileAll(project, recipe)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", source, err)
	}

	var doc struct {
		Outputs []string        `json:"outputs"`
		Schema  json.RawMessage `json:"schema"`
	}
	if json.Unmarshal(data, &doc) == nil && len(doc.Schema) > 0 {
		schema, err := graph.Decode(doc.Schema, a.reg)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding %s: %w", source, err)
		}
		return schema, doc.Outputs, nil
	}

	recipe, err := config.ParseRecipe(data, config.FormatJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing recipe %s: %w", source, err)
	}
	return compiler.New(a.reg).CompileAll(project, recipe)
}

func (a *app) initProject(args []string) error {
	fs := a.newFlagSet("init")
	settingsPath := fs.String("config", filepath.Join(".traingraph", "config.json"), "where to write project settings")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("init takes at most one recipe path")
	}

	recipePath := fs.Arg(0)
	if recipePath == "" {
		recipePath = "recipe.yml"
	}

	if !*force {
		for _, path := range []string{recipePath, *settingsPath} {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use -force to overwrite)", path)
			}
		}
	}

	if err := config.SaveRecipe(config.DefaultRecipe(), recipePath); err != nil {
		return err
	}

	// The database location stays with the global settings
	settings := *a.settings
	settings.Database = ""
	if err := config.Save(&settings, *settingsPath); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "wrote %s and %s\n", recipePath, *settingsPath)
	return nil
}

func (a *app) dot(_ context.Context, args []string) error {
	fs := a.newFlagSet("dot")
	project := fs.String("project", a.settings.Project, "project identifier passed to readers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("dot takes at most one recipe")
	}

	source := fs.Arg(0)
	if source == "" {
		source = defaultSource
	}

	schema, _, err := a.loadSchema(*project, source)
	if err != nil {
		return err
	}
	return graph.WriteDOT(a.stdout, schema)
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := a.newFlagSet("history")
	show := fs.String("show", "", "print the stored schema with this id as JSON")
	del := fs.String("delete", "", "delete the stored schema with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case *show != "":
		g, err := store.GetGraph(ctx, *show)
		if err != nil {
			return err
		}
		return a.writeJSON("", compiledOutput{
			Source:  g.Source,
			GraphID: g.ID,
			Outputs: g.Outputs,
			Schema:  g.Schema,
		}, a.settings.Indent)

	case *del != "":
		if err := store.DeleteGraph(ctx, *del); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "deleted %s\n", *del)
		return nil
	}

	graphs, err := store.ListGraphs(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tSOURCE\tTASKS\tCREATED")
	for _, g := range graphs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", g.ID, g.Project, g.Source, g.Tasks, g.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) view(ctx context.Context, args []string) error {
	fs := a.newFlagSet("view")
	project := fs.String("project", a.settings.Project, "project identifier passed to readers")
	id := fs.String("id", "", "view a stored schema instead of compiling a recipe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("view takes at most one recipe")
	}
	if *id != "" && fs.NArg() > 0 {
		return errors.New("view takes either a recipe or -id, not both")
	}

	var (
		title   string
		schema  graph.Schema
		outputs []string
	)

	if *id != "" {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		g, err := store.GetGraph(ctx, *id)
		store.Close()
		if err != nil {
			return err
		}
		title, schema, outputs = fmt.Sprintf("%s (%s)", g.Source, g.ID), g.Schema, g.Outputs
	} else {
		source := fs.Arg(0)
		if source == "" {
			source = defaultSource
		}
		var err error
		schema, outputs, err = a.loadSchema(*project, source)
		if err != nil {
			return err
		}
		title = source
	}

	model, err := tui.New(title, schema, outputs)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
