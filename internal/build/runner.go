package build

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/traingraph/internal/compiler"
	"github.com/aristath/traingraph/internal/config"
	"github.com/aristath/traingraph/internal/events"
	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/persistence"
)

// Result is the outcome of compiling one recipe.
type Result struct {
	Source  string
	Schema  graph.Schema
	Outputs []string
	GraphID string // Set when the result was stored
	Err     error
}

// RecipeLoader loads a recipe from a source name.
type RecipeLoader func(source string) (*config.Recipe, error)

// RunnerConfig configures the batch runner.
type RunnerConfig struct {
	ConcurrencyLimit int               // Max concurrent compiles (default 4)
	Project          string            // Project identifier passed to the compiler
	Loader           RecipeLoader      // Defaults to config.LoadRecipe
	Bus              *events.EventBus  // Optional progress events (nil disables)
	Store            persistence.Store // Optional storage for results (nil disables)
	Breaker          BreakerConfig     // Guards Store writes; zero fields take defaults
}

// Runner compiles many recipes concurrently.
type Runner struct {
	config   RunnerConfig
	compiler *compiler.Compiler
	breaker  *gobreaker.CircuitBreaker

	mu        sync.Mutex
	completed int
	failed    int
}

// NewRunner creates a new batch runner.
func NewRunner(cfg RunnerConfig, c *compiler.Compiler) *Runner {
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = 4
	}
	if cfg.Loader == nil {
		cfg.Loader = config.LoadRecipe
	}

	r := &Runner{
		config:   cfg,
		compiler: c,
	}
	r.breaker = newStoreBreaker(cfg.Breaker, func(name string, from, to gobreaker.State) {
		r.publish(events.BreakerChangedEvent{Name: name, From: from.String(), To: to.String(), Timestamp: time.Now()})
	})
	return r
}

// Run compiles every source and returns results in source order.
// Per-recipe failures are reported in Result.Err; the returned error is only
// set when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, sources []string) ([]Result, error) {
	r.mu.Lock()
	r.completed, r.failed = 0, 0
	r.mu.Unlock()

	results := make([]Result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.ConcurrencyLimit)

	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Source: source, Err: err}
				return err
			}
			results[i] = r.compileOne(gctx, source)
			r.recordProgress(len(sources), results[i].Err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// compileOne loads, compiles and optionally stores a single recipe.
func (r *Runner) compileOne(ctx context.Context, source string) Result {
	start := time.Now()
	r.publish(events.CompileStartedEvent{Src: source, Project: r.config.Project, Timestamp: start})

	res := Result{Source: source}
	fail := func(err error) Result {
		res.Err = err
		r.publish(events.CompileFailedEvent{Src: source, Err: err, Duration: time.Since(start), Timestamp: time.Now()})
		return res
	}

	recipe, err := r.config.Loader(source)
	if err != nil {
		return fail(err)
	}

	schema, outputs, err := r.compiler.CompileAll(r.config.Project, recipe)
	if err != nil {
		return fail(fmt.Errorf("compiling %s: %w", source, err))
	}
	res.Schema = schema
	res.Outputs = outputs

	if r.config.Store != nil {
		stored := &persistence.CompiledGraph{
			Project: r.config.Project,
			Source:  source,
			Outputs: outputs,
			Schema:  schema,
		}
		err := guarded(r.breaker, func() error {
			return r.config.Store.SaveGraph(ctx, stored)
		})
		if err != nil {
			return fail(fmt.Errorf("saving %s: %w", source, err))
		}
		res.GraphID = stored.ID
	}

	r.publish(events.CompileCompletedEvent{
		Src:       source,
		GraphID:   res.GraphID,
		Tasks:     len(schema),
		Outputs:   outputs,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
	return res
}

func (r *Runner) recordProgress(total int, err error) {
	r.mu.Lock()
	if err != nil {
		r.failed++
	} else {
		r.completed++
	}
	event := events.BatchProgressEvent{
		Total:     total,
		Completed: r.completed,
		Failed:    r.failed,
		Pending:   total - r.completed - r.failed,
		Timestamp: time.Now(),
	}
	r.mu.Unlock()

	r.publish(event)
}

func (r *Runner) publish(event events.Event) {
	if r.config.Bus != nil {
		r.config.Bus.Publish(event)
	}
}
