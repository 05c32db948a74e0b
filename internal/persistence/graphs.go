package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/registry"
)

// ErrNotFound is returned when no graph has the requested ID.
var ErrNotFound = errors.New("graph not found")

// SaveGraph stores a compiled graph with all of its tasks and needs edges.
// The schema is validated first; saving an existing ID replaces it.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *CompiledGraph) error {
	if _, err := graph.Validate(g.Schema); err != nil {
		return fmt.Errorf("refusing to save invalid schema: %w", err)
	}

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	outputs, err := json.Marshal(g.Outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}

	return withRetry(ctx, s.retry, func() error {
		return s.saveGraph(ctx, g, string(outputs))
	})
}

func (s *SQLiteStore) saveGraph(ctx context.Context, g *CompiledGraph, outputs string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace any previous version; tasks and needs cascade
	if _, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, g.ID); err != nil {
		return fmt.Errorf("failed to delete previous graph: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graphs (id, project, source, outputs, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Project, g.Source, outputs, g.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert graph: %w", err)
	}

	names := graph.Names(g.Schema)

	// Insert all tasks before any edge so both ends of every edge exist
	for _, name := range names {
		task := g.Schema[name]
		cfg := task.Config
		if cfg == nil {
			cfg = map[string]any{}
		}
		configJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config of task %s: %w", name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (graph_id, name, uses, fn, config, persist)
			VALUES (?, ?, ?, ?, ?, ?)
		`, g.ID, name, task.Uses.Name, task.Fn.String(), string(configJSON), task.Persists())
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", name, err)
		}
	}

	for _, name := range names {
		task := g.Schema[name]
		for _, param := range task.Params() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO task_needs (graph_id, task_name, param, depends_on)
				VALUES (?, ?, ?, ?)
			`, g.ID, name, param, task.Needs[param])
			if err != nil {
				return fmt.Errorf("failed to insert dependency %s -> %s: %w", name, task.Needs[param], err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGraph loads a stored graph, resolving implementations through the store's registry.
func (s *SQLiteStore) GetGraph(ctx context.Context, id string) (*CompiledGraph, error) {
	g := &CompiledGraph{ID: id, Schema: graph.Schema{}}
	var outputs string
	var createdAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT project, source, outputs, created_at
		FROM graphs
		WHERE id = ?
	`, id).Scan(&g.Project, &g.Source, &outputs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query graph: %w", err)
	}

	if err := json.Unmarshal([]byte(outputs), &g.Outputs); err != nil {
		return nil, fmt.Errorf("failed to decode outputs: %w", err)
	}
	g.CreatedAt = time.Unix(0, createdAt).UTC()

	if err := s.loadTasks(ctx, g); err != nil {
		return nil, err
	}
	if err := s.loadNeeds(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *SQLiteStore) loadTasks(ctx context.Context, g *CompiledGraph) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, uses, fn, config, persist
		FROM tasks
		WHERE graph_id = ?
		ORDER BY name
	`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, uses, fn, configJSON string
		var persist bool
		if err := rows.Scan(&name, &uses, &fn, &configJSON, &persist); err != nil {
			return fmt.Errorf("failed to scan task: %w", err)
		}

		d, err := s.reg.Lookup(uses)
		if err != nil {
			return fmt.Errorf("task %s: %w", name, err)
		}
		op, err := registry.ParseOp(fn)
		if err != nil {
			return fmt.Errorf("task %s: %w", name, err)
		}
		cfg := map[string]any{}
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			return fmt.Errorf("failed to decode config of task %s: %w", name, err)
		}

		g.Schema[name] = graph.TaskSpec{
			Uses:    d,
			Fn:      op,
			Config:  cfg,
			Needs:   map[string]string{},
			Persist: graph.Bool(persist),
		}
	}

	return rows.Err()
}

func (s *SQLiteStore) loadNeeds(ctx context.Context, g *CompiledGraph) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_name, param, depends_on
		FROM task_needs
		WHERE graph_id = ?
	`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskName, param, dep string
		if err := rows.Scan(&taskName, &param, &dep); err != nil {
			return fmt.Errorf("failed to scan dependency: %w", err)
		}
		g.Schema[taskName].Needs[param] = dep
	}

	return rows.Err()
}

// ListGraphs returns summaries of all stored graphs, newest first.
func (s *SQLiteStore) ListGraphs(ctx context.Context) ([]GraphSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.project, g.source, g.created_at,
			(SELECT COUNT(*) FROM tasks t WHERE t.graph_id = g.id)
		FROM graphs g
		ORDER BY g.created_at DESC, g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query graphs: %w", err)
	}
	defer rows.Close()

	var summaries []GraphSummary
	for rows.Next() {
		var sum GraphSummary
		var createdAt int64
		if err := rows.Scan(&sum.ID, &sum.Project, &sum.Source, &createdAt, &sum.Tasks); err != nil {
			return nil, fmt.Errorf("failed to scan graph: %w", err)
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// DeleteGraph removes a stored graph and its tasks.
func (s *SQLiteStore) DeleteGraph(ctx context.Context, id string) error {
	return withRetry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete graph: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check deleted rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}
