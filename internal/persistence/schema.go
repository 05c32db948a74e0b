package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS graphs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		source TEXT NOT NULL,
		outputs TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		graph_id TEXT NOT NULL,
		name TEXT NOT NULL,
		uses TEXT NOT NULL,
		fn TEXT NOT NULL,
		config TEXT NOT NULL,
		persist INTEGER NOT NULL,
		PRIMARY KEY (graph_id, name),
		FOREIGN KEY (graph_id) REFERENCES graphs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS task_needs (
		graph_id TEXT NOT NULL,
		task_name TEXT NOT NULL,
		param TEXT NOT NULL,
		depends_on TEXT NOT NULL,
		PRIMARY KEY (graph_id, task_name, param),
		FOREIGN KEY (graph_id, task_name) REFERENCES tasks(graph_id, name) ON DELETE CASCADE,
		FOREIGN KEY (graph_id, depends_on) REFERENCES tasks(graph_id, name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_graphs_created_at ON graphs(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
