package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mindforge/internal/mindmap"
)

// PostgresStore persists maps and node trees through database/sql with the
// pgx stdlib driver. Tree-mutating writes run in one transaction that bumps
// mind_maps.version under an optimistic guard.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS mind_maps (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  prompt TEXT NOT NULL DEFAULT '',
  provider TEXT NOT NULL DEFAULT '',
  complexity TEXT NOT NULL DEFAULT 'moderate',
  total_nodes INT NOT NULL DEFAULT 0,
  max_depth INT NOT NULL DEFAULT 0,
  version BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS map_nodes (
  id TEXT NOT NULL,
  map_id TEXT NOT NULL REFERENCES mind_maps (id) ON DELETE CASCADE,
  parent_id TEXT,
  title TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  level INT NOT NULL DEFAULT 0,
  node_order INT NOT NULL DEFAULT 0,
  x DOUBLE PRECISION NOT NULL DEFAULT 0,
  y DOUBLE PRECISION NOT NULL DEFAULT 0,
  width DOUBLE PRECISION NOT NULL DEFAULT 0,
  height DOUBLE PRECISION NOT NULL DEFAULT 0,
  color TEXT NOT NULL DEFAULT '',
  shape TEXT NOT NULL DEFAULT '',
  is_collapsed BOOLEAN NOT NULL DEFAULT FALSE,
  citations JSONB NOT NULL DEFAULT '[]',
  PRIMARY KEY (map_id, id)
);
CREATE INDEX IF NOT EXISTS idx_map_nodes_map_id ON map_nodes (map_id);
CREATE INDEX IF NOT EXISTS idx_map_nodes_parent ON map_nodes (map_id, parent_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) GetMindMap(ctx context.Context, id string) (*mindmap.MindMap, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, title, description, summary, prompt, provider,
complexity, total_nodes, max_depth, version, created_at, updated_at
FROM mind_maps WHERE id = $1`, id)

	var m mindmap.MindMap
	var complexity string
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Summary, &m.Prompt, &m.Provider,
		&complexity, &m.Metadata.TotalNodes, &m.Metadata.MaxDepth, &m.Version,
		&m.Metadata.CreatedAt, &m.Metadata.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Complexity = mindmap.Complexity(complexity)

	nodes, err := s.loadNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Nodes = nodes
	return &m, nil
}

func (s *PostgresStore) loadNodes(ctx context.Context, mapID string) ([]*mindmap.MapNode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, COALESCE(parent_id, ''), title, content, level,
node_order, x, y, width, height, color, shape, is_collapsed, citations
FROM map_nodes WHERE map_id = $1 ORDER BY level, node_order`, mapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]*mindmap.MapNode{}
	var flat []*mindmap.MapNode
	for rows.Next() {
		var n mindmap.MapNode
		var citations []byte
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Title, &n.Content, &n.Level, &n.Order,
			&n.Visual.X, &n.Visual.Y, &n.Visual.Width, &n.Visual.Height,
			&n.Visual.Color, &n.Visual.Shape, &n.IsCollapsed, &citations); err != nil {
			return nil, err
		}
		if len(citations) > 0 {
			if err := json.Unmarshal(citations, &n.Citations); err != nil {
				return nil, err
			}
		}
		byID[n.ID] = &n
		flat = append(flat, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows arrive ordered by (level, node_order), so parents precede
	// children and sibling order is preserved on append.
	var roots []*mindmap.MapNode
	for _, n := range flat {
		if n.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			return nil, errors.New("map_nodes: orphan node " + n.ID)
		}
		parent.Children = append(parent.Children, n)
	}
	return roots, nil
}

func (s *PostgresStore) CreateMindMap(ctx context.Context, m *mindmap.MindMap) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO mind_maps (id, title, description, summary, prompt, provider, complexity,
  total_nodes, max_depth, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		m.ID, m.Title, m.Description, m.Summary, m.Prompt, m.Provider, string(m.Complexity),
		m.Metadata.TotalNodes, m.Metadata.MaxDepth, m.Version,
		m.Metadata.CreatedAt, m.Metadata.UpdatedAt)
	if err != nil {
		return err
	}
	if err := insertTree(ctx, tx, m.ID, m.Nodes); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) InsertNodes(ctx context.Context, mapID string, version int64, nodes []*mindmap.MapNode) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := bumpVersion(ctx, tx, mapID, version); err != nil {
		return err
	}
	if err := insertTree(ctx, tx, mapID, nodes); err != nil {
		return err
	}
	if err := refreshMetadata(ctx, tx, mapID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) UpdateNode(ctx context.Context, mapID string, version int64, nodeID, title, content string, children []*mindmap.MapNode, replaceChildren bool) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := bumpVersion(ctx, tx, mapID, version); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE map_nodes
SET title = CASE WHEN $3 <> '' THEN $3 ELSE title END,
    content = CASE WHEN $4 <> '' THEN $4 ELSE content END
WHERE map_id = $1 AND id = $2`, mapID, nodeID, title, content)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if replaceChildren {
		if err := deleteSubtree(ctx, tx, mapID, nodeID); err != nil {
			return err
		}
		if err := insertTree(ctx, tx, mapID, children); err != nil {
			return err
		}
	}
	if err := refreshMetadata(ctx, tx, mapID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) UpdateSummary(ctx context.Context, mapID, summary string, at time.Time) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE mind_maps SET summary = $2, updated_at = $3
WHERE id = $1`, mapID, summary, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// bumpVersion applies the optimistic guard: the write proceeds only when
// the caller still holds the current version.
func bumpVersion(ctx context.Context, tx *sql.Tx, mapID string, version int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE mind_maps
SET version = version + 1, updated_at = NOW()
WHERE id = $1 AND version = $2`, mapID, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		row := tx.QueryRowContext(ctx, `SELECT 1 FROM mind_maps WHERE id = $1`, mapID)
		var one int
		if scanErr := row.Scan(&one); errors.Is(scanErr, sql.ErrNoRows) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func insertTree(ctx context.Context, tx *sql.Tx, mapID string, nodes []*mindmap.MapNode) error {
	for _, n := range mindmap.Flatten(nodes) {
		citations, err := json.Marshal(n.Citations)
		if err != nil {
			return err
		}
		if n.Citations == nil {
			citations = []byte("[]")
		}
		var parent any
		if n.ParentID != "" {
			parent = n.ParentID
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO map_nodes (id, map_id, parent_id, title, content, level, node_order,
  x, y, width, height, color, shape, is_collapsed, citations)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			n.ID, mapID, parent, n.Title, n.Content, n.Level, n.Order,
			n.Visual.X, n.Visual.Y, n.Visual.Width, n.Visual.Height,
			n.Visual.Color, n.Visual.Shape, n.IsCollapsed, citations)
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteSubtree removes every descendant of nodeID (not the node itself).
func deleteSubtree(ctx context.Context, tx *sql.Tx, mapID, nodeID string) error {
	_, err := tx.ExecContext(ctx, `
WITH RECURSIVE descendants AS (
  SELECT id FROM map_nodes WHERE map_id = $1 AND parent_id = $2
  UNION ALL
  SELECT n.id FROM map_nodes n
  JOIN descendants d ON n.parent_id = d.id AND n.map_id = $1
)
DELETE FROM map_nodes WHERE map_id = $1 AND id IN (SELECT id FROM descendants)`,
		mapID, nodeID)
	return err
}

func refreshMetadata(ctx context.Context, tx *sql.Tx, mapID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE mind_maps SET
  total_nodes = (SELECT COUNT(*) FROM map_nodes WHERE map_id = $1),
  max_depth = COALESCE((SELECT MAX(level) FROM map_nodes WHERE map_id = $1), 0)
WHERE id = $1`, mapID)
	return err
}
