// Package store persists trial results in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/macsim/sim/trial"
)

// migrations is the schema history. Append new entries; never edit applied ones.
var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_results",
			Up: []string{`CREATE TABLE results (
				run_id         TEXT PRIMARY KEY,
				protocol       TEXT NOT NULL,
				seed           INTEGER NOT NULL,
				nodes          INTEGER NOT NULL,
				horizon        REAL NOT NULL,
				offered        INTEGER NOT NULL,
				dropped        INTEGER NOT NULL,
				transmitted    INTEGER NOT NULL,
				delivered      INTEGER NOT NULL,
				collisions     INTEGER NOT NULL,
				throughput     REAL NOT NULL,
				mean_delay     REAL NOT NULL,
				delay_stddev   REAL NOT NULL,
				mean_link_cost REAL NOT NULL,
				events         INTEGER NOT NULL,
				truncated      INTEGER NOT NULL,
				created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
			)`},
			Down: []string{`DROP TABLE results`},
		},
		{
			Id: "2_node_results",
			Up: []string{`CREATE TABLE node_results (
				run_id      TEXT NOT NULL REFERENCES results(run_id) ON DELETE CASCADE,
				node        INTEGER NOT NULL,
				x           REAL NOT NULL,
				y           REAL NOT NULL,
				partners    INTEGER NOT NULL,
				transmitted INTEGER NOT NULL,
				delivered   INTEGER NOT NULL,
				collisions  INTEGER NOT NULL,
				dropped     INTEGER NOT NULL,
				PRIMARY KEY (run_id, node)
			)`},
			Down: []string{`DROP TABLE node_results`},
		},
	},
}

// Store is a results database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening results db: %w", err)
	}
	n, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating results db: %w", err)
	}
	if n > 0 {
		logrus.Debugf("store: applied %d migrations to %s", n, path)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveResult writes r and its per-node rows in one transaction.
func (s *Store) SaveResult(ctx context.Context, r *trial.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO results
		(run_id, protocol, seed, nodes, horizon, offered, dropped, transmitted, delivered,
		 collisions, throughput, mean_delay, delay_stddev, mean_link_cost, events, truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Protocol, r.Seed, r.Nodes, r.Horizon, r.Offered, r.Dropped, r.Transmitted, r.Delivered,
		r.Collisions, r.Throughput, r.MeanDelay, r.DelayStdDev, r.MeanLinkCost, r.Events, r.Truncated)
	if err != nil {
		return fmt.Errorf("saving result %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO node_results
		(run_id, node, x, y, partners, transmitted, delivered, collisions, dropped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, n := range r.PerNode {
		if _, err := stmt.ExecContext(ctx, r.RunID, int(n.ID), n.Location.X, n.Location.Y, n.Partners,
			n.Transmitted, n.Delivered, n.Collisions, n.Dropped); err != nil {
			return fmt.Errorf("saving node %d of %s: %w", n.ID, r.RunID, err)
		}
	}
	return tx.Commit()
}

// Results returns stored run summaries in insertion order. An empty protocol
// matches every run. Per-node rows and trace summaries are not loaded.
func (s *Store) Results(ctx context.Context, protocol string) ([]*trial.Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		run_id, protocol, seed, nodes, horizon, offered, dropped, transmitted, delivered,
		collisions, throughput, mean_delay, delay_stddev, mean_link_cost, events, truncated
		FROM results WHERE (? = '' OR protocol = ?) ORDER BY rowid`, protocol, protocol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*trial.Result
	for rows.Next() {
		r := &trial.Result{}
		if err := rows.Scan(&r.RunID, &r.Protocol, &r.Seed, &r.Nodes, &r.Horizon, &r.Offered, &r.Dropped,
			&r.Transmitted, &r.Delivered, &r.Collisions, &r.Throughput, &r.MeanDelay, &r.DelayStdDev,
			&r.MeanLinkCost, &r.Events, &r.Truncated); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NodeResults returns the per-node rows saved with runID, ordered by node.
func (s *Store) NodeResults(ctx context.Context, runID string) ([]trial.NodeResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node, x, y, partners, transmitted, delivered, collisions, dropped
		FROM node_results WHERE run_id = ? ORDER BY node`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trial.NodeResult
	for rows.Next() {
		var n trial.NodeResult
		if err := rows.Scan(&n.ID, &n.Location.X, &n.Location.Y, &n.Partners,
			&n.Transmitted, &n.Delivered, &n.Collisions, &n.Dropped); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
