// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store archives assessment runs in SQLite so past verdicts and
// their publication landscapes stay searchable. Archiving is optional:
// every method on a nil *Store is a no-op returning zero values.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// ErrRunNotFound reports a run id with no archived row.
var ErrRunNotFound = errors.New("run not found")

const dbFile = "novelty.db"

const defaultListLimit = 20

// Store manages the run archive database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive at dataDir/novelty.db, creating
// the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			title TEXT,
			branch TEXT,
			verdict TEXT,
			confidence REAL,
			total_results INTEGER,
			results_analyzed INTEGER,
			report TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_pubs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			pub_id TEXT,
			title TEXT,
			abstract TEXT,
			year INTEGER,
			score REAL,
			rank INTEGER,
			branches TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_pubs_run_id ON run_pubs(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='pubs_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE pubs_fts USING fts5(title, abstract, content=run_pubs, content_rowid=rowid)`,
			`CREATE TRIGGER run_pubs_ai AFTER INSERT ON run_pubs BEGIN
				INSERT INTO pubs_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER run_pubs_ad AFTER DELETE ON run_pubs BEGIN
				INSERT INTO pubs_fts(pubs_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER run_pubs_au AFTER UPDATE ON run_pubs BEGIN
				INSERT INTO pubs_fts(pubs_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO pubs_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveRun archives a completed assessment with its ranked publications
// and returns the new run identifier. A nil store drops the run.
func (s *Store) SaveRun(ctx context.Context, report *types.AnalysisReport, results []types.SimilarityResult) (string, error) {
	if s == nil {
		return "", nil
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, title, branch, verdict, confidence, total_results, results_analyzed, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
		report.Proposal.Title, string(report.Proposal.Branch),
		string(report.Verdict), report.Confidence,
		report.TotalResultsFound, report.ResultsAnalyzed, string(reportJSON),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_pubs (run_id, pub_id, title, abstract, year, score, rank, branches)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, sr := range results {
		branchesJSON, _ := json.Marshal(sr.Publication.Branches)
		_, err := stmt.ExecContext(ctx,
			id, sr.Publication.ID, sr.Publication.Title, sr.Publication.BestAbstract(),
			sr.Publication.Year, sr.Score, sr.Rank, string(branchesJSON),
		)
		if err != nil {
			return "", fmt.Errorf("inserting publication %s: %w", sr.Publication.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// RunSummary is one archived run without its full report.
type RunSummary struct {
	ID              string        `json:"id"`
	CreatedAt       time.Time     `json:"created_at"`
	Title           string        `json:"title"`
	Branch          types.Branch  `json:"branch"`
	Verdict         types.Verdict `json:"verdict"`
	Confidence      float64       `json:"confidence"`
	TotalResults    int           `json:"total_results"`
	ResultsAnalyzed int           `json:"results_analyzed"`
}

// ListRuns returns archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, title, branch, verdict, confidence, total_results, results_analyzed
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			rs        RunSummary
			createdAt string
			branch    string
			verdict   string
		)
		if err := rows.Scan(&rs.ID, &createdAt, &rs.Title, &branch, &verdict,
			&rs.Confidence, &rs.TotalResults, &rs.ResultsAnalyzed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			rs.CreatedAt = t
		}
		rs.Branch = types.Branch(branch)
		rs.Verdict = types.Verdict(verdict)
		summaries = append(summaries, rs)
	}
	return summaries, rows.Err()
}

// GetRun rehydrates the full report of an archived run.
func (s *Store) GetRun(ctx context.Context, id string) (*types.AnalysisReport, error) {
	if s == nil {
		return nil, fmt.Errorf("run archive is not configured")
	}

	var reportJSON string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("looking up run: %w", err)
	}

	var report types.AnalysisReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("decoding archived report: %w", err)
	}
	return &report, nil
}

// CorpusHit is one archived publication matched by a full-text search,
// joined to the run that retrieved it.
type CorpusHit struct {
	RunID    string  `json:"run_id"`
	RunTitle string  `json:"run_title"`
	PubID    string  `json:"pub_id"`
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// SearchCorpus runs an FTS5 query over all archived publication titles
// and abstracts.
func (s *Store) SearchCorpus(ctx context.Context, query string, limit int) ([]CorpusHit, error) {
	if s == nil {
		return nil, nil
	}
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.run_id, r.title, p.pub_id, p.title, p.year, p.score, p.rank
		 FROM pubs_fts
		 JOIN run_pubs p ON p.rowid = pubs_fts.rowid
		 JOIN runs r ON r.id = p.run_id
		 WHERE pubs_fts MATCH ?
		 ORDER BY pubs_fts.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}
	defer rows.Close()

	var hits []CorpusHit
	for rows.Next() {
		var h CorpusHit
		if err := rows.Scan(&h.RunID, &h.RunTitle, &h.PubID, &h.Title, &h.Year, &h.Score, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
