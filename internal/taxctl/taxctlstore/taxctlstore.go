// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlstore persists taxonomies and their import history in SQLite.
//
// A taxonomy is saved as a whole: SaveTaxonomy replaces all classifications and
// assignments of the taxonomy in a single transaction, preserving sibling order.
package taxctlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bufdev/taxctl/internal/pkg/backoff"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlreconcile"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrTaxonomyNotFound is returned when a taxonomy with the requested name does not exist.
var ErrTaxonomyNotFound = errors.New("taxonomy not found")

const schema = `
CREATE TABLE IF NOT EXISTS taxonomies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	dimensions TEXT NOT NULL,
	root_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS classifications (
	id TEXT PRIMARY KEY,
	taxonomy_id TEXT NOT NULL REFERENCES taxonomies(id) ON DELETE CASCADE,
	parent_id TEXT,
	position INTEGER NOT NULL,
	key TEXT NOT NULL,
	name TEXT NOT NULL,
	note TEXT NOT NULL,
	color TEXT NOT NULL,
	weight INTEGER NOT NULL,
	rank INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_classifications_taxonomy ON classifications(taxonomy_id);
CREATE TABLE IF NOT EXISTS assignments (
	id TEXT PRIMARY KEY,
	taxonomy_id TEXT NOT NULL REFERENCES taxonomies(id) ON DELETE CASCADE,
	classification_id TEXT NOT NULL REFERENCES classifications(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	vehicle_id TEXT NOT NULL,
	weight INTEGER NOT NULL,
	rank INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assignments_taxonomy ON assignments(taxonomy_id);
CREATE TABLE IF NOT EXISTS import_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	taxonomy_id TEXT NOT NULL REFERENCES taxonomies(id) ON DELETE CASCADE,
	imported_at TEXT NOT NULL,
	source TEXT NOT NULL,
	created INTEGER NOT NULL,
	modified INTEGER NOT NULL,
	changes TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_import_runs_taxonomy ON import_runs(taxonomy_id);
`

// busyRetryPolicy retries writes that fail because another taxctl process holds the database lock.
var busyRetryPolicy = backoff.Policy{
	MaxAttempts:  5,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
}

// TaxonomyInfo summarizes a stored taxonomy.
type TaxonomyInfo struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Dimensions          []string `json:"dimensions"`
	ClassificationCount int      `json:"classification_count"`
	AssignmentCount     int      `json:"assignment_count"`
}

// ImportRun is a recorded import.
type ImportRun struct {
	ID         int64                    `json:"id"`
	TaxonomyID string                   `json:"taxonomy_id"`
	ImportedAt time.Time                `json:"imported_at"`
	Source     string                   `json:"source"`
	Created    int                      `json:"created"`
	Modified   int                      `json:"modified"`
	Changes    []taxctlreconcile.Change `json:"changes"`
}

// Store is a SQLite-backed taxonomy store.
//
// A Store is safe for concurrent use, but a loaded Taxonomy is not: callers must not
// share a Taxonomy between goroutines.
type Store struct {
	logger *slog.Logger
	db     *sql.DB
	now    func() time.Time
}

// Open opens or creates the database at filePath and ensures the schema exists.
func Open(ctx context.Context, logger *slog.Logger, filePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps the foreign_keys pragma in effect.
	db.SetMaxOpenConns(1)
	for _, statement := range []string{"PRAGMA foreign_keys = ON", schema} {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return nil, errors.Join(fmt.Errorf("initializing database %s: %w", filePath, err), db.Close())
		}
	}
	logger.Debug("opened database", "path", filePath)
	return &Store{
		logger: logger,
		db:     db,
		now:    time.Now,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTaxonomy creates and saves a new empty taxonomy.
func (s *Store) CreateTaxonomy(ctx context.Context, name string, dimensions []string) (*taxctlmodel.Taxonomy, error) {
	if name == "" {
		return nil, errors.New("taxonomy name is required")
	}
	if _, err := s.taxonomyID(ctx, name); err == nil {
		return nil, fmt.Errorf("taxonomy %q already exists", name)
	} else if !errors.Is(err, ErrTaxonomyNotFound) {
		return nil, err
	}
	taxonomy := taxctlmodel.NewTaxonomy(name, dimensions...)
	if err := s.SaveTaxonomy(ctx, taxonomy); err != nil {
		return nil, err
	}
	s.logger.Info("created taxonomy", "taxonomy", name, "id", taxonomy.ID())
	return taxonomy, nil
}

// ListTaxonomies lists all taxonomies sorted by name.
func (s *Store) ListTaxonomies(ctx context.Context) ([]*TaxonomyInfo, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.id, t.name, t.dimensions,
			(SELECT COUNT(*) FROM classifications c WHERE c.taxonomy_id = t.id AND c.parent_id IS NOT NULL),
			(SELECT COUNT(*) FROM assignments a WHERE a.taxonomy_id = t.id)
		FROM taxonomies t
		ORDER BY t.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing taxonomies: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var taxonomyInfos []*TaxonomyInfo
	for rows.Next() {
		var (
			taxonomyInfo   TaxonomyInfo
			dimensionsJSON string
		)
		if err := rows.Scan(
			&taxonomyInfo.ID,
			&taxonomyInfo.Name,
			&dimensionsJSON,
			&taxonomyInfo.ClassificationCount,
			&taxonomyInfo.AssignmentCount,
		); err != nil {
			return nil, fmt.Errorf("scanning taxonomy: %w", err)
		}
		if taxonomyInfo.Dimensions, err = unmarshalDimensions(dimensionsJSON); err != nil {
			return nil, err
		}
		taxonomyInfos = append(taxonomyInfos, &taxonomyInfo)
	}
	return taxonomyInfos, rows.Err()
}

// LoadTaxonomy loads the taxonomy with the given name.
//
// Returns an error wrapping ErrTaxonomyNotFound if no such taxonomy exists.
func (s *Store) LoadTaxonomy(ctx context.Context, name string) (*taxctlmodel.Taxonomy, error) {
	var id, dimensionsJSON, rootID string
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT id, dimensions, root_id FROM taxonomies WHERE name = ?`,
		name,
	).Scan(&id, &dimensionsJSON, &rootID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrTaxonomyNotFound, name)
		}
		return nil, fmt.Errorf("loading taxonomy %q: %w", name, err)
	}
	dimensions, err := unmarshalDimensions(dimensionsJSON)
	if err != nil {
		return nil, err
	}
	classifications, err := s.loadClassifications(ctx, id)
	if err != nil {
		return nil, err
	}
	root, ok := classifications[rootID]
	if !ok {
		return nil, fmt.Errorf("taxonomy %q has no root classification %q", name, rootID)
	}
	if err := s.loadAssignments(ctx, id, classifications); err != nil {
		return nil, err
	}
	taxonomy := taxctlmodel.NewTaxonomyWithRoot(id, name, dimensions, root)
	for _, violation := range taxonomy.WeightViolations() {
		s.logger.Warn("weight budget exceeded", "taxonomy", name, "vehicle", violation)
	}
	return taxonomy, nil
}

// SaveTaxonomy replaces the stored state of the taxonomy with its current in-memory state.
func (s *Store) SaveTaxonomy(ctx context.Context, taxonomy *taxctlmodel.Taxonomy) error {
	if err := backoff.Retry(ctx, busyRetryPolicy, isBusy, func(ctx context.Context) error {
		return s.saveTaxonomy(ctx, taxonomy)
	}); err != nil {
		return err
	}
	s.logger.Debug("saved taxonomy", "taxonomy", taxonomy.Name())
	return nil
}

func (s *Store) saveTaxonomy(ctx context.Context, taxonomy *taxctlmodel.Taxonomy) (retErr error) {
	dimensionsJSON, err := json.Marshal(taxonomy.Dimensions())
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			retErr = errors.Join(retErr, tx.Rollback())
		}
	}()
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO taxonomies (id, name, dimensions, root_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, dimensions = excluded.dimensions, root_id = excluded.root_id`,
		taxonomy.ID(), taxonomy.Name(), string(dimensionsJSON), taxonomy.Root().ID,
	); err != nil {
		return fmt.Errorf("saving taxonomy %q: %w", taxonomy.Name(), err)
	}
	for _, table := range []string{"assignments", "classifications"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE taxonomy_id = ?`, taxonomy.ID()); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := saveClassification(ctx, tx, taxonomy.ID(), taxonomy.Root(), nil, 0); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing taxonomy %q: %w", taxonomy.Name(), err)
	}
	return nil
}

// RecordImport records an import run of the taxonomy.
func (s *Store) RecordImport(ctx context.Context, taxonomyID string, source string, result *taxctlreconcile.Result) (*ImportRun, error) {
	importRun := &ImportRun{
		TaxonomyID: taxonomyID,
		ImportedAt: s.now().UTC().Truncate(time.Second),
		Source:     source,
		Created:    result.CreatedCount(),
		Modified:   result.ModifiedCount(),
		Changes:    result.Changes(),
	}
	changesJSON, err := json.Marshal(importRun.Changes)
	if err != nil {
		return nil, err
	}
	if err := backoff.Retry(ctx, busyRetryPolicy, isBusy, func(ctx context.Context) error {
		sqlResult, err := s.db.ExecContext(
			ctx,
			`INSERT INTO import_runs (taxonomy_id, imported_at, source, created, modified, changes) VALUES (?, ?, ?, ?, ?, ?)`,
			importRun.TaxonomyID,
			importRun.ImportedAt.Format(time.RFC3339),
			importRun.Source,
			importRun.Created,
			importRun.Modified,
			string(changesJSON),
		)
		if err != nil {
			return fmt.Errorf("recording import: %w", err)
		}
		importRun.ID, err = sqlResult.LastInsertId()
		return err
	}); err != nil {
		return nil, err
	}
	s.logger.Info("recorded import", "taxonomy_id", taxonomyID, "source", source, "id", importRun.ID)
	return importRun, nil
}

// ListImports lists the import runs of the taxonomy, oldest first.
func (s *Store) ListImports(ctx context.Context, taxonomyID string) ([]*ImportRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, imported_at, source, created, modified, changes FROM import_runs WHERE taxonomy_id = ? ORDER BY id`,
		taxonomyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing imports: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var importRuns []*ImportRun
	for rows.Next() {
		importRun := &ImportRun{TaxonomyID: taxonomyID}
		var importedAt, changesJSON string
		if err := rows.Scan(
			&importRun.ID,
			&importedAt,
			&importRun.Source,
			&importRun.Created,
			&importRun.Modified,
			&changesJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning import: %w", err)
		}
		if importRun.ImportedAt, err = time.Parse(time.RFC3339, importedAt); err != nil {
			return nil, fmt.Errorf("parsing import time %q: %w", importedAt, err)
		}
		if err := json.Unmarshal([]byte(changesJSON), &importRun.Changes); err != nil {
			return nil, fmt.Errorf("parsing changes of import %d: %w", importRun.ID, err)
		}
		importRuns = append(importRuns, importRun)
	}
	return importRuns, rows.Err()
}

func (s *Store) taxonomyID(ctx context.Context, name string) (string, error) {
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM taxonomies WHERE name = ?`, name).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %q", ErrTaxonomyNotFound, name)
		}
		return "", err
	}
	return id, nil
}

// loadClassifications loads all classifications of the taxonomy linked into trees,
// keyed by id.
func (s *Store) loadClassifications(ctx context.Context, taxonomyID string) (_ map[string]*taxctlmodel.Classification, retErr error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, parent_id, key, name, note, color, weight, rank FROM classifications
		WHERE taxonomy_id = ? ORDER BY position`,
		taxonomyID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading classifications: %w", err)
	}
	defer func() { retErr = errors.Join(retErr, rows.Close()) }()
	classifications := make(map[string]*taxctlmodel.Classification)
	parentIDs := make(map[string]string)
	var order []*taxctlmodel.Classification
	for rows.Next() {
		classification := &taxctlmodel.Classification{}
		var parentID sql.NullString
		if err := rows.Scan(
			&classification.ID,
			&parentID,
			&classification.Key,
			&classification.Name,
			&classification.Note,
			&classification.Color,
			&classification.Weight,
			&classification.Rank,
		); err != nil {
			return nil, fmt.Errorf("scanning classification: %w", err)
		}
		classifications[classification.ID] = classification
		if parentID.Valid {
			parentIDs[classification.ID] = parentID.String
		}
		order = append(order, classification)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows are ordered by position, so appending keeps the sibling order.
	for _, classification := range order {
		parentID, ok := parentIDs[classification.ID]
		if !ok {
			continue
		}
		parent, ok := classifications[parentID]
		if !ok {
			return nil, fmt.Errorf("classification %q references unknown parent %q", classification.ID, parentID)
		}
		parent.AddChildForLoad(classification)
	}
	return classifications, nil
}

func (s *Store) loadAssignments(
	ctx context.Context,
	taxonomyID string,
	classifications map[string]*taxctlmodel.Classification,
) (retErr error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, classification_id, vehicle_id, weight, rank FROM assignments
		WHERE taxonomy_id = ? ORDER BY position`,
		taxonomyID,
	)
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}
	defer func() { retErr = errors.Join(retErr, rows.Close()) }()
	for rows.Next() {
		assignment := &taxctlmodel.Assignment{}
		var classificationID string
		if err := rows.Scan(
			&assignment.ID,
			&classificationID,
			&assignment.VehicleID,
			&assignment.Weight,
			&assignment.Rank,
		); err != nil {
			return fmt.Errorf("scanning assignment: %w", err)
		}
		classification, ok := classifications[classificationID]
		if !ok {
			return fmt.Errorf("assignment %q references unknown classification %q", assignment.ID, classificationID)
		}
		classification.AddAssignment(assignment)
	}
	return rows.Err()
}

// saveClassification inserts the classification, its assignments, and its subtree in pre-order.
func saveClassification(
	ctx context.Context,
	tx *sql.Tx,
	taxonomyID string,
	classification *taxctlmodel.Classification,
	parentID *string,
	position int,
) error {
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO classifications (id, taxonomy_id, parent_id, position, key, name, note, color, weight, rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		classification.ID,
		taxonomyID,
		parentID,
		position,
		classification.Key,
		classification.Name,
		classification.Note,
		classification.Color,
		classification.Weight,
		classification.Rank,
	); err != nil {
		return fmt.Errorf("saving classification %q: %w", classification.Name, err)
	}
	for i, assignment := range classification.Assignments() {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO assignments (id, taxonomy_id, classification_id, position, vehicle_id, weight, rank)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			assignment.ID,
			taxonomyID,
			classification.ID,
			i,
			assignment.VehicleID,
			assignment.Weight,
			assignment.Rank,
		); err != nil {
			return fmt.Errorf("saving assignment of %q: %w", classification.Name, err)
		}
	}
	for i, child := range classification.Children() {
		if err := saveClassification(ctx, tx, taxonomyID, child, &classification.ID, i); err != nil {
			return err
		}
	}
	return nil
}

// isBusy returns true if err is a SQLite busy or locked error.
func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended result codes keep the primary code in the low byte.
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	default:
		return false
	}
}

func unmarshalDimensions(dimensionsJSON string) ([]string, error) {
	var dimensions []string
	if err := json.Unmarshal([]byte(dimensionsJSON), &dimensions); err != nil {
		return nil, fmt.Errorf("parsing dimensions: %w", err)
	}
	return dimensions, nil
}
