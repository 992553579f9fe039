// Package store persists domain documents in a SQLite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/vapordomain/pkg/domain"
	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/pressure"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema.sql creates one table per record kind, all keyed by document id.
//
//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no document has the requested name.
var ErrNotFound = errors.New("store: document not found")

// Store is a SQLite-backed document store.
type Store struct {
	*sql.DB
	logger *slog.Logger
}

// Summary describes one saved document.
type Summary struct {
	ID      string
	Name    string
	SavedAt time.Time
	Objects int
	Cracks  int
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	logger.Debug("store opened", "path", path)
	return &Store{DB: db, logger: logger}, nil
}

// Save writes r under name, replacing any document with that name. It
// returns the new document id.
func (s *Store) Save(ctx context.Context, name string, r domain.Records) (string, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return "", fmt.Errorf("store: replace %q: %w", name, err)
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, saved_at, crack_edit_axis, wind_direction) VALUES (?, ?, ?, ?, ?)`,
		id, name, time.Now().UnixNano(), int(r.CrackEditAxis), r.WindDirection,
	); err != nil {
		return "", fmt.Errorf("store: insert document: %w", err)
	}

	for _, a := range grid.Axes {
		for i, l := range r.Base[a] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO grid_lines (doc_id, axis, idx, position, offset_to_next) VALUES (?, ?, ?, ?, ?)`,
				id, int(a), i, l.Position, l.OffsetToNext,
			); err != nil {
				return "", fmt.Errorf("store: insert grid line %s%d: %w", a, i, err)
			}
		}
	}

	for i, p := range r.Extras {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO extra_points (doc_id, seq, axis, value) VALUES (?, ?, ?, ?)`,
			id, i, int(p.Axis), p.Value,
		); err != nil {
			return "", fmt.Errorf("store: insert extra point: %w", err)
		}
	}

	for i, o := range r.Objects {
		attrs, err := json.Marshal(o.Attributes)
		if err != nil {
			return "", fmt.Errorf("store: encode attributes of %q: %w", o.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO objects (doc_id, seq, kind, name, color, attributes,
				origin_x, origin_y, origin_z, size_x, size_y, size_z)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, int(o.Kind), o.Name, o.Color, string(attrs),
			o.Origin.X, o.Origin.Y, o.Origin.Z, o.Size.X, o.Size.Y, o.Size.Z,
		); err != nil {
			return "", fmt.Errorf("store: insert object %q: %w", o.Name, err)
		}
	}

	for i, c := range r.Cracks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cracks (doc_id, seq, axis, value, start_value, end_value) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, int(c.Axis), c.Value, c.Start, c.End,
		); err != nil {
			return "", fmt.Errorf("store: insert crack: %w", err)
		}
	}

	for k, v := range r.Samples {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pressure_samples (doc_id, direction, dx, dz, value) VALUES (?, ?, ?, ?, ?)`,
			id, k.Direction, k.DX, k.DZ, v,
		); err != nil {
			return "", fmt.Errorf("store: insert pressure sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}
	s.logger.Info("document saved", "name", name, "id", id, "records", r.String())
	return id, nil
}

// Load reads the document saved under name.
func (s *Store) Load(ctx context.Context, name string) (domain.Records, error) {
	var (
		r    domain.Records
		id   string
		axis int
	)
	err := s.QueryRowContext(ctx,
		`SELECT id, crack_edit_axis, wind_direction FROM documents WHERE name = ?`, name,
	).Scan(&id, &axis, &r.WindDirection)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return r, fmt.Errorf("store: load %q: %w", name, err)
	}
	r.CrackEditAxis = grid.Axis(axis)

	if err := s.each(ctx, `SELECT axis, position, offset_to_next FROM grid_lines WHERE doc_id = ? ORDER BY axis, idx`, id,
		func(rows *sql.Rows) error {
			var (
				a int
				l grid.GridLine
			)
			if err := rows.Scan(&a, &l.Position, &l.OffsetToNext); err != nil {
				return err
			}
			if !grid.Axis(a).Valid() {
				return fmt.Errorf("invalid axis %d", a)
			}
			r.Base[a] = append(r.Base[a], l)
			return nil
		}); err != nil {
		return r, fmt.Errorf("store: load grid of %q: %w", name, err)
	}

	if err := s.each(ctx, `SELECT axis, value FROM extra_points WHERE doc_id = ? ORDER BY seq`, id,
		func(rows *sql.Rows) error {
			var (
				a int
				p grid.ExtraPoint
			)
			if err := rows.Scan(&a, &p.Value); err != nil {
				return err
			}
			p.Axis = grid.Axis(a)
			r.Extras = append(r.Extras, p)
			return nil
		}); err != nil {
		return r, fmt.Errorf("store: load extra points of %q: %w", name, err)
	}

	if err := s.each(ctx, `SELECT kind, name, color, attributes, origin_x, origin_y, origin_z, size_x, size_y, size_z
		FROM objects WHERE doc_id = ? ORDER BY seq`, id,
		func(rows *sql.Rows) error {
			var (
				kind  int
				attrs string
				o     domain.SpatialObject
			)
			if err := rows.Scan(&kind, &o.Name, &o.Color, &attrs,
				&o.Origin.X, &o.Origin.Y, &o.Origin.Z, &o.Size.X, &o.Size.Y, &o.Size.Z); err != nil {
				return err
			}
			o.Kind = domain.ObjectKind(kind)
			if err := json.Unmarshal([]byte(attrs), &o.Attributes); err != nil {
				return fmt.Errorf("attributes of %q: %w", o.Name, err)
			}
			r.Objects = append(r.Objects, o)
			return nil
		}); err != nil {
		return r, fmt.Errorf("store: load objects of %q: %w", name, err)
	}

	if err := s.each(ctx, `SELECT axis, value, start_value, end_value FROM cracks WHERE doc_id = ? ORDER BY seq`, id,
		func(rows *sql.Rows) error {
			var (
				a int
				c domain.Crack
			)
			if err := rows.Scan(&a, &c.Value, &c.Start, &c.End); err != nil {
				return err
			}
			c.Axis = grid.Axis(a)
			r.Cracks = append(r.Cracks, c)
			return nil
		}); err != nil {
		return r, fmt.Errorf("store: load cracks of %q: %w", name, err)
	}

	if err := s.each(ctx, `SELECT direction, dx, dz, value FROM pressure_samples WHERE doc_id = ?`, id,
		func(rows *sql.Rows) error {
			var (
				k pressure.SampleKey
				v float64
			)
			if err := rows.Scan(&k.Direction, &k.DX, &k.DZ, &v); err != nil {
				return err
			}
			if r.Samples == nil {
				r.Samples = make(map[pressure.SampleKey]float64)
			}
			r.Samples[k] = v
			return nil
		}); err != nil {
		return r, fmt.Errorf("store: load pressure samples of %q: %w", name, err)
	}

	return r, nil
}

// List summarizes every saved document, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT d.id, d.name, d.saved_at,
			(SELECT COUNT(*) FROM objects o WHERE o.doc_id = d.id),
			(SELECT COUNT(*) FROM cracks c WHERE c.doc_id = d.id)
		FROM documents d
		ORDER BY d.saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum   Summary
			saved int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &saved, &sum.Objects, &sum.Cracks); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		sum.SavedAt = time.Unix(0, saved)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the document saved under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

func (s *Store) each(ctx context.Context, query, id string, fn func(*sql.Rows) error) error {
	rows, err := s.QueryContext(ctx, query, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
