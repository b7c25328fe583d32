// Package respcache is an optional SQLite-backed cache for composed
// response products. Recomposing a DRM means re-reading and re-decoding a
// large matrix file, so pipelines that build the same products repeatedly
// can persist them between runs.
//
// The cache stores the numeric payload and identity of a product, not its
// element provenance; a cache hit records itself in the product's function
// path instead.
package respcache

import (
	"context"
	"database/sql"
	"encoding/json"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"gonum.org/v1/gonum/mat"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/compose"
	"github.com/tamarlowe/respkit/internal/units"
)

//go:embed schema.sql
var schemaSQL string

// Cache is a SQLite-backed product store.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path. SQLite is configured
// the same way for every caller: WAL journal, one writer connection.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Put stores a product under the caller's request key, replacing any
// previous entry for that key.
func (c *Cache) Put(ctx context.Context, key string, p *compose.Product) error {
	energies, payload, outEdges, err := encodePayload(p)
	if err != nil {
		return err
	}
	axisUnit := p.Energies.Unit
	if p.Kind != compose.KindARF {
		axisUnit = p.InputEdges.Unit
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO products (key, id, kind, telescope, unit, axis_unit, energies, out_edges, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			id = excluded.id, kind = excluded.kind, telescope = excluded.telescope,
			unit = excluded.unit, axis_unit = excluded.axis_unit,
			energies = excluded.energies, out_edges = excluded.out_edges,
			payload = excluded.payload, created_at = excluded.created_at`,
		key, p.ID.String(), string(p.Kind), p.Telescope, p.Unit.Name, axisUnit.Name,
		energies, outEdges, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	return nil
}

// Get loads the product stored under key. The second return is false on a
// miss.
func (c *Cache) Get(ctx context.Context, key string) (*compose.Product, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, kind, telescope, unit, axis_unit, energies, out_edges, payload
		FROM products WHERE key = ?`, key)

	var (
		id, kind, telescope, unitName, axisUnitName string
		energies, payload                           string
		outEdges                                    sql.NullString
	)
	err := row.Scan(&id, &kind, &telescope, &unitName, &axisUnitName, &energies, &outEdges, &payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}

	unit, ok := units.ByName(unitName)
	if !ok {
		return nil, false, fmt.Errorf("cache entry %q has unknown unit %q", key, unitName)
	}
	axisUnit, ok := units.ByName(axisUnitName)
	if !ok {
		return nil, false, fmt.Errorf("cache entry %q has unknown axis unit %q", key, axisUnitName)
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, false, fmt.Errorf("cache entry %q has invalid id: %w", key, err)
	}

	p := &compose.Product{
		ID:        pid,
		Kind:      compose.Kind(kind),
		Telescope: telescope,
		Unit:      unit,
	}
	if err := decodePayload(p, axisUnit, energies, payload, outEdges); err != nil {
		return nil, false, fmt.Errorf("cache entry %q: %w", key, err)
	}
	p.AppendFunction("respcache.Get")
	return p, true, nil
}

func encodePayload(p *compose.Product) (energies, payload string, outEdges sql.NullString, err error) {
	if p.Kind == compose.KindARF {
		e, err := json.Marshal(p.Energies.Values)
		if err != nil {
			return "", "", sql.NullString{}, err
		}
		v, err := json.Marshal(p.Values)
		if err != nil {
			return "", "", sql.NullString{}, err
		}
		return string(e), string(v), sql.NullString{}, nil
	}

	e, err := json.Marshal(p.InputEdges.Values)
	if err != nil {
		return "", "", sql.NullString{}, err
	}
	o, err := json.Marshal(p.OutputEdges.Values)
	if err != nil {
		return "", "", sql.NullString{}, err
	}
	rows, _ := p.Matrix.Dims()
	m := make([][]float64, rows)
	for i := range m {
		m[i] = p.Matrix.RawRowView(i)
	}
	v, err := json.Marshal(m)
	if err != nil {
		return "", "", sql.NullString{}, err
	}
	return string(e), string(v), sql.NullString{String: string(o), Valid: true}, nil
}

// decodePayload rebuilds the product's axes and values. The axes come back
// on the stored unit; the input and output edges of a matrix product share
// it.
func decodePayload(p *compose.Product, axisUnit units.Unit, energies, payload string, outEdges sql.NullString) error {
	var es []float64
	if err := json.Unmarshal([]byte(energies), &es); err != nil {
		return err
	}

	if p.Kind == compose.KindARF {
		p.Energies = axis.New(es, axisUnit)
		return json.Unmarshal([]byte(payload), &p.Values)
	}

	if !outEdges.Valid {
		return fmt.Errorf("2D product missing output edges")
	}
	var os []float64
	if err := json.Unmarshal([]byte(outEdges.String), &os); err != nil {
		return err
	}
	var m [][]float64
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return err
	}
	if len(m) == 0 || len(m[0]) == 0 {
		return fmt.Errorf("2D product has empty matrix")
	}
	dense := mat.NewDense(len(m), len(m[0]), nil)
	for i, row := range m {
		if len(row) != len(m[0]) {
			return fmt.Errorf("2D product has ragged matrix rows")
		}
		dense.SetRow(i, row)
	}
	p.InputEdges = axis.New(es, axisUnit)
	p.OutputEdges = axis.New(os, axisUnit)
	p.Matrix = dense
	return nil
}
