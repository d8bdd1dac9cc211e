// README: Coefficient version store backed by PostgreSQL.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoVersion = errors.New("no coefficient version stored")

// Schema creates the version table. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS coefficient_versions (
    version      BIGSERIAL PRIMARY KEY,
    coefficients JSONB NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Version is one persisted coefficient set.
type Version struct {
	Version      int64        `json:"version"`
	Coefficients Coefficients `json:"coefficients"`
	Source       string       `json:"source"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// VersionStore persists coefficient history.
type VersionStore interface {
	Save(ctx context.Context, c Coefficients, source string) (Version, error)
	Latest(ctx context.Context) (Version, error)
	List(ctx context.Context, limit int) ([]Version, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

func (s *Store) Save(ctx context.Context, c Coefficients, source string) (Version, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return Version{}, err
	}
	v := Version{Coefficients: c, Source: source}
	err = s.db.QueryRow(ctx, `
        INSERT INTO coefficient_versions (coefficients, source)
        VALUES ($1, $2)
        RETURNING version, created_at`,
		raw, source,
	).Scan(&v.Version, &v.CreatedAt)
	if err != nil {
		return Version{}, fmt.Errorf("save coefficients: %w", err)
	}
	return v, nil
}

func (s *Store) Latest(ctx context.Context) (Version, error) {
	row := s.db.QueryRow(ctx, `
        SELECT version, coefficients, source, created_at
        FROM coefficient_versions
        ORDER BY version DESC
        LIMIT 1`)
	v, err := scanVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Version{}, ErrNoVersion
	}
	return v, err
}

func (s *Store) List(ctx context.Context, limit int) ([]Version, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
        SELECT version, coefficients, source, created_at
        FROM coefficient_versions
        ORDER BY version DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVersion(row pgx.Row) (Version, error) {
	var v Version
	var raw []byte
	if err := row.Scan(&v.Version, &raw, &v.Source, &v.CreatedAt); err != nil {
		return Version{}, err
	}
	if err := json.Unmarshal(raw, &v.Coefficients); err != nil {
		return Version{}, fmt.Errorf("decode coefficients version %d: %w", v.Version, err)
	}
	return v, nil
}
