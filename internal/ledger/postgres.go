package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
)

// Postgres is the database-backed ledger. Idempotency rides on the
// pick_id primary key via INSERT ... ON CONFLICT DO NOTHING, so
// concurrent writers need no application-level lock.
type Postgres struct {
	db *sqlx.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS picks (
    pick_id        TEXT PRIMARY KEY,
    slate_date     DATE NOT NULL,
    published_tier TEXT NOT NULL,
    start_time     TIMESTAMPTZ NOT NULL,
    published_at   TIMESTAMPTZ NOT NULL,
    snapshot       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_picks_slate_date ON picks (slate_date);
CREATE INDEX IF NOT EXISTS idx_picks_start_time ON picks (start_time);

CREATE TABLE IF NOT EXISTS grades (
    pick_id   TEXT PRIMARY KEY REFERENCES picks (pick_id),
    graded_at TIMESTAMPTZ NOT NULL,
    result    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grades_graded_at ON grades (graded_at);
`

// NewPostgres connects and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect ledger db: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Append inserts the pick snapshot; a conflicting pick_id is a no-op.
func (p *Postgres) Append(ctx context.Context, pk pick.Pick) (bool, error) {
	if pk.PickID == "" || pk.SlateDate == "" {
		return false, &PersistenceError{PickID: pk.PickID, Err: fmt.Errorf("pick missing id or slate date")}
	}
	snapshot, err := json.Marshal(pk)
	if err != nil {
		return false, &PersistenceError{PickID: pk.PickID, Err: err}
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO picks (pick_id, slate_date, published_tier, start_time, published_at, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pick_id) DO NOTHING`,
		pk.PickID, pk.SlateDate, pk.PublishedTier, pk.StartTime, pk.PublishedAt, snapshot)
	if err != nil {
		return false, &PersistenceError{PickID: pk.PickID, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &PersistenceError{PickID: pk.PickID, Err: err}
	}
	return n > 0, nil
}

// PicksByDate returns one slate's picks.
func (p *Postgres) PicksByDate(ctx context.Context, slateDate string) ([]pick.Pick, error) {
	rows, err := p.db.QueryxContext(ctx,
		`SELECT snapshot FROM picks WHERE slate_date = $1 ORDER BY published_at`, slateDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPicks(rows)
}

// Ungraded returns started-but-ungraded picks.
func (p *Postgres) Ungraded(ctx context.Context, startedBefore time.Time) ([]pick.Pick, error) {
	rows, err := p.db.QueryxContext(ctx, `
		SELECT pk.snapshot FROM picks pk
		LEFT JOIN grades g ON g.pick_id = pk.pick_id
		WHERE g.pick_id IS NULL AND pk.start_time < $1
		ORDER BY pk.start_time`, startedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPicks(rows)
}

// PicksSince returns picks starting at or after the window opening.
func (p *Postgres) PicksSince(ctx context.Context, startedAfter time.Time) ([]pick.Pick, error) {
	rows, err := p.db.QueryxContext(ctx,
		`SELECT snapshot FROM picks WHERE start_time >= $1 ORDER BY start_time`, startedAfter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPicks(rows)
}

// AttachGrade inserts one grading result; conflicts are no-ops.
func (p *Postgres) AttachGrade(ctx context.Context, g pick.GradingResult) (bool, error) {
	result, err := json.Marshal(g)
	if err != nil {
		return false, &PersistenceError{PickID: g.PickID, Err: err}
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO grades (pick_id, graded_at, result)
		VALUES ($1, $2, $3)
		ON CONFLICT (pick_id) DO NOTHING`,
		g.PickID, g.GradedAt, result)
	if err != nil {
		return false, &PersistenceError{PickID: g.PickID, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &PersistenceError{PickID: g.PickID, Err: err}
	}
	return n > 0, nil
}

// Grades returns grading results recorded at or after since.
func (p *Postgres) Grades(ctx context.Context, since time.Time) ([]pick.GradingResult, error) {
	rows, err := p.db.QueryxContext(ctx,
		`SELECT result FROM grades WHERE graded_at >= $1 ORDER BY graded_at`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pick.GradingResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var g pick.GradingResult
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }

func scanPicks(rows *sqlx.Rows) ([]pick.Pick, error) {
	var out []pick.Pick
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var pk pick.Pick
		if err := json.Unmarshal(raw, &pk); err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
