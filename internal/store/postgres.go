package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/johnpfay/WakeVoter/internal/db"
	"github.com/johnpfay/WakeVoter/internal/geometry"
	"github.com/johnpfay/WakeVoter/internal/turf"
)

// PostgresStore implements Store using pgxpool. Turf geometries are stored
// as EWKB so they can be rendered directly by PostGIS-aware tooling.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	county      TEXT NOT NULL,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	seed        BIGINT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS turfs (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	random_id        INTEGER NOT NULL,
	org_type         TEXT NOT NULL,
	member_ids       JSONB NOT NULL,
	precinct         TEXT,
	city             TEXT,
	black_hh         INTEGER NOT NULL,
	population       INTEGER NOT NULL,
	black_population INTEGER NOT NULL,
	pct_black        DOUBLE PRECISION NOT NULL,
	registered_black INTEGER NOT NULL,
	area_sq_miles    DOUBLE PRECISION NOT NULL,
	mece1            INTEGER NOT NULL,
	mece2            INTEGER NOT NULL,
	mece3            INTEGER NOT NULL,
	mece4            INTEGER NOT NULL,
	mece5            INTEGER NOT NULL,
	geometry         BYTEA NOT NULL,
	PRIMARY KEY (run_id, random_id)
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	voter_id  TEXT NOT NULL,
	random_id INTEGER NOT NULL,
	PRIMARY KEY (run_id, voter_id)
);

CREATE TABLE IF NOT EXISTS warnings (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	cluster_id TEXT NOT NULL,
	stage      TEXT NOT NULL,
	message    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_turfs_run_id ON turfs(run_id);
CREATE INDEX IF NOT EXISTS idx_assignments_run_id ON assignments(run_id);
CREATE INDEX IF NOT EXISTS idx_warnings_run_id ON warnings(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, county, stateFIPS, countyFIPS string, seed int64) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, county, state_fips, county_fips, seed, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, county, stateFIPS, countyFIPS, seed, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:         id,
		County:     county,
		StateFIPS:  stateFIPS,
		CountyFIPS: countyFIPS,
		Seed:       seed,
		Status:     RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(RunStatusComplete), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var status string
	var summaryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, county, state_fips, county_fips, seed, status, summary, created_at, updated_at
		 FROM runs WHERE id = $1`, runID,
	).Scan(&r.ID, &r.County, &r.StateFIPS, &r.CountyFIPS, &r.Seed,
		&status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	r.Status = RunStatus(status)
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, county, state_fips, county_fips, seed, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		var summaryJSON []byte
		if err := rows.Scan(&r.ID, &r.County, &r.StateFIPS, &r.CountyFIPS, &r.Seed,
			&status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		if len(summaryJSON) > 0 {
			if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveTurfs(ctx context.Context, runID string, turfs []turf.Turf) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save turfs")
	}
	defer tx.Rollback(ctx)

	for _, t := range turfs {
		memberJSON, err := json.Marshal(t.MemberIDs)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal member ids")
		}
		ewkb, err := geometry.EncodeEWKB(t.Geometry)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode turf %d geometry", t.RandomID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO turfs (run_id, random_id, org_type, member_ids, precinct, city,
				black_hh, population, black_population, pct_black, registered_black,
				area_sq_miles, mece1, mece2, mece3, mece4, mece5, geometry)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			runID, t.RandomID, t.OrgType, memberJSON, t.Precinct, t.City,
			t.BlackHH, t.Population, t.BlackPopulation, t.PctBlack, t.RegisteredBlack,
			t.AreaSqMiles, t.Tally.MECE1, t.Tally.MECE2, t.Tally.MECE3, t.Tally.MECE4,
			t.Tally.MECE5, ewkb,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert turf %d", t.RandomID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit turfs")
}

func (s *PostgresStore) ListTurfs(ctx context.Context, runID string) ([]turf.Turf, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT random_id, org_type, member_ids, precinct, city, black_hh, population,
			black_population, pct_black, registered_black, area_sq_miles,
			mece1, mece2, mece3, mece4, mece5, geometry
		 FROM turfs WHERE run_id = $1 ORDER BY random_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list turfs")
	}
	defer rows.Close()

	var turfs []turf.Turf
	for rows.Next() {
		var t turf.Turf
		var memberJSON, ewkb []byte
		if err := rows.Scan(&t.RandomID, &t.OrgType, &memberJSON, &t.Precinct, &t.City,
			&t.BlackHH, &t.Population, &t.BlackPopulation, &t.PctBlack, &t.RegisteredBlack,
			&t.AreaSqMiles, &t.Tally.MECE1, &t.Tally.MECE2, &t.Tally.MECE3, &t.Tally.MECE4,
			&t.Tally.MECE5, &ewkb,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan turf")
		}
		t.Tally.Total = t.Tally.MECE1 + t.Tally.MECE2 + t.Tally.MECE3 + t.Tally.MECE4 + t.Tally.MECE5
		if err := json.Unmarshal(memberJSON, &t.MemberIDs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal member ids")
		}
		mp, err := geometry.DecodeEWKB(ewkb)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode turf %d geometry", t.RandomID)
		}
		t.Geometry = mp
		turfs = append(turfs, t)
	}
	return turfs, eris.Wrap(rows.Err(), "postgres: list turfs iterate")
}

func (s *PostgresStore) SaveAssignments(ctx context.Context, runID string, assignments []turf.Assignment) error {
	rows := make([][]any, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []any{runID, a.VoterID, a.RandomID})
	}
	_, err := db.CopyFrom(ctx, s.pool, "assignments", []string{"run_id", "voter_id", "random_id"}, rows)
	return eris.Wrap(err, "postgres: copy assignments")
}

func (s *PostgresStore) ListAssignments(ctx context.Context, runID string) ([]turf.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT voter_id, random_id FROM assignments WHERE run_id = $1 ORDER BY random_id, voter_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assignments")
	}
	defer rows.Close()

	var out []turf.Assignment
	for rows.Next() {
		var a turf.Assignment
		if err := rows.Scan(&a.VoterID, &a.RandomID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assignments iterate")
}

func (s *PostgresStore) SaveWarnings(ctx context.Context, runID string, warnings []turf.Warning) error {
	for _, w := range warnings {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO warnings (run_id, cluster_id, stage, message) VALUES ($1, $2, $3, $4)`,
			runID, w.ClusterID, w.Stage, w.Message,
		); err != nil {
			return eris.Wrap(err, "postgres: insert warning")
		}
	}
	return nil
}

func (s *PostgresStore) ListWarnings(ctx context.Context, runID string) ([]turf.Warning, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cluster_id, stage, message FROM warnings WHERE run_id = $1 ORDER BY cluster_id, stage`, runID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: list warnings")
	}
	defer rows.Close()

	var out []turf.Warning
	for rows.Next() {
		var w turf.Warning
		if err := rows.Scan(&w.ClusterID, &w.Stage, &w.Message); err != nil {
			return nil, eris.Wrap(err, "postgres: scan warning")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list warnings iterate")
}
