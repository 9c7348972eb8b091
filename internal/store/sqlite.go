package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/johnpfay/WakeVoter/internal/turf"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	county      TEXT NOT NULL,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS turfs (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	random_id        INTEGER NOT NULL,
	org_type         TEXT NOT NULL,
	member_ids       TEXT NOT NULL,
	precinct         TEXT,
	city             TEXT,
	black_hh         INTEGER NOT NULL,
	population       INTEGER NOT NULL,
	black_population INTEGER NOT NULL,
	pct_black        REAL NOT NULL,
	registered_black INTEGER NOT NULL,
	area_sq_miles    REAL NOT NULL,
	mece1            INTEGER NOT NULL,
	mece2            INTEGER NOT NULL,
	mece3            INTEGER NOT NULL,
	mece4            INTEGER NOT NULL,
	mece5            INTEGER NOT NULL,
	geometry         TEXT NOT NULL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, county, stateFIPS, countyFIPS string, seed int64) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, county, state_fips, county_fips, seed, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, county, stateFIPS, countyFIPS, seed, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, county, state_fips, county_fips, seed, status, summary, created_at, updated_at
		 FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, county, state_fips, county_fips, seed, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var status string
	var summary sql.NullString
	if err := row.Scan(&r.ID, &r.County, &r.StateFIPS, &r.CountyFIPS, &r.Seed,
		&status, &summary, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(err, "sqlite: run not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = RunStatus(status)
	if summary.Valid && summary.String != "" {
		if err := json.Unmarshal([]byte(summary.String), &r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) SaveTurfs(ctx context.Context, runID string, turfs []turf.Turf) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save turfs")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turfs (run_id, random_id, org_type, member_ids, precinct, city,
			black_hh, population, black_population, pct_black, registered_black,
			area_sq_miles, mece1, mece2, mece3, mece4, mece5, geometry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert turf")
	}
	defer stmt.Close()

	for _, t := range turfs {
		memberJSON, err := json.Marshal(t.MemberIDs)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal member ids")
		}
		geomJSON, err := json.Marshal(geojson.NewGeometry(t.Geometry))
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal turf %d geometry", t.RandomID)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, t.RandomID, t.OrgType, string(memberJSON), t.Precinct, t.City,
			t.BlackHH, t.Population, t.BlackPopulation, t.PctBlack, t.RegisteredBlack,
			t.AreaSqMiles, t.Tally.MECE1, t.Tally.MECE2, t.Tally.MECE3, t.Tally.MECE4,
			t.Tally.MECE5, string(geomJSON),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert turf %d", t.RandomID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit turfs")
}

func (s *SQLiteStore) ListTurfs(ctx context.Context, runID string) ([]turf.Turf, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT random_id, org_type, member_ids, precinct, city, black_hh, population,
			black_population, pct_black, registered_black, area_sq_miles,
			mece1, mece2, mece3, mece4, mece5, geometry
		 FROM turfs WHERE run_id = ? ORDER BY random_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list turfs")
	}
	defer rows.Close()

	var turfs []turf.Turf
	for rows.Next() {
		var t turf.Turf
		var memberJSON, geomJSON string
		if err := rows.Scan(&t.RandomID, &t.OrgType, &memberJSON, &t.Precinct, &t.City,
			&t.BlackHH, &t.Population, &t.BlackPopulation, &t.PctBlack, &t.RegisteredBlack,
			&t.AreaSqMiles, &t.Tally.MECE1, &t.Tally.MECE2, &t.Tally.MECE3, &t.Tally.MECE4,
			&t.Tally.MECE5, &geomJSON,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan turf")
		}
		t.Tally.Total = t.Tally.MECE1 + t.Tally.MECE2 + t.Tally.MECE3 + t.Tally.MECE4 + t.Tally.MECE5
		if err := json.Unmarshal([]byte(memberJSON), &t.MemberIDs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal member ids")
		}
		geom, err := geojson.UnmarshalGeometry([]byte(geomJSON))
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal turf %d geometry", t.RandomID)
		}
		mp, ok := geom.Geometry().(orb.MultiPolygon)
		if !ok {
			return nil, eris.Errorf("sqlite: turf %d geometry is not a multipolygon", t.RandomID)
		}
		t.Geometry = mp
		turfs = append(turfs, t)
	}
	return turfs, eris.Wrap(rows.Err(), "sqlite: iterate turfs")
}

func (s *SQLiteStore) SaveAssignments(ctx context.Context, runID string, assignments []turf.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save assignments")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assignments (run_id, voter_id, random_id) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert assignment")
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, runID, a.VoterID, a.RandomID); err != nil {
			return eris.Wrapf(err, "sqlite: insert assignment %s", a.VoterID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit assignments")
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, runID string) ([]turf.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT voter_id, random_id FROM assignments WHERE run_id = ? ORDER BY random_id, voter_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer rows.Close()

	var out []turf.Assignment
	for rows.Next() {
		var a turf.Assignment
		if err := rows.Scan(&a.VoterID, &a.RandomID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate assignments")
}

func (s *SQLiteStore) SaveWarnings(ctx context.Context, runID string, warnings []turf.Warning) error {
	for _, w := range warnings {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO warnings (run_id, cluster_id, stage, message) VALUES (?, ?, ?, ?)`,
			runID, w.ClusterID, w.Stage, w.Message,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert warning")
		}
	}
	return nil
}

func (s *SQLiteStore) ListWarnings(ctx context.Context, runID string) ([]turf.Warning, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cluster_id, stage, message FROM warnings WHERE run_id = ? ORDER BY cluster_id, stage`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list warnings")
	}
	defer rows.Close()

	var out []turf.Warning
	for rows.Next() {
		var w turf.Warning
		if err := rows.Scan(&w.ClusterID, &w.Stage, &w.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan warning")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate warnings")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
