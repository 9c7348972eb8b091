package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/turf"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "turfs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testTurf(randomID int) turf.Turf {
	return turf.Turf{
		RandomID:  randomID,
		OrgType:   turf.OrgTypeAggregate,
		MemberIDs: []string{"371830501001000", "371830501001001"},
		Geometry: orb.MultiPolygon{
			{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		},
		Precinct:        "01-02",
		City:            "Raleigh",
		BlackHH:         72,
		Population:      310,
		BlackPopulation: 240,
		PctBlack:        77.4,
		RegisteredBlack: 55,
		AreaSqMiles:     0.42,
		Tally:           block.MECETally{MECE1: 10, MECE2: 15, MECE3: 12, MECE4: 8, MECE5: 10, Total: 55},
	}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "WAKE", "37", "183", 42)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Equal(t, int64(42), run.Seed)

	summary := RunSummary{Blocks: 1200, EligibleBlocks: 340, Turfs: 58, Voters: 90000, AssignedVoters: 21000}
	require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	assert.Equal(t, "WAKE", got.County)
	assert.Equal(t, summary, got.Summary)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSQLiteFailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "WAKE", "37", "183", 1)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)

	err = s.FailRun(ctx, "missing-run")
	assert.Error(t, err)
}

func TestSQLiteTurfRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "WAKE", "37", "183", 7)
	require.NoError(t, err)

	turfs := []turf.Turf{testTurf(2), testTurf(1)}
	require.NoError(t, s.SaveTurfs(ctx, run.ID, turfs))

	got, err := s.ListTurfs(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Listed in random-id order regardless of insert order.
	assert.Equal(t, 1, got[0].RandomID)
	assert.Equal(t, 2, got[1].RandomID)

	want := testTurf(1)
	assert.Equal(t, want.MemberIDs, got[0].MemberIDs)
	assert.Equal(t, want.Geometry, got[0].Geometry)
	assert.Equal(t, want.Precinct, got[0].Precinct)
	assert.Equal(t, want.BlackHH, got[0].BlackHH)
	assert.Equal(t, want.Tally, got[0].Tally)
	assert.InDelta(t, want.AreaSqMiles, got[0].AreaSqMiles, 1e-9)
}

func TestSQLiteAssignmentsAndWarnings(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "WAKE", "37", "183", 7)
	require.NoError(t, err)

	assignments := []turf.Assignment{
		{VoterID: "AA100", RandomID: 2},
		{VoterID: "AA101", RandomID: 1},
	}
	require.NoError(t, s.SaveAssignments(ctx, run.ID, assignments))

	gotAssign, err := s.ListAssignments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, gotAssign, 2)
	assert.Equal(t, "AA101", gotAssign[0].VoterID)

	warnings := []turf.Warning{
		{ClusterID: "371830501001000", Stage: "split", Message: "growth capped before reaching target"},
	}
	require.NoError(t, s.SaveWarnings(ctx, run.ID, warnings))

	gotWarn, err := s.ListWarnings(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, gotWarn, 1)
	assert.Equal(t, "split", gotWarn[0].Stage)
}

func TestSQLiteEmptyLists(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "WAKE", "37", "183", 7)
	require.NoError(t, err)

	turfs, err := s.ListTurfs(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, turfs)

	assignments, err := s.ListAssignments(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}
