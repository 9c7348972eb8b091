package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnpfay/WakeVoter/internal/config"
	"github.com/johnpfay/WakeVoter/internal/store"
	"github.com/johnpfay/WakeVoter/internal/turf"
)

// writeBlockShapefile writes a shapefile with three unit-square blocks in
// a row, sharing edges, in the BLKPOPHU field layout.
func writeBlockShapefile(t *testing.T, path string) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("BLOCKID10", 15),
		shp.StringField("COUNTYFP10", 3),
		shp.NumberField("HOUSING10", 9),
	}))

	square := func(x float64) *shp.Polygon {
		pts := []shp.Point{{X: x, Y: 0}, {X: x + 1, Y: 0}, {X: x + 1, Y: 1}, {X: x, Y: 1}, {X: x, Y: 0}}
		return (*shp.Polygon)(shp.NewPolyLine([][]shp.Point{pts}))
	}

	blocks := []struct {
		id      string
		x       float64
		housing int
	}{
		{"371830501001000", 0, 60},
		{"371830501001001", 1, 30},
		{"371830501001002", 2, 30},
	}
	for _, b := range blocks {
		row := int(w.Write(square(b.x)))
		require.NoError(t, w.WriteAttribute(row, 0, b.id))
		require.NoError(t, w.WriteAttribute(row, 1, "183"))
		require.NoError(t, w.WriteAttribute(row, 2, b.housing))
	}
	w.Close()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()

	shpPath := filepath.Join(dir, "blocks.shp")
	writeBlockShapefile(t, shpPath)

	attrPath := filepath.Join(dir, "attrs.csv")
	writeFile(t, attrPath, `geoid10,p003001,p003003,p010001,p010004
371830501001000,100,100,80,80
371830501001001,50,50,40,40
371830501001002,50,50,40,40
`)

	addrPath := filepath.Join(dir, "addresses.tsv")
	writeFile(t, addrPath, "county\tst_address\tcity\tzip\tlongitude\tlatitude\n"+
		"WAKE\t12 OAK ST\tRALEIGH\t27601\t0.5\t0.5\n"+
		"WAKE\t9 ELM ST\tRALEIGH\t27601\t1.5\t0.5\n")

	histPath := filepath.Join(dir, "history.tsv")
	writeFile(t, histPath, "county_desc\telection_lbl\tncid\n"+
		"WAKE\t11/06/2018\tAA100\n")

	regPath := filepath.Join(dir, "registration.tsv")
	writeFile(t, regPath, "county_desc\tncid\tvoter_reg_num\tfirst_name\tlast_name\trace_code\tgender_code\tbirth_age\tres_street_address\tres_city_desc\tzip_code\tprecinct_abbrv\n"+
		"WAKE\tAA100\t1001\tADA\tBYRD\tB\tF\t44\t12 OAK ST\tRALEIGH\t27601\t01-02\n"+
		"WAKE\tAA101\t1002\tBEN\tCOLE\tB\tM\t51\t9 ELM ST\tRALEIGH\t27601\t01-03\n")

	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "turfs.db")},
		Census: config.CensusConfig{
			ShapefilePath:  shpPath,
			AttributesPath: attrPath,
			StateFIPS:      "37",
			CountyFIPS:     "183",
		},
		Voter: config.VoterConfig{
			RegistrationPath: regPath,
			AddressPath:      addrPath,
			HistoryPath:      histPath,
			County:           "WAKE",
		},
		Turf: config.TurfConfig{Seed: 1},
	}

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	res, err := New(cfg, st).Run(ctx)
	require.NoError(t, err)

	// One standalone block (60 BHH) plus one two-block aggregate (30+30).
	assert.Equal(t, 3, res.Summary.Blocks)
	assert.Equal(t, 3, res.Summary.EligibleBlocks)
	assert.Equal(t, 2, res.Summary.Turfs)
	assert.Equal(t, 1, res.Summary.Standalone)
	assert.Equal(t, 1, res.Summary.Aggregates)
	assert.Equal(t, 0, res.Summary.SplitAggregates)
	assert.Equal(t, 2, res.Summary.Voters)
	assert.Equal(t, 2, res.Summary.AssignedVoters)

	var orgTypes []string
	for _, tf := range res.Turfs {
		orgTypes = append(orgTypes, tf.OrgType)
	}
	assert.ElementsMatch(t, []string{turf.OrgTypeBlock, turf.OrgTypeAggregate}, orgTypes)

	// The run record and its rows round-trip through the store.
	run, err := st.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	assert.Equal(t, res.Summary, run.Summary)

	turfs, err := st.ListTurfs(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, turfs, 2)

	assignments, err := st.ListAssignments(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, assignments, 2)
}

func TestPipelineRunNoEligibleBlocks(t *testing.T) {
	dir := t.TempDir()

	shpPath := filepath.Join(dir, "blocks.shp")
	writeBlockShapefile(t, shpPath)

	// Every block is majority white, so nothing qualifies.
	attrPath := filepath.Join(dir, "attrs.csv")
	writeFile(t, attrPath, `geoid10,p003001,p003003,p010001,p010004
371830501001000,100,10,80,8
371830501001001,50,5,40,4
371830501001002,50,5,40,4
`)

	addrPath := filepath.Join(dir, "addresses.tsv")
	writeFile(t, addrPath, "county\tst_address\tcity\tzip\tlongitude\tlatitude\n")
	histPath := filepath.Join(dir, "history.tsv")
	writeFile(t, histPath, "county_desc\telection_lbl\tncid\n")
	regPath := filepath.Join(dir, "registration.tsv")
	writeFile(t, regPath, "county_desc\tncid\tvoter_reg_num\tfirst_name\tlast_name\trace_code\tgender_code\tbirth_age\tres_street_address\tres_city_desc\tzip_code\tprecinct_abbrv\n")

	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "turfs.db")},
		Census: config.CensusConfig{ShapefilePath: shpPath, AttributesPath: attrPath, StateFIPS: "37", CountyFIPS: "183"},
		Voter: config.VoterConfig{
			RegistrationPath: regPath,
			AddressPath:      addrPath,
			HistoryPath:      histPath,
			County:           "WAKE",
		},
	}

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = New(cfg, st).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEligibleBlocks)

	// The run is marked failed, not left dangling.
	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusFailed, runs[0].Status)
}
