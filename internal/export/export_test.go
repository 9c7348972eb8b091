package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/turf"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

func sampleTurfs() []turf.Turf {
	return []turf.Turf{
		{
			RandomID:  1,
			OrgType:   turf.OrgTypeBlock,
			MemberIDs: []string{"371830501001000"},
			Geometry: orb.MultiPolygon{
				{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
			},
			Precinct:        "01-02",
			City:            "Raleigh",
			BlackHH:         64,
			Population:      280,
			BlackPopulation: 220,
			PctBlack:        78.6,
			RegisteredBlack: 41,
			AreaSqMiles:     0.31,
			Tally:           block.MECETally{MECE1: 9, MECE2: 10, MECE3: 8, MECE4: 6, MECE5: 8, Total: 41},
		},
		{
			RandomID:  2,
			OrgType:   turf.OrgTypeAggregate,
			MemberIDs: []string{"371830501001001", "371830501001002"},
			Geometry: orb.MultiPolygon{
				{{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}},
			},
			Precinct: "01-03",
			City:     "Raleigh",
			BlackHH:  88,
		},
	}
}

func TestWriteTurfsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTurfsCSV(&buf, sampleTurfs()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 turfs

	header := records[0]
	assert.Equal(t, "random_id", header[0])
	assert.Contains(t, header, "black_hh")
	assert.Contains(t, header, "member_blocks")

	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, turf.OrgTypeBlock, records[1][1])
	assert.Equal(t, "371830501001001;371830501001002", records[2][len(header)-1])
}

func TestWriteAssignmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	assignments := []turf.Assignment{
		{VoterID: "AA100", RandomID: 1},
		{VoterID: "AA101", RandomID: 2},
	}
	require.NoError(t, WriteAssignmentsCSV(&buf, assignments))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"voter_id", "random_id"}, records[0])
	assert.Equal(t, []string{"AA100", "1"}, records[1])
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleTurfs()))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "MultiPolygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, turf.OrgTypeBlock, fc.Features[0].Properties["org_type"])
	assert.EqualValues(t, 88, fc.Features[1].Properties["black_hh"])
}

func TestWriteRosterXLSX(t *testing.T) {
	voters := []voter.Voter{
		{ID: "AA100", FirstName: "Ada", LastName: "Byrd", Address: "12 Oak St", City: "Raleigh", Zip: "27601", Precinct: "01-02", MECE: 2},
		{ID: "AA101", FirstName: "Ben", LastName: "Cole", Address: "9 Elm St", City: "Raleigh", Zip: "27601", Precinct: "01-03", MECE: 5},
	}
	assignments := []turf.Assignment{
		{VoterID: "AA100", RandomID: 1},
		{VoterID: "AA101", RandomID: 2},
		{VoterID: "missing", RandomID: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRosterXLSX(&buf, sampleTurfs(), assignments, voters))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	turfSheet, ok := f.Sheet["Turfs"]
	require.True(t, ok)
	require.Len(t, turfSheet.Rows, 3) // header + 2 turfs
	assert.Equal(t, "Raleigh", turfSheet.Rows[1].Cells[3].String())

	voterSheet, ok := f.Sheet["Voters"]
	require.True(t, ok)
	// Header + 2 voters; the assignment without roster data is skipped.
	require.Len(t, voterSheet.Rows, 3)
	assert.Equal(t, "Ada", voterSheet.Rows[1].Cells[2].String())
	assert.Equal(t, "01-03", voterSheet.Rows[2].Cells[7].String())
}
