// Package export writes assembled turfs and voter assignments to the file
// formats field coordinators actually open: CSV, XLSX, and GeoJSON.
package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/johnpfay/WakeVoter/internal/turf"
)

// turfRow is the flattened CSV projection of a turf.
type turfRow struct {
	RandomID        int     `csv:"random_id"`
	OrgType         string  `csv:"org_type"`
	Precinct        string  `csv:"precinct"`
	City            string  `csv:"city"`
	BlackHH         int     `csv:"black_hh"`
	Population      int     `csv:"population"`
	BlackPopulation int     `csv:"black_population"`
	PctBlack        float64 `csv:"pct_black"`
	RegisteredBlack int     `csv:"registered_black"`
	AreaSqMiles     float64 `csv:"area_sq_miles"`
	MECE1           int     `csv:"mece1"`
	MECE2           int     `csv:"mece2"`
	MECE3           int     `csv:"mece3"`
	MECE4           int     `csv:"mece4"`
	MECE5           int     `csv:"mece5"`
	MemberBlocks    string  `csv:"member_blocks"`
}

type assignmentRow struct {
	VoterID  string `csv:"voter_id"`
	RandomID int    `csv:"random_id"`
}

// WriteTurfsCSV writes one row per turf, ordered as given. Member block ids
// are joined with a semicolon so the column survives spreadsheet imports.
func WriteTurfsCSV(w io.Writer, turfs []turf.Turf) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	for _, t := range turfs {
		row := turfRow{
			RandomID:        t.RandomID,
			OrgType:         t.OrgType,
			Precinct:        t.Precinct,
			City:            t.City,
			BlackHH:         t.BlackHH,
			Population:      t.Population,
			BlackPopulation: t.BlackPopulation,
			PctBlack:        t.PctBlack,
			RegisteredBlack: t.RegisteredBlack,
			AreaSqMiles:     t.AreaSqMiles,
			MECE1:           t.Tally.MECE1,
			MECE2:           t.Tally.MECE2,
			MECE3:           t.Tally.MECE3,
			MECE4:           t.Tally.MECE4,
			MECE5:           t.Tally.MECE5,
			MemberBlocks:    strings.Join(t.MemberIDs, ";"),
		}
		if err := enc.Encode(row); err != nil {
			return eris.Wrapf(err, "export: encode turf %d", t.RandomID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush turfs csv")
}

// WriteAssignmentsCSV writes the voter-to-turf assignment table.
func WriteAssignmentsCSV(w io.Writer, assignments []turf.Assignment) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	for _, a := range assignments {
		if err := enc.Encode(assignmentRow{VoterID: a.VoterID, RandomID: a.RandomID}); err != nil {
			return eris.Wrapf(err, "export: encode assignment %s", a.VoterID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush assignments csv")
}
