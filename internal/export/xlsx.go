package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/johnpfay/WakeVoter/internal/turf"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

// WriteRosterXLSX writes the coordinator workbook: a Turfs summary sheet
// and a Voters sheet listing every assigned voter under their turf id.
// Voters the assignment table references but the roster lacks are skipped.
func WriteRosterXLSX(w io.Writer, turfs []turf.Turf, assignments []turf.Assignment, voters []voter.Voter) error {
	f := xlsx.NewFile()

	if err := writeTurfSheet(f, turfs); err != nil {
		return err
	}
	if err := writeVoterSheet(f, assignments, voters); err != nil {
		return err
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func writeTurfSheet(f *xlsx.File, turfs []turf.Turf) error {
	sheet, err := f.AddSheet("Turfs")
	if err != nil {
		return eris.Wrap(err, "export: add turfs sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Turf ID", "Type", "Precinct", "City", "Black HH", "Population",
		"Black Population", "% Black", "Registered Black", "Area (sq mi)", "Blocks",
	} {
		header.AddCell().SetString(h)
	}

	for _, t := range turfs {
		row := sheet.AddRow()
		row.AddCell().SetInt(t.RandomID)
		row.AddCell().SetString(t.OrgType)
		row.AddCell().SetString(t.Precinct)
		row.AddCell().SetString(t.City)
		row.AddCell().SetInt(t.BlackHH)
		row.AddCell().SetInt(t.Population)
		row.AddCell().SetInt(t.BlackPopulation)
		row.AddCell().SetFloatWithFormat(t.PctBlack, "0.0")
		row.AddCell().SetInt(t.RegisteredBlack)
		row.AddCell().SetFloatWithFormat(t.AreaSqMiles, "0.00")
		row.AddCell().SetString(strings.Join(t.MemberIDs, ";"))
	}
	return nil
}

func writeVoterSheet(f *xlsx.File, assignments []turf.Assignment, voters []voter.Voter) error {
	sheet, err := f.AddSheet("Voters")
	if err != nil {
		return eris.Wrap(err, "export: add voters sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Turf ID", "Voter ID", "First Name", "Last Name", "Address", "City",
		"Zip", "Precinct", "MECE",
	} {
		header.AddCell().SetString(h)
	}

	byID := make(map[string]voter.Voter, len(voters))
	for _, v := range voters {
		byID[v.ID] = v
	}

	for _, a := range assignments {
		v, ok := byID[a.VoterID]
		if !ok {
			continue
		}
		row := sheet.AddRow()
		row.AddCell().SetInt(a.RandomID)
		row.AddCell().SetString(v.ID)
		row.AddCell().SetString(v.FirstName)
		row.AddCell().SetString(v.LastName)
		row.AddCell().SetString(v.Address)
		row.AddCell().SetString(v.City)
		row.AddCell().SetString(v.Zip)
		row.AddCell().SetString(v.Precinct)
		row.AddCell().SetString(strconv.Itoa(v.MECE))
	}
	return nil
}
