package export

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/johnpfay/WakeVoter/internal/turf"
)

// FeatureCollection builds a GeoJSON feature collection with one feature
// per turf. Properties mirror the CSV columns so mapping tools can style
// and label turfs without a join.
func FeatureCollection(turfs []turf.Turf) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range turfs {
		f := geojson.NewFeature(t.Geometry)
		f.ID = t.RandomID
		f.Properties = geojson.Properties{
			"random_id":        t.RandomID,
			"org_type":         t.OrgType,
			"precinct":         t.Precinct,
			"city":             t.City,
			"black_hh":         t.BlackHH,
			"population":       t.Population,
			"black_population": t.BlackPopulation,
			"pct_black":        t.PctBlack,
			"registered_black": t.RegisteredBlack,
			"area_sq_miles":    t.AreaSqMiles,
			"member_blocks":    t.MemberIDs,
			"mece1":            t.Tally.MECE1,
			"mece2":            t.Tally.MECE2,
			"mece3":            t.Tally.MECE3,
			"mece4":            t.Tally.MECE4,
			"mece5":            t.Tally.MECE5,
		}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes the turf feature collection to w.
func WriteGeoJSON(w io.Writer, turfs []turf.Turf) error {
	data, err := json.Marshal(FeatureCollection(turfs))
	if err != nil {
		return eris.Wrap(err, "export: marshal feature collection")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
