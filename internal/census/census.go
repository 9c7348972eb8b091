// Package census reads 2010 census block geometry and SF1 attribute data
// and joins them into the AreaUnits the turf pipeline consumes.
package census

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/geometry"
)

// blockShape is one record from the TIGER2010 BLKPOPHU shapefile.
type blockShape struct {
	id      string // BLOCKID10
	housing int    // HOUSING10
	poly    orb.Polygon
}

// attributes is one row of SF1 race composition data keyed by GEOID10.
type attributes struct {
	population        int // P003001
	blackPopulation   int // P003003
	population18      int // P010001
	blackPopulation18 int // P010004
}

// LoadBlocks reads the block shapefile and attribute CSV and joins them by
// block id into AreaUnits. countyFIPS, when non-empty, filters a statewide
// shapefile down to one county. Blocks missing attribute rows load with
// zero counts (the percentage fields define 0/0 as 0).
func LoadBlocks(shpPath, attrPath, countyFIPS string) ([]block.AreaUnit, error) {
	shapes, err := readBlockShapes(shpPath, countyFIPS)
	if err != nil {
		return nil, err
	}
	attrs, err := readBlockAttributes(attrPath)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "census.loader"))

	units := make([]block.AreaUnit, 0, len(shapes))
	missing := 0
	for _, s := range shapes {
		a, ok := attrs[s.id]
		if !ok {
			missing++
		}
		units = append(units, block.New(
			s.id, s.poly,
			a.population, a.blackPopulation,
			a.population18, a.blackPopulation18,
			s.housing,
		))
	}

	if missing > 0 {
		log.Warn("blocks missing attribute rows", zap.Int("count", missing))
	}
	log.Info("census blocks loaded",
		zap.String("county_fips", countyFIPS),
		zap.Int("blocks", len(units)),
	)
	return units, nil
}

// readBlockShapes reads block geometries from a BLKPOPHU shapefile.
func readBlockShapes(path, countyFIPS string) ([]blockShape, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name -> index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) (int, bool) {
		i, ok := fieldIdx[name]
		return i, ok
	}
	idIdx, ok := attr("blockid10")
	if !ok {
		return nil, eris.Errorf("census: shapefile %s has no BLOCKID10 field", path)
	}
	countyIdx, hasCounty := attr("countyfp10")
	housingIdx, hasHousing := attr("housing10")

	var out []blockShape
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		if countyFIPS != "" && hasCounty {
			if cleanAttr(reader.Attribute(countyIdx)) != countyFIPS {
				continue
			}
		}

		poly := geometry.PolygonFromShape(shape)
		if poly == nil {
			skipped++
			continue
		}

		housing := 0
		if hasHousing {
			housing, _ = strconv.Atoi(cleanAttr(reader.Attribute(housingIdx)))
		}
		out = append(out, blockShape{
			id:      cleanAttr(reader.Attribute(idIdx)),
			housing: housing,
			poly:    poly,
		})
	}

	if skipped > 0 {
		zap.L().Debug("census: skipped malformed shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func cleanAttr(val string) string {
	return strings.TrimSpace(strings.TrimRight(val, "\x00"))
}

// readBlockAttributes reads the SF1 attribute CSV (GEOID10, P003001,
// P003003, P010001, P010004) into a lookup by block id.
func readBlockAttributes(path string) (map[string]attributes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open attributes %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "census: read attributes header")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"geoid10", "p003001", "p003003", "p010001", "p010004"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("census: attributes file missing column %s", required)
		}
	}

	num := func(rec []string, name string) int {
		i := idx[name]
		if i >= len(rec) {
			return 0
		}
		n, _ := strconv.Atoi(strings.TrimSpace(rec[i]))
		return n
	}

	out := make(map[string]attributes)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "census: read attributes row")
		}
		id := strings.TrimSpace(rec[idx["geoid10"]])
		if id == "" {
			continue
		}
		out[id] = attributes{
			population:        num(rec, "p003001"),
			blackPopulation:   num(rec, "p003003"),
			population18:      num(rec, "p010001"),
			blackPopulation18: num(rec, "p010004"),
		}
	}
	return out, nil
}
