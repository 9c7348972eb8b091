package voter

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// LoadOptions configures voter ingest from NC SBE-format files.
type LoadOptions struct {
	RegistrationPath string // tab-separated statewide registration file
	AddressPath      string // tab- or comma-separated geocoded address points
	HistoryPath      string // tab-separated voting history file
	County           string // county name, matched case-insensitively
	Elections        map[string]int
}

// Load reads registration records for a county, joins geocoded coordinates
// from the address file on (street, city, zip), attaches MECE scores from
// the history file, and drops records that cannot be geocoded.
func Load(opts LoadOptions) ([]Voter, error) {
	if opts.Elections == nil {
		opts.Elections = DefaultElections
	}
	county := strings.ToUpper(strings.TrimSpace(opts.County))

	log := zap.L().With(
		zap.String("component", "voter.loader"),
		zap.String("county", county),
	)

	addrs, err := loadAddresses(opts.AddressPath, county)
	if err != nil {
		return nil, err
	}
	log.Info("address points loaded", zap.Int("count", len(addrs)))

	scores, err := loadHistory(opts.HistoryPath, county, opts.Elections)
	if err != nil {
		return nil, err
	}
	log.Info("history scored", zap.Int("voters", len(scores)))

	voters, dropped, err := loadRegistrations(opts.RegistrationPath, county, addrs, scores)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		log.Warn("registration rows dropped without coordinates", zap.Int("count", dropped))
	}
	log.Info("voters loaded", zap.Int("count", len(voters)))

	return voters, nil
}

type addrKey struct {
	street, city, zip string
}

// normalizeStreet collapses runs of whitespace to single spaces and
// upper-cases, matching how the address file writes street strings.
func normalizeStreet(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func newAddrKey(street, city, zip string) addrKey {
	return addrKey{
		street: normalizeStreet(street),
		city:   strings.ToUpper(strings.TrimSpace(city)),
		zip:    strings.TrimSpace(zip),
	}
}

// delimited opens a CSV/TSV file and returns a reader plus the header
// index map (lower-cased column name to position).
func delimited(path string, comma rune) (*os.File, *csv.Reader, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, eris.Wrapf(err, "voter: open %s", path)
	}
	r := csv.NewReader(f)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, eris.Wrapf(err, "voter: read header of %s", path)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return f, r, idx, nil
}

func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func loadAddresses(path, county string) (map[addrKey]orb.Point, error) {
	f, r, idx, err := delimited(path, '\t')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[addrKey]orb.Point)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "voter: read address row")
		}
		if c := strings.ToUpper(field(rec, idx, "county")); c != "" && c != county {
			continue
		}
		lon, errLon := strconv.ParseFloat(field(rec, idx, "longitude"), 64)
		lat, errLat := strconv.ParseFloat(field(rec, idx, "latitude"), 64)
		if errLon != nil || errLat != nil {
			continue
		}
		key := newAddrKey(field(rec, idx, "st_address"), field(rec, idx, "city"), field(rec, idx, "zip"))
		out[key] = orb.Point{lon, lat}
	}
	return out, nil
}

func loadHistory(path, county string, elections map[string]int) (map[string]int, error) {
	f, r, idx, err := delimited(path, '\t')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	best := make(map[string]int)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "voter: read history row")
		}
		if strings.ToUpper(field(rec, idx, "county_desc")) != county {
			continue
		}
		score, ok := elections[field(rec, idx, "election_lbl")]
		if !ok {
			continue
		}
		ncid := field(rec, idx, "ncid")
		if ncid == "" {
			continue
		}
		if cur, seen := best[ncid]; !seen || score < cur {
			best[ncid] = score
		}
	}
	return best, nil
}

func loadRegistrations(path, county string, addrs map[addrKey]orb.Point, scores map[string]int) ([]Voter, int, error) {
	f, r, idx, err := delimited(path, '\t')
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var voters []Voter
	dropped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrap(err, "voter: read registration row")
		}
		if strings.ToUpper(field(rec, idx, "county_desc")) != county {
			continue
		}

		street := field(rec, idx, "res_street_address")
		city := field(rec, idx, "res_city_desc")
		zip := field(rec, idx, "zip_code")
		if street == "" || city == "" || zip == "" {
			dropped++
			continue
		}
		pt, ok := addrs[newAddrKey(street, city, zip)]
		if !ok {
			dropped++
			continue
		}

		ncid := field(rec, idx, "ncid")
		score, scored := scores[ncid]
		if !scored {
			score = MECEMax // no qualifying history
		}

		age, _ := strconv.Atoi(field(rec, idx, "birth_age"))
		voters = append(voters, Voter{
			ID:        ncid,
			RegNum:    field(rec, idx, "voter_reg_num"),
			FirstName: titleCaser.String(strings.ToLower(field(rec, idx, "first_name"))),
			LastName:  titleCaser.String(strings.ToLower(field(rec, idx, "last_name"))),
			Race:      field(rec, idx, "race_code"),
			Gender:    field(rec, idx, "gender_code"),
			Age:       age,
			Address:   normalizeStreet(street),
			City:      titleCaser.String(strings.ToLower(city)),
			Zip:       zip,
			Precinct:  field(rec, idx, "precinct_abbrv"),
			Point:     pt,
			MECE:      score,
		})
	}
	return voters, dropped, nil
}
