// Package dwd retrieves historical daily climate observations from the
// Deutscher Wetterdienst (DWD) open-data file server: it resolves archive
// locations, downloads and extracts the zipped data tables, parses them into
// typed time series, and caches the results.
package dwd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/retrowetter/retrowetter/internal/types"
)

// stationFileColumns are the required columns of the station reference file.
var stationFileColumns = []string{
	"Stations_id", "von_datum", "bis_datum", "Stationshoehe",
	"geoBreite", "geoLaenge", "Stationsname", "Bundesland",
}

// StationIndex is the immutable lookup table of known stations, loaded once
// at startup and passed to the components that need it.
type StationIndex struct {
	byID    map[string]types.Station
	ordered []types.Station
}

// LoadStations reads the semicolon-delimited station reference file and
// builds the index. It fails with ErrDataLoad if the file is missing, the
// header lacks a required column, or a row has the wrong field count.
func LoadStations(path string) (*StationIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading station file %s: %v", ErrDataLoad, path, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	if len(lines) < 1 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("%w: station file %s is empty", ErrDataLoad, path)
	}

	col, err := headerIndex(lines[0], stationFileColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: station file %s: %v", ErrDataLoad, path, err)
	}
	fieldCount := len(strings.Split(lines[0], ";"))

	idx := &StationIndex{byID: make(map[string]types.Station)}
	for n, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ";")
		if len(fields) != fieldCount {
			return nil, fmt.Errorf("%w: station file %s line %d: got %d columns, want %d",
				ErrDataLoad, path, n+2, len(fields), fieldCount)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		st, err := parseStation(fields, col)
		if err != nil {
			return nil, fmt.Errorf("%w: station file %s line %d: %v", ErrDataLoad, path, n+2, err)
		}
		idx.byID[st.ID] = st
		idx.ordered = append(idx.ordered, st)
	}

	sort.Slice(idx.ordered, func(i, j int) bool { return idx.ordered[i].ID < idx.ordered[j].ID })
	return idx, nil
}

func parseStation(fields []string, col map[string]int) (types.Station, error) {
	id, err := NormalizeStationID(fields[col["Stations_id"]])
	if err != nil {
		return types.Station{}, err
	}

	from, err := time.Parse("20060102", fields[col["von_datum"]])
	if err != nil {
		return types.Station{}, fmt.Errorf("bad von_datum: %v", err)
	}
	to, err := time.Parse("20060102", fields[col["bis_datum"]])
	if err != nil {
		return types.Station{}, fmt.Errorf("bad bis_datum: %v", err)
	}

	elevation, err := strconv.ParseFloat(fields[col["Stationshoehe"]], 64)
	if err != nil {
		return types.Station{}, fmt.Errorf("bad Stationshoehe: %v", err)
	}
	lat, err := strconv.ParseFloat(fields[col["geoBreite"]], 64)
	if err != nil {
		return types.Station{}, fmt.Errorf("bad geoBreite: %v", err)
	}
	lon, err := strconv.ParseFloat(fields[col["geoLaenge"]], 64)
	if err != nil {
		return types.Station{}, fmt.Errorf("bad geoLaenge: %v", err)
	}

	return types.Station{
		ID:        id,
		Name:      fields[col["Stationsname"]],
		State:     fields[col["Bundesland"]],
		Latitude:  lat,
		Longitude: lon,
		Elevation: elevation,
		From:      from,
		To:        to,
	}, nil
}

// headerIndex maps the required column names to their positions in the
// semicolon-delimited header line.
func headerIndex(header string, required []string) (map[string]int, error) {
	col := make(map[string]int)
	for i, name := range strings.Split(header, ";") {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}

// NormalizeStationID pads numeric station codes to the five-digit form used
// by the DWD ("78" becomes "00078").
func NormalizeStationID(id string) (string, error) {
	id = strings.TrimSpace(id)
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid station id %q", id)
	}
	return fmt.Sprintf("%05d", n), nil
}

// Find returns the station with the given code, accepting unpadded numeric
// codes. It returns ErrNotFound for unknown stations.
func (idx *StationIndex) Find(id string) (types.Station, error) {
	norm, err := NormalizeStationID(id)
	if err != nil {
		return types.Station{}, fmt.Errorf("%w: station %q", ErrNotFound, id)
	}
	st, ok := idx.byID[norm]
	if !ok {
		return types.Station{}, fmt.Errorf("%w: station %q", ErrNotFound, id)
	}
	return st, nil
}

// List returns all known stations ordered by code.
func (idx *StationIndex) List() []types.Station {
	out := make([]types.Station, len(idx.ordered))
	copy(out, idx.ordered)
	return out
}
