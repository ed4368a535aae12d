package dwd

import (
	"bufio"
	"io"
	"regexp"
)

// archiveNamePattern matches the historical daily climate archives in the
// DWD directory listing, e.g. tageswerte_KL_00078_19690101_20241231_hist.zip.
var archiveNamePattern = regexp.MustCompile(`tageswerte_KL_(\d{5})_(\d{8})_(\d{8})_hist\.zip`)

// archiveRef locates one remote archive for a station.
type archiveRef struct {
	StationID string
	StartDate string
	EndDate   string
	URL       string
}

// parseCatalog scans the directory listing page for historical archive names
// and returns one archiveRef per station, keyed by station ID. When a station
// appears more than once, the archive with the latest end date wins.
func parseCatalog(r io.Reader, baseURL string) (map[string]archiveRef, error) {
	catalog := make(map[string]archiveRef)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, m := range archiveNamePattern.FindAllStringSubmatch(scanner.Text(), -1) {
			ref := archiveRef{
				StationID: m[1],
				StartDate: m[2],
				EndDate:   m[3],
				URL:       baseURL + m[0],
			}
			if prev, ok := catalog[ref.StationID]; !ok || ref.EndDate > prev.EndDate {
				catalog[ref.StationID] = ref
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return catalog, nil
}
