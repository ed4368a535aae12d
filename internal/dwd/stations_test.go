package dwd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const stationsFixture = `Stations_id;von_datum;bis_datum;Stationshoehe;geoBreite;geoLaenge;Stationsname;Bundesland
00078;19690101;20241231;64;53.0450;8.7987;Bremen;Bremen
00044;19710301;20241231;44;52.9336;8.2370;Grossenkneten;Niedersachsen
01975;19360101;20241231;11;53.6332;9.9881;Hamburg-Fuhlsbuettel;Hamburg
`

func writeStationsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing stations fixture: %v", err)
	}
	return path
}

func loadTestIndex(t *testing.T) *StationIndex {
	t.Helper()
	idx, err := LoadStations(writeStationsFile(t, stationsFixture))
	if err != nil {
		t.Fatalf("LoadStations: %v", err)
	}
	return idx
}

func TestLoadStations(t *testing.T) {
	idx := loadTestIndex(t)

	stations := idx.List()
	if len(stations) != 3 {
		t.Fatalf("List() returned %d stations, want 3", len(stations))
	}

	// List is ordered by code.
	if stations[0].ID != "00044" || stations[2].ID != "01975" {
		t.Errorf("unexpected ordering: %s ... %s", stations[0].ID, stations[2].ID)
	}

	bremen, err := idx.Find("00078")
	if err != nil {
		t.Fatalf("Find(00078): %v", err)
	}
	if bremen.Name != "Bremen" {
		t.Errorf("Name = %q, want Bremen", bremen.Name)
	}
	if bremen.Latitude != 53.0450 || bremen.Longitude != 8.7987 {
		t.Errorf("coordinates = %v,%v", bremen.Latitude, bremen.Longitude)
	}
	if bremen.Elevation != 64 {
		t.Errorf("Elevation = %v, want 64", bremen.Elevation)
	}
	if bremen.From.Year() != 1969 || bremen.To.Year() != 2024 {
		t.Errorf("record range = %v..%v", bremen.From, bremen.To)
	}
}

func TestFindAcceptsUnpaddedCodes(t *testing.T) {
	idx := loadTestIndex(t)

	st, err := idx.Find("78")
	if err != nil {
		t.Fatalf("Find(78): %v", err)
	}
	if st.ID != "00078" {
		t.Errorf("ID = %q, want 00078", st.ID)
	}
}

func TestFindUnknownStation(t *testing.T) {
	idx := loadTestIndex(t)

	for _, id := range []string{"99999", "nonsense", ""} {
		if _, err := idx.Find(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func TestLoadStationsErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{
			name: "wrong column count",
			contents: "Stations_id;von_datum;bis_datum;Stationshoehe;geoBreite;geoLaenge;Stationsname;Bundesland\n" +
				"00078;19690101;20241231;64;53.0450\n",
		},
		{
			name:     "missing required column",
			contents: "Stations_id;von_datum;bis_datum\n00078;19690101;20241231\n",
		},
		{
			name: "non-numeric coordinate",
			contents: "Stations_id;von_datum;bis_datum;Stationshoehe;geoBreite;geoLaenge;Stationsname;Bundesland\n" +
				"00078;19690101;20241231;64;north;8.7987;Bremen;Bremen\n",
		},
		{
			name:     "empty file",
			contents: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadStations(writeStationsFile(t, tt.contents))
			if !errors.Is(err, ErrDataLoad) {
				t.Errorf("LoadStations = %v, want ErrDataLoad", err)
			}
		})
	}
}

func TestLoadStationsMissingFile(t *testing.T) {
	if _, err := LoadStations("/nonexistent/stations.txt"); !errors.Is(err, ErrDataLoad) {
		t.Errorf("LoadStations = %v, want ErrDataLoad", err)
	}
}
