package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/retrowetter/retrowetter/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSeries() types.TimeSeries {
	return types.TimeSeries{
		StationID: "00078",
		Observations: []types.Observation{
			{
				Date:          time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
				TempMean:      types.Float(22.4),
				TempMax:       types.Float(30.1),
				Precipitation: types.Float(0.0),
			},
			{
				Date:     time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC),
				TempMean: types.Float(23.0),
				// TempMax missing on this day
				Precipitation: types.Float(4.2),
			},
		},
	}
}

func TestSaveAndLoadSeries(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveSeries(sampleSeries()); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	loaded, ok, err := store.LoadSeries("00078")
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if !ok {
		t.Fatal("LoadSeries reported no series")
	}
	if len(loaded.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(loaded.Observations))
	}

	first := loaded.Observations[0]
	if !first.Date.Equal(time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", first.Date)
	}
	if first.TempMean == nil || *first.TempMean != 22.4 {
		t.Errorf("TempMean = %v, want 22.4", first.TempMean)
	}
	if first.Precipitation == nil || *first.Precipitation != 0.0 {
		t.Errorf("Precipitation = %v, want measured zero", first.Precipitation)
	}
	if first.SunshineHours != nil {
		t.Errorf("SunshineHours = %v, want nil", *first.SunshineHours)
	}

	second := loaded.Observations[1]
	if second.TempMax != nil {
		t.Errorf("TempMax = %v, want nil (missing measurement)", *second.TempMax)
	}
}

func TestLoadSeriesUnknownStation(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.LoadSeries("99999")
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if ok {
		t.Error("LoadSeries reported a series for an unknown station")
	}
}

func TestSaveSeriesReplaces(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveSeries(sampleSeries()); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	replacement := types.TimeSeries{
		StationID: "00078",
		Observations: []types.Observation{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TempMean: types.Float(1.5)},
		},
	}
	if err := store.SaveSeries(replacement); err != nil {
		t.Fatalf("SaveSeries (replace): %v", err)
	}

	loaded, _, err := store.LoadSeries("00078")
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(loaded.Observations) != 1 {
		t.Fatalf("got %d observations, want 1 after replace", len(loaded.Observations))
	}
	if loaded.Observations[0].Date.Year() != 2024 {
		t.Errorf("Date = %v, want replacement row", loaded.Observations[0].Date)
	}
}

func TestDeleteSeries(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveSeries(sampleSeries()); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	if err := store.DeleteSeries("00078"); err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}

	_, ok, err := store.LoadSeries("00078")
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if ok {
		t.Error("series still present after DeleteSeries")
	}
}

func TestCachedStations(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveSeries(sampleSeries()); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	other := types.TimeSeries{StationID: "00044"}
	if err := store.SaveSeries(other); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	ids, err := store.CachedStations()
	if err != nil {
		t.Fatalf("CachedStations: %v", err)
	}
	if len(ids) != 2 || ids[0] != "00044" || ids[1] != "00078" {
		t.Errorf("CachedStations = %v, want [00044 00078]", ids)
	}
}
