// Package storage persists fetched time series in a local SQLite database so
// the series cache survives process restarts.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/retrowetter/retrowetter/internal/types"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS series (
	station_id TEXT PRIMARY KEY,
	fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS observations (
	station_id      TEXT NOT NULL,
	date            TEXT NOT NULL,
	temp_mean       REAL,
	temp_min        REAL,
	temp_max        REAL,
	temp_ground_min REAL,
	precipitation   REAL,
	precip_form     REAL,
	sunshine_hours  REAL,
	snow_depth      REAL,
	cloud_cover     REAL,
	vapor_pressure  REAL,
	pressure        REAL,
	humidity        REAL,
	wind_speed      REAL,
	wind_gust_max   REAL,
	PRIMARY KEY (station_id, date)
);
`

const dateLayout = "2006-01-02"

// Store is the SQLite-backed series store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSeries transactionally replaces the persisted series for the station.
func (s *Store) SaveSeries(ts types.TimeSeries) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM observations WHERE station_id = ?`, ts.StationID); err != nil {
		return fmt.Errorf("clearing observations for %s: %w", ts.StationID, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO series (station_id, fetched_at) VALUES (?, ?)
		 ON CONFLICT (station_id) DO UPDATE SET fetched_at = excluded.fetched_at`,
		ts.StationID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording series for %s: %w", ts.StationID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO observations (
		station_id, date, temp_mean, temp_min, temp_max, temp_ground_min,
		precipitation, precip_form, sunshine_hours, snow_depth, cloud_cover,
		vapor_pressure, pressure, humidity, wind_speed, wind_gust_max
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, obs := range ts.Observations {
		_, err := stmt.Exec(
			ts.StationID, obs.Date.UTC().Format(dateLayout),
			nullable(obs.TempMean), nullable(obs.TempMin), nullable(obs.TempMax),
			nullable(obs.TempGroundMin), nullable(obs.Precipitation),
			nullable(obs.PrecipForm), nullable(obs.SunshineHours),
			nullable(obs.SnowDepth), nullable(obs.CloudCover),
			nullable(obs.VaporPressure), nullable(obs.Pressure),
			nullable(obs.Humidity), nullable(obs.WindSpeed),
			nullable(obs.WindGustMax),
		)
		if err != nil {
			return fmt.Errorf("inserting observation %s/%s: %w",
				ts.StationID, obs.Date.Format(dateLayout), err)
		}
	}

	return tx.Commit()
}

// LoadSeries returns the persisted series for a station, reporting false when
// none has been stored.
func (s *Store) LoadSeries(stationID string) (types.TimeSeries, bool, error) {
	var fetchedAt string
	err := s.db.QueryRow(`SELECT fetched_at FROM series WHERE station_id = ?`, stationID).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return types.TimeSeries{}, false, nil
	}
	if err != nil {
		return types.TimeSeries{}, false, fmt.Errorf("looking up series %s: %w", stationID, err)
	}

	rows, err := s.db.Query(`SELECT
		date, temp_mean, temp_min, temp_max, temp_ground_min, precipitation,
		precip_form, sunshine_hours, snow_depth, cloud_cover, vapor_pressure,
		pressure, humidity, wind_speed, wind_gust_max
	FROM observations WHERE station_id = ? ORDER BY date ASC`, stationID)
	if err != nil {
		return types.TimeSeries{}, false, fmt.Errorf("querying observations for %s: %w", stationID, err)
	}
	defer rows.Close()

	ts := types.TimeSeries{StationID: stationID}
	for rows.Next() {
		var date string
		var tempMean, tempMin, tempMax, tempGroundMin, precipitation,
			precipForm, sunshineHours, snowDepth, cloudCover, vaporPressure,
			pressure, humidity, windSpeed, windGustMax sql.NullFloat64

		if err := rows.Scan(&date, &tempMean, &tempMin, &tempMax, &tempGroundMin,
			&precipitation, &precipForm, &sunshineHours, &snowDepth, &cloudCover,
			&vaporPressure, &pressure, &humidity, &windSpeed, &windGustMax); err != nil {
			return types.TimeSeries{}, false, fmt.Errorf("scanning observation for %s: %w", stationID, err)
		}

		day, err := time.Parse(dateLayout, date)
		if err != nil {
			return types.TimeSeries{}, false, fmt.Errorf("bad stored date %q for %s: %w", date, stationID, err)
		}

		ts.Observations = append(ts.Observations, types.Observation{
			Date:          day,
			TempMean:      pointer(tempMean),
			TempMin:       pointer(tempMin),
			TempMax:       pointer(tempMax),
			TempGroundMin: pointer(tempGroundMin),
			Precipitation: pointer(precipitation),
			PrecipForm:    pointer(precipForm),
			SunshineHours: pointer(sunshineHours),
			SnowDepth:     pointer(snowDepth),
			CloudCover:    pointer(cloudCover),
			VaporPressure: pointer(vaporPressure),
			Pressure:      pointer(pressure),
			Humidity:      pointer(humidity),
			WindSpeed:     pointer(windSpeed),
			WindGustMax:   pointer(windGustMax),
		})
	}
	if err := rows.Err(); err != nil {
		return types.TimeSeries{}, false, fmt.Errorf("iterating observations for %s: %w", stationID, err)
	}

	return ts, true, nil
}

// DeleteSeries removes a station's persisted series.
func (s *Store) DeleteSeries(stationID string) error {
	if _, err := s.db.Exec(`DELETE FROM observations WHERE station_id = ?`, stationID); err != nil {
		return fmt.Errorf("deleting observations for %s: %w", stationID, err)
	}
	if _, err := s.db.Exec(`DELETE FROM series WHERE station_id = ?`, stationID); err != nil {
		return fmt.Errorf("deleting series for %s: %w", stationID, err)
	}
	return nil
}

// CachedStations lists the station IDs with a persisted series.
func (s *Store) CachedStations() ([]string, error) {
	rows, err := s.db.Query(`SELECT station_id FROM series ORDER BY station_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing persisted series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func pointer(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
