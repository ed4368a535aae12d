package dwd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/retrowetter/retrowetter/internal/types"
	"go.uber.org/zap"
)

// missingValue is the sentinel the DWD writes for measurements that were not
// taken. It maps to nil, never to zero.
const missingValue = -999.0

const dateLayout = "20060102"

// measurementColumns maps product table column names to Observation fields.
var measurementColumns = map[string]func(*types.Observation, *float64){
	"TMK":     func(o *types.Observation, v *float64) { o.TempMean = v },
	"TNK":     func(o *types.Observation, v *float64) { o.TempMin = v },
	"TXK":     func(o *types.Observation, v *float64) { o.TempMax = v },
	"TGK":     func(o *types.Observation, v *float64) { o.TempGroundMin = v },
	"RSK":     func(o *types.Observation, v *float64) { o.Precipitation = v },
	"RSKF":    func(o *types.Observation, v *float64) { o.PrecipForm = v },
	"SDK":     func(o *types.Observation, v *float64) { o.SunshineHours = v },
	"SHK_TAG": func(o *types.Observation, v *float64) { o.SnowDepth = v },
	"NM":      func(o *types.Observation, v *float64) { o.CloudCover = v },
	"VPM":     func(o *types.Observation, v *float64) { o.VaporPressure = v },
	"PM":      func(o *types.Observation, v *float64) { o.Pressure = v },
	"UPM":     func(o *types.Observation, v *float64) { o.Humidity = v },
	"FM":      func(o *types.Observation, v *float64) { o.WindSpeed = v },
	"FX":      func(o *types.Observation, v *float64) { o.WindGustMax = v },
}

// parseObservations reads the semicolon-delimited product table and returns
// the parsed observations plus the number of rows skipped as unparseable.
// A malformed row is a recoverable condition: it is logged and skipped, and
// parsing continues with the remaining rows. A table without the MESS_DATUM
// column is ErrFormat.
func parseObservations(r io.Reader, logger *zap.SugaredLogger) ([]types.Observation, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("%w: reading table header: %v", ErrFormat, err)
		}
		return nil, 0, fmt.Errorf("%w: data table is empty", ErrFormat)
	}

	header := strings.Split(scanner.Text(), ";")
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	dateCol, ok := col["MESS_DATUM"]
	if !ok {
		return nil, 0, fmt.Errorf("%w: data table has no MESS_DATUM column", ErrFormat)
	}

	var observations []types.Observation
	skipped := 0
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		obs, err := parseRow(line, len(header), dateCol, col)
		if err != nil {
			logger.Warnf("skipping unparseable row at line %d: %v", lineNo, err)
			skipped++
			continue
		}
		observations = append(observations, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("%w: reading data table: %v", ErrFormat, err)
	}

	return observations, skipped, nil
}

func parseRow(line string, fieldCount, dateCol int, col map[string]int) (types.Observation, error) {
	fields := strings.Split(line, ";")
	if len(fields) != fieldCount {
		return types.Observation{}, fmt.Errorf("got %d fields, want %d", len(fields), fieldCount)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	date, err := time.Parse(dateLayout, fields[dateCol])
	if err != nil {
		return types.Observation{}, fmt.Errorf("bad MESS_DATUM %q", fields[dateCol])
	}

	obs := types.Observation{Date: date}
	for name, set := range measurementColumns {
		i, ok := col[name]
		if !ok {
			continue
		}
		value, err := parseValue(fields[i])
		if err != nil {
			return types.Observation{}, fmt.Errorf("bad %s value %q", name, fields[i])
		}
		set(&obs, value)
	}

	return obs, nil
}

// parseValue coerces one field to a nullable numeric value, mapping the
// missing-value sentinel and empty fields to nil.
func parseValue(field string) (*float64, error) {
	if field == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return nil, err
	}
	if v == missingValue {
		return nil, nil
	}
	return &v, nil
}
