package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/pavemetrics/asset-cli/internal/model"
)

var readingColumns = []string{
	"road_asset_id", "latitude", "longitude", "reading_value", "reading_date",
}

// ParseReadings reads a moisture-reading CSV. Same error contract as
// ParseAssets: row-level problems become RowErrors, file-level problems
// abort.
func ParseReadings(ctx context.Context, r io.Reader, tenantID string) ([]model.MoistureReading, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "importer: read reading header")
	}
	cols, err := headerIndex(header, readingColumns, readingColumns)
	if err != nil {
		return nil, nil, err
	}

	var readings []model.MoistureReading
	var rowErrs []RowError

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, eris.Wrap(err, "importer: parse readings cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "importer: read reading row %d", line)
		}

		reading, err := readingFromRecord(record, cols, tenantID)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		readings = append(readings, reading)
	}

	return readings, rowErrs, nil
}

func readingFromRecord(record []string, cols map[string]int, tenantID string) (model.MoistureReading, error) {
	r := model.MoistureReading{TenantID: tenantID}

	assetID, err := strconv.ParseInt(field(record, cols, "road_asset_id"), 10, 64)
	if err != nil {
		return r, eris.Wrap(err, "road_asset_id")
	}
	r.RoadAssetID = assetID

	if r.Latitude, err = strconv.ParseFloat(field(record, cols, "latitude"), 64); err != nil {
		return r, eris.Wrap(err, "latitude")
	}
	if r.Longitude, err = strconv.ParseFloat(field(record, cols, "longitude"), 64); err != nil {
		return r, eris.Wrap(err, "longitude")
	}
	if r.ReadingValue, err = strconv.ParseFloat(field(record, cols, "reading_value"), 64); err != nil {
		return r, eris.Wrap(err, "reading_value")
	}
	if r.ReadingValue < 0 || r.ReadingValue > 100 {
		return r, eris.Errorf("reading_value %v out of range [0,100]", r.ReadingValue)
	}

	date, err := parseDate(field(record, cols, "reading_date"))
	if err != nil {
		return r, eris.Wrap(err, "reading_date")
	}
	r.ReadingDate = date

	return r, nil
}
