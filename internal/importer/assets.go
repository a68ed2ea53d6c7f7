// Package importer parses road-asset and moisture-reading CSV exports and
// loads them into the store.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pavemetrics/asset-cli/internal/model"
)

// RowError records a rejected CSV row with its 1-based line number.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// assetColumns maps recognized asset CSV headers to field indexes. Header
// matching is case-insensitive and tolerates surrounding whitespace.
var assetColumns = []string{
	"name", "location", "surface_type", "condition", "length_miles",
	"latitude", "longitude", "last_inspected",
}

// dateLayouts are accepted last_inspected / reading_date formats, most
// specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseAssets reads a road-asset CSV. Malformed rows are collected as
// RowErrors rather than aborting the file; the error return is reserved for
// unreadable input (bad header, I/O failure, cancellation).
func ParseAssets(ctx context.Context, r io.Reader, tenantID string) ([]model.RoadAsset, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "importer: read asset header")
	}
	cols, err := headerIndex(header, assetColumns, []string{"name", "surface_type", "condition", "length_miles"})
	if err != nil {
		return nil, nil, err
	}

	var assets []model.RoadAsset
	var rowErrs []RowError

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, eris.Wrap(err, "importer: parse assets cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "importer: read asset row %d", line)
		}

		a, err := assetFromRecord(record, cols, tenantID)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		assets = append(assets, a)
	}

	return assets, rowErrs, nil
}

func assetFromRecord(record []string, cols map[string]int, tenantID string) (model.RoadAsset, error) {
	a := model.RoadAsset{TenantID: tenantID}

	a.Name = field(record, cols, "name")
	if a.Name == "" {
		return a, eris.New("missing name")
	}
	a.Location = field(record, cols, "location")
	a.SurfaceType = model.SurfaceType(strings.ToLower(field(record, cols, "surface_type")))
	if a.SurfaceType == "" {
		return a, eris.New("missing surface_type")
	}

	condition, err := strconv.Atoi(field(record, cols, "condition"))
	if err != nil {
		return a, eris.Wrap(err, "condition")
	}
	if condition < 0 || condition > 100 {
		return a, eris.Errorf("condition %d out of range [0,100]", condition)
	}
	a.Condition = condition

	length, err := strconv.ParseFloat(field(record, cols, "length_miles"), 64)
	if err != nil {
		return a, eris.Wrap(err, "length_miles")
	}
	if length <= 0 {
		return a, eris.Errorf("length_miles %v must be positive", length)
	}
	a.LengthMiles = length

	if v := field(record, cols, "latitude"); v != "" {
		if a.Latitude, err = strconv.ParseFloat(v, 64); err != nil {
			return a, eris.Wrap(err, "latitude")
		}
	}
	if v := field(record, cols, "longitude"); v != "" {
		if a.Longitude, err = strconv.ParseFloat(v, 64); err != nil {
			return a, eris.Wrap(err, "longitude")
		}
	}
	if v := field(record, cols, "last_inspected"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return a, eris.Wrap(err, "last_inspected")
		}
		a.LastInspected = &t
	}

	return a, nil
}

// headerIndex maps known column names to their position. Unknown columns are
// ignored; missing required columns are an error.
func headerIndex(header, known, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(known))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for _, k := range known {
			if name == k {
				cols[k] = i
				break
			}
		}
	}
	for _, req := range required {
		if _, ok := cols[req]; !ok {
			return nil, eris.Errorf("importer: missing required column %q", req)
		}
	}
	return cols, nil
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized date %q", s)
}
