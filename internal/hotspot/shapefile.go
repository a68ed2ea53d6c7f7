package hotspot

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadZones reads zone polygons from a shapefile. The zone name comes from
// the first attribute field whose name contains "name" (case-insensitive),
// falling back to the record index. Non-polygon shapes are skipped.
func LoadZones(path string) ([]Zone, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "hotspot: open shapefile %s", path)
	}
	defer reader.Close()

	nameField := -1
	for i, f := range reader.Fields() {
		if strings.Contains(strings.ToLower(f.String()), "name") {
			nameField = i
			break
		}
	}

	var zones []Zone
	for reader.Next() {
		n, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			zap.L().Debug("hotspot: skipping non-polygon shape", zap.Int("record", n))
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			zap.L().Debug("hotspot: skipping empty polygon", zap.Int("record", n))
			continue
		}

		name := ""
		if nameField >= 0 {
			name = strings.TrimSpace(reader.ReadAttribute(n, nameField))
		}
		if name == "" {
			name = "zone-" + strconv.Itoa(n)
		}

		zones = append(zones, Zone{Name: name, Polygon: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "hotspot: read shapefile %s", path)
	}

	return zones, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// treating each part as a separate single-ring polygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("hotspot: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("hotspot: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
