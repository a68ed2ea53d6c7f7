// Package hotspot identifies clusters of elevated subsurface moisture by
// filtering georeferenced readings through named zone polygons.
package hotspot

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/pavemetrics/asset-cli/internal/model"
)

// Zone is a named polygonal area of interest, e.g. a drainage basin or a
// maintenance district. Coordinates are lng/lat (XY), WGS84.
type Zone struct {
	Name    string
	Polygon *geom.MultiPolygon
}

// Contains reports whether the point lies inside the zone: within any
// polygon's exterior ring and outside its holes.
func (z Zone) Contains(lng, lat float64) bool {
	if z.Polygon == nil {
		return false
	}
	point := geom.Coord{lng, lat}

	for i := 0; i < z.Polygon.NumPolygons(); i++ {
		p := z.Polygon.Polygon(i)
		if p.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(p.Layout(), point, p.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < p.NumLinearRings(); r++ {
			if xy.IsPointInRing(p.Layout(), point, p.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// FilterReadings returns the readings that fall inside the zone, preserving
// input order.
func FilterReadings(zone Zone, readings []model.MoistureReading) []model.MoistureReading {
	var inside []model.MoistureReading
	for _, r := range readings {
		if zone.Contains(r.Longitude, r.Latitude) {
			inside = append(inside, r)
		}
	}
	return inside
}

// Hotspot summarizes elevated-moisture readings within one zone.
type Hotspot struct {
	Zone         string  `json:"zone"`
	Readings     int     `json:"readings"`
	WetReadings  int     `json:"wet_readings"`
	MeanMoisture float64 `json:"mean_moisture"`
	MaxMoisture  float64 `json:"max_moisture"`
}

// Detect evaluates every zone against the readings and reports zones with at
// least one reading at or above threshold. Results are ordered by mean
// moisture descending, then zone name for determinism.
func Detect(zones []Zone, readings []model.MoistureReading, threshold float64) []Hotspot {
	var hotspots []Hotspot

	for _, zone := range zones {
		inside := FilterReadings(zone, readings)
		if len(inside) == 0 {
			continue
		}

		wet := 0
		sum := 0.0
		max := 0.0
		for _, r := range inside {
			sum += r.ReadingValue
			if r.ReadingValue > max {
				max = r.ReadingValue
			}
			if r.ReadingValue >= threshold {
				wet++
			}
		}
		if wet == 0 {
			continue
		}

		hotspots = append(hotspots, Hotspot{
			Zone:         zone.Name,
			Readings:     len(inside),
			WetReadings:  wet,
			MeanMoisture: sum / float64(len(inside)),
			MaxMoisture:  max,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].MeanMoisture != hotspots[j].MeanMoisture {
			return hotspots[i].MeanMoisture > hotspots[j].MeanMoisture
		}
		return hotspots[i].Zone < hotspots[j].Zone
	})
	return hotspots
}
