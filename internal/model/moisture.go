package model

import "time"

// MoistureReading is a georeferenced subsurface moisture sample taken along
// a road asset. ReadingValue is percent moisture content.
type MoistureReading struct {
	ID           int64     `json:"id"`
	TenantID     string    `json:"tenant_id"`
	RoadAssetID  int64     `json:"road_asset_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	ReadingValue float64   `json:"reading_value"`
	ReadingDate  time.Time `json:"reading_date"`
}
