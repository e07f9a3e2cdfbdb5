package models

// SensorSnapshot is written by the sensor ingestion pipeline at sensor/data.
// Any field may be missing.
type SensorSnapshot struct {
	Temperature  *float64 `json:"temperature,omitempty"`  // °C
	Humidity     *float64 `json:"humidity,omitempty"`     // % air
	SoilMoisture *float64 `json:"soilMoisture,omitempty"` // % soil
}
