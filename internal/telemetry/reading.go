// Package telemetry defines the decoded sensor reading and the heuristic
// decoder that turns raw serial lines into readings.
//
// Field sensors in the wild send free-form ASCII: JSON objects, key=value
// pairs, comma-delimited records, or bare runs of numbers. There is no
// negotiated schema, so the decoder sniffs the format per line.
package telemetry

import "time"

// Reading is one decoded telemetry sample. Sensor fields are optional;
// a nil pointer means the device did not report that value. A Reading is
// immutable once constructed by the decoder, except for ReceivedAt, which
// the session stamps at capture time.
type Reading struct {
	DeviceID           string    `json:"device_id"`
	AmbientTemperature *float64  `json:"ambient_temperature,omitempty"`
	Humidity           *float64  `json:"humidity,omitempty"`
	SoilMoisture       *float64  `json:"soil_moisture,omitempty"`
	SoilTemperature    *float64  `json:"soil_temperature,omitempty"`
	WindSpeed          *float64  `json:"wind_speed,omitempty"`
	Longitude          *float64  `json:"longitude,omitempty"`
	Latitude           *float64  `json:"latitude,omitempty"`
	Transmitted        bool      `json:"transmitted"`
	ReceivedAt         time.Time `json:"received_at"`
}

// DefaultDeviceID is used when a line carries sensor values but no
// device identifier.
const DefaultDeviceID = "unknown"

// HasSensorData reports whether at least one sensor field is present.
func (r Reading) HasSensorData() bool {
	return r.AmbientTemperature != nil ||
		r.Humidity != nil ||
		r.SoilMoisture != nil ||
		r.SoilTemperature != nil ||
		r.WindSpeed != nil ||
		r.Longitude != nil ||
		r.Latitude != nil
}
