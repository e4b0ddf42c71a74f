package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every decode failure.
var ErrParse = errors.New("unparsable telemetry line")

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

// Parse decodes one raw serial line into a Reading.
//
// The line is trimmed, then classified in fixed priority order: a JSON
// object ({...}), key=value pairs, a comma-delimited record, and finally a
// generic extract-the-numbers fallback. The first matching rule owns the
// line; a failure inside the selected format is terminal and never cascades
// to the next format. Transmitted is always false and ReceivedAt is left
// zero; the session stamps it at capture time.
func Parse(raw string) (Reading, error) {
	line := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}"):
		return parseObject(line)
	case strings.Contains(line, "="):
		return parseKeyValue(line)
	case strings.Contains(line, ","):
		return parseDelimited(line)
	default:
		return parseNumeric(line)
	}
}

func parseObject(line string) (Reading, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return Reading{}, fmt.Errorf("%w: malformed object: %v", ErrParse, err)
	}

	r := Reading{DeviceID: DefaultDeviceID}
	explicitDevice := false
	if v, ok := obj["device_id"]; ok && v != nil {
		r.DeviceID = stringify(v)
		explicitDevice = true
	}
	r.AmbientTemperature = coerceAny(obj["ambient_temp"])
	r.Humidity = coerceAny(obj["humidity"])
	r.SoilMoisture = coerceAny(obj["soil_moisture"])
	r.SoilTemperature = coerceAny(obj["soil_temp"])
	r.WindSpeed = coerceAny(obj["wind_speed"])
	r.Longitude = coerceAny(obj["longitude"])
	r.Latitude = coerceAny(obj["latitude"])

	if !explicitDevice && !r.HasSensorData() {
		return Reading{}, fmt.Errorf("%w: object carries no device id and no sensor values", ErrParse)
	}
	return r, nil
}

func parseKeyValue(line string) (Reading, error) {
	r := Reading{DeviceID: DefaultDeviceID}
	explicitDevice := false

	for _, pair := range strings.Split(line, ",") {
		if !strings.Contains(pair, "=") {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])

		switch key {
		case "device_id":
			r.DeviceID = value
			explicitDevice = true
		case "ambient_temp":
			r.AmbientTemperature = coerceFloat(value)
		case "humidity":
			r.Humidity = coerceFloat(value)
		case "soil_moisture":
			r.SoilMoisture = coerceFloat(value)
		case "soil_temp":
			r.SoilTemperature = coerceFloat(value)
		case "wind_speed":
			r.WindSpeed = coerceFloat(value)
		case "longitude":
			r.Longitude = coerceFloat(value)
		case "latitude":
			r.Latitude = coerceFloat(value)
		}
	}

	if !explicitDevice && !r.HasSensorData() {
		return Reading{}, fmt.Errorf("%w: no recognized key=value fields", ErrParse)
	}
	return r, nil
}

func parseDelimited(line string) (Reading, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 5 {
		return Reading{}, fmt.Errorf("%w: delimited record has %d fields, need at least 5", ErrParse, len(parts))
	}

	r := Reading{DeviceID: strings.TrimSpace(parts[0])}
	r.AmbientTemperature = coerceFloat(parts[1])
	r.Humidity = coerceFloat(parts[2])
	r.SoilMoisture = coerceFloat(parts[3])
	r.SoilTemperature = coerceFloat(parts[4])
	if len(parts) > 5 {
		r.WindSpeed = coerceFloat(parts[5])
	}
	if len(parts) > 6 {
		r.Longitude = coerceFloat(parts[6])
	}
	if len(parts) > 7 {
		r.Latitude = coerceFloat(parts[7])
	}
	return r, nil
}

func parseNumeric(line string) (Reading, error) {
	numbers := numberPattern.FindAllString(line, -1)
	if len(numbers) < 4 {
		return Reading{}, fmt.Errorf("%w: found %d numeric values, need at least 4", ErrParse, len(numbers))
	}

	r := Reading{DeviceID: DefaultDeviceID}
	r.AmbientTemperature = coerceFloat(numbers[0])
	r.Humidity = coerceFloat(numbers[1])
	r.SoilMoisture = coerceFloat(numbers[2])
	r.SoilTemperature = coerceFloat(numbers[3])
	if len(numbers) > 4 {
		r.WindSpeed = coerceFloat(numbers[4])
	}
	if len(numbers) > 5 {
		r.Longitude = coerceFloat(numbers[5])
	}
	if len(numbers) > 6 {
		r.Latitude = coerceFloat(numbers[6])
	}
	return r, nil
}

// coerceFloat parses a decimal value, returning nil when the text is not a
// valid number. A bad value leaves the field absent instead of failing the
// whole record.
func coerceFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func coerceAny(v any) *float64 {
	switch val := v.(type) {
	case float64:
		f := val
		return &f
	case string:
		return coerceFloat(val)
	default:
		return nil
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
