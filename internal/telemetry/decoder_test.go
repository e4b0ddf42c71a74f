package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fl(v float64) *float64 { return &v }

func TestParse_ObjectAllFields(t *testing.T) {
	line := `{"device_id":"S7","ambient_temp":25.5,"humidity":60.2,"soil_moisture":41.0,` +
		`"soil_temp":22.8,"wind_speed":3.4,"longitude":19.04,"latitude":47.49}`

	r, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, "S7", r.DeviceID)
	require.Equal(t, fl(25.5), r.AmbientTemperature)
	require.Equal(t, fl(60.2), r.Humidity)
	require.Equal(t, fl(41.0), r.SoilMoisture)
	require.Equal(t, fl(22.8), r.SoilTemperature)
	require.Equal(t, fl(3.4), r.WindSpeed)
	require.Equal(t, fl(19.04), r.Longitude)
	require.Equal(t, fl(47.49), r.Latitude)
	require.False(t, r.Transmitted)
	require.True(t, r.ReceivedAt.IsZero(), "decoder must not stamp the capture time")
}

func TestParse_ObjectPartial(t *testing.T) {
	r, err := Parse(`{"device_id":"T1","ambient_temp":25.5,"humidity":60.2}`)
	require.NoError(t, err)
	require.Equal(t, "T1", r.DeviceID)
	require.Equal(t, fl(25.5), r.AmbientTemperature)
	require.Equal(t, fl(60.2), r.Humidity)
	require.Nil(t, r.SoilMoisture)
	require.Nil(t, r.SoilTemperature)
	require.Nil(t, r.WindSpeed)
}

func TestParse_ObjectUnknownKeysIgnored(t *testing.T) {
	r, err := Parse(`{"device_id":"T1","humidity":60.2,"battery":88}`)
	require.NoError(t, err)
	require.Equal(t, "T1", r.DeviceID)
	require.Equal(t, fl(60.2), r.Humidity)
}

func TestParse_ObjectMalformed(t *testing.T) {
	// A broken object is terminal; it must not cascade into the key=value
	// or delimited formats even though the body contains their delimiters.
	_, err := Parse(`{"device_id"="T1",humidity:60.2}`)
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_ObjectEmpty(t *testing.T) {
	_, err := Parse(`{}`)
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_ObjectStringNumbers(t *testing.T) {
	r, err := Parse(`{"device_id":"T1","humidity":"60.2"}`)
	require.NoError(t, err)
	require.Equal(t, fl(60.2), r.Humidity)
}

func TestParse_KeyValue(t *testing.T) {
	r, err := Parse("device_id=T3,humidity=62.1")
	require.NoError(t, err)
	require.Equal(t, "T3", r.DeviceID)
	require.Equal(t, fl(62.1), r.Humidity)
	require.Nil(t, r.AmbientTemperature)
	require.Nil(t, r.SoilMoisture)
	require.Nil(t, r.SoilTemperature)
	require.Nil(t, r.WindSpeed)
	require.Nil(t, r.Longitude)
	require.Nil(t, r.Latitude)
}

func TestParse_KeyValueCaseInsensitive(t *testing.T) {
	lower, err := Parse("device_id=X,humidity=1")
	require.NoError(t, err)
	upper, err := Parse("DEVICE_ID=X,HUMIDITY=1")
	require.NoError(t, err)
	require.Equal(t, lower, upper)
}

func TestParse_KeyValueBeatsDelimited(t *testing.T) {
	// A line with both '=' and ',' belongs to the key=value format, never
	// the positional one.
	r, err := Parse("device_id=A,humidity=1")
	require.NoError(t, err)
	require.Equal(t, "A", r.DeviceID)
	require.Equal(t, fl(1.0), r.Humidity)
}

func TestParse_KeyValueUnrecognizedKeysIgnored(t *testing.T) {
	r, err := Parse("device_id=T3,voltage=12.1,humidity=62.1")
	require.NoError(t, err)
	require.Equal(t, "T3", r.DeviceID)
	require.Equal(t, fl(62.1), r.Humidity)
}

func TestParse_KeyValueBadNumberLeavesFieldAbsent(t *testing.T) {
	r, err := Parse("device_id=T3,humidity=abc,soil_temp=20.5")
	require.NoError(t, err)
	require.Nil(t, r.Humidity)
	require.Equal(t, fl(20.5), r.SoilTemperature)
}

func TestParse_KeyValueDeviceOnly(t *testing.T) {
	r, err := Parse("device_id=T3")
	require.NoError(t, err)
	require.Equal(t, "T3", r.DeviceID)
	require.False(t, r.HasSensorData())
}

func TestParse_KeyValueNothingRecognized(t *testing.T) {
	_, err := Parse("voltage=12.1,current=0.3")
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_KeyValueSensorWithoutDevice(t *testing.T) {
	r, err := Parse("humidity=62.1,soil_temp=20.5")
	require.NoError(t, err)
	require.Equal(t, DefaultDeviceID, r.DeviceID)
	require.Equal(t, fl(62.1), r.Humidity)
}

func TestParse_Delimited(t *testing.T) {
	r, err := Parse("T2,26.1,58.9,42.3,23.5")
	require.NoError(t, err)
	require.Equal(t, "T2", r.DeviceID)
	require.Equal(t, fl(26.1), r.AmbientTemperature)
	require.Equal(t, fl(58.9), r.Humidity)
	require.Equal(t, fl(42.3), r.SoilMoisture)
	require.Equal(t, fl(23.5), r.SoilTemperature)
	require.Nil(t, r.WindSpeed)
	require.Nil(t, r.Longitude)
	require.Nil(t, r.Latitude)
}

func TestParse_DelimitedTooFewFields(t *testing.T) {
	_, err := Parse("T2,26.1,58.9,42.3")
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_DelimitedAllFields(t *testing.T) {
	r, err := Parse("T2,26.1,58.9,42.3,23.5,4.2,19.04,47.49")
	require.NoError(t, err)
	require.Equal(t, fl(4.2), r.WindSpeed)
	require.Equal(t, fl(19.04), r.Longitude)
	require.Equal(t, fl(47.49), r.Latitude)
}

func TestParse_DelimitedBadValueLeavesFieldAbsent(t *testing.T) {
	r, err := Parse("T2,26.1,nan?,42.3,23.5")
	require.NoError(t, err)
	require.Equal(t, "T2", r.DeviceID)
	require.Nil(t, r.Humidity)
	require.Equal(t, fl(42.3), r.SoilMoisture)
}

func TestParse_GenericNumeric(t *testing.T) {
	r, err := Parse("27.3 55.6 39.7 24.2")
	require.NoError(t, err)
	require.Equal(t, DefaultDeviceID, r.DeviceID)
	require.Equal(t, fl(27.3), r.AmbientTemperature)
	require.Equal(t, fl(55.6), r.Humidity)
	require.Equal(t, fl(39.7), r.SoilMoisture)
	require.Equal(t, fl(24.2), r.SoilTemperature)
	require.Nil(t, r.WindSpeed)
}

func TestParse_GenericNumericNegative(t *testing.T) {
	r, err := Parse("T -3.5 55.6 39.7 24.2 1.1")
	require.NoError(t, err)
	require.Equal(t, fl(-3.5), r.AmbientTemperature)
	require.Equal(t, fl(1.1), r.WindSpeed)
}

func TestParse_GenericNumericTooFew(t *testing.T) {
	_, err := Parse("27.3 55.6 39.7")
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("garbage")
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_EmptyLine(t *testing.T) {
	_, err := Parse("   \r\n")
	require.ErrorIs(t, err, ErrParse)
}

func TestParse_SurroundingWhitespaceTrimmed(t *testing.T) {
	r, err := Parse("  {\"device_id\":\"T1\",\"humidity\":60.2}  \r\n")
	require.NoError(t, err)
	require.Equal(t, "T1", r.DeviceID)
}
