package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mizulab/sensorhub/internal/telemetry"
)

type recordingSink struct {
	stored []telemetry.Reading
	err    error
}

func (s *recordingSink) Store(_ context.Context, r telemetry.Reading) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, r)
	return nil
}

func (s *recordingSink) Close() error { return s.err }

func sampleReading() telemetry.Reading {
	h := 62.1
	return telemetry.Reading{
		DeviceID:   "T3",
		Humidity:   &h,
		ReceivedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestFanout_DeliversToAllMembers(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	f := Fanout{a, b}

	require.NoError(t, f.Store(context.Background(), sampleReading()))
	require.Len(t, a.stored, 1)
	require.Len(t, b.stored, 1)
}

func TestFanout_FailingMemberDoesNotStopOthers(t *testing.T) {
	bad := &recordingSink{err: errors.New("backend down")}
	good := &recordingSink{}
	f := Fanout{bad, good}

	err := f.Store(context.Background(), sampleReading())
	require.Error(t, err)
	require.Len(t, good.stored, 1)
}

func TestWriterSink_EmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)

	require.NoError(t, s.Store(context.Background(), sampleReading()))

	var got telemetry.Reading
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "T3", got.DeviceID)
	require.NotNil(t, got.Humidity)
	require.Equal(t, 62.1, *got.Humidity)
	require.Nil(t, got.SoilMoisture, "absent fields must stay absent in the payload")
}
