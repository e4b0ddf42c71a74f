package sink

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/mizulab/sensorhub/internal/telemetry"
)

// MQTTSink forwards readings as JSON to an MQTT topic at QoS 0. Delivery is
// best effort, matching the rest of the pipeline.
type MQTTSink struct {
	client mqtt.Client
	topic  string
	log    *logrus.Logger
}

// NewMQTTSink connects to the broker synchronously.
func NewMQTTSink(broker, clientID, topic string, log *logrus.Logger) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Infof("mqtt sink connected to %s, topic %s", broker, topic)

	return &MQTTSink{client: client, topic: topic, log: log}, nil
}

func (s *MQTTSink) Store(_ context.Context, r telemetry.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := s.client.Publish(s.topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
