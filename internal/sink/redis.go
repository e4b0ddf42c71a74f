package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mizulab/sensorhub/internal/telemetry"
)

// RedisSink publishes each reading on a pub/sub channel and keeps a capped
// per-device history list as a persistence backup.
type RedisSink struct {
	client       *redis.Client
	channel      string
	historyLimit int64
	log          *logrus.Logger
}

// record wraps a reading with a unique id for downstream consumers.
type record struct {
	ID string `json:"id"`
	telemetry.Reading
}

// NewRedisSink connects to redis and verifies the connection with a ping.
func NewRedisSink(addr, password string, db int, channel string, historyLimit int64, log *logrus.Logger) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	log.Infof("redis sink connected to %s", addr)

	if historyLimit <= 0 {
		historyLimit = 1000
	}
	return &RedisSink{
		client:       client,
		channel:      channel,
		historyLimit: historyLimit,
		log:          log,
	}, nil
}

func (s *RedisSink) Store(ctx context.Context, r telemetry.Reading) error {
	payload, err := json.Marshal(record{ID: uuid.NewString(), Reading: r})
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	key := fmt.Sprintf("sensorhub:%s:readings", r.DeviceID)
	if err := s.client.LPush(ctx, key, payload).Err(); err != nil {
		// The pub/sub delivery already succeeded.
		s.log.Warnf("redis history push: %v", err)
		return nil
	}
	s.client.LTrim(ctx, key, 0, s.historyLimit-1)
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
