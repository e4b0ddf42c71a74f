// Package config loads the sensor hub's yaml configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mizulab/sensorhub/internal/serialport"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Redis   RedisConfig   `yaml:"redis"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Log     LogConfig     `yaml:"log"`
	Monitor MonitorConfig `yaml:"monitor"`
}

type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	Platform    string        `yaml:"platform"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	Channel      string `yaml:"channel"`
	HistoryLimit int64  `yaml:"history_limit"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	MetricsPort int  `yaml:"metrics_port"`
}

// Load reads and validates a yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			BaudRate:    9600,
			Platform:    string(serialport.PlatformLinux),
			ReadTimeout: 100 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			Channel:      "sensorhub:readings",
			HistoryLimit: 1000,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			Topic:    "sensorhub/readings",
			ClientID: "sensorhub",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Monitor: MonitorConfig{
			Enabled:     true,
			MetricsPort: 9090,
		},
	}
}

// Validate rejects values the serial layer cannot work with.
func (c *Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be a positive number, got %d", c.Serial.BaudRate)
	}
	if _, err := serialport.ParsePlatform(c.Serial.Platform); err != nil {
		return err
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %s", c.Serial.ReadTimeout)
	}
	return nil
}
