// Command sensorhub opens a serial link to a field sensor device, decodes
// the telemetry it sends, and fans the readings out to the configured sinks.
// Lines typed on stdin are forwarded to the device as commands.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/mizulab/sensorhub/internal/config"
	"github.com/mizulab/sensorhub/internal/monitor"
	"github.com/mizulab/sensorhub/internal/serialport"
	"github.com/mizulab/sensorhub/internal/session"
	"github.com/mizulab/sensorhub/internal/sink"
	"github.com/mizulab/sensorhub/internal/telemetry"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to yaml configuration file")
		portName     = flag.String("port", "", "serial port to connect to (overrides config)")
		baudRate     = flag.Int("baud", 0, "baud rate (overrides config)")
		platformName = flag.String("platform", "", "platform selector: linux or windows (overrides config)")
		logLevel     = flag.String("log-level", "", "log level (overrides config)")
		listPorts    = flag.Bool("list-ports", false, "scan for openable serial ports and exit")
	)
	flag.Parse()

	log := logrus.New()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if *portName != "" {
		cfg.Serial.Port = *portName
	}
	if *baudRate != 0 {
		cfg.Serial.BaudRate = *baudRate
	}
	if *platformName != "" {
		cfg.Serial.Platform = *platformName
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	configureLogger(log, cfg.Log)

	// Platform already validated above.
	platform, _ := serialport.ParsePlatform(cfg.Serial.Platform)

	if *listPorts {
		catalog := serialport.Catalog{}
		ports, err := catalog.List(platform)
		if err != nil {
			log.Fatalf("scanning ports: %v", err)
		}
		if len(ports) == 0 {
			fmt.Println("no openable serial ports found")
			return
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if cfg.Serial.Port == "" {
		log.Fatal("no serial port specified; use --port or the config file")
	}

	monitor.Register()
	if cfg.Monitor.Enabled {
		monitor.StartMetricsServer(cfg.Monitor.MetricsPort, log)
	}

	sinks := buildSinks(cfg, log)
	defer sinks.Close()

	sess := session.New(session.Config{
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout,
		Platform:    platform,
	}, log)

	ctx := context.Background()
	sess.SetObserver(func(r telemetry.Reading) {
		if err := sinks.Store(ctx, r); err != nil {
			log.Warnf("storing reading from %s: %v", r.DeviceID, err)
		}
	})

	if err := sess.Connect(cfg.Serial.Port); err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.Serial.Port, err)
	}
	defer sess.Disconnect()

	go forwardCommands(sess, log)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")
}

func configureLogger(log *logrus.Logger, cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

func buildSinks(cfg *config.Config, log *logrus.Logger) sink.Fanout {
	sinks := sink.Fanout{sink.NewWriterSink(os.Stdout)}

	if cfg.Redis.Enabled {
		rs, err := sink.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			cfg.Redis.Channel, cfg.Redis.HistoryLimit, log)
		if err != nil {
			log.Fatalf("redis sink: %v", err)
		}
		sinks = append(sinks, rs)
	}
	if cfg.MQTT.Enabled {
		ms, err := sink.NewMQTTSink(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, log)
		if err != nil {
			log.Fatalf("mqtt sink: %v", err)
		}
		sinks = append(sinks, ms)
	}
	return sinks
}

// forwardCommands sends each stdin line to the device. The newline the user
// typed is re-appended here; the session itself adds nothing.
func forwardCommands(sess *session.Session, log *logrus.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := scanner.Text()
		if cmd == "" {
			continue
		}
		if err := sess.Send(cmd + "\n"); err != nil {
			log.Warnf("sending %q: %v", cmd, err)
		}
	}
}
