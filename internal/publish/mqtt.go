// Package publish mirrors summary rows to an MQTT broker so live
// dashboards can follow the spectral log without tailing CSV files.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Config holds broker connection settings. An empty Broker disables
// publishing entirely.
type Config struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
}

// row is the published payload, one message per axis per window.
type row struct {
	Timestamp time.Time `json:"timestamp"`
	Axis      string    `json:"axis"`
	Bins      []float64 `json:"bins"`
}

// Publisher sends one JSON message per summary row to
// <topic>/<axis letter>.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger logging.Logger
}

// New connects to the broker and returns a ready publisher.
func New(cfg Config, logger logging.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("publish: broker not configured")
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	logger = logger.WithFields(logging.Fields{
		"component": "mqtt_publisher",
		"broker":    cfg.Broker,
	})

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("accelspec-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", logging.Fields{
			"error": err.Error(),
		})
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("publish: connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("publish: connect to %s failed: %w", cfg.Broker, err)
	}

	logger.Info("Connected to MQTT broker", logging.Fields{
		"client_id": clientID,
		"topic":     cfg.Topic,
	})

	return &Publisher{
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
		logger: logger,
	}, nil
}

// Append publishes one summary row. Fire and forget: delivery is
// handed to the client's queue so the pipeline never waits on the
// network.
func (p *Publisher) Append(axis spatial.Axis, ts time.Time, values []float64) error {
	payload, err := json.Marshal(row{
		Timestamp: ts,
		Axis:      axis.Letter(),
		Bins:      values,
	})
	if err != nil {
		return fmt.Errorf("publish: could not encode row: %w", err)
	}
	topic := p.topic + "/" + axis.Letter()
	p.client.Publish(topic, p.qos, false, payload)
	return nil
}

// Close disconnects from the broker, allowing queued messages a short
// grace period to flush.
func (p *Publisher) Close() {
	p.client.Disconnect(1000)
}
