package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

const (
	defaultClientID = "smartgen-ingest"
	connectTimeout  = 10 * time.Second
	recordTimeout   = 5 * time.Second
)

// Config holds broker connection settings.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Consumer subscribes to a telemetry topic and stores incoming readings.
type Consumer struct {
	client   paho.Client
	topic    string
	recorder *application.Recorder
	logger   *log.Logger
}

// NewConsumer connects to the broker and subscribes to the configured
// topic. The subscription is re-established on every reconnect.
func NewConsumer(cfg Config, recorder *application.Recorder, logger *log.Logger) (*Consumer, error) {
	if recorder == nil {
		return nil, errors.New("telemetry mqtt: nil recorder")
	}
	if cfg.Broker == "" {
		return nil, errors.New("telemetry mqtt: empty broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("telemetry mqtt: empty topic")
	}
	if logger == nil {
		logger = log.Default()
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	consumer := &Consumer{topic: cfg.Topic, recorder: recorder, logger: logger}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(client paho.Client) {
		if token := client.Subscribe(consumer.topic, 1, consumer.handleMessage); token.Wait() && token.Error() != nil {
			logger.Printf("telemetry mqtt: subscribe error: %v", token.Error())
		}
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry mqtt: connect: %w", token.Error())
	}
	consumer.client = client
	return consumer, nil
}

// Close disconnects from the broker.
func (c *Consumer) Close() {
	if c != nil && c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func (c *Consumer) handleMessage(_ paho.Client, msg paho.Message) {
	var payload readingPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		metrics.IncMQTTMessage(metrics.ResultError)
		c.logger.Printf("telemetry mqtt: decode error on %s: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if _, err := c.recorder.Record(ctx, payload.toDomain()); err != nil {
		metrics.IncMQTTMessage(metrics.ResultError)
		c.logger.Printf("telemetry mqtt: store error: %v", err)
		return
	}
	metrics.IncMQTTMessage(metrics.ResultSuccess)
}

type readingPayload struct {
	Timestamp   time.Time `json:"timestamp"`
	PowerLoadKW float64   `json:"power_load_kw"`
	FuelRateLPH float64   `json:"fuel_consumption_lph"`
	Status      string    `json:"status"`
}

func (p readingPayload) toDomain() telemetry.Reading {
	return telemetry.Reading{
		Timestamp:   p.Timestamp,
		PowerLoadKW: p.PowerLoadKW,
		FuelRateLPH: p.FuelRateLPH,
		Status:      p.Status,
	}
}
