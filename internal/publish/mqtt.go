package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"nivel_exporter/internal/types"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
)

// MQTTConfig holds the options of the MQTT view sink.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes each view as a retained JSON message, so late subscribers
// receive the latest view immediately.
type MQTTPublisher struct {
	client mqttClient
	topic  string
	logger *slog.Logger
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "error", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}

	logger.Info("MQTT sink enabled", "broker", cfg.Broker, "topic", cfg.Topic)
	return newMQTTPublisher(client, cfg.Topic, logger), nil
}

func newMQTTPublisher(client mqttClient, topic string, logger *slog.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, logger: logger}
}

// Publish implements poller.Sink.
func (p *MQTTPublisher) Publish(ctx context.Context, view types.DerivedView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	token := p.client.Publish(p.topic, mqttQoS, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", p.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}

	p.logger.Debug("View published to MQTT", "topic", p.topic, "seq", view.Seq)
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
