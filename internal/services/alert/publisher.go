package alert

import (
	"fmt"
	"sync"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher delivers alert events.
type Publisher interface {
	Publish(event model.AlertEvent) error
}

// MQTTPublisher publishes alerts to a fixed topic, fire-and-forget.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger *logger.Logger

	mu        sync.Mutex
	published uint64
	failed    uint64
}

// NewMQTTPublisher creates a publisher and connects it to the broker.
func NewMQTTPublisher(cfg *config.Config, logger *logger.Logger) (*MQTTPublisher, error) {
	opts := clientOptions(cfg.MQTT, cfg.MQTT.ClientID, logger, nil)
	client := mqtt.NewClient(opts)

	logger.Info("Connecting to MQTT broker %s", brokerURL(cfg.MQTT))
	if err := connect(client, brokerURL(cfg.MQTT)); err != nil {
		return nil, err
	}

	return newMQTTPublisher(client, cfg.MQTT.Topic, logger), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, logger *logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// Publish serializes the event and hands it to the client without waiting
// for delivery; completion is logged in the background.
func (p *MQTTPublisher) Publish(event model.AlertEvent) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)

	go func() {
		<-token.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := token.Error(); err != nil {
			p.failed++
			p.logger.Error("Publishing alert to %s failed: %v", p.topic, err)
			return
		}
		p.published++
		p.logger.Debug("Alert delivered to %s", p.topic)
	}()

	p.logger.Info("Published: %s", payload)
	return nil
}

// Stats returns how many publishes completed and failed so far.
func (p *MQTTPublisher) Stats() (published, failed uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failed
}

// Close disconnects from the broker with a short grace period.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Info("MQTT disconnected")
	}
}
