package alert

import (
	"fmt"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MessageHandler receives raw alert payloads.
type MessageHandler func(topic string, payload []byte)

// Subscriber listens on the alert topic and resubscribes after reconnects.
type Subscriber struct {
	client mqtt.Client
	topic  string
	logger *logger.Logger
}

// NewSubscriber connects to the broker as cfg.MQTT.TrackerClientID and
// subscribes to cfg.MQTT.Topic.
func NewSubscriber(cfg *config.Config, logger *logger.Logger, handler MessageHandler) (*Subscriber, error) {
	s := &Subscriber{
		topic:  cfg.MQTT.Topic,
		logger: logger,
	}

	opts := clientOptions(cfg.MQTT, cfg.MQTT.TrackerClientID, logger, func(c mqtt.Client) {
		s.subscribe(c, handler)
	})
	s.client = mqtt.NewClient(opts)

	if err := connect(s.client, brokerURL(cfg.MQTT)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscriber) subscribe(c mqtt.Client, handler MessageHandler) {
	token := c.Subscribe(s.topic, 0, messageCallback(handler))
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			s.logger.Error("Subscribe to %s failed: %v", s.topic, err)
			return
		}
		s.logger.Info("Subscribed successfully to %s", s.topic)
	}()
}

func messageCallback(handler MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}
}

// Close unsubscribes and disconnects.
func (s *Subscriber) Close() error {
	if s.client == nil || !s.client.IsConnected() {
		return nil
	}
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	s.client.Disconnect(250)
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe from %s: %w", s.topic, err)
	}
	return nil
}
