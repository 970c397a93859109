package alert

import (
	"crypto/tls"
	"fmt"
	"time"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	keepAlive      = 60 * time.Second
	connectTimeout = 10 * time.Second
)

// brokerURL builds the broker address, ssl:// when TLS is enabled.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}

// clientOptions prepares authenticated client options with auto-reconnect.
// onConnect runs after every (re)connection.
func clientOptions(cfg config.MQTTConfig, clientID string, logger *logger.Logger, onConnect func(mqtt.Client)) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(keepAlive)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host})
	}

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("Connected to MQTT broker %s as %s", brokerURL(cfg), clientID)
		if onConnect != nil {
			onConnect(c)
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	return opts
}

// connect starts the client and waits for the first connection.
func connect(client mqtt.Client, broker string) error {
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection to %s failed: %w", broker, err)
	}
	return nil
}
