package notify

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
)

// Config holds the MQTT connection settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with the default timeouts.
func DefaultConfig() Config {
	return Config{
		ClientID:          "trialbase",
		TopicPrefix:       "trialbase",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings fills a default Config from the mqtt settings.
func ConfigFromSettings(s conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.Username = s.Username
	cfg.Password = s.Password
	if s.ClientID != "" {
		cfg.ClientID = s.ClientID
	}
	if s.TopicPrefix != "" {
		cfg.TopicPrefix = s.TopicPrefix
	}
	return cfg
}

// MQTTPublisher publishes events with QoS 1 to an MQTT broker. paho
// reconnects automatically after a lost connection.
type MQTTPublisher struct {
	config Config
	log    logger.Logger

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTPublisher returns an unconnected publisher.
func NewMQTTPublisher(cfg Config, log logger.Logger) *MQTTPublisher {
	if log == nil {
		log = logger.Global().Module("notify")
	}
	return &MQTTPublisher{config: cfg, log: log}
}

// Topic returns the full topic for a relative event topic.
func (p *MQTTPublisher) Topic(topic string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return topic
	}
	return prefix + "/" + topic
}

// Connect resolves the broker host and connects.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	u, err := url.Parse(p.config.Broker)
	if err != nil || u.Host == "" {
		return errors.Newf("invalid broker URL %q", p.config.Broker).
			Category(errors.CategoryConfiguration).
			Field("mqtt.broker").
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(fmt.Errorf("failed to resolve hostname %s: %w", host, err)).
				Category(errors.CategoryMessaging).
				Context(errors.ContextOperation, "mqtt_connect").
				Build()
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	opts.SetUsername(p.config.Username)
	opts.SetPassword(p.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.log.Info("connected to MQTT broker", logger.String("broker", p.config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn("connection to MQTT broker lost", logger.String("broker", p.config.Broker), logger.Error(err))
	})

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), p.config.ConnectTimeout); err != nil {
		return errors.New(fmt.Errorf("mqtt connect: %w", err)).
			Category(errors.CategoryMessaging).
			Context(errors.ContextOperation, "mqtt_connect").
			Build()
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return nil
}

// Publish encodes payload as an Event and sends it.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Category(errors.CategoryMessaging).
			Context(errors.ContextOperation, "mqtt_publish").
			Build()
	}

	body, err := encode(topic, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	fullTopic := p.Topic(topic)
	p.log.Debug("publishing event", logger.String("topic", fullTopic), logger.Int("bytes", len(body)))
	if err := waitToken(ctx, client.Publish(fullTopic, 1, false, body), p.config.PublishTimeout); err != nil {
		return errors.New(fmt.Errorf("mqtt publish %s: %w", fullTopic, err)).
			Category(errors.CategoryMessaging).
			Context(errors.ContextOperation, "mqtt_publish").
			Build()
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(uint(p.config.DisconnectTimeout.Milliseconds()))
	}
	p.client = nil
	return nil
}

// waitToken waits for a paho token, the timeout or ctx, whichever is first.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Publisher = (*MQTTPublisher)(nil)
