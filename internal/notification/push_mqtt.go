package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/contractwatch/internal/mqtt"
)

// mqttPayload is the message published for every forwarded notification
type mqttPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      Type   `json:"type"`
	Timestamp string `json:"timestamp"`
}

// MQTTProvider publishes notifications as JSON to one topic
type MQTTProvider struct {
	enabled bool
	topic   string
	types   map[Type]bool

	mu     sync.Mutex
	client mqtt.Client
	newFn  func() (mqtt.Client, error)
}

// NewMQTTProvider creates a provider publishing through a client built from cfg
func NewMQTTProvider(enabled bool, cfg mqtt.Config, supportedTypes []string, opts ...mqtt.Option) *MQTTProvider {
	return &MQTTProvider{
		enabled: enabled,
		topic:   cfg.Topic,
		types:   typeSet(supportedTypes),
		newFn:   func() (mqtt.Client, error) { return mqtt.NewClient(cfg, opts...) },
	}
}

// NewMQTTProviderWithClient wraps an existing client
func NewMQTTProviderWithClient(client mqtt.Client, topic string, supportedTypes []string) *MQTTProvider {
	return &MQTTProvider{
		enabled: true,
		topic:   topic,
		types:   typeSet(supportedTypes),
		client:  client,
	}
}

func (m *MQTTProvider) GetName() string          { return "mqtt" }
func (m *MQTTProvider) IsEnabled() bool          { return m.enabled }
func (m *MQTTProvider) SupportsType(t Type) bool { return m.types[t] }

// ValidateConfig builds the client, which validates the broker URL
func (m *MQTTProvider) ValidateConfig() error {
	if !m.enabled {
		return nil
	}
	if m.topic == "" {
		return fmt.Errorf("mqtt topic is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return nil
	}
	c, err := m.newFn()
	if err != nil {
		return err
	}
	m.client = c
	return nil
}

// Send connects on first use and publishes the notification
func (m *MQTTProvider) Send(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c == nil {
		return fmt.Errorf("mqtt client not initialized")
	}

	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(mqttPayload{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return c.Publish(ctx, m.topic, payload)
}

// Close disconnects from the broker
func (m *MQTTProvider) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Disconnect()
	}
}
