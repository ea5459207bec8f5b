package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

const (
	mqttKeepAlive  = 30
	mqttQoS        = 1
	mqttClientBase = "hivemon-"
)

// MQTT denotes an MQTT broker the readings are published to. A new session is
// established for every submission since the node powers down in between
type MQTT struct {
	Broker   string // host:port
	Topic    string
	ClientID string
	Username string
	Password string
	Timeout  time.Duration
}

// Name returns a short identifier of the sink
func (m *MQTT) Name() string {
	return "mqtt"
}

// Submit publishes the fields as a single JSON object
func (m *MQTT) Submit(ctx context.Context, fields Fields) error {
	payload, err := json.Marshal(fieldMap(fields))
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.Broker)
	if err != nil {
		return fmt.Errorf("failed to dial broker %s: %w", m.Broker, err)
	}

	clientID := m.ClientID
	if clientID == "" {
		clientID = mqttClientBase + uuid.NewString()
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
	})

	cp := &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  mqttKeepAlive,
		CleanStart: true,
	}
	if m.Username != "" {
		cp.Username = m.Username
		cp.UsernameFlag = true
		cp.Password = []byte(m.Password)
		cp.PasswordFlag = true
	}

	ca, err := client.Connect(ctx, cp)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to connect to broker %s: %w", m.Broker, err)
	}
	if ca.ReasonCode != 0 {
		_ = conn.Close()
		return fmt.Errorf("broker %s refused connection: reason code %d", m.Broker, ca.ReasonCode)
	}
	defer func() {
		_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	}()

	if _, err := client.Publish(ctx, &paho.Publish{
		Topic:   m.Topic,
		QoS:     mqttQoS,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.Topic, err)
	}

	return nil
}

func fieldMap(fields Fields) map[string]float64 {
	m := make(map[string]float64, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}
