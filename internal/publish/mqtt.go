// Package publish fans posture state transitions out to an MQTT broker so
// desk lights, dashboards, and other subscribers can react to them.
package publish

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/db"
	"github.com/banshee-data/posture.report/internal/monitoring"
)

// TopicPrefix is the root of the posture state topic tree. The session ID is
// appended, giving one retained topic per session.
const TopicPrefix = "posture/state"

// Client is the subset of the paho client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes state transitions as retained JSON messages, so a
// late subscriber immediately sees the current state.
type MQTTPublisher struct {
	client Client
}

// Connect dials the broker and returns a publisher. brokerURL is a paho
// broker address like "tcp://localhost:1883".
func Connect(brokerURL, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", brokerURL, token.Error())
	}
	monitoring.Logf("connected to mqtt broker at %s", brokerURL)

	return &MQTTPublisher{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests and callers that
// manage the connection themselves.
func NewWithClient(client Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// Topic returns the per-session topic for a state message.
func Topic(sessionID string) string {
	return TopicPrefix + "/" + sessionID
}

// PublishState implements session.StatePublisher.
func (p *MQTTPublisher) PublishState(event db.PostureEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode state event: %w", err)
	}

	if token := p.client.Publish(Topic(event.SessionID), 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish state: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker, allowing 250ms for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
