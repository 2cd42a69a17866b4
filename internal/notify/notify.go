package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-netmap/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// StatusEvent describes one status transition detected by the poller.
type StatusEvent struct {
	Type     models.Kind   `json:"type"`
	ID       uint          `json:"id"`
	SiteID   uint          `json:"siteId"`
	Name     string        `json:"name"`
	IP       string        `json:"ip"`
	Previous models.Status `json:"previous"`
	Status   models.Status `json:"status"`
	At       time.Time     `json:"at"`
}

// Publisher delivers status events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, ev StatusEvent) error
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, StatusEvent) error { return nil }
func (Nop) Close()                                     {}

// MQTTPublisher publishes events as JSON to <prefix>/<type>/<id>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTT connects to broker (e.g. tcp://localhost:1883).
func NewMQTT(broker, prefix, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("prefix", prefix).Msg("mqtt publisher connected")
	return &MQTTPublisher{client: client, prefix: prefix}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev StatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := p.client.Publish(Topic(p.prefix, ev), 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Topic returns the topic an event is published on.
func Topic(prefix string, ev StatusEvent) string {
	return fmt.Sprintf("%s/%s/%d", prefix, ev.Type, ev.ID)
}
