// Package publisher pushes live energy snapshots to an MQTT broker.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"energy-platform/internal/services"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

// DefaultPublishTimeout bounds how long a single publish may wait for the broker
const DefaultPublishTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge in time
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Client is the subset of mqtt.Client used for publishing
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// LiveSource produces the current snapshot for a user
type LiveSource interface {
	LiveSnapshot(ctx context.Context, userID string, now time.Time) (*services.LiveResult, error)
}

// Message is the JSON payload published per user
type Message struct {
	UserID    string               `json:"user_id"`
	Published time.Time            `json:"published_at"`
	Live      *services.LiveResult `json:"live"`
}

// SnapshotPublisher publishes live snapshots to <topic>/<user_id>
type SnapshotPublisher struct {
	client  Client
	topic   string
	qos     byte
	timeout time.Duration
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSnapshotPublisher creates a publisher writing under topic
func NewSnapshotPublisher(client Client, topic string, qos byte, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SnapshotPublisher {
	return &SnapshotPublisher{
		client:  client,
		topic:   topic,
		qos:     qos,
		timeout: DefaultPublishTimeout,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// TopicFor returns the topic a user's snapshots are published on
func (p *SnapshotPublisher) TopicFor(userID string) string {
	return p.topic + "/" + userID
}

// Publish sends one snapshot and waits for the broker
func (p *SnapshotPublisher) Publish(ctx context.Context, userID string, live *services.LiveResult, now time.Time) error {
	payload, err := json.Marshal(Message{UserID: userID, Published: now.UTC(), Live: live})
	if err != nil {
		p.metrics.SnapshotsPublishedTotal.WithLabelValues("encode_error").Inc()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	token := p.client.Publish(p.TopicFor(userID), p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		p.metrics.SnapshotsPublishedTotal.WithLabelValues("timeout").Inc()
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		p.metrics.SnapshotsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	p.metrics.SnapshotsPublishedTotal.WithLabelValues("ok").Inc()
	p.logger.Debug(ctx, "[MQTT_PUBLISH] Snapshot published", logging.Fields{
		"topic":   p.TopicFor(userID),
		"user_id": userID,
		"bytes":   len(payload),
	})
	return nil
}

// PublishAll builds and publishes a snapshot for every user. Failures are
// logged and the loop continues; the number published is returned.
func (p *SnapshotPublisher) PublishAll(ctx context.Context, users []string, source LiveSource, now time.Time) (int, error) {
	published := 0
	var failed int

	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		live, err := source.LiveSnapshot(ctx, userID, now)
		if err != nil {
			failed++
			p.logger.Error(ctx, "[MQTT_SNAPSHOT_ERROR] Failed to build snapshot", logging.Fields{
				"user_id": userID,
			}, err)
			continue
		}

		if err := p.Publish(ctx, userID, live, now); err != nil {
			failed++
			p.logger.Error(ctx, "[MQTT_PUBLISH_ERROR] Failed to publish snapshot", logging.Fields{
				"user_id": userID,
			}, err)
			continue
		}
		published++
	}

	if failed > 0 && published == 0 {
		return 0, fmt.Errorf("all %d snapshot publishes failed", failed)
	}
	return published, nil
}

// Connect opens an MQTT connection to broker
func Connect(broker, clientID string, logger *logging.StructuredLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn(context.Background(), "[MQTT_CONNECTION_LOST] Broker connection lost", logging.Fields{
				"broker": broker,
				"error":  err.Error(),
			})
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	logger.Info(context.Background(), "[MQTT_CONNECTED] Connected to broker", logging.Fields{
		"broker":    broker,
		"client_id": clientID,
	})
	return client, nil
}
