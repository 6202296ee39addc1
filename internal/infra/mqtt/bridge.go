// Package mqtt publishes committed status transitions to an MQTT broker.
// The bridge is optional telemetry; the engine never depends on it.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	paho "github.com/eclipse/paho.mqtt.golang"
	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/app/notify"
)

// Config configures the bridge.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// statusPayload is the published message body.
type statusPayload struct {
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
	Previous   string `json:"previous"`
	SequenceNo uint64 `json:"sequence_no"`
}

// Bridge publishes status events to a broker.
type Bridge struct {
	client paho.Client
	topic  string
}

// NewBridge connects to the broker.
func NewBridge(cfg Config) (*Bridge, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, errors.New("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "mqtt: connect to broker")
	}

	return &Bridge{
		client: client,
		topic:  cfg.TopicPrefix + "/status",
	}, nil
}

// Run consumes status events until the context is cancelled or the
// channel closes. Publish failures are logged, never fatal.
func (b *Bridge) Run(ctx context.Context, events <-chan notify.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := b.publish(ev); err != nil {
				zlog.Error().Msgf("mqtt: publish failed: %v", err)
			}
		}
	}
}

// publish sends one retained status message so late subscribers see the
// current state.
func (b *Bridge) publish(ev notify.Event) error {
	payload, err := json.Marshal(statusPayload{
		Timestamp:  ev.At.UTC().Format(time.RFC3339),
		Status:     ev.Status.String(),
		Previous:   ev.Previous.String(),
		SequenceNo: ev.SequenceNo,
	})
	if err != nil {
		return errors.Wrap(err, "format payload")
	}

	token := b.client.Publish(b.topic, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("publish timeout")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(1000)
}
