package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/matzehuels/npym/pkg/errors"
)

// DefaultTopic receives bridge events when no topic is configured.
const DefaultTopic = "npym.bridge"

// KafkaPublisher writes events as JSON messages keyed by root package.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher returns a publisher for a comma-separated broker list.
func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	addrs := splitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "kafka brokers not configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}}, nil
}

// Publish sends ev. Type and Time are filled in when empty.
func (k *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "publish %s", ev.Type)
	}
	return nil
}

// Close flushes pending messages.
func (k *KafkaPublisher) Close() error { return k.w.Close() }

func message(ev Event) (kafka.Message, error) {
	if ev.Type == "" {
		ev.Type = TypeBridgeCompleted
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, errors.Wrap(errors.ErrCodeInternal, err, "encode event")
	}
	return kafka.Message{
		Key:   []byte(ev.Root),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
