package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iheejigoro/apiserver/config"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaClient publishes through a shared writer and opens a group reader per
// subscription. The channel name is the topic.
type KafkaClient struct {
	brokers []string
	groupID string
	writer  *kafka.Writer
	dialer  *kafka.Dialer
}

// NewKafkaClient constructs a Kafka client from config. Setting a username
// switches both directions to SASL/PLAIN over TLS.
func NewKafkaClient(cfg config.KafkaConfig) (*KafkaClient, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	transport := &kafka.Transport{}
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if cfg.Username != "" {
		mechanism := plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
		transport.SASL = mechanism
		transport.TLS = &tls.Config{}
		dialer.SASLMechanism = mechanism
		dialer.TLS = &tls.Config{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              transport,
		WriteTimeout:           10 * time.Second,
	}

	return &KafkaClient{
		brokers: brokers,
		groupID: cfg.GroupID,
		writer:  writer,
		dialer:  dialer,
	}, nil
}

// Publish writes one message to the topic named by channel. The generated
// message id is also the partition key.
func (k *KafkaClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("kafka channel is required")
	}

	messageID := newMessageID()
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   channel,
		Key:     []byte(messageID),
		Value:   data,
		Headers: attributesToHeaders(attrs),
		Time:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes the topic as part of the configured consumer group.
// Offsets are committed only after the handler succeeds. A handler error
// stops the subscription without committing, so the group resumes at the
// failed message.
func (k *KafkaClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("kafka channel is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  k.groupID,
		Topic:    channel,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})
	defer func() {
		_ = reader.Close()
	}()

	return consume(ctx, reader, handler)
}

// groupReader is the part of *kafka.Reader the consume loop needs.
type groupReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

func consume(ctx context.Context, reader groupReader, handler Handler) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		message := Message{
			ID:         string(msg.Key),
			Data:       msg.Value,
			Attributes: headersFromKafka(msg.Headers),
		}
		if err := handler(ctx, message); err != nil {
			return fmt.Errorf("handle %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

// Close flushes and closes the writer.
func (k *KafkaClient) Close() error {
	return k.writer.Close()
}

func attributesToHeaders(attrs map[string]string) []kafka.Header {
	if len(attrs) == 0 {
		return nil
	}
	headers := make([]kafka.Header, 0, len(attrs))
	for key, value := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}

func headersFromKafka(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for _, header := range headers {
		attrs[header.Key] = string(header.Value)
	}
	return attrs
}
