package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher is the producer side of the broker. *broker.KafkaProducer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// EmailMessage is the payload the messaging service consumes from the email
// topic.
type EmailMessage struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Source   string    `json:"source"`
	QueuedAt time.Time `json:"queued_at"`
}

// KafkaMailer hands emails to the messaging service through Kafka.
type KafkaMailer struct {
	publisher Publisher
	source    string
}

func NewKafkaMailer(publisher Publisher, source string) *KafkaMailer {
	return &KafkaMailer{publisher: publisher, source: source}
}

func (m *KafkaMailer) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(EmailMessage{
		To:       to,
		Subject:  subject,
		Body:     body,
		Source:   m.source,
		QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	if err := m.publisher.Publish(ctx, to, payload); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}
