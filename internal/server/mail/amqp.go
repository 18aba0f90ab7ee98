package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPMailer hands messages to a delivery worker through a RabbitMQ queue.
// Messages are published as persistent JSON documents on the default
// exchange.
type AMQPMailer struct {
	ch    publisher
	queue string
}

// NewAMQPMailer publishes to queue over ch.
func NewAMQPMailer(ch publisher, queue string) *AMQPMailer {
	return &AMQPMailer{ch: ch, queue: queue}
}

// DialAMQP connects to url, declares a durable queue and returns a mailer
// together with the connection, which the caller must close.
func DialAMQP(url, queue string) (*AMQPMailer, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}

	return NewAMQPMailer(ch, queue), conn, nil
}

func (m *AMQPMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = m.ch.PublishWithContext(ctx, "", m.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Type:         "mail.message",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}
