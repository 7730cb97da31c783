package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// NotificationExchange is the exchange entitlement events are published to.
const NotificationExchange = "notifications"

// QueueConfig binds a queue to a routing key on the notification exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues lists the queues consumed by notification workers.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.entitlement", RoutingKey: "entitlement.activated"},
	}
}

// Connect dials RabbitMQ and opens a channel.
func Connect(amqpURI string) (*amqp.Connection, *amqp.Channel, error) {
	const op = "rabbitmq.Connect"
	conn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, ch, nil
}

// SetupQueues declares the exchange and binds the notification queues to it.
func SetupQueues(ch *amqp.Channel, queues []QueueConfig) error {
	const op = "rabbitmq.SetupQueues"
	if err := ch.ExchangeDeclare(NotificationExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, NotificationExchange, false, nil); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}
