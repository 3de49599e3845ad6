package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type AMQPConfig struct {
	URL             string
	Exchange        string
	Queue           string
	DeadLetterQueue string
}

// AMQPBroker publishes notifications to a durable RabbitMQ queue and, through
// Consume, delivers them. Failed deliveries are dead-lettered, never requeued.
type AMQPBroker struct {
	cfg  AMQPConfig
	conn *amqp.Connection

	mu      sync.Mutex
	channel *amqp.Channel
}

func DialAMQP(cfg AMQPConfig) (*AMQPBroker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	b := &AMQPBroker{cfg: cfg, conn: conn, channel: ch}
	if err := b.SetupQueues(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *AMQPBroker) deadLetterExchange() string {
	return b.cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the notification exchange and queue plus the
// dead-letter exchange and queue they route rejects to.
func (b *AMQPBroker) SetupQueues() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := b.channel
	if err := ch.ExchangeDeclare(
		b.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		b.cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}

	if err := ch.QueueBind(b.cfg.DeadLetterQueue, b.cfg.DeadLetterQueue, b.deadLetterExchange(), false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	if err := ch.ExchangeDeclare(b.cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		b.cfg.Queue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    b.deadLetterExchange(),
			"x-dead-letter-routing-key": b.cfg.DeadLetterQueue,
		},
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(b.cfg.Queue, b.cfg.Queue, b.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Dispatch publishes n as a persistent JSON message. Publish errors are
// logged and counted; the caller is never told.
func (b *AMQPBroker) Dispatch(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		zap.L().Error("[NOTIFY] encode job failed", zap.String("kind", string(n.Kind)), zap.Error(err))
		return
	}

	msg := amqp.Publishing{
		MessageId:    uuid.NewString(),
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         string(n.Kind),
		Body:         body,
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	b.mu.Lock()
	err = b.channel.PublishWithContext(pubCtx, b.cfg.Exchange, b.cfg.Queue, false, false, msg)
	b.mu.Unlock()

	if err != nil {
		zap.L().Error("[NOTIFY] publish failed",
			zap.String("kind", string(n.Kind)),
			zap.String("orderId", n.Data.OrderID),
			zap.Error(err),
		)
		notificationsTotal.WithLabelValues(string(n.Kind), "publish_error").Inc()
		return
	}
	zap.L().Debug("[NOTIFY] queued", zap.String("kind", string(n.Kind)), zap.String("messageId", msg.MessageId))
}

// Consume delivers queued notifications through sender until ctx is done or
// the delivery channel closes. Each message gets one attempt.
func (b *AMQPBroker) Consume(ctx context.Context, sender Sender) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}

	msgs, err := ch.Consume(
		b.cfg.Queue,
		"storefront-notify", // consumer tag
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			handleDelivery(ctx, sender, msg)
		}
	}
}

// acknowledger is the subset of amqp.Delivery handleDelivery settles through.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, sender Sender, msg amqp.Delivery) {
	settle(ctx, sender, msg.Body, msg.MessageId, msg)
}

func settle(ctx context.Context, sender Sender, body []byte, messageID string, ack acknowledger) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		zap.L().Error("[NOTIFY] invalid job", zap.String("messageId", messageID), zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if Deliver(sendCtx, sender, n) {
		_ = ack.Ack(false)
		return
	}
	_ = ack.Nack(false, false)
}

func (b *AMQPBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		_ = b.channel.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}
