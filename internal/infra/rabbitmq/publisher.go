package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MatchFinishedType is the event type carried by every published result.
const MatchFinishedType = "match.finished"

// DefaultQueue receives match.finished events when none is configured.
const DefaultQueue = "battle.match_finished"

// MatchFinishedEvent is the JSON body of a match.finished message.
type MatchFinishedEvent struct {
	Type       string             `json:"type"`
	OccurredAt time.Time          `json:"occurredAt"`
	Result     domain.MatchResult `json:"result"`
}

// Publisher announces settled matches on a durable queue.
type Publisher struct {
	conn  *amqp.Connection
	queue string
	now   func() time.Time

	// amqp channels must not be shared between concurrent publishers
	mu      sync.Mutex
	channel *amqp.Channel
}

func NewPublisher(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Publisher{conn: conn, channel: channel, queue: queue, now: time.Now}, nil
}

func (p *Publisher) PublishMatchResult(ctx context.Context, result domain.MatchResult) error {
	msg, err := NewMatchFinishedMessage(result, p.now())
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s for room %s: %w", MatchFinishedType, result.RoomID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewMatchFinishedMessage builds the persistent message for a settled match. The
// result id doubles as the message id so consumers can drop redeliveries.
func NewMatchFinishedMessage(result domain.MatchResult, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(MatchFinishedEvent{
		Type:       MatchFinishedType,
		OccurredAt: now.UTC(),
		Result:     result,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", MatchFinishedType, err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         MatchFinishedType,
		MessageId:    result.ID,
		Timestamp:    now,
		Body:         body,
	}, nil
}
