package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher routes broadcast events to a RabbitMQ topic exchange.  It
// keeps one connection and channel open and redials lazily after a
// failure.  Errors are logged, never returned: the audit trail must not
// affect the outcome of a seat or baggage operation.  Run it behind
// broadcast.Async so that broker latency stays off the request path.
type Publisher struct {
    url      string
    exchange string
    log      *slog.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a publisher for exchange on the broker at url.
// No connection is made until the first Publish.
func NewPublisher(url, exchange string, log *slog.Logger) *Publisher {
    if exchange == "" {
        exchange = DefaultExchange
    }
    if log == nil {
        log = slog.Default()
    }
    return &Publisher{url: url, exchange: exchange, log: log}
}

// channel returns an open channel, dialing and declaring the exchange
// when needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    if err := declareExchange(ch, p.exchange); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Publish implements broadcast.Publisher.  The routing key is the topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) {
    body, err := json.Marshal(payload)
    if err != nil {
        p.log.Error("rabbitmq: marshal event failed", "topic", topic, "err", err)
        return
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        p.log.Warn("rabbitmq: broker unavailable, audit event lost", "topic", topic, "err", err)
        return
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := ch.PublishWithContext(ctx,
        p.exchange, // topic exchange
        topic,      // routing key
        false,      // mandatory
        false,      // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", "topic", topic, "err", err)
        p.reset()
    }
}

// Close shuts the connection down.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
    if err := ch.ExchangeDeclare(
        exchange, // name
        "topic",  // kind
        true,     // durable
        false,    // autoDelete
        false,    // internal
        false,    // noWait
        nil,      // args
    ); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    return nil
}
