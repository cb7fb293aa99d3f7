// Package amqp carries ledger events between the API and the event worker over
// RabbitMQ: persistent JSON messages on a direct exchange, consumed with manual
// acknowledgement.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Handler processes one event. A returned error requeues the message once.
type Handler func(ctx context.Context, e core.LedgerEvent) error

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *slog.Logger

	mu          sync.Mutex
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	lastFailure time.Time

	failureCount int64
	state        int32
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       slog.Default().With(log.FieldComponent, log.ComponentAMQP),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, channel

	if err := c.setupLocked(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setupLocked() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Routing key is the queue name
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// channelLocked returns a usable channel, reconnecting when the previous one died.
func (c *Client) channelLocked() (*amqp091.Channel, error) {
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		c.closeLocked()
		if err := c.connectLocked(); err != nil {
			return nil, err
		}
	}
	return c.channel, nil
}

// PublishLedgerEvent publishes e as a persistent message. Publishing fails fast
// while the circuit breaker is open.
func (c *Client) PublishLedgerEvent(ctx context.Context, e core.LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open: skipping publish of %s", e.Kind)
	}

	body, err := EncodeEvent(e)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Type:         string(e.Kind),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.closeLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published ledger event",
		log.FieldEventKind, string(e.Kind), log.FieldOwnerID, e.OwnerID,
		"transactions", len(e.Transactions), "queue", c.queueName)
	return nil
}

// Consume delivers events to handler until ctx is done, reconnecting with
// exponential backoff when the broker goes away.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		delivered, err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if delivered {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		c.log().WarnContext(ctx, "Consumer interrupted, reconnecting",
			log.FieldError, err, "attempt", attempt+1, "backoff", wait.String())
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler) (delivered bool, err error) {
	c.mu.Lock()
	ch, err := c.channelLocked()
	c.mu.Unlock()
	if err != nil {
		return false, err
	}

	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("start consuming: %w", err)
	}
	c.log().InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return delivered, errors.New("message channel closed")
			}
			delivered = true
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler Handler) {
	e, err := DecodeEvent(d.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Dropping malformed message", log.FieldError, err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, e); err != nil {
		// One retry; a second failure drops the message instead of looping on it
		requeue := !d.Redelivered
		c.log().ErrorContext(ctx, "Failed to handle ledger event",
			log.FieldEventKind, string(e.Kind), log.FieldOwnerID, e.OwnerID,
			log.FieldError, err, "requeue", requeue)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

// Healthy reports why events cannot currently be published, or nil.
func (c *Client) Healthy(context.Context) error {
	if c.isCircuitOpen() {
		return errors.New("circuit breaker open")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("broker connection closed")
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

// recordFailure is called with c.mu held.
func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.lastFailure = time.Now()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
