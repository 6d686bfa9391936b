package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// AMQPSink publishes events to a durable topic exchange with routing key
// "wastenot.<type>".
type AMQPSink struct {
	url      string
	exchange string
	retries  int
	delay    time.Duration

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPSink(url, exchange string) *AMQPSink {
	return &AMQPSink{url: url, exchange: exchange, retries: 3, delay: 2 * time.Second}
}

// Connect dials the broker and declares the exchange, retrying a few times.
func (s *AMQPSink) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for i := 0; i < s.retries; i++ {
		if err = s.dial(); err == nil {
			log.Printf("[amqp] connected, exchange=%s", s.exchange)
			return nil
		}
		log.Printf("[amqp] connect attempt %d/%d: %v", i+1, s.retries, err)
		if i < s.retries-1 {
			time.Sleep(s.delay)
		}
	}
	return fmt.Errorf("amqp connect: %w", err)
}

func (s *AMQPSink) dial() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return err
	}
	s.conn, s.ch = conn, ch
	return nil
}

func (s *AMQPSink) connected() bool {
	return s.conn != nil && !s.conn.IsClosed()
}

func (s *AMQPSink) Publish(_ context.Context, e Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected() {
		return fmt.Errorf("amqp: not connected")
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("amqp: encode event: %w", err)
	}
	err = s.ch.Publish(s.exchange, "wastenot."+string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.Timestamp,
		Headers: amqp.Table{
			"event_type": string(e.Type),
			"store_id":   e.StoreID,
			"crate_id":   e.CrateID,
			"offer_id":   e.OfferID,
		},
	})
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", e.Type, err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
