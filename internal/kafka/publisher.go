// Package kafka fans posts out to a Kafka topic for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON value written for every post.
type Message struct {
	Day      string    `json:"day"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"posted_at"`
}

type Publisher struct {
	writer messageWriter
	topic  string
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// New creates a publisher writing to topic. Messages are keyed by the calendar
// day in loc so all posts of one day land in the same partition.
func New(brokers []string, topic string, loc *time.Location, log *slog.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return newPublisher(w, topic, loc, log)
}

func newPublisher(w messageWriter, topic string, loc *time.Location, log *slog.Logger) *Publisher {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		writer: w,
		topic:  topic,
		loc:    loc,
		now:    time.Now,
		log:    log.With(slog.String("publisher", "kafka"), slog.String("topic", topic)),
	}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Publish(ctx context.Context, text string) error {
	msg, err := p.buildMessage(text)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", p.topic, err)
	}
	p.log.Info("post written to kafka", slog.String("key", string(msg.Key)))
	return nil
}

func (p *Publisher) buildMessage(text string) (kafka.Message, error) {
	now := p.now().In(p.loc)
	day := now.Format("2006-01-02")
	value, err := json.Marshal(Message{Day: day, Text: text, PostedAt: now})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal kafka message: %w", err)
	}
	return kafka.Message{
		Key:   []byte(day),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
