package events

import (
	"context"
	"fmt"

	"cowork/pkg/config"
	"cowork/pkg/kafka"
	kafka_config "cowork/pkg/kafka/config"
	kafka_middleware "cowork/pkg/kafka/middleware"
	"cowork/pkg/model"
)

const SchemaVersion = "1"

// Publisher announces committed reservations to downstream consumers.
type Publisher interface {
	PublishReservationCreated(ctx context.Context, reservation *model.Reservation) error
	Close() error
}

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer producer
	source   string
}

func NewKafkaPublisher(p producer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, source: source}
}

func (p *KafkaPublisher) PublishReservationCreated(ctx context.Context, r *model.Reservation) error {
	msg, err := kafka.NewMessage().
		WithKey(r.ID).
		WithValue(model.ReservationEvent{
			ReservationID: r.ID,
			MemberID:      r.MemberID,
			ResourceType:  r.ResourceType,
			ResourceID:    r.ResourceID,
			TotalPrice:    r.TotalPrice,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			CreatedAt:     r.CreatedAt,
		}).
		WithEventType(model.EventReservationCreated).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build reservation event: %w", err)
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) PublishReservationCreated(context.Context, *model.Reservation) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

// New returns a Kafka publisher when events are enabled, otherwise a no-op.
func New(cfg *config.Config, source string) (Publisher, error) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Reservation events disabled")
		return NoopPublisher{}, nil
	}

	kafkaCfg, err := kafka_config.Load(source)
	if err != nil {
		return nil, err
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	p, err := kafka.NewProducer(kafkaCfg, cfg.ReservationsTopic, cfg.ReservationsDLQTopic, cfg.Log)
	if err != nil {
		return nil, err
	}
	if kafkaCfg.EnableMiddleware {
		p.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return NewKafkaPublisher(p, source), nil
}
