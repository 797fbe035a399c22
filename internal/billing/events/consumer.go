package events

import (
	"context"
	"fmt"

	"cowork/internal/billing/service"
	"cowork/pkg/config"
	apperrors "cowork/pkg/errors"
	"cowork/pkg/kafka"
	kafka_config "cowork/pkg/kafka/config"
	kafka_middleware "cowork/pkg/kafka/middleware"
	"cowork/pkg/logger"
	"cowork/pkg/model"
)

// Invoicer is the part of the billing service driven by reservation events.
type Invoicer interface {
	InvoiceReservation(ctx context.Context, reservationID string) error
}

// Handler invoices each created reservation. Other event types are skipped.
func Handler(invoicer Invoicer, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if msg.GetEventType() != model.EventReservationCreated {
			log.Debug("Skipping event", "event_type", msg.GetEventType(), "event_id", msg.GetEventID())
			return nil
		}

		var event model.ReservationEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("failed to decode reservation event", err)
		}
		if event.ReservationID == "" {
			return kafka.NewPermanentError("reservation event without id", nil)
		}

		if err := invoicer.InvoiceReservation(ctx, event.ReservationID); err != nil {
			return classify(event.ReservationID, err)
		}
		log.Info("Reservation invoiced", "reservation_id", event.ReservationID, "member_id", event.MemberID)
		return nil
	}
}

func classify(reservationID string, err error) error {
	message := fmt.Sprintf("failed to invoice reservation %s", reservationID)
	switch {
	case apperrors.HasCode(err, apperrors.CodeStorageFailure),
		apperrors.HasCode(err, apperrors.CodeBusy),
		apperrors.HasCode(err, apperrors.CodeTimeout),
		apperrors.HasCode(err, apperrors.CodeUnavailable):
		return kafka.NewTransientError(message, err)
	default:
		return kafka.NewPermanentError(message, err)
	}
}

// NewConsumer subscribes the billing service to the reservations topic.
func NewConsumer(cfg *config.Config, svc service.InvoiceService) (*kafka.Consumer, *kafka_middleware.Metrics, error) {
	kafkaCfg, err := kafka_config.Load(cfg.BillingGroupID)
	if err != nil {
		return nil, nil, err
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	log := cfg.Log.Component("billing-consumer")
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.ReservationsTopic, cfg.BillingGroupID, cfg.ReservationsDLQTopic, Handler(svc, log), log)
	if err != nil {
		return nil, nil, err
	}

	metrics := kafka_middleware.NewMetrics()
	consumer.Use(metrics.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	}
	return consumer, metrics, nil
}
