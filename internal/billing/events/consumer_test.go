package events

import (
	"context"
	"errors"
	"testing"

	apperrors "cowork/pkg/errors"
	"cowork/pkg/kafka"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvoicer struct {
	calls []string
	err   error
}

func (r *recordingInvoicer) InvoiceReservation(_ context.Context, id string) error {
	r.calls = append(r.calls, id)
	return r.err
}

func reservationMessage(t *testing.T, eventType string, value any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey("r-1").WithValue(value).WithEventType(eventType).Build()
	require.NoError(t, err)
	return msg
}

func TestHandler_InvoicesCreatedReservations(t *testing.T) {
	inv := &recordingInvoicer{}
	handle := Handler(inv, logger.Discard())

	msg := reservationMessage(t, model.EventReservationCreated, model.ReservationEvent{ReservationID: "r-1", MemberID: "m-1"})
	require.NoError(t, handle(context.Background(), msg))
	assert.Equal(t, []string{"r-1"}, inv.calls)
}

func TestHandler_SkipsOtherEvents(t *testing.T) {
	inv := &recordingInvoicer{}
	handle := Handler(inv, logger.Discard())

	msg := reservationMessage(t, "reservation.cancelled", model.ReservationEvent{ReservationID: "r-1"})
	require.NoError(t, handle(context.Background(), msg))
	assert.Empty(t, inv.calls)
}

func TestHandler_MalformedPayloadIsPermanent(t *testing.T) {
	inv := &recordingInvoicer{}
	handle := Handler(inv, logger.Discard())

	msg := reservationMessage(t, model.EventReservationCreated, model.ReservationEvent{})
	err := handle(context.Background(), msg)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	msg.Value = []byte("{not json")
	err = handle(context.Background(), msg)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	assert.Empty(t, inv.calls)
}

func TestHandler_ClassifiesServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want kafka.ErrorType
	}{
		{"storage failure", apperrors.StorageFailure("down", errors.New("conn refused")), kafka.ErrorTypeTransient},
		{"busy", apperrors.Busy("locked"), kafka.ErrorTypeTransient},
		{"timeout", apperrors.Timeout("slow"), kafka.ErrorTypeTransient},
		{"unavailable", apperrors.Unavailable("mongo"), kafka.ErrorTypeTransient},
		{"not found", apperrors.NotFoundWithID("Reservation", "r-1"), kafka.ErrorTypePermanent},
		{"validation", apperrors.Validation("bad", nil), kafka.ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := Handler(&recordingInvoicer{err: tt.err}, logger.Discard())
			msg := reservationMessage(t, model.EventReservationCreated, model.ReservationEvent{ReservationID: "r-1"})

			err := handle(context.Background(), msg)
			require.Error(t, err)
			assert.Equal(t, tt.want, kafka.ClassifyError(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
