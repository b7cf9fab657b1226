package scheduling

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier is the outbound notification boundary. Dispatch is best-effort:
// the service logs failures and never fails the parent operation on them.
type Notifier interface {
	BookingCreated(ctx context.Context, appt *Appointment, doctor *Doctor, patient *Patient) error
	AppointmentCancelled(ctx context.Context, appt *Appointment) error
	NoShowRecorded(ctx context.Context, appt *Appointment) error
}

// LogNotifier writes notifications to the log. It stands in for the real
// email/message dispatcher in development and tests.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) BookingCreated(_ context.Context, appt *Appointment, doctor *Doctor, patient *Patient) error {
	n.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor", doctor.DisplayName()).
		Str("patient", patient.Name).
		Time("start_time", appt.StartTime).
		Msg("booking confirmation notification")
	return nil
}

func (n *LogNotifier) AppointmentCancelled(_ context.Context, appt *Appointment) error {
	n.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("cancelled_by", appt.CancelledBy).
		Msg("cancellation notification")
	return nil
}

func (n *LogNotifier) NoShowRecorded(_ context.Context, appt *Appointment) error {
	n.log.Info().
		Str("appointment_id", appt.ID.String()).
		Msg("no-show notification")
	return nil
}
