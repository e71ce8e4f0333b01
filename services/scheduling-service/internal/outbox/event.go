package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

const AggregateAppointment = "appointment"

// Event types double as Kafka topic names (one topic per event).
const (
	EventAppointmentCreated       = "scheduling.appointment.created.v1"
	EventAppointmentRescheduled   = "scheduling.appointment.rescheduled.v1"
	EventAppointmentCanceled      = "scheduling.appointment.canceled.v1"
	EventAppointmentStatusChanged = "scheduling.appointment.status_changed.v1"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (production-style: event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	TenantID      string
	Payload       []byte
}

// AppointmentPayload is the JSON body of every appointment lifecycle event.
type AppointmentPayload struct {
	AppointmentID  string        `json:"appointment_id"`
	TenantID       string        `json:"tenant_id"`
	ProviderID     string        `json:"provider_id"`
	PatientID      string        `json:"patient_id"`
	Date           string        `json:"date"`
	Start          model.Minute  `json:"start"`
	End            model.Minute  `json:"end"`
	Status         model.Status  `json:"status"`
	PreviousStatus model.Status  `json:"previous_status,omitempty"`
	PreviousDate   string        `json:"previous_date,omitempty"`
	PreviousStart  *model.Minute `json:"previous_start,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// NewAppointmentEvent snapshots appt after a change. prev is the state before
// the change; pass nil for creations.
func NewAppointmentEvent(eventType string, appt model.Appointment, prev *model.Appointment) (Event, error) {
	p := AppointmentPayload{
		AppointmentID: appt.ID,
		TenantID:      appt.TenantID,
		ProviderID:    appt.ProviderID,
		PatientID:     appt.PatientID,
		Date:          appt.Date.Format(model.DateLayout),
		Start:         appt.Start,
		End:           appt.End,
		Status:        appt.Status,
		OccurredAt:    appt.UpdatedAt.UTC(),
	}
	if prev != nil {
		p.PreviousStatus = prev.Status
		if eventType == EventAppointmentRescheduled {
			start := prev.Start
			p.PreviousDate = prev.Date.Format(model.DateLayout)
			p.PreviousStart = &start
		}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		TenantID:      appt.TenantID,
		Payload:       body,
	}, nil
}
