package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

type Type string

const (
	AppointmentCreated Type = "booking.appointment.created.v1"
	AppointmentUpdated Type = "booking.appointment.updated.v1"
	AppointmentRemoved Type = "booking.appointment.removed.v1"
)

type Appointment struct {
	ID         int64  `json:"id"`
	UniqueKey  string `json:"unique_key"`
	UnitID     int64  `json:"unit_id"`
	ServiceID  int64  `json:"service_id"`
	StaffID    int64  `json:"staff_id"`
	CustomerID int64  `json:"customer_id,omitempty"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	PriceCents int64  `json:"price_cents"`
	Status     string `json:"status"`
}

type Event struct {
	ID          string      `json:"event_id"`
	Type        Type        `json:"event_type"`
	TenantID    string      `json:"tenant_id"`
	ActorID     int64       `json:"actor_id,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Appointment Appointment `json:"appointment"`
}

func NewAppointmentEvent(t Type, tenantID string, actor int64, a domain.Appointment) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:         id.String(),
		Type:       t,
		TenantID:   tenantID,
		ActorID:    actor,
		OccurredAt: time.Now().UTC(),
		Appointment: Appointment{
			ID:         a.ID,
			UniqueKey:  a.UniqueKey.String(),
			UnitID:     a.UnitID,
			ServiceID:  a.ServiceID,
			StaffID:    a.StaffID,
			CustomerID: a.CustomerID,
			Date:       a.Date,
			Start:      a.Start,
			End:        a.End,
			PriceCents: a.PriceCents,
			Status:     a.Status,
		},
	}
}

// Publisher delivers lifecycle events after the owning transaction committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
