package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentDone      = "done"
	AppointmentCancelled = "cancelled"
)

func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentDone, AppointmentCancelled:
		return true
	}
	return false
}

// Appointment is a booking of one service with one staff member at one unit.
// Date is YYYY-MM-DD and Start/End are zero-padded HH:MM, so lexical
// comparison of the stored columns matches chronological order.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UniqueKey    uuid.UUID `bun:"unique_key,type:uuid,notnull,unique"`
	UnitID       int64     `bun:"unit_id,notnull"`
	ServiceID    int64     `bun:"service_id,notnull"`
	StaffID      int64     `bun:"staff_id,notnull"`
	CustomerID   int64     `bun:"customer_id,nullzero"`
	CustomerName string    `bun:"customer_name,type:varchar(150),nullzero"`
	Date         string    `bun:"booking_date,type:varchar(10),notnull"`
	Start        string    `bun:"start_time,type:varchar(5),notnull"`
	End          string    `bun:"end_time,type:varchar(5),notnull"`
	PriceCents   int64     `bun:"price_cents,notnull"`
	Status       string    `bun:"status,type:varchar(16),notnull"`
	Notes        string    `bun:"notes,nullzero"`
	CreatedBy    int64     `bun:"created_by,nullzero"`
	UpdatedBy    int64     `bun:"updated_by,nullzero"`
	DeletedBy    int64     `bun:"deleted_by,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
	DeletedAt    time.Time `bun:"deleted_at,soft_delete,nullzero"`
}

func (a *Appointment) Removed() bool {
	return !a.DeletedAt.IsZero()
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &a.UniqueKey, &a.CreatedAt, &a.UpdatedAt)
}

// stamp fills the unique key and timestamps on insert and bumps updated_at on update.
func stamp(query bun.Query, key *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if key != nil && *key == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*key = id
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
