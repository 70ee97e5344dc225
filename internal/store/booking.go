package store

import (
	"context"

	"agenda/backend/internal/domain"
)

type Eligibility interface {
	ServiceAllowedForStaff(ctx context.Context, serviceID, staffID int64) (bool, error)
	ServiceAllowedForUnit(ctx context.Context, unitID, serviceID int64) (bool, error)
}

type Lookup interface {
	GetUnit(ctx context.Context, id int64) (domain.Unit, error)
	GetStaff(ctx context.Context, id int64) (domain.Staff, error)
	GetService(ctx context.Context, id int64) (domain.Service, error)
}

// OverlapQuery selects live appointments of one staff member on one date
// whose [Start,End) intersects the given window. ExcludeID > 0 skips that record.
type OverlapQuery struct {
	StaffID   int64
	Date      string
	Start     string
	End       string
	ExcludeID int64
}

// BookingTx is the view of a tenant datastore available inside a staff transaction.
type BookingTx interface {
	Eligibility
	Lookup

	FindOverlap(ctx context.Context, q OverlapQuery) (*domain.Appointment, error)
	GetAppointment(ctx context.Context, id int64, includeRemoved bool) (domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	RemoveAppointment(ctx context.Context, id, actor int64) error
}

type AppointmentFilter struct {
	Status    string
	StaffID   int64
	ServiceID int64
	UnitID    int64
	From      string
	To        string
	Search    string
	Page      int
	Limit     int
}

// Tenant is the booking capability of one tenant's datastore.
type Tenant interface {
	TenantID() string
	// InStaffTransaction runs fn in a transaction that holds an exclusive
	// booking lock for every listed staff member until commit.
	InStaffTransaction(ctx context.Context, staffIDs []int64, fn func(ctx context.Context, tx BookingTx) error) error
	GetAppointment(ctx context.Context, id int64, includeRemoved bool) (domain.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) (Page[domain.Appointment], error)
}

type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePage clamps page and limit to sane values.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
