package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

func ValidRecordStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}

const (
	AttendanceFixed          = "fixed"
	AttendanceClientLocation = "client_location"
	AttendanceMixed          = "mixed"
)

func ValidAttendanceMode(s string) bool {
	switch s {
	case AttendanceFixed, AttendanceClientLocation, AttendanceMixed:
		return true
	}
	return false
}

// EdgeActive marks an eligibility row as in force.
const EdgeActive int16 = 1

type Unit struct {
	bun.BaseModel `bun:"table:units"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UniqueKey  uuid.UUID `bun:"unique_key,type:uuid,notnull,unique"`
	Name       string    `bun:"name,type:varchar(150),notnull"`
	Status     string    `bun:"status,type:varchar(16),notnull"`
	Phone      string    `bun:"phone,nullzero"`
	Email      string    `bun:"email,nullzero"`
	Timezone   string    `bun:"timezone,nullzero"`
	Address    string    `bun:"address,nullzero"`
	Locality   string    `bun:"locality,nullzero"`
	PostalCode string    `bun:"postal_code,nullzero"`
	CreatedBy  int64     `bun:"created_by,nullzero"`
	UpdatedBy  int64     `bun:"updated_by,nullzero"`
	DeletedBy  int64     `bun:"deleted_by,nullzero"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
	DeletedAt  time.Time `bun:"deleted_at,soft_delete,nullzero"`
}

func (u *Unit) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &u.UniqueKey, &u.CreatedAt, &u.UpdatedAt)
}

// UnitLink is an external link shown with a unit (maps, ride hailing,
// social pages). At most one link per type is primary.
type UnitLink struct {
	bun.BaseModel `bun:"table:unit_links"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UnitID    int64     `bun:"unit_id,notnull"`
	Type      string    `bun:"type,type:varchar(40),notnull"`
	Provider  string    `bun:"provider,type:varchar(40),nullzero"`
	URL       string    `bun:"url,notnull"`
	Label     string    `bun:"label,type:varchar(80),nullzero"`
	IsPrimary bool      `bun:"is_primary,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (l *UnitLink) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, nil, &l.CreatedAt, &l.UpdatedAt)
}

type Staff struct {
	bun.BaseModel `bun:"table:staff"`

	ID             int64     `bun:"id,pk,autoincrement"`
	UniqueKey      uuid.UUID `bun:"unique_key,type:uuid,notnull,unique"`
	Name           string    `bun:"name,type:varchar(150),notnull"`
	Role           string    `bun:"role,nullzero"`
	PhotoURL       string    `bun:"photo_url,nullzero"`
	Schedule       Schedule  `bun:"schedule,type:jsonb,notnull"`
	Status         string    `bun:"status,type:varchar(16),notnull"`
	AttendanceMode string    `bun:"attendance_mode,type:varchar(20),notnull"`
	CreatedBy      int64     `bun:"created_by,nullzero"`
	UpdatedBy      int64     `bun:"updated_by,nullzero"`
	DeletedBy      int64     `bun:"deleted_by,nullzero"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
	DeletedAt      time.Time `bun:"deleted_at,soft_delete,nullzero"`
}

func (s *Staff) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &s.UniqueKey, &s.CreatedAt, &s.UpdatedAt)
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              int64     `bun:"id,pk,autoincrement"`
	UniqueKey       uuid.UUID `bun:"unique_key,type:uuid,notnull,unique"`
	Title           string    `bun:"title,type:varchar(180),notnull"`
	PriceCents      int64     `bun:"price_cents,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	Description     string    `bun:"description,nullzero"`
	Icon            string    `bun:"icon,nullzero"`
	Status          string    `bun:"status,type:varchar(16),notnull"`
	AttendanceMode  string    `bun:"attendance_mode,type:varchar(20),notnull"`
	CreatedBy       int64     `bun:"created_by,nullzero"`
	UpdatedBy       int64     `bun:"updated_by,nullzero"`
	DeletedBy       int64     `bun:"deleted_by,nullzero"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
	DeletedAt       time.Time `bun:"deleted_at,soft_delete,nullzero"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &s.UniqueKey, &s.CreatedAt, &s.UpdatedAt)
}

// ServiceStaff states that a staff member may perform a service.
type ServiceStaff struct {
	bun.BaseModel `bun:"table:service_staff"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ServiceID int64     `bun:"service_id,notnull,unique:service_staff_pair"`
	StaffID   int64     `bun:"staff_id,notnull,unique:service_staff_pair"`
	Status    int16     `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (e *ServiceStaff) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, nil, &e.CreatedAt, &e.UpdatedAt)
}

// UnitService states that a unit offers a service.
type UnitService struct {
	bun.BaseModel `bun:"table:unit_service"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UnitID    int64     `bun:"unit_id,notnull,unique:unit_service_pair"`
	ServiceID int64     `bun:"service_id,notnull,unique:unit_service_pair"`
	Status    int16     `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (e *UnitService) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, nil, &e.CreatedAt, &e.UpdatedAt)
}
