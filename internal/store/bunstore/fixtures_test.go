package bunstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:agenda_test_" + randomHex(t, 8) + "?mode=memory&cache=shared"
	db, err := Open(DriverSQLite, dsn, PoolConfig{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})
	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("CreateSchema error: %v", err)
	}
	return New("test", db)
}

type fixture struct {
	unit    domain.Unit
	staff   domain.Staff
	service domain.Service
}

func weekdaySchedule(unitID int64) domain.Schedule {
	s := domain.Schedule{}
	for _, day := range []string{"mon", "tue", "wed", "thu", "fri"} {
		s[day] = domain.DaySchedule{Intervals: []domain.Interval{{Start: "08:00", End: "18:00", UnitID: unitID}}}
	}
	return s
}

// seed creates one unit, one service and one staff member, all linked.
func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()

	unit, err := s.CreateUnit(ctx, domain.Unit{Name: "Centro", Status: domain.StatusActive})
	if err != nil {
		t.Fatalf("CreateUnit error: %v", err)
	}
	service, err := s.CreateService(ctx, domain.Service{
		Title:           "Haircut",
		PriceCents:      5000,
		DurationMinutes: 30,
		Status:          domain.StatusActive,
		AttendanceMode:  domain.AttendanceFixed,
	})
	if err != nil {
		t.Fatalf("CreateService error: %v", err)
	}
	staff, err := s.CreateStaff(ctx, domain.Staff{
		Name:           "Ana",
		Schedule:       weekdaySchedule(unit.ID),
		Status:         domain.StatusActive,
		AttendanceMode: domain.AttendanceFixed,
	})
	if err != nil {
		t.Fatalf("CreateStaff error: %v", err)
	}
	if _, err := s.ReplaceStaffServices(ctx, staff.ID, []int64{service.ID}); err != nil {
		t.Fatalf("ReplaceStaffServices error: %v", err)
	}
	if _, err := s.ReplaceUnitServices(ctx, unit.ID, []int64{service.ID}); err != nil {
		t.Fatalf("ReplaceUnitServices error: %v", err)
	}
	return fixture{unit: unit, staff: staff, service: service}
}

func (f fixture) appointment(date, start, end string) domain.Appointment {
	return domain.Appointment{
		UnitID:     f.unit.ID,
		ServiceID:  f.service.ID,
		StaffID:    f.staff.ID,
		Date:       date,
		Start:      start,
		End:        end,
		PriceCents: f.service.PriceCents,
		Status:     domain.AppointmentPending,
	}
}

func mustCreate(t *testing.T, s *Store, appt domain.Appointment) domain.Appointment {
	t.Helper()
	var out domain.Appointment
	err := s.InStaffTransaction(context.Background(), []int64{appt.StaffID}, func(ctx context.Context, tx store.BookingTx) error {
		a, err := tx.CreateAppointment(ctx, appt)
		out = a
		return err
	})
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	return out
}
