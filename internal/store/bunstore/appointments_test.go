package bunstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

const testDate = "2026-03-09"

func TestFindOverlap(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	existing := mustCreate(t, s, f.appointment(testDate, "10:00", "11:00"))

	tests := []struct {
		name      string
		date      string
		start     string
		end       string
		excludeID int64
		wantHit   bool
	}{
		{name: "overlaps start", date: testDate, start: "09:30", end: "10:30", wantHit: true},
		{name: "overlaps end", date: testDate, start: "10:30", end: "11:30", wantHit: true},
		{name: "contains", date: testDate, start: "09:00", end: "12:00", wantHit: true},
		{name: "inside", date: testDate, start: "10:15", end: "10:45", wantHit: true},
		{name: "back to back after", date: testDate, start: "11:00", end: "12:00"},
		{name: "back to back before", date: testDate, start: "09:00", end: "10:00"},
		{name: "other date", date: "2026-03-10", start: "10:00", end: "11:00"},
		{name: "excluding itself", date: testDate, start: "10:00", end: "11:00", excludeID: existing.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindOverlap(ctx, store.OverlapQuery{
				StaffID:   f.staff.ID,
				Date:      tt.date,
				Start:     tt.start,
				End:       tt.end,
				ExcludeID: tt.excludeID,
			})
			if err != nil {
				t.Fatalf("FindOverlap error: %v", err)
			}
			if (got != nil) != tt.wantHit {
				t.Fatalf("FindOverlap hit = %v, want %v", got != nil, tt.wantHit)
			}
			if got != nil && got.ID != existing.ID {
				t.Fatalf("FindOverlap id = %d, want %d", got.ID, existing.ID)
			}
		})
	}
}

func TestFindOverlap_IgnoresCancelledAndRemovedButNotOtherUnits(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	cancelled := f.appointment(testDate, "08:00", "09:00")
	cancelled.Status = domain.AppointmentCancelled
	mustCreate(t, s, cancelled)

	removed := mustCreate(t, s, f.appointment(testDate, "09:00", "10:00"))
	if err := s.InStaffTransaction(ctx, nil, func(ctx context.Context, tx store.BookingTx) error {
		return tx.RemoveAppointment(ctx, removed.ID, 7)
	}); err != nil {
		t.Fatalf("RemoveAppointment error: %v", err)
	}

	q := store.OverlapQuery{StaffID: f.staff.ID, Date: testDate, Start: "08:00", End: "10:00"}
	got, err := s.FindOverlap(ctx, q)
	if err != nil {
		t.Fatalf("FindOverlap error: %v", err)
	}
	if got != nil {
		t.Fatalf("FindOverlap = %+v, want nil", got)
	}

	otherUnit, err := s.CreateUnit(ctx, domain.Unit{Name: "Norte", Status: domain.StatusActive})
	if err != nil {
		t.Fatalf("CreateUnit error: %v", err)
	}
	elsewhere := f.appointment(testDate, "08:30", "09:30")
	elsewhere.UnitID = otherUnit.ID
	elsewhere = mustCreate(t, s, elsewhere)

	got, err = s.FindOverlap(ctx, q)
	if err != nil {
		t.Fatalf("FindOverlap error: %v", err)
	}
	if got == nil || got.ID != elsewhere.ID {
		t.Fatalf("FindOverlap = %+v, want appointment %d at another unit", got, elsewhere.ID)
	}
}

func TestFindOverlap_ReturnsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)

	// Seeded directly to model legacy data that predates the overlap check.
	mustCreate(t, s, f.appointment(testDate, "10:00", "11:00"))
	newer := mustCreate(t, s, f.appointment(testDate, "10:30", "11:30"))

	got, err := s.FindOverlap(context.Background(), store.OverlapQuery{StaffID: f.staff.ID, Date: testDate, Start: "10:00", End: "12:00"})
	if err != nil {
		t.Fatalf("FindOverlap error: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("FindOverlap = %+v, want id %d", got, newer.ID)
	}
}

func TestRemoveAppointment_KeepsRecordForAudit(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	a := mustCreate(t, s, f.appointment(testDate, "10:00", "11:00"))
	if a.UniqueKey.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("expected unique key to be generated")
	}

	if err := s.InStaffTransaction(ctx, nil, func(ctx context.Context, tx store.BookingTx) error {
		return tx.RemoveAppointment(ctx, a.ID, 42)
	}); err != nil {
		t.Fatalf("RemoveAppointment error: %v", err)
	}

	if _, err := s.GetAppointment(ctx, a.ID, false); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetAppointment(live) err = %v, want ErrNotFound", err)
	}
	got, err := s.GetAppointment(ctx, a.ID, true)
	if err != nil {
		t.Fatalf("GetAppointment(includeRemoved) error: %v", err)
	}
	if !got.Removed() || got.DeletedBy != 42 {
		t.Fatalf("removed record = deleted_at %v deleted_by %d, want removal by 42", got.DeletedAt, got.DeletedBy)
	}

	page, err := s.ListAppointments(ctx, store.AppointmentFilter{})
	if err != nil {
		t.Fatalf("ListAppointments error: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("ListAppointments total = %d, want 0", page.Total)
	}

	err = s.InStaffTransaction(ctx, nil, func(ctx context.Context, tx store.BookingTx) error {
		return tx.RemoveAppointment(ctx, a.ID, 42)
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second remove err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAppointment(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	a := mustCreate(t, s, f.appointment(testDate, "10:00", "11:00"))
	a.Start = "14:00"
	a.End = "15:00"
	a.Status = domain.AppointmentConfirmed
	a.UpdatedBy = 3

	err := s.InStaffTransaction(ctx, []int64{a.StaffID}, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.UpdateAppointment(ctx, a)
		return err
	})
	if err != nil {
		t.Fatalf("UpdateAppointment error: %v", err)
	}

	got, err := s.GetAppointment(ctx, a.ID, false)
	if err != nil {
		t.Fatalf("GetAppointment error: %v", err)
	}
	if got.Start != "14:00" || got.End != "15:00" || got.Status != domain.AppointmentConfirmed || got.UpdatedBy != 3 {
		t.Fatalf("updated record = %+v", got)
	}
	if got.UniqueKey != a.UniqueKey {
		t.Fatalf("unique key changed on update")
	}

	missing := a
	missing.ID = a.ID + 100
	err = s.InStaffTransaction(ctx, nil, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.UpdateAppointment(ctx, missing)
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestListAppointments_FiltersAndPaginates(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	mustCreate(t, s, f.appointment("2026-03-09", "09:00", "10:00"))
	mustCreate(t, s, f.appointment("2026-03-09", "08:00", "09:00"))
	confirmed := f.appointment("2026-03-10", "09:00", "10:00")
	confirmed.Status = domain.AppointmentConfirmed
	confirmed.Notes = "Bring Reference Photo"
	mustCreate(t, s, confirmed)

	page, err := s.ListAppointments(ctx, store.AppointmentFilter{From: "2026-03-09", To: "2026-03-09", Limit: 1})
	if err != nil {
		t.Fatalf("ListAppointments error: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 1 {
		t.Fatalf("page total=%d len=%d, want total=2 len=1", page.Total, len(page.Items))
	}
	if page.Items[0].Start != "08:00" {
		t.Fatalf("first item start = %s, want 08:00", page.Items[0].Start)
	}

	page, err = s.ListAppointments(ctx, store.AppointmentFilter{Status: domain.AppointmentConfirmed})
	if err != nil {
		t.Fatalf("ListAppointments error: %v", err)
	}
	if page.Total != 1 || page.Items[0].Date != "2026-03-10" {
		t.Fatalf("status filter = %+v", page)
	}

	page, err = s.ListAppointments(ctx, store.AppointmentFilter{Search: "reference"})
	if err != nil {
		t.Fatalf("ListAppointments error: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("search total = %d, want 1", page.Total)
	}
}

func TestInStaffTransaction_OnlyOneOfConcurrentBookingsWins(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)

	book := func(start, end string) error {
		return s.InStaffTransaction(context.Background(), []int64{f.staff.ID}, func(ctx context.Context, tx store.BookingTx) error {
			hit, err := tx.FindOverlap(ctx, store.OverlapQuery{StaffID: f.staff.ID, Date: testDate, Start: start, End: end})
			if err != nil {
				return err
			}
			if hit != nil {
				return store.ErrConflict
			}
			_, err = tx.CreateAppointment(ctx, f.appointment(testDate, start, end))
			return err
		})
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	windows := [][2]string{{"10:00", "11:00"}, {"10:30", "11:30"}}
	for i := range windows {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = book(windows[i][0], windows[i][1])
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok=%d conflicts=%d, want 1 and 1", ok, conflicts)
	}
}

func TestUniqueSorted(t *testing.T) {
	got := uniqueSorted([]int64{5, 2, 5, 0, -1, 3, 2})
	want := []int64{2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("uniqueSorted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueSorted = %v, want %v", got, want)
		}
	}
}
