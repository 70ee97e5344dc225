package bunstore

import (
	"context"
	"errors"
	"testing"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func TestServiceAllowedForStaff_FlipsWhenEdgeRemoved(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	ok, err := s.ServiceAllowedForStaff(ctx, f.service.ID, f.staff.ID)
	if err != nil {
		t.Fatalf("ServiceAllowedForStaff error: %v", err)
	}
	if !ok {
		t.Fatalf("ServiceAllowedForStaff = false, want true")
	}

	if _, err := s.ReplaceStaffServices(ctx, f.staff.ID, nil); err != nil {
		t.Fatalf("ReplaceStaffServices error: %v", err)
	}

	ok, err = s.ServiceAllowedForStaff(ctx, f.service.ID, f.staff.ID)
	if err != nil {
		t.Fatalf("ServiceAllowedForStaff error: %v", err)
	}
	if ok {
		t.Fatalf("ServiceAllowedForStaff = true after edge removal, want false")
	}
}

func TestServiceAllowedForUnit(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	ok, err := s.ServiceAllowedForUnit(ctx, f.unit.ID, f.service.ID)
	if err != nil || !ok {
		t.Fatalf("ServiceAllowedForUnit = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.ServiceAllowedForUnit(ctx, f.unit.ID+1, f.service.ID)
	if err != nil || ok {
		t.Fatalf("ServiceAllowedForUnit(other unit) = %v, %v; want false, nil", ok, err)
	}
}

func TestReplaceStaffServices_IdempotentAndDeduplicated(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	second, err := s.CreateService(ctx, domain.Service{Title: "Shave", PriceCents: 2000, DurationMinutes: 20, Status: domain.StatusActive, AttendanceMode: domain.AttendanceFixed})
	if err != nil {
		t.Fatalf("CreateService error: %v", err)
	}

	input := []int64{second.ID, f.service.ID, second.ID}
	for i := 0; i < 2; i++ {
		got, err := s.ReplaceStaffServices(ctx, f.staff.ID, input)
		if err != nil {
			t.Fatalf("ReplaceStaffServices #%d error: %v", i, err)
		}
		if len(got) != 2 || got[0] != f.service.ID || got[1] != second.ID {
			t.Fatalf("ReplaceStaffServices #%d = %v", i, got)
		}
		stored, err := s.StaffServiceIDs(ctx, f.staff.ID)
		if err != nil {
			t.Fatalf("StaffServiceIDs error: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("stored edges after #%d = %v, want 2 edges", i, stored)
		}
	}

	staffIDs, err := s.ServiceStaffIDs(ctx, second.ID)
	if err != nil {
		t.Fatalf("ServiceStaffIDs error: %v", err)
	}
	if len(staffIDs) != 1 || staffIDs[0] != f.staff.ID {
		t.Fatalf("ServiceStaffIDs = %v, want [%d]", staffIDs, f.staff.ID)
	}
}

func TestReplace_UnknownIDKeepsPreviousEdges(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	_, err := s.ReplaceStaffServices(ctx, f.staff.ID, []int64{f.service.ID + 999})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ReplaceStaffServices err = %v, want ErrNotFound", err)
	}
	_, err = s.ReplaceUnitServices(ctx, f.unit.ID, []int64{0})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ReplaceUnitServices err = %v, want ErrNotFound", err)
	}
	_, err = s.ReplaceServiceStaff(ctx, f.service.ID+999, []int64{f.staff.ID})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ReplaceServiceStaff err = %v, want ErrNotFound", err)
	}

	ids, err := s.StaffServiceIDs(ctx, f.staff.ID)
	if err != nil {
		t.Fatalf("StaffServiceIDs error: %v", err)
	}
	if len(ids) != 1 || ids[0] != f.service.ID {
		t.Fatalf("edges after failed replace = %v, want [%d]", ids, f.service.ID)
	}
	unitIDs, err := s.UnitServiceIDs(ctx, f.unit.ID)
	if err != nil {
		t.Fatalf("UnitServiceIDs error: %v", err)
	}
	if len(unitIDs) != 1 {
		t.Fatalf("unit edges after failed replace = %v", unitIDs)
	}
}

func TestRemoveStaff_ClearsServiceEdges(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	if err := s.RemoveStaff(ctx, f.staff.ID, 1); err != nil {
		t.Fatalf("RemoveStaff error: %v", err)
	}
	if _, err := s.GetStaff(ctx, f.staff.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetStaff after remove err = %v, want ErrNotFound", err)
	}
	ok, err := s.ServiceAllowedForStaff(ctx, f.service.ID, f.staff.ID)
	if err != nil {
		t.Fatalf("ServiceAllowedForStaff error: %v", err)
	}
	if ok {
		t.Fatalf("edge survived staff removal")
	}
	if err := s.RemoveStaff(ctx, f.staff.ID, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second RemoveStaff err = %v, want ErrNotFound", err)
	}
}

func TestCatalogList_SearchAndStatus(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	if _, err := s.CreateUnit(ctx, domain.Unit{Name: "Zona Sul", Status: domain.StatusInactive}); err != nil {
		t.Fatalf("CreateUnit error: %v", err)
	}

	page, err := s.ListUnits(ctx, store.CatalogFilter{})
	if err != nil {
		t.Fatalf("ListUnits error: %v", err)
	}
	if page.Total != 2 || page.Items[0].Name != "Centro" {
		t.Fatalf("ListUnits = %+v", page)
	}

	page, err = s.ListUnits(ctx, store.CatalogFilter{Status: domain.StatusInactive})
	if err != nil {
		t.Fatalf("ListUnits error: %v", err)
	}
	if page.Total != 1 || page.Items[0].Name != "Zona Sul" {
		t.Fatalf("ListUnits(inactive) = %+v", page)
	}

	services, err := s.ListServices(ctx, store.CatalogFilter{Search: "HAIR"})
	if err != nil {
		t.Fatalf("ListServices error: %v", err)
	}
	if services.Total != 1 {
		t.Fatalf("ListServices(search) total = %d, want 1", services.Total)
	}

	staff, err := s.ListStaff(ctx, store.CatalogFilter{})
	if err != nil {
		t.Fatalf("ListStaff error: %v", err)
	}
	if staff.Total != 1 || len(staff.Items[0].Schedule) != 5 {
		t.Fatalf("ListStaff = %+v", staff)
	}
}
