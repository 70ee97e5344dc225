package bunstore

import (
	"context"
	"errors"
	"testing"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func TestReplaceUnitLinks_ReplacesAndOrders(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	got, err := s.ReplaceUnitLinks(ctx, f.unit.ID, []domain.UnitLink{
		{Type: "website", URL: "https://centro.example.com"},
		{Type: "maps", Provider: "google", URL: "https://maps.example.com/a", Label: "Open in Maps"},
		{Type: "maps", Provider: "waze", URL: "https://waze.example.com/a", IsPrimary: true},
	})
	if err != nil {
		t.Fatalf("ReplaceUnitLinks error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("links = %d, want 3", len(got))
	}
	if got[0].Type != "maps" || !got[0].IsPrimary || got[0].Provider != "waze" {
		t.Fatalf("first link = %+v, want primary maps link", got[0])
	}
	if got[2].Type != "website" || got[2].UnitID != f.unit.ID || got[2].ID == 0 {
		t.Fatalf("last link = %+v", got[2])
	}

	got, err = s.ReplaceUnitLinks(ctx, f.unit.ID, []domain.UnitLink{{Type: "instagram", URL: "https://instagram.example.com/centro"}})
	if err != nil {
		t.Fatalf("ReplaceUnitLinks error: %v", err)
	}
	stored, err := s.UnitLinks(ctx, f.unit.ID)
	if err != nil {
		t.Fatalf("UnitLinks error: %v", err)
	}
	if len(got) != 1 || len(stored) != 1 || stored[0].Type != "instagram" {
		t.Fatalf("after replace = %+v / %+v", got, stored)
	}

	if _, err := s.ReplaceUnitLinks(ctx, f.unit.ID, nil); err != nil {
		t.Fatalf("ReplaceUnitLinks(nil) error: %v", err)
	}
	if stored, _ := s.UnitLinks(ctx, f.unit.ID); stored == nil || len(stored) != 0 {
		t.Fatalf("links after clear = %#v, want empty", stored)
	}
}

func TestReplaceUnitLinks_UnknownUnit(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReplaceUnitLinks(context.Background(), 404, []domain.UnitLink{{Type: "maps", URL: "https://maps.example.com"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRemoveUnit_ClearsLinks(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	if _, err := s.ReplaceUnitLinks(ctx, f.unit.ID, []domain.UnitLink{{Type: "maps", URL: "https://maps.example.com"}}); err != nil {
		t.Fatalf("ReplaceUnitLinks error: %v", err)
	}
	if err := s.RemoveUnit(ctx, f.unit.ID, 5); err != nil {
		t.Fatalf("RemoveUnit error: %v", err)
	}
	links, err := s.UnitLinks(ctx, f.unit.ID)
	if err != nil {
		t.Fatalf("UnitLinks error: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("links after remove = %+v", links)
	}
}
