package store

import (
	"context"

	"agenda/backend/internal/domain"
)

type CatalogFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// EligibilityWriter replaces the full edge set of one owner atomically.
// Ids are deduplicated; an unknown id leaves the previous set untouched
// and returns ErrNotFound. The returned slice is the stored set, sorted.
type EligibilityWriter interface {
	ReplaceStaffServices(ctx context.Context, staffID int64, serviceIDs []int64) ([]int64, error)
	ReplaceUnitServices(ctx context.Context, unitID int64, serviceIDs []int64) ([]int64, error)
	ReplaceServiceStaff(ctx context.Context, serviceID int64, staffIDs []int64) ([]int64, error)
}

type CatalogTx interface {
	Lookup
	EligibilityWriter

	StaffServiceIDs(ctx context.Context, staffID int64) ([]int64, error)
	UnitServiceIDs(ctx context.Context, unitID int64) ([]int64, error)
	ServiceStaffIDs(ctx context.Context, serviceID int64) ([]int64, error)

	UnitLinks(ctx context.Context, unitID int64) ([]domain.UnitLink, error)
	// ReplaceUnitLinks swaps the unit's whole link set and returns it in
	// display order. An unknown unit returns ErrNotFound.
	ReplaceUnitLinks(ctx context.Context, unitID int64, links []domain.UnitLink) ([]domain.UnitLink, error)

	CreateUnit(ctx context.Context, u domain.Unit) (domain.Unit, error)
	ListUnits(ctx context.Context, f CatalogFilter) (Page[domain.Unit], error)
	UpdateUnit(ctx context.Context, u domain.Unit) (domain.Unit, error)
	RemoveUnit(ctx context.Context, id, actor int64) error

	CreateStaff(ctx context.Context, s domain.Staff) (domain.Staff, error)
	ListStaff(ctx context.Context, f CatalogFilter) (Page[domain.Staff], error)
	UpdateStaff(ctx context.Context, s domain.Staff) (domain.Staff, error)
	RemoveStaff(ctx context.Context, id, actor int64) error

	CreateService(ctx context.Context, s domain.Service) (domain.Service, error)
	ListServices(ctx context.Context, f CatalogFilter) (Page[domain.Service], error)
	UpdateService(ctx context.Context, s domain.Service) (domain.Service, error)
	RemoveService(ctx context.Context, id, actor int64) error
}

type Catalog interface {
	CatalogTx
	InCatalogTransaction(ctx context.Context, fn func(ctx context.Context, tx CatalogTx) error) error
}

// TenantStore is everything a resolved tenant datastore offers.
type TenantStore interface {
	Tenant
	Catalog
}
