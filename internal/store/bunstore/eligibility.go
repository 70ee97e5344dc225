package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func (q queries) ServiceAllowedForStaff(ctx context.Context, serviceID, staffID int64) (bool, error) {
	return q.db.NewSelect().
		Model((*domain.ServiceStaff)(nil)).
		Where("service_id = ?", serviceID).
		Where("staff_id = ?", staffID).
		Where("status = ?", domain.EdgeActive).
		Exists(ctx)
}

func (q queries) ServiceAllowedForUnit(ctx context.Context, unitID, serviceID int64) (bool, error) {
	return q.db.NewSelect().
		Model((*domain.UnitService)(nil)).
		Where("unit_id = ?", unitID).
		Where("service_id = ?", serviceID).
		Where("status = ?", domain.EdgeActive).
		Exists(ctx)
}

func (q queries) StaffServiceIDs(ctx context.Context, staffID int64) ([]int64, error) {
	return q.edgeIDs(ctx, (*domain.ServiceStaff)(nil), "service_id", "staff_id", staffID)
}

func (q queries) UnitServiceIDs(ctx context.Context, unitID int64) ([]int64, error) {
	return q.edgeIDs(ctx, (*domain.UnitService)(nil), "service_id", "unit_id", unitID)
}

func (q queries) ServiceStaffIDs(ctx context.Context, serviceID int64) ([]int64, error) {
	return q.edgeIDs(ctx, (*domain.ServiceStaff)(nil), "staff_id", "service_id", serviceID)
}

func (q queries) edgeIDs(ctx context.Context, model any, column, ownerColumn string, ownerID int64) ([]int64, error) {
	ids := []int64{}
	err := q.db.NewSelect().
		Model(model).
		Column(column).
		Where("? = ?", bun.Ident(ownerColumn), ownerID).
		Where("status = ?", domain.EdgeActive).
		OrderExpr("? ASC", bun.Ident(column)).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (q queries) ReplaceStaffServices(ctx context.Context, staffID int64, serviceIDs []int64) ([]int64, error) {
	ids, err := normalizeIDs("service", serviceIDs)
	if err != nil {
		return nil, err
	}
	err = q.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureExist(ctx, tx, (*domain.Staff)(nil), "staff", []int64{staffID}); err != nil {
			return err
		}
		if err := ensureExist(ctx, tx, (*domain.Service)(nil), "service", ids); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.ServiceStaff)(nil)).Where("staff_id = ?", staffID).Exec(ctx); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		now := time.Now().UTC()
		rows := make([]domain.ServiceStaff, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, domain.ServiceStaff{ServiceID: id, StaffID: staffID, Status: domain.EdgeActive, CreatedAt: now, UpdatedAt: now})
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (q queries) ReplaceServiceStaff(ctx context.Context, serviceID int64, staffIDs []int64) ([]int64, error) {
	ids, err := normalizeIDs("staff", staffIDs)
	if err != nil {
		return nil, err
	}
	err = q.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureExist(ctx, tx, (*domain.Service)(nil), "service", []int64{serviceID}); err != nil {
			return err
		}
		if err := ensureExist(ctx, tx, (*domain.Staff)(nil), "staff", ids); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.ServiceStaff)(nil)).Where("service_id = ?", serviceID).Exec(ctx); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		now := time.Now().UTC()
		rows := make([]domain.ServiceStaff, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, domain.ServiceStaff{ServiceID: serviceID, StaffID: id, Status: domain.EdgeActive, CreatedAt: now, UpdatedAt: now})
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (q queries) ReplaceUnitServices(ctx context.Context, unitID int64, serviceIDs []int64) ([]int64, error) {
	ids, err := normalizeIDs("service", serviceIDs)
	if err != nil {
		return nil, err
	}
	err = q.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureExist(ctx, tx, (*domain.Unit)(nil), "unit", []int64{unitID}); err != nil {
			return err
		}
		if err := ensureExist(ctx, tx, (*domain.Service)(nil), "service", ids); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.UnitService)(nil)).Where("unit_id = ?", unitID).Exec(ctx); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		now := time.Now().UTC()
		rows := make([]domain.UnitService, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, domain.UnitService{UnitID: unitID, ServiceID: id, Status: domain.EdgeActive, CreatedAt: now, UpdatedAt: now})
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func normalizeIDs(label string, ids []int64) ([]int64, error) {
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%s %d: %w", label, id, store.ErrNotFound)
		}
	}
	return uniqueSorted(ids), nil
}

// ensureExist fails with ErrNotFound naming the first id that has no live row.
func ensureExist(ctx context.Context, tx bun.Tx, model any, label string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found := []int64{}
	err := tx.NewSelect().
		Model(model).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return err
	}
	have := make(map[int64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return fmt.Errorf("%s %d: %w", label, id, store.ErrNotFound)
		}
	}
	return nil
}
