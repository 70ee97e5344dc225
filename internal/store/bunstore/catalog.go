package bunstore

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func (q queries) GetUnit(ctx context.Context, id int64) (domain.Unit, error) {
	var u domain.Unit
	if err := q.db.NewSelect().Model(&u).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Unit{}, mapReadError(err)
	}
	return u, nil
}

func (q queries) GetStaff(ctx context.Context, id int64) (domain.Staff, error) {
	var s domain.Staff
	if err := q.db.NewSelect().Model(&s).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Staff{}, mapReadError(err)
	}
	return s, nil
}

func (q queries) GetService(ctx context.Context, id int64) (domain.Service, error) {
	var s domain.Service
	if err := q.db.NewSelect().Model(&s).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Service{}, mapReadError(err)
	}
	return s, nil
}

func (q queries) CreateUnit(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	m := u
	m.ID = 0
	if _, err := q.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Unit{}, mapWriteError(err)
	}
	return m, nil
}

func (q queries) ListUnits(ctx context.Context, f store.CatalogFilter) (store.Page[domain.Unit], error) {
	var rows []domain.Unit
	return listCatalog(ctx, q.db.NewSelect().Model(&rows), &rows, "name", f)
}

func (q queries) UpdateUnit(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	m := u
	res, err := q.db.NewUpdate().
		Model(&m).
		Column("name", "status", "phone", "email", "timezone", "address", "locality", "postal_code", "updated_by", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Unit{}, mapWriteError(err)
	}
	if err := checkAffected(res); err != nil {
		return domain.Unit{}, err
	}
	return m, nil
}

func (q queries) RemoveUnit(ctx context.Context, id, actor int64) error {
	return q.removeWithEdges(ctx, (*domain.Unit)(nil), id, actor, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.UnitService)(nil)).Where("unit_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*domain.UnitLink)(nil)).Where("unit_id = ?", id).Exec(ctx)
		return err
	})
}

func (q queries) CreateStaff(ctx context.Context, s domain.Staff) (domain.Staff, error) {
	m := s
	m.ID = 0
	if _, err := q.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Staff{}, mapWriteError(err)
	}
	return m, nil
}

func (q queries) ListStaff(ctx context.Context, f store.CatalogFilter) (store.Page[domain.Staff], error) {
	var rows []domain.Staff
	return listCatalog(ctx, q.db.NewSelect().Model(&rows), &rows, "name", f)
}

func (q queries) UpdateStaff(ctx context.Context, s domain.Staff) (domain.Staff, error) {
	m := s
	res, err := q.db.NewUpdate().
		Model(&m).
		Column("name", "role", "photo_url", "schedule", "status", "attendance_mode", "updated_by", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Staff{}, mapWriteError(err)
	}
	if err := checkAffected(res); err != nil {
		return domain.Staff{}, err
	}
	return m, nil
}

// RemoveStaff soft-deletes the staff member and drops every service edge it had.
func (q queries) RemoveStaff(ctx context.Context, id, actor int64) error {
	return q.removeWithEdges(ctx, (*domain.Staff)(nil), id, actor, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*domain.ServiceStaff)(nil)).Where("staff_id = ?", id).Exec(ctx)
		return err
	})
}

func (q queries) CreateService(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := s
	m.ID = 0
	if _, err := q.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Service{}, mapWriteError(err)
	}
	return m, nil
}

func (q queries) ListServices(ctx context.Context, f store.CatalogFilter) (store.Page[domain.Service], error) {
	var rows []domain.Service
	return listCatalog(ctx, q.db.NewSelect().Model(&rows), &rows, "title", f)
}

func (q queries) UpdateService(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := s
	res, err := q.db.NewUpdate().
		Model(&m).
		Column("title", "price_cents", "duration_minutes", "description", "icon", "status", "attendance_mode", "updated_by", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Service{}, mapWriteError(err)
	}
	if err := checkAffected(res); err != nil {
		return domain.Service{}, err
	}
	return m, nil
}

func (q queries) RemoveService(ctx context.Context, id, actor int64) error {
	return q.removeWithEdges(ctx, (*domain.Service)(nil), id, actor, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.ServiceStaff)(nil)).Where("service_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*domain.UnitService)(nil)).Where("service_id = ?", id).Exec(ctx)
		return err
	})
}

func (q queries) removeWithEdges(ctx context.Context, model any, id, actor int64, clearEdges func(ctx context.Context, tx bun.Tx) error) error {
	return q.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		upd := tx.NewUpdate().
			Model(model).
			Set("deleted_at = ?", now).
			Set("updated_at = ?", now)
		if actor > 0 {
			upd = upd.Set("deleted_by = ?", actor)
		}
		res, err := upd.Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return clearEdges(ctx, tx)
	})
}

func listCatalog[T any](ctx context.Context, sel *bun.SelectQuery, rows *[]T, searchColumn string, f store.CatalogFilter) (store.Page[T], error) {
	page, limit := store.NormalizePage(f.Page, f.Limit)
	if f.Status != "" {
		sel = sel.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		sel = sel.Where("LOWER(?) LIKE ?", bun.Ident(searchColumn), likePattern(f.Search))
	}
	total, err := sel.
		OrderExpr("? ASC, id ASC", bun.Ident(searchColumn)).
		Limit(limit).
		Offset((page - 1) * limit).
		ScanAndCount(ctx)
	if err != nil {
		return store.Page[T]{}, err
	}
	return store.Page[T]{Items: *rows, Total: total, Page: page, Limit: limit}, nil
}

func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("%", "", "_", "").Replace(s)
	return "%" + s + "%"
}
