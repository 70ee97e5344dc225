package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func (q queries) FindOverlap(ctx context.Context, oq store.OverlapQuery) (*domain.Appointment, error) {
	var a domain.Appointment
	sel := q.db.NewSelect().
		Model(&a).
		Where("staff_id = ?", oq.StaffID).
		Where("booking_date = ?", oq.Date).
		Where("status <> ?", domain.AppointmentCancelled).
		Where("start_time < ?", oq.End).
		Where("end_time > ?", oq.Start)
	if oq.ExcludeID > 0 {
		sel = sel.Where("id <> ?", oq.ExcludeID)
	}
	err := sel.OrderExpr("id DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (q queries) GetAppointment(ctx context.Context, id int64, includeRemoved bool) (domain.Appointment, error) {
	var a domain.Appointment
	sel := q.db.NewSelect().Model(&a).Where("id = ?", id)
	if includeRemoved {
		sel = sel.WhereAllWithDeleted()
	}
	if err := sel.Limit(1).Scan(ctx); err != nil {
		return domain.Appointment{}, mapReadError(err)
	}
	return a, nil
}

func (q queries) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	m.ID = 0
	if _, err := q.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapWriteError(err)
	}
	return m, nil
}

func (q queries) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := q.db.NewUpdate().
		Model(&m).
		Column(
			"unit_id", "service_id", "staff_id", "customer_id", "customer_name",
			"booking_date", "start_time", "end_time",
			"price_cents", "status", "notes",
			"updated_by", "updated_at",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapWriteError(err)
	}
	if err := checkAffected(res); err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

// RemoveAppointment soft-deletes a live appointment and records who removed it.
func (q queries) RemoveAppointment(ctx context.Context, id, actor int64) error {
	now := time.Now().UTC()
	upd := q.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now)
	if actor > 0 {
		upd = upd.Set("deleted_by = ?", actor)
	}
	res, err := upd.Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (q queries) ListAppointments(ctx context.Context, f store.AppointmentFilter) (store.Page[domain.Appointment], error) {
	page, limit := store.NormalizePage(f.Page, f.Limit)

	var rows []domain.Appointment
	sel := q.db.NewSelect().Model(&rows)
	if f.Status != "" {
		sel = sel.Where("status = ?", f.Status)
	}
	if f.StaffID > 0 {
		sel = sel.Where("staff_id = ?", f.StaffID)
	}
	if f.ServiceID > 0 {
		sel = sel.Where("service_id = ?", f.ServiceID)
	}
	if f.UnitID > 0 {
		sel = sel.Where("unit_id = ?", f.UnitID)
	}
	if f.From != "" {
		sel = sel.Where("booking_date >= ?", f.From)
	}
	if f.To != "" {
		sel = sel.Where("booking_date <= ?", f.To)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		sel = sel.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(customer_name) LIKE ?", pattern).WhereOr("LOWER(notes) LIKE ?", pattern)
		})
	}

	total, err := sel.
		OrderExpr("booking_date ASC, start_time ASC, id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		ScanAndCount(ctx)
	if err != nil {
		return store.Page[domain.Appointment]{}, err
	}
	return store.Page[domain.Appointment]{Items: rows, Total: total, Page: page, Limit: limit}, nil
}
