package bunstore

import (
	"context"

	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
)

var models = []any{
	(*domain.Unit)(nil),
	(*domain.Staff)(nil),
	(*domain.Service)(nil),
	(*domain.ServiceStaff)(nil),
	(*domain.UnitService)(nil),
	(*domain.UnitLink)(nil),
	(*domain.Appointment)(nil),
}

// CreateSchema creates the tenant tables from the models. Postgres tenants
// are migrated with migrations/ instead, which also installs the overlap
// exclusion constraint.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	_, err := db.NewCreateIndex().
		Model((*domain.Appointment)(nil)).
		Index("appointments_staff_date_idx").
		IfNotExists().
		Column("staff_id", "booking_date").
		Exec(ctx)
	return err
}
