package bunstore

import (
	"context"

	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
)

func (q queries) UnitLinks(ctx context.Context, unitID int64) ([]domain.UnitLink, error) {
	links := []domain.UnitLink{}
	err := q.db.NewSelect().
		Model(&links).
		Where("unit_id = ?", unitID).
		OrderExpr("type ASC, is_primary DESC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (q queries) ReplaceUnitLinks(ctx context.Context, unitID int64, links []domain.UnitLink) ([]domain.UnitLink, error) {
	var out []domain.UnitLink
	err := q.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureExist(ctx, tx, (*domain.Unit)(nil), "unit", []int64{unitID}); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.UnitLink)(nil)).Where("unit_id = ?", unitID).Exec(ctx); err != nil {
			return err
		}
		if len(links) > 0 {
			rows := make([]domain.UnitLink, len(links))
			for i, l := range links {
				l.ID = 0
				l.UnitID = unitID
				rows[i] = l
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return mapWriteError(err)
			}
		}
		var err error
		out, err = queries{db: tx}.UnitLinks(ctx, unitID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
