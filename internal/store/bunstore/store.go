package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"agenda/backend/internal/store"
)

// Store is one tenant's datastore.
type Store struct {
	queries

	tenantID string
	db       *bun.DB
}

var _ store.TenantStore = (*Store)(nil)

func New(tenantID string, db *bun.DB) *Store {
	return &Store{queries: queries{db: db}, tenantID: tenantID, db: db}
}

func (s *Store) TenantID() string {
	return s.tenantID
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return Close(s.db)
}

func (s *Store) InStaffTransaction(ctx context.Context, staffIDs []int64, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockStaff(ctx, tx, staffIDs); err != nil {
			return err
		}
		return fn(ctx, queries{db: tx})
	})
}

func (s *Store) InCatalogTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CatalogTx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, queries{db: tx})
	})
}

// lockStaff takes a transaction-scoped advisory lock per staff member in
// ascending id order. SQLite pools hold a single connection, so their
// transactions never interleave and need no extra lock.
func lockStaff(ctx context.Context, tx bun.Tx, staffIDs []int64) error {
	if tx.Dialect().Name() != dialect.PG {
		return nil
	}
	ids := uniqueSorted(staffIDs)
	for _, id := range ids {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "staff:"+strconv.FormatInt(id, 10)).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// queries runs against either the pool or an open transaction.
type queries struct {
	db bun.IDB
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap":
			return store.ErrConflict
		case pgErr.Code == "23503":
			return store.ErrNotFound
		}
	}
	return err
}

func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
