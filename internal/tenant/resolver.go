package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"golang.org/x/sync/singleflight"

	"agenda/backend/internal/store"
	"agenda/backend/internal/store/bunstore"
)

const Placeholder = "{tenant}"

var (
	ErrInvalidTenant = errors.New("invalid tenant id")
	ErrUnknownTenant = errors.New("unknown tenant")
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

type Config struct {
	Driver      string
	DSNTemplate string
	CacheSize   int
	Pool        bunstore.PoolConfig
	// CreateSchema bootstraps tables on first open. Meant for SQLite dev tenants.
	CreateSchema bool
}

type opener func(driver, dsn string, pool bunstore.PoolConfig) (*bun.DB, error)

// Resolver maps a tenant id to that tenant's datastore. Open pools are kept
// in a bounded LRU and closed on eviction.
type Resolver struct {
	cfg   Config
	log   *slog.Logger
	open  opener
	cache *lru.Cache[string, *bunstore.Store]
	group singleflight.Group
}

func NewResolver(cfg Config, log *slog.Logger) (*Resolver, error) {
	if log == nil {
		log = slog.Default()
	}
	if !strings.Contains(cfg.DSNTemplate, Placeholder) {
		return nil, fmt.Errorf("tenant dsn template must contain %s", Placeholder)
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}

	r := &Resolver{
		cfg:  cfg,
		log:  log.With(slog.String("component", "tenant.resolver")),
		open: bunstore.Open,
	}
	cache, err := lru.NewWithEvict[string, *bunstore.Store](cfg.CacheSize, func(id string, s *bunstore.Store) {
		if err := s.Close(); err != nil {
			r.log.Warn("tenant pool close failed", slog.String("tenant_id", id), slog.Any("err", err))
			return
		}
		r.log.Debug("tenant pool closed", slog.String("tenant_id", id))
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

func ValidID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

func (r *Resolver) DSN(tenantID string) string {
	return strings.ReplaceAll(r.cfg.DSNTemplate, Placeholder, tenantID)
}

func (r *Resolver) Resolve(ctx context.Context, tenantID string) (store.TenantStore, error) {
	if !ValidID(tenantID) {
		return nil, ErrInvalidTenant
	}
	if s, ok := r.cache.Get(tenantID); ok {
		return s, nil
	}

	v, err, _ := r.group.Do(tenantID, func() (any, error) {
		if s, ok := r.cache.Get(tenantID); ok {
			return s, nil
		}
		db, err := r.open(r.cfg.Driver, r.DSN(tenantID), r.cfg.Pool)
		if err != nil {
			return nil, classifyOpenError(tenantID, err)
		}
		if r.cfg.CreateSchema {
			if err := bunstore.CreateSchema(ctx, db); err != nil {
				_ = bunstore.Close(db)
				return nil, fmt.Errorf("tenant %s schema: %w", tenantID, err)
			}
		}
		s := bunstore.New(tenantID, db)
		r.cache.Add(tenantID, s)
		r.log.Info("tenant pool opened", slog.String("tenant_id", tenantID), slog.Int("open_tenants", r.cache.Len()))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*bunstore.Store), nil
}

// classifyOpenError separates a missing tenant database from transient failures.
func classifyOpenError(tenantID string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "3D000" {
		return fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	return fmt.Errorf("open tenant %s: %w", tenantID, err)
}

func (r *Resolver) Len() int {
	return r.cache.Len()
}

// Close closes every cached tenant pool.
func (r *Resolver) Close() {
	r.cache.Purge()
}
