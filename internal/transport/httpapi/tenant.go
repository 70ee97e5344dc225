package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"agenda/backend/internal/store"
	"agenda/backend/internal/tenant"
)

const (
	TenantHeader = "X-Group-Id"
	ActorHeader  = "X-User-Id"

	tenantIDKey    = "tenant_id"
	tenantStoreKey = "tenant_store"
	actorKey       = "actor_id"
)

type TenantResolver interface {
	Resolve(ctx context.Context, id string) (store.TenantStore, error)
}

func withTenant(r TenantResolver, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(TenantHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query("group_id"))
		}
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Message: "group id is required"})
			return
		}

		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = strings.TrimSpace(c.Query("user_id"))
		}
		var actorID int64
		if actor != "" {
			n, err := strconv.ParseInt(actor, 10, 64)
			if err != nil || n <= 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Message: "user id must be a positive integer"})
				return
			}
			actorID = n
		}

		st, err := r.Resolve(c.Request.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, tenant.ErrInvalidTenant):
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Message: err.Error()})
			return
		case errors.Is(err, tenant.ErrUnknownTenant):
			log.Info("unknown tenant", slog.String("tenant_id", id))
			c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Message: "group not found"})
			return
		default:
			log.Error("tenant resolve failed", slog.Any("err", err), slog.String("tenant_id", id))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Message: "tenant datastore unavailable"})
			return
		}

		c.Set(tenantIDKey, id)
		c.Set(tenantStoreKey, st)
		c.Set(actorKey, actorID)
		c.Next()
	}
}

func tenantStore(c *gin.Context) store.TenantStore {
	return c.MustGet(tenantStoreKey).(store.TenantStore)
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorKey)
}
