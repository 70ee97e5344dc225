package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"agenda/backend/internal/service/catalog"
)

// ReadyCheck is one dependency checked by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Tenants TenantResolver
	Booking BookingService
	Catalog *catalog.Service
	Log     *slog.Logger

	// Limiter is optional. FailOpen lets requests through when it errors.
	Limiter  RateLimiter
	FailOpen bool

	Ready          []ReadyCheck
	CORS           CORSPolicy
	BodyLimit      int64
	RequestTimeout time.Duration
}

type handlers struct {
	booking BookingService
	catalog *catalog.Service
	log     *slog.Logger
	ready   []ReadyCheck
}

// NewRouter builds the gin engine with every route. Use NewHandler for the
// fully wrapped server handler.
func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))
	h := &handlers{booking: d.Booking, catalog: d.Catalog, log: log, ready: d.Ready}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(requestID(), accessLog(log), recovery(log))
	if mw := corsMiddleware(d.CORS); mw != nil {
		r.Use(mw)
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Message: "route not found"})
	})

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)

	v1 := r.Group("/v1")
	v1.Use(withTenant(d.Tenants, log))
	if d.Limiter != nil {
		v1.Use(rateLimit(d.Limiter, log, d.FailOpen))
	}

	appointments := v1.Group("/appointments")
	{
		appointments.GET("", h.listAppointments)
		appointments.POST("", h.createAppointment)
		appointments.GET("/:id", h.getAppointment)
		appointments.PATCH("/:id", h.updateAppointment)
		appointments.PUT("/:id", h.updateAppointment)
		appointments.DELETE("/:id", h.removeAppointment)
	}

	units := v1.Group("/units")
	{
		units.GET("", h.listUnits)
		units.POST("", h.createUnit)
		units.GET("/:id", h.getUnit)
		units.PATCH("/:id", h.updateUnit)
		units.DELETE("/:id", h.removeUnit)
		units.PUT("/:id/services", h.setUnitServices)
	}

	staff := v1.Group("/staff")
	{
		staff.GET("", h.listStaff)
		staff.POST("", h.createStaff)
		staff.GET("/:id", h.getStaff)
		staff.PATCH("/:id", h.updateStaff)
		staff.DELETE("/:id", h.removeStaff)
		staff.PUT("/:id/services", h.setStaffServices)
	}

	services := v1.Group("/services")
	{
		services.GET("", h.listServices)
		services.POST("", h.createService)
		services.GET("/:id", h.getService)
		services.PATCH("/:id", h.updateService)
		services.DELETE("/:id", h.removeService)
		services.PUT("/:id/staff", h.setServiceStaff)
	}

	return r
}

// NewHandler wraps the router with tracing, a request deadline and a body
// size limit.
func NewHandler(d Deps) http.Handler {
	return Chain(NewRouter(d),
		otelhttp.NewMiddleware("agenda-http"),
		WithTimeout(d.RequestTimeout),
		WithBodyLimit(d.BodyLimit),
	)
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for _, rc := range h.ready {
		if err := rc.Check(ctx); err != nil {
			h.log.Warn("readiness check failed", slog.String("check", rc.Name), slog.Any("err", err))
			failed[rc.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
