package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/service/booking"
	"agenda/backend/internal/store"
)

type BookingService interface {
	Create(ctx context.Context, t store.Tenant, in booking.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, t store.Tenant, id int64, in booking.UpdateInput) (domain.Appointment, error)
	Remove(ctx context.Context, t store.Tenant, id, actor int64) error
	Get(ctx context.Context, t store.Tenant, id int64) (domain.Appointment, error)
	List(ctx context.Context, t store.Tenant, f store.AppointmentFilter) (store.Page[domain.Appointment], error)
}

// appointmentRequest is shared by create and partial update. StaffID may
// also be sent as collaborator_id, and start/end as start_time/end_time.
type appointmentRequest struct {
	UnitID         *int64           `json:"unit_id"`
	ServiceID      *int64           `json:"service_id"`
	StaffID        *int64           `json:"staff_id"`
	CollaboratorID *int64           `json:"collaborator_id"`
	CustomerID     nullable[int64]  `json:"customer_id"`
	CustomerName   nullable[string] `json:"customer_name"`
	Date           *string          `json:"date"`
	Start          *string          `json:"start"`
	End            *string          `json:"end"`
	StartTime      *string          `json:"start_time"`
	EndTime        *string          `json:"end_time"`
	Status         *string          `json:"status"`
	Notes          nullable[string] `json:"notes"`
	PriceCents     *int64           `json:"price_cents"`
}

func (r appointmentRequest) staffID() *int64 {
	return firstSet(r.StaffID, r.CollaboratorID)
}

func (r appointmentRequest) start() *string {
	return firstSet(r.Start, r.StartTime)
}

func (r appointmentRequest) end() *string {
	return firstSet(r.End, r.EndTime)
}

func firstSet[T any](ps ...*T) *T {
	for _, p := range ps {
		if p != nil {
			return p
		}
	}
	return nil
}

// nullable tells an absent field from an explicit null. Set is true once the
// key appears in the body; Value stays nil for null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// edit maps the field onto a partial update: nil when absent, a pointer to
// the zero value when null.
func (n nullable[T]) edit() *T {
	if !n.Set {
		return nil
	}
	if n.Value == nil {
		var zero T
		return &zero
	}
	return n.Value
}

type appointmentResponse struct {
	ID           int64      `json:"id"`
	UniqueKey    string     `json:"unique_key"`
	UnitID       int64      `json:"unit_id"`
	ServiceID    int64      `json:"service_id"`
	StaffID      int64      `json:"staff_id"`
	CustomerID   *int64     `json:"customer_id"`
	CustomerName *string    `json:"customer_name"`
	Date         string     `json:"date"`
	Start        string     `json:"start"`
	End          string     `json:"end"`
	PriceCents   int64      `json:"price_cents"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes"`
	CreatedBy    int64      `json:"created_by,omitempty"`
	UpdatedBy    int64      `json:"updated_by,omitempty"`
	DeletedBy    int64      `json:"deleted_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	out := appointmentResponse{
		ID:         a.ID,
		UniqueKey:  a.UniqueKey.String(),
		UnitID:     a.UnitID,
		ServiceID:  a.ServiceID,
		StaffID:    a.StaffID,
		Date:       a.Date,
		Start:      a.Start,
		End:        a.End,
		PriceCents: a.PriceCents,
		Status:     a.Status,
		Notes:      a.Notes,
		CreatedBy:  a.CreatedBy,
		UpdatedBy:  a.UpdatedBy,
		DeletedBy:  a.DeletedBy,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.CustomerID != 0 {
		id := a.CustomerID
		out.CustomerID = &id
	}
	if a.CustomerName != "" {
		name := a.CustomerName
		out.CustomerName = &name
	}
	if a.Removed() {
		deleted := a.DeletedAt
		out.DeletedAt = &deleted
	}
	return out
}

type pageResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func toPage[S, T any](p store.Page[S], conv func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResponse[T]{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryInt64 reads the first non-empty of keys. Absent means zero.
func queryInt64(c *gin.Context, keys ...string) (int64, bool) {
	for _, k := range keys {
		raw := strings.TrimSpace(c.Query(k))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			badRequest(c, k+" must be a non-negative integer")
			return 0, false
		}
		return n, true
	}
	return 0, true
}

func (h *handlers) createAppointment(c *gin.Context) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	a, err := h.booking.Create(c.Request.Context(), tenantStore(c), booking.CreateInput{
		UnitID:       deref(req.UnitID),
		ServiceID:    deref(req.ServiceID),
		StaffID:      deref(req.staffID()),
		CustomerID:   deref(req.CustomerID.Value),
		CustomerName: deref(req.CustomerName.Value),
		Date:         deref(req.Date),
		Start:        deref(req.start()),
		End:          deref(req.end()),
		Status:       deref(req.Status),
		Notes:        deref(req.Notes.Value),
		Actor:        actorID(c),
	})
	if err != nil {
		h.fail(c, "appointments.create", err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(a))
}

func (h *handlers) updateAppointment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	a, err := h.booking.Update(c.Request.Context(), tenantStore(c), id, booking.UpdateInput{
		UnitID:       req.UnitID,
		ServiceID:    req.ServiceID,
		StaffID:      req.staffID(),
		CustomerID:   req.CustomerID.edit(),
		CustomerName: req.CustomerName.edit(),
		Date:         req.Date,
		Start:        req.start(),
		End:          req.end(),
		Status:       req.Status,
		Notes:        req.Notes.edit(),
		PriceCents:   req.PriceCents,
		Actor:        actorID(c),
	})
	if err != nil {
		h.fail(c, "appointments.update", err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(a))
}

func (h *handlers) removeAppointment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.booking.Remove(c.Request.Context(), tenantStore(c), id, actorID(c)); err != nil {
		h.fail(c, "appointments.remove", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getAppointment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.booking.Get(c.Request.Context(), tenantStore(c), id)
	if err != nil {
		h.fail(c, "appointments.get", err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(a))
}

func (h *handlers) listAppointments(c *gin.Context) {
	f := store.AppointmentFilter{
		Status: strings.TrimSpace(c.Query("status")),
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
		Search: firstQuery(c, "search", "q"),
	}
	var ok bool
	if f.StaffID, ok = queryInt64(c, "staff_id", "collaborator_id", "collab"); !ok {
		return
	}
	if f.ServiceID, ok = queryInt64(c, "service_id", "service"); !ok {
		return
	}
	if f.UnitID, ok = queryInt64(c, "unit_id"); !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	f.Page, f.Limit = page, limit

	p, err := h.booking.List(c.Request.Context(), tenantStore(c), f)
	if err != nil {
		h.fail(c, "appointments.list", err)
		return
	}
	c.JSON(http.StatusOK, toPage(p, toAppointmentResponse))
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			return v
		}
	}
	return ""
}

func pageParams(c *gin.Context) (int, int, bool) {
	page, ok := queryInt64(c, "page")
	if !ok {
		return 0, 0, false
	}
	limit, ok := queryInt64(c, "limit")
	if !ok {
		return 0, 0, false
	}
	return int(page), int(limit), true
}
