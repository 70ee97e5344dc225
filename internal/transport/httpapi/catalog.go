package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/service/catalog"
	"agenda/backend/internal/store"
)

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func catalogFilter(c *gin.Context) (store.CatalogFilter, bool) {
	page, limit, ok := pageParams(c)
	if !ok {
		return store.CatalogFilter{}, false
	}
	return store.CatalogFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}, true
}

type linksRequest struct {
	ServiceIDs []int64 `json:"service_ids"`
	StaffIDs   []int64 `json:"staff_ids"`
}

// units

type unitRequest struct {
	Name       *string `json:"name"`
	Status     *string `json:"status"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Timezone   *string `json:"timezone"`
	Address    *string `json:"address"`
	Locality   *string `json:"locality"`
	PostalCode *string `json:"postal_code"`
	// Links replaces every link when present; an empty list clears them.
	Links *[]unitLinkBody `json:"unit_links"`
}

type unitLinkBody struct {
	ID        int64  `json:"id,omitempty"`
	Type      string `json:"type"`
	Provider  string `json:"provider,omitempty"`
	URL       string `json:"url"`
	Label     string `json:"label,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

func (r unitRequest) input(actor int64) catalog.UnitInput {
	in := catalog.UnitInput{
		Name:       r.Name,
		Status:     r.Status,
		Phone:      r.Phone,
		Email:      r.Email,
		Timezone:   r.Timezone,
		Address:    r.Address,
		Locality:   r.Locality,
		PostalCode: r.PostalCode,
		Actor:      actor,
	}
	if r.Links != nil {
		links := make([]domain.UnitLink, 0, len(*r.Links))
		for _, l := range *r.Links {
			links = append(links, domain.UnitLink{Type: l.Type, Provider: l.Provider, URL: l.URL, Label: l.Label, IsPrimary: l.IsPrimary})
		}
		in.Links = &links
	}
	return in
}

type unitResponse struct {
	ID         int64     `json:"id"`
	UniqueKey  string    `json:"unique_key"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	Timezone   string    `json:"timezone"`
	Address    string    `json:"address"`
	Locality   string    `json:"locality"`
	PostalCode string    `json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type unitDetailsResponse struct {
	unitResponse
	ServiceIDs []int64        `json:"service_ids"`
	Links      []unitLinkBody `json:"unit_links"`
}

func toUnitResponse(u domain.Unit) unitResponse {
	return unitResponse{
		ID:         u.ID,
		UniqueKey:  u.UniqueKey.String(),
		Name:       u.Name,
		Status:     u.Status,
		Phone:      u.Phone,
		Email:      u.Email,
		Timezone:   u.Timezone,
		Address:    u.Address,
		Locality:   u.Locality,
		PostalCode: u.PostalCode,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func toUnitDetails(d catalog.UnitDetails) unitDetailsResponse {
	links := make([]unitLinkBody, 0, len(d.Links))
	for _, l := range d.Links {
		links = append(links, unitLinkBody{ID: l.ID, Type: l.Type, Provider: l.Provider, URL: l.URL, Label: l.Label, IsPrimary: l.IsPrimary})
	}
	return unitDetailsResponse{unitResponse: toUnitResponse(d.Unit), ServiceIDs: nonNil(d.ServiceIDs), Links: links}
}

func (h *handlers) createUnit(c *gin.Context) {
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.CreateUnit(c.Request.Context(), tenantStore(c), req.input(actorID(c)))
	if err != nil {
		h.fail(c, "units.create", err)
		return
	}
	c.JSON(http.StatusCreated, toUnitDetails(d))
}

func (h *handlers) getUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.catalog.GetUnit(c.Request.Context(), tenantStore(c), id)
	if err != nil {
		h.fail(c, "units.get", err)
		return
	}
	c.JSON(http.StatusOK, toUnitDetails(d))
}

func (h *handlers) listUnits(c *gin.Context) {
	f, ok := catalogFilter(c)
	if !ok {
		return
	}
	p, err := h.catalog.ListUnits(c.Request.Context(), tenantStore(c), f)
	if err != nil {
		h.fail(c, "units.list", err)
		return
	}
	c.JSON(http.StatusOK, toPage(p, toUnitResponse))
}

func (h *handlers) updateUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.UpdateUnit(c.Request.Context(), tenantStore(c), id, req.input(actorID(c)))
	if err != nil {
		h.fail(c, "units.update", err)
		return
	}
	c.JSON(http.StatusOK, toUnitDetails(d))
}

func (h *handlers) removeUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.RemoveUnit(c.Request.Context(), tenantStore(c), id, actorID(c)); err != nil {
		h.fail(c, "units.remove", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setUnitServices(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req linksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.SetUnitServices(c.Request.Context(), tenantStore(c), id, req.ServiceIDs)
	if err != nil {
		h.fail(c, "units.services", err)
		return
	}
	c.JSON(http.StatusOK, toUnitDetails(d))
}

// staff

type staffRequest struct {
	Name           *string          `json:"name"`
	Role           *string          `json:"role"`
	PhotoURL       *string          `json:"photo_url"`
	Schedule       *domain.Schedule `json:"schedule"`
	Status         *string          `json:"status"`
	AttendanceMode *string          `json:"attendance_mode"`
	ServiceIDs     *[]int64         `json:"service_ids"`
}

func (r staffRequest) input(actor int64) catalog.StaffInput {
	return catalog.StaffInput{
		Name:           r.Name,
		Role:           r.Role,
		PhotoURL:       r.PhotoURL,
		Schedule:       r.Schedule,
		Status:         r.Status,
		AttendanceMode: r.AttendanceMode,
		ServiceIDs:     r.ServiceIDs,
		Actor:          actor,
	}
}

type staffResponse struct {
	ID             int64           `json:"id"`
	UniqueKey      string          `json:"unique_key"`
	Name           string          `json:"name"`
	Role           string          `json:"role"`
	PhotoURL       string          `json:"photo_url"`
	Schedule       domain.Schedule `json:"schedule"`
	Status         string          `json:"status"`
	AttendanceMode string          `json:"attendance_mode"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type staffDetailsResponse struct {
	staffResponse
	ServiceIDs []int64 `json:"service_ids"`
}

func toStaffResponse(s domain.Staff) staffResponse {
	return staffResponse{
		ID:             s.ID,
		UniqueKey:      s.UniqueKey.String(),
		Name:           s.Name,
		Role:           s.Role,
		PhotoURL:       s.PhotoURL,
		Schedule:       s.Schedule,
		Status:         s.Status,
		AttendanceMode: s.AttendanceMode,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toStaffDetails(d catalog.StaffDetails) staffDetailsResponse {
	return staffDetailsResponse{staffResponse: toStaffResponse(d.Staff), ServiceIDs: nonNil(d.ServiceIDs)}
}

func (h *handlers) createStaff(c *gin.Context) {
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.CreateStaff(c.Request.Context(), tenantStore(c), req.input(actorID(c)))
	if err != nil {
		h.fail(c, "staff.create", err)
		return
	}
	c.JSON(http.StatusCreated, toStaffDetails(d))
}

func (h *handlers) getStaff(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.catalog.GetStaff(c.Request.Context(), tenantStore(c), id)
	if err != nil {
		h.fail(c, "staff.get", err)
		return
	}
	c.JSON(http.StatusOK, toStaffDetails(d))
}

func (h *handlers) listStaff(c *gin.Context) {
	f, ok := catalogFilter(c)
	if !ok {
		return
	}
	p, err := h.catalog.ListStaff(c.Request.Context(), tenantStore(c), f)
	if err != nil {
		h.fail(c, "staff.list", err)
		return
	}
	c.JSON(http.StatusOK, toPage(p, toStaffResponse))
}

func (h *handlers) updateStaff(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.UpdateStaff(c.Request.Context(), tenantStore(c), id, req.input(actorID(c)))
	if err != nil {
		h.fail(c, "staff.update", err)
		return
	}
	c.JSON(http.StatusOK, toStaffDetails(d))
}

func (h *handlers) removeStaff(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.RemoveStaff(c.Request.Context(), tenantStore(c), id, actorID(c)); err != nil {
		h.fail(c, "staff.remove", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setStaffServices(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req linksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.SetStaffServices(c.Request.Context(), tenantStore(c), id, req.ServiceIDs)
	if err != nil {
		h.fail(c, "staff.services", err)
		return
	}
	c.JSON(http.StatusOK, toStaffDetails(d))
}

// services

type serviceRequest struct {
	Title           *string  `json:"title"`
	PriceCents      *int64   `json:"price_cents"`
	DurationMinutes *int     `json:"duration_minutes"`
	Description     *string  `json:"description"`
	Icon            *string  `json:"icon"`
	Status          *string  `json:"status"`
	AttendanceMode  *string  `json:"attendance_mode"`
	StaffIDs        *[]int64 `json:"staff_ids"`
}

func (r serviceRequest) input(actor int64) catalog.ServiceInput {
	return catalog.ServiceInput{
		Title:           r.Title,
		PriceCents:      r.PriceCents,
		DurationMinutes: r.DurationMinutes,
		Description:     r.Description,
		Icon:            r.Icon,
		Status:          r.Status,
		AttendanceMode:  r.AttendanceMode,
		StaffIDs:        r.StaffIDs,
		Actor:           actor,
	}
}

type serviceResponse struct {
	ID              int64     `json:"id"`
	UniqueKey       string    `json:"unique_key"`
	Title           string    `json:"title"`
	PriceCents      int64     `json:"price_cents"`
	DurationMinutes int       `json:"duration_minutes"`
	Description     string    `json:"description"`
	Icon            string    `json:"icon"`
	Status          string    `json:"status"`
	AttendanceMode  string    `json:"attendance_mode"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type serviceDetailsResponse struct {
	serviceResponse
	StaffIDs []int64 `json:"staff_ids"`
}

func toServiceResponse(s domain.Service) serviceResponse {
	return serviceResponse{
		ID:              s.ID,
		UniqueKey:       s.UniqueKey.String(),
		Title:           s.Title,
		PriceCents:      s.PriceCents,
		DurationMinutes: s.DurationMinutes,
		Description:     s.Description,
		Icon:            s.Icon,
		Status:          s.Status,
		AttendanceMode:  s.AttendanceMode,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toServiceDetails(d catalog.ServiceDetails) serviceDetailsResponse {
	return serviceDetailsResponse{serviceResponse: toServiceResponse(d.Service), StaffIDs: nonNil(d.StaffIDs)}
}

func (h *handlers) createService(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.CreateService(c.Request.Context(), tenantStore(c), req.input(actorID(c)))
	if err != nil {
		h.fail(c, "services.create", err)
		return
	}
	c.JSON(http.StatusCreated, toServiceDetails(d))
}

func (h *handlers) getService(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.catalog.GetService(c.Request.Context(), tenantStore(c), id)
	if err != nil {
		h.fail(c, "services.get", err)
		return
	}
	c.JSON(http.StatusOK, toServiceDetails(d))
}

func (h *handlers) listServices(c *gin.Context) {
	f, ok := catalogFilter(c)
	if !ok {
		return
	}
	p, err := h.catalog.ListServices(c.Request.Context(), tenantStore(c), f)
	if err != nil {
		h.fail(c, "services.list", err)
		return
	}
	c.JSON(http.StatusOK, toPage(p, toServiceResponse))
}

func (h *handlers) updateService(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.UpdateService(c.Request.Context(), tenantStore(c), id, req.input(actorID(c)))
	if err != nil {
		h.fail(c, "services.update", err)
		return
	}
	c.JSON(http.StatusOK, toServiceDetails(d))
}

func (h *handlers) removeService(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.RemoveService(c.Request.Context(), tenantStore(c), id, actorID(c)); err != nil {
		h.fail(c, "services.remove", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setServiceStaff(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req linksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	d, err := h.catalog.SetServiceStaff(c.Request.Context(), tenantStore(c), id, req.StaffIDs)
	if err != nil {
		h.fail(c, "services.staff", err)
		return
	}
	c.JSON(http.StatusOK, toServiceDetails(d))
}
