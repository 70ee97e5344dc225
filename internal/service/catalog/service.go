package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

const defaultDurationMinutes = 30

type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

type Service struct {
	log *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log.With(slog.String("component", "catalog"))}
}

// set copies *src into *dst when src is non-nil.
func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func checkStatus(status string) error {
	if !domain.ValidRecordStatus(status) {
		return validationError("status", "status must be active or inactive")
	}
	return nil
}

func checkAttendance(mode string) error {
	if !domain.ValidAttendanceMode(mode) {
		return validationError("attendance_mode", "attendance_mode must be one of fixed, client_location, mixed")
	}
	return nil
}

type UnitInput struct {
	Name       *string
	Status     *string
	Phone      *string
	Email      *string
	Timezone   *string
	Address    *string
	Locality   *string
	PostalCode *string
	// Links, when set, replaces the unit's external links in the same
	// transaction.
	Links *[]domain.UnitLink
	Actor int64
}

type UnitDetails struct {
	domain.Unit
	ServiceIDs []int64
	Links      []domain.UnitLink
}

const (
	maxLinkType     = 40
	maxLinkProvider = 40
	maxLinkLabel    = 80
)

// normalizeLinks trims and checks each link. Only the first primary link of
// each type stays primary.
func normalizeLinks(in []domain.UnitLink) ([]domain.UnitLink, error) {
	out := make([]domain.UnitLink, 0, len(in))
	primary := map[string]bool{}
	for i, l := range in {
		field := fmt.Sprintf("unit_links[%d]", i)
		l.Type = strings.ToLower(strings.TrimSpace(l.Type))
		l.Provider = strings.TrimSpace(l.Provider)
		l.URL = strings.TrimSpace(l.URL)
		l.Label = strings.TrimSpace(l.Label)
		switch {
		case l.Type == "":
			return nil, validationError(field+".type", "link type is required")
		case len(l.Type) > maxLinkType:
			return nil, validationError(field+".type", fmt.Sprintf("link type must be at most %d characters", maxLinkType))
		case len(l.Provider) > maxLinkProvider:
			return nil, validationError(field+".provider", fmt.Sprintf("link provider must be at most %d characters", maxLinkProvider))
		case len(l.Label) > maxLinkLabel:
			return nil, validationError(field+".label", fmt.Sprintf("link label must be at most %d characters", maxLinkLabel))
		}
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, validationError(field+".url", "link url must be an absolute http(s) URL")
		}
		if l.IsPrimary {
			if primary[l.Type] {
				l.IsPrimary = false
			}
			primary[l.Type] = true
		}
		out = append(out, l)
	}
	return out, nil
}

func applyUnit(u *domain.Unit, in UnitInput) error {
	set(&u.Name, trimmed(in.Name))
	set(&u.Status, trimmed(in.Status))
	set(&u.Phone, trimmed(in.Phone))
	set(&u.Email, trimmed(in.Email))
	set(&u.Timezone, trimmed(in.Timezone))
	set(&u.Address, trimmed(in.Address))
	set(&u.Locality, trimmed(in.Locality))
	set(&u.PostalCode, trimmed(in.PostalCode))
	if u.Name == "" {
		return validationError("name", "name is required")
	}
	return checkStatus(u.Status)
}

func (s *Service) CreateUnit(ctx context.Context, c store.Catalog, in UnitInput) (UnitDetails, error) {
	u := domain.Unit{Status: domain.StatusActive, CreatedBy: in.Actor, UpdatedBy: in.Actor}
	if err := applyUnit(&u, in); err != nil {
		return UnitDetails{}, err
	}
	links, err := unitLinks(in)
	if err != nil {
		return UnitDetails{}, err
	}

	out := UnitDetails{ServiceIDs: []int64{}, Links: []domain.UnitLink{}}
	err = c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		created, err := tx.CreateUnit(ctx, u)
		if err != nil {
			return err
		}
		out.Unit = created
		if links == nil {
			return nil
		}
		out.Links, err = tx.ReplaceUnitLinks(ctx, created.ID, *links)
		return err
	})
	if err != nil {
		return UnitDetails{}, err
	}
	s.log.Info("unit created", slog.Int64("unit_id", out.ID), slog.Int("links", len(out.Links)))
	return out, nil
}

func unitLinks(in UnitInput) (*[]domain.UnitLink, error) {
	if in.Links == nil {
		return nil, nil
	}
	links, err := normalizeLinks(*in.Links)
	if err != nil {
		return nil, err
	}
	return &links, nil
}

func (s *Service) GetUnit(ctx context.Context, c store.Catalog, id int64) (UnitDetails, error) {
	u, err := c.GetUnit(ctx, id)
	if err != nil {
		return UnitDetails{}, err
	}
	return unitDetails(ctx, c, u)
}

func unitDetails(ctx context.Context, tx store.CatalogTx, u domain.Unit) (UnitDetails, error) {
	ids, err := tx.UnitServiceIDs(ctx, u.ID)
	if err != nil {
		return UnitDetails{}, err
	}
	links, err := tx.UnitLinks(ctx, u.ID)
	if err != nil {
		return UnitDetails{}, err
	}
	return UnitDetails{Unit: u, ServiceIDs: ids, Links: links}, nil
}

func (s *Service) ListUnits(ctx context.Context, c store.Catalog, f store.CatalogFilter) (store.Page[domain.Unit], error) {
	if err := checkFilter(f); err != nil {
		return store.Page[domain.Unit]{}, err
	}
	return c.ListUnits(ctx, f)
}

func (s *Service) UpdateUnit(ctx context.Context, c store.Catalog, id int64, in UnitInput) (UnitDetails, error) {
	links, err := unitLinks(in)
	if err != nil {
		return UnitDetails{}, err
	}
	var out UnitDetails
	err = c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		u, err := tx.GetUnit(ctx, id)
		if err != nil {
			return err
		}
		if err := applyUnit(&u, in); err != nil {
			return err
		}
		u.UpdatedBy = in.Actor
		if u, err = tx.UpdateUnit(ctx, u); err != nil {
			return err
		}
		if links != nil {
			if _, err := tx.ReplaceUnitLinks(ctx, id, *links); err != nil {
				return err
			}
		}
		out, err = unitDetails(ctx, tx, u)
		return err
	})
	if err != nil {
		return UnitDetails{}, err
	}
	s.log.Info("unit updated", slog.Int64("unit_id", id))
	return out, nil
}

func (s *Service) RemoveUnit(ctx context.Context, c store.Catalog, id, actor int64) error {
	if err := c.RemoveUnit(ctx, id, actor); err != nil {
		return err
	}
	s.log.Info("unit removed", slog.Int64("unit_id", id), slog.Int64("actor", actor))
	return nil
}

// SetUnitServices replaces the services offered at the unit.
func (s *Service) SetUnitServices(ctx context.Context, c store.Catalog, id int64, serviceIDs []int64) (UnitDetails, error) {
	var out UnitDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		if _, err := tx.ReplaceUnitServices(ctx, id, serviceIDs); err != nil {
			return err
		}
		u, err := tx.GetUnit(ctx, id)
		if err != nil {
			return err
		}
		out, err = unitDetails(ctx, tx, u)
		return err
	})
	if err != nil {
		return UnitDetails{}, err
	}
	s.log.Info("unit services replaced", slog.Int64("unit_id", id), slog.Int("count", len(out.ServiceIDs)))
	return out, nil
}

type StaffInput struct {
	Name           *string
	Role           *string
	PhotoURL       *string
	Schedule       *domain.Schedule
	Status         *string
	AttendanceMode *string
	// ServiceIDs, when set, replaces the staff member's services in the
	// same transaction.
	ServiceIDs *[]int64
	Actor      int64
}

type StaffDetails struct {
	domain.Staff
	ServiceIDs []int64
}

func applyStaff(m *domain.Staff, in StaffInput) error {
	set(&m.Name, trimmed(in.Name))
	set(&m.Role, trimmed(in.Role))
	set(&m.PhotoURL, trimmed(in.PhotoURL))
	set(&m.Schedule, in.Schedule)
	set(&m.Status, trimmed(in.Status))
	set(&m.AttendanceMode, trimmed(in.AttendanceMode))
	if m.Name == "" {
		return validationError("name", "name is required")
	}
	if err := checkStatus(m.Status); err != nil {
		return err
	}
	if err := checkAttendance(m.AttendanceMode); err != nil {
		return err
	}
	if _, err := domain.ParseSchedule(m.Schedule); err != nil {
		return validationError("schedule", err.Error())
	}
	return nil
}

func (s *Service) CreateStaff(ctx context.Context, c store.Catalog, in StaffInput) (StaffDetails, error) {
	m := domain.Staff{
		Status:         domain.StatusActive,
		AttendanceMode: domain.AttendanceFixed,
		CreatedBy:      in.Actor,
		UpdatedBy:      in.Actor,
	}
	if err := applyStaff(&m, in); err != nil {
		return StaffDetails{}, err
	}

	var out StaffDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		created, err := tx.CreateStaff(ctx, m)
		if err != nil {
			return err
		}
		out = StaffDetails{Staff: created, ServiceIDs: []int64{}}
		if in.ServiceIDs != nil {
			if out.ServiceIDs, err = tx.ReplaceStaffServices(ctx, created.ID, *in.ServiceIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return StaffDetails{}, err
	}
	s.log.Info("staff created", slog.Int64("staff_id", out.ID), slog.Int("services", len(out.ServiceIDs)))
	return out, nil
}

func (s *Service) GetStaff(ctx context.Context, c store.Catalog, id int64) (StaffDetails, error) {
	m, err := c.GetStaff(ctx, id)
	if err != nil {
		return StaffDetails{}, err
	}
	ids, err := c.StaffServiceIDs(ctx, id)
	if err != nil {
		return StaffDetails{}, err
	}
	return StaffDetails{Staff: m, ServiceIDs: ids}, nil
}

func (s *Service) ListStaff(ctx context.Context, c store.Catalog, f store.CatalogFilter) (store.Page[domain.Staff], error) {
	if err := checkFilter(f); err != nil {
		return store.Page[domain.Staff]{}, err
	}
	return c.ListStaff(ctx, f)
}

func (s *Service) UpdateStaff(ctx context.Context, c store.Catalog, id int64, in StaffInput) (StaffDetails, error) {
	var out StaffDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		m, err := tx.GetStaff(ctx, id)
		if err != nil {
			return err
		}
		if err := applyStaff(&m, in); err != nil {
			return err
		}
		m.UpdatedBy = in.Actor
		if m, err = tx.UpdateStaff(ctx, m); err != nil {
			return err
		}
		var ids []int64
		if in.ServiceIDs != nil {
			ids, err = tx.ReplaceStaffServices(ctx, id, *in.ServiceIDs)
		} else {
			ids, err = tx.StaffServiceIDs(ctx, id)
		}
		if err != nil {
			return err
		}
		out = StaffDetails{Staff: m, ServiceIDs: ids}
		return nil
	})
	if err != nil {
		return StaffDetails{}, err
	}
	s.log.Info("staff updated", slog.Int64("staff_id", id))
	return out, nil
}

// RemoveStaff soft-deletes the staff member and clears its service links.
// Existing appointments are kept.
func (s *Service) RemoveStaff(ctx context.Context, c store.Catalog, id, actor int64) error {
	if err := c.RemoveStaff(ctx, id, actor); err != nil {
		return err
	}
	s.log.Info("staff removed", slog.Int64("staff_id", id), slog.Int64("actor", actor))
	return nil
}

func (s *Service) SetStaffServices(ctx context.Context, c store.Catalog, id int64, serviceIDs []int64) (StaffDetails, error) {
	var out StaffDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		ids, err := tx.ReplaceStaffServices(ctx, id, serviceIDs)
		if err != nil {
			return err
		}
		m, err := tx.GetStaff(ctx, id)
		if err != nil {
			return err
		}
		out = StaffDetails{Staff: m, ServiceIDs: ids}
		return nil
	})
	if err != nil {
		return StaffDetails{}, err
	}
	s.log.Info("staff services replaced", slog.Int64("staff_id", id), slog.Int("count", len(out.ServiceIDs)))
	return out, nil
}

type ServiceInput struct {
	Title           *string
	PriceCents      *int64
	DurationMinutes *int
	Description     *string
	Icon            *string
	Status          *string
	AttendanceMode  *string
	StaffIDs        *[]int64
	Actor           int64
}

type ServiceDetails struct {
	domain.Service
	StaffIDs []int64
}

func applyService(m *domain.Service, in ServiceInput) error {
	set(&m.Title, trimmed(in.Title))
	set(&m.PriceCents, in.PriceCents)
	set(&m.DurationMinutes, in.DurationMinutes)
	set(&m.Description, trimmed(in.Description))
	set(&m.Icon, trimmed(in.Icon))
	set(&m.Status, trimmed(in.Status))
	set(&m.AttendanceMode, trimmed(in.AttendanceMode))
	switch {
	case m.Title == "":
		return validationError("title", "title is required")
	case m.PriceCents < 0:
		return validationError("price_cents", "price_cents must not be negative")
	case m.DurationMinutes <= 0 || m.DurationMinutes > 24*60:
		return validationError("duration_minutes", "duration_minutes must be between 1 and 1440")
	}
	if err := checkStatus(m.Status); err != nil {
		return err
	}
	return checkAttendance(m.AttendanceMode)
}

func (s *Service) CreateService(ctx context.Context, c store.Catalog, in ServiceInput) (ServiceDetails, error) {
	m := domain.Service{
		DurationMinutes: defaultDurationMinutes,
		Status:          domain.StatusActive,
		AttendanceMode:  domain.AttendanceFixed,
		CreatedBy:       in.Actor,
		UpdatedBy:       in.Actor,
	}
	if err := applyService(&m, in); err != nil {
		return ServiceDetails{}, err
	}

	var out ServiceDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		created, err := tx.CreateService(ctx, m)
		if err != nil {
			return err
		}
		out = ServiceDetails{Service: created, StaffIDs: []int64{}}
		if in.StaffIDs != nil {
			if out.StaffIDs, err = tx.ReplaceServiceStaff(ctx, created.ID, *in.StaffIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ServiceDetails{}, err
	}
	s.log.Info("service created", slog.Int64("service_id", out.ID), slog.Int64("price_cents", out.PriceCents))
	return out, nil
}

func (s *Service) GetService(ctx context.Context, c store.Catalog, id int64) (ServiceDetails, error) {
	m, err := c.GetService(ctx, id)
	if err != nil {
		return ServiceDetails{}, err
	}
	ids, err := c.ServiceStaffIDs(ctx, id)
	if err != nil {
		return ServiceDetails{}, err
	}
	return ServiceDetails{Service: m, StaffIDs: ids}, nil
}

func (s *Service) ListServices(ctx context.Context, c store.Catalog, f store.CatalogFilter) (store.Page[domain.Service], error) {
	if err := checkFilter(f); err != nil {
		return store.Page[domain.Service]{}, err
	}
	return c.ListServices(ctx, f)
}

// UpdateService never touches booked appointments, which keep the price
// they were created with.
func (s *Service) UpdateService(ctx context.Context, c store.Catalog, id int64, in ServiceInput) (ServiceDetails, error) {
	var out ServiceDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		m, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		if err := applyService(&m, in); err != nil {
			return err
		}
		m.UpdatedBy = in.Actor
		if m, err = tx.UpdateService(ctx, m); err != nil {
			return err
		}
		var ids []int64
		if in.StaffIDs != nil {
			ids, err = tx.ReplaceServiceStaff(ctx, id, *in.StaffIDs)
		} else {
			ids, err = tx.ServiceStaffIDs(ctx, id)
		}
		if err != nil {
			return err
		}
		out = ServiceDetails{Service: m, StaffIDs: ids}
		return nil
	})
	if err != nil {
		return ServiceDetails{}, err
	}
	s.log.Info("service updated", slog.Int64("service_id", id))
	return out, nil
}

func (s *Service) RemoveService(ctx context.Context, c store.Catalog, id, actor int64) error {
	if err := c.RemoveService(ctx, id, actor); err != nil {
		return err
	}
	s.log.Info("service removed", slog.Int64("service_id", id), slog.Int64("actor", actor))
	return nil
}

func (s *Service) SetServiceStaff(ctx context.Context, c store.Catalog, id int64, staffIDs []int64) (ServiceDetails, error) {
	var out ServiceDetails
	err := c.InCatalogTransaction(ctx, func(ctx context.Context, tx store.CatalogTx) error {
		ids, err := tx.ReplaceServiceStaff(ctx, id, staffIDs)
		if err != nil {
			return err
		}
		m, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		out = ServiceDetails{Service: m, StaffIDs: ids}
		return nil
	})
	if err != nil {
		return ServiceDetails{}, err
	}
	s.log.Info("service staff replaced", slog.Int64("service_id", id), slog.Int("count", len(out.StaffIDs)))
	return out, nil
}

func checkFilter(f store.CatalogFilter) error {
	if f.Status != "" && !domain.ValidRecordStatus(f.Status) {
		return validationError("status", "status filter must be active or inactive")
	}
	return nil
}
