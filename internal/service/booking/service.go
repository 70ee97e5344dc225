package booking

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/events"
	"agenda/backend/internal/store"
)

type Service struct {
	events events.Publisher
	log    *slog.Logger
}

func NewService(pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{events: pub, log: log.With(slog.String("component", "booking"))}
}

type CreateInput struct {
	UnitID       int64
	ServiceID    int64
	StaffID      int64
	CustomerID   int64
	CustomerName string
	Date         string
	Start        string
	End          string
	Status       string
	Notes        string
	Actor        int64
}

// UpdateInput holds a partial edit. Nil fields keep the stored value. A
// non-nil zero CustomerID, CustomerName or Notes clears the stored value.
type UpdateInput struct {
	UnitID       *int64
	ServiceID    *int64
	StaffID      *int64
	CustomerID   *int64
	CustomerName *string
	Date         *string
	Start        *string
	End          *string
	Status       *string
	Notes        *string
	PriceCents   *int64
	Actor        int64
}

func (s *Service) Create(ctx context.Context, t store.Tenant, in CreateInput) (domain.Appointment, error) {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = domain.AppointmentPending
	}
	req := Request{
		UnitID:    in.UnitID,
		ServiceID: in.ServiceID,
		StaffID:   in.StaffID,
		Date:      in.Date,
		Start:     strings.TrimSpace(in.Start),
		End:       strings.TrimSpace(in.End),
		Status:    status,
	}

	var out domain.Appointment
	err := t.InStaffTransaction(ctx, []int64{in.StaffID}, func(ctx context.Context, tx store.BookingTx) error {
		v, err := Validate(ctx, tx, req)
		if err != nil {
			return err
		}
		a, err := tx.CreateAppointment(ctx, domain.Appointment{
			UnitID:       in.UnitID,
			ServiceID:    in.ServiceID,
			StaffID:      in.StaffID,
			CustomerID:   in.CustomerID,
			CustomerName: strings.TrimSpace(in.CustomerName),
			Date:         v.Date,
			Start:        v.Start,
			End:          v.End,
			PriceCents:   v.Service.PriceCents,
			Status:       status,
			Notes:        strings.TrimSpace(in.Notes),
			CreatedBy:    in.Actor,
			UpdatedBy:    in.Actor,
		})
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, s.writeError(err)
	}

	s.log.Info(
		"appointment created",
		slog.String("tenant_id", t.TenantID()),
		slog.Int64("appointment_id", out.ID),
		slog.Int64("staff_id", out.StaffID),
		slog.String("date", out.Date),
		slog.String("start", out.Start),
		slog.String("end", out.End),
	)
	s.publish(ctx, events.AppointmentCreated, t, in.Actor, out)
	return out, nil
}

// Update merges the edit onto the stored record and revalidates the result.
// The price stays as stored unless the edit sets it.
func (s *Service) Update(ctx context.Context, t store.Tenant, id int64, in UpdateInput) (domain.Appointment, error) {
	if id <= 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	if in.PriceCents != nil && *in.PriceCents < 0 {
		return domain.Appointment{}, &Rejection{Kind: KindMalformed, Step: StepShape, Message: "price_cents must not be negative"}
	}
	if in.Status != nil && !domain.ValidAppointmentStatus(strings.TrimSpace(*in.Status)) {
		return domain.Appointment{}, &Rejection{Kind: KindMalformed, Step: StepShape, Message: "status must be one of pending, confirmed, done, cancelled"}
	}

	var out domain.Appointment
	for attempt := 0; ; attempt++ {
		current, err := t.GetAppointment(ctx, id, false)
		if err != nil {
			return domain.Appointment{}, err
		}
		locked := []int64{current.StaffID}
		if in.StaffID != nil {
			locked = append(locked, *in.StaffID)
		}

		out, err = s.update(ctx, t, id, locked, in)
		if errors.Is(err, errStaffMoved) && attempt < maxStaffMoves {
			continue
		}
		if errors.Is(err, errStaffMoved) {
			err = store.ErrConflict
		}
		if err != nil {
			return domain.Appointment{}, s.writeError(err)
		}
		break
	}

	s.log.Info(
		"appointment updated",
		slog.String("tenant_id", t.TenantID()),
		slog.Int64("appointment_id", out.ID),
		slog.String("status", out.Status),
	)
	s.publish(ctx, events.AppointmentUpdated, t, in.Actor, out)
	return out, nil
}

// errStaffMoved reports that the record was reassigned between choosing the
// locks and reading it under them.
var errStaffMoved = errors.New("appointment staff changed before lock")

const maxStaffMoves = 3

func (s *Service) update(ctx context.Context, t store.Tenant, id int64, locked []int64, in UpdateInput) (domain.Appointment, error) {
	var out domain.Appointment
	err := t.InStaffTransaction(ctx, locked, func(ctx context.Context, tx store.BookingTx) error {
		current, err := tx.GetAppointment(ctx, id, false)
		if err != nil {
			return err
		}
		if !slices.Contains(locked, current.StaffID) {
			return errStaffMoved
		}
		merged := merge(current, in)

		v, err := Validate(ctx, tx, Request{
			UnitID:    merged.UnitID,
			ServiceID: merged.ServiceID,
			StaffID:   merged.StaffID,
			Date:      merged.Date,
			Start:     merged.Start,
			End:       merged.End,
			Status:    merged.Status,
			ExcludeID: id,
		})
		if err != nil {
			return err
		}
		merged.Date, merged.Start, merged.End = v.Date, v.Start, v.End
		merged.UpdatedBy = in.Actor

		a, err := tx.UpdateAppointment(ctx, merged)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func merge(a domain.Appointment, in UpdateInput) domain.Appointment {
	if in.UnitID != nil {
		a.UnitID = *in.UnitID
	}
	if in.ServiceID != nil {
		a.ServiceID = *in.ServiceID
	}
	if in.StaffID != nil {
		a.StaffID = *in.StaffID
	}
	if in.CustomerID != nil {
		a.CustomerID = *in.CustomerID
	}
	if in.CustomerName != nil {
		a.CustomerName = strings.TrimSpace(*in.CustomerName)
	}
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.Start != nil {
		a.Start = strings.TrimSpace(*in.Start)
	}
	if in.End != nil {
		a.End = strings.TrimSpace(*in.End)
	}
	if in.Status != nil {
		a.Status = strings.TrimSpace(*in.Status)
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.PriceCents != nil {
		a.PriceCents = *in.PriceCents
	}
	return a
}

// Remove soft-deletes the appointment and stamps the actor.
func (s *Service) Remove(ctx context.Context, t store.Tenant, id, actor int64) error {
	if id <= 0 {
		return store.ErrNotFound
	}
	var removed domain.Appointment
	err := t.InStaffTransaction(ctx, nil, func(ctx context.Context, tx store.BookingTx) error {
		a, err := tx.GetAppointment(ctx, id, false)
		if err != nil {
			return err
		}
		if err := tx.RemoveAppointment(ctx, id, actor); err != nil {
			return err
		}
		removed = a
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("appointment removed", slog.String("tenant_id", t.TenantID()), slog.Int64("appointment_id", id), slog.Int64("actor", actor))
	s.publish(ctx, events.AppointmentRemoved, t, actor, removed)
	return nil
}

// Get returns the appointment even when it has been removed.
func (s *Service) Get(ctx context.Context, t store.Tenant, id int64) (domain.Appointment, error) {
	if id <= 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return t.GetAppointment(ctx, id, true)
}

func (s *Service) List(ctx context.Context, t store.Tenant, f store.AppointmentFilter) (store.Page[domain.Appointment], error) {
	if f.Status != "" && !domain.ValidAppointmentStatus(f.Status) {
		return store.Page[domain.Appointment]{}, &Rejection{Kind: KindMalformed, Message: "unknown status filter"}
	}
	for _, d := range []*string{&f.From, &f.To} {
		if *d == "" {
			continue
		}
		parsed, err := domain.ParseDate(*d)
		if err != nil {
			return store.Page[domain.Appointment]{}, &Rejection{Kind: KindMalformed, Message: err.Error()}
		}
		*d = parsed.Format(domain.DateLayout)
	}
	f.Page, f.Limit = store.NormalizePage(f.Page, f.Limit)
	return t.ListAppointments(ctx, f)
}

// writeError turns a constraint-level overlap into the same rejection the
// validator reports, minus the blocking record, which cannot be read from
// an aborted transaction.
func (s *Service) writeError(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return &Rejection{Kind: KindConflict, Step: StepOverlap, Message: "staff member already has an appointment at this time"}
	}
	return err
}

func (s *Service) publish(ctx context.Context, t events.Type, tenant store.Tenant, actor int64, a domain.Appointment) {
	ev := events.NewAppointmentEvent(t, tenant.TenantID(), actor, a)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn(
			"appointment event publish failed",
			slog.Any("err", err),
			slog.String("event_type", string(t)),
			slog.String("tenant_id", tenant.TenantID()),
			slog.Int64("appointment_id", a.ID),
		)
	}
}
