package booking

import (
	"context"
	"errors"
	"time"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type Kind string

const (
	KindMalformed    Kind = "malformed"
	KindNotFound     Kind = "not_found"
	KindEligibility  Kind = "eligibility"
	KindAvailability Kind = "availability"
	KindConflict     Kind = "conflict"
)

const (
	StepShape        = "shape"
	StepReferences   = "references"
	StepUnitService  = "unit_service"
	StepServiceStaff = "service_staff"
	StepSchedule     = "schedule_window"
	StepOverlap      = "overlap"
)

// Rejection is a business-rule failure of a booking request. Conflict is
// set when an existing appointment blocks the requested window and it
// could be read.
type Rejection struct {
	Kind     Kind
	Step     string
	Message  string
	Conflict *domain.Appointment
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(kind Kind, msg string) *Rejection {
	return &Rejection{Kind: kind, Message: msg}
}

// Request is the candidate booking. ExcludeID names the appointment being
// edited so it never conflicts with itself.
type Request struct {
	UnitID    int64
	ServiceID int64
	StaffID   int64
	Date      string
	Start     string
	End       string
	Status    string
	ExcludeID int64
}

// Validated carries the normalized request and the records the checks loaded.
type Validated struct {
	Date    string
	Start   string
	End     string
	Unit    domain.Unit
	Staff   domain.Staff
	Service domain.Service
}

type check struct {
	req Request
	tx  store.BookingTx

	date  time.Time
	start domain.Clock
	end   domain.Clock
	out   Validated
}

type step struct {
	name string
	run  func(ctx context.Context, c *check) error
}

// pipeline runs in order and stops at the first failure.
var pipeline = []step{
	{name: StepShape, run: checkShape},
	{name: StepReferences, run: checkReferences},
	{name: StepUnitService, run: checkUnitService},
	{name: StepServiceStaff, run: checkServiceStaff},
	{name: StepSchedule, run: checkScheduleWindow},
	{name: StepOverlap, run: checkOverlap},
}

// Validate returns a *Rejection for business-rule failures and any other
// error for infrastructure failures.
func Validate(ctx context.Context, tx store.BookingTx, req Request) (Validated, error) {
	c := &check{req: req, tx: tx}
	for _, s := range pipeline {
		if err := s.run(ctx, c); err != nil {
			var r *Rejection
			if errors.As(err, &r) {
				r.Step = s.name
			}
			return Validated{}, err
		}
	}
	return c.out, nil
}

func checkShape(_ context.Context, c *check) error {
	r := c.req
	switch {
	case r.UnitID <= 0:
		return reject(KindMalformed, "unit_id is required")
	case r.ServiceID <= 0:
		return reject(KindMalformed, "service_id is required")
	case r.StaffID <= 0:
		return reject(KindMalformed, "staff_id is required")
	}
	if !domain.ValidAppointmentStatus(r.Status) {
		return reject(KindMalformed, "status must be one of pending, confirmed, done, cancelled")
	}

	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return reject(KindMalformed, err.Error())
	}
	start, err := domain.ParseClock(r.Start)
	if err != nil {
		return reject(KindMalformed, "start: "+err.Error())
	}
	end, err := domain.ParseClock(r.End)
	if err != nil {
		return reject(KindMalformed, "end: "+err.Error())
	}
	if start >= end {
		return reject(KindMalformed, "end must be after start")
	}

	c.date, c.start, c.end = date, start, end
	c.out.Date = date.Format(domain.DateLayout)
	c.out.Start = start.String()
	c.out.End = end.String()
	return nil
}

func checkReferences(ctx context.Context, c *check) error {
	unit, err := c.tx.GetUnit(ctx, c.req.UnitID)
	if err != nil {
		return notFound(err, "unit not found")
	}
	service, err := c.tx.GetService(ctx, c.req.ServiceID)
	if err != nil {
		return notFound(err, "service not found")
	}
	staff, err := c.tx.GetStaff(ctx, c.req.StaffID)
	if err != nil {
		return notFound(err, "staff member not found")
	}
	c.out.Unit, c.out.Service, c.out.Staff = unit, service, staff
	return nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return reject(KindNotFound, msg)
	}
	return err
}

func checkUnitService(ctx context.Context, c *check) error {
	if c.out.Unit.Status != domain.StatusActive {
		return reject(KindEligibility, "unit is inactive")
	}
	if c.out.Service.Status != domain.StatusActive {
		return reject(KindEligibility, "service is inactive")
	}
	ok, err := c.tx.ServiceAllowedForUnit(ctx, c.req.UnitID, c.req.ServiceID)
	if err != nil {
		return err
	}
	if !ok {
		return reject(KindEligibility, "service is not offered at this unit")
	}
	return nil
}

func checkServiceStaff(ctx context.Context, c *check) error {
	if c.out.Staff.Status != domain.StatusActive {
		return reject(KindEligibility, "staff member is inactive")
	}
	ok, err := c.tx.ServiceAllowedForStaff(ctx, c.req.ServiceID, c.req.StaffID)
	if err != nil {
		return err
	}
	if !ok {
		return reject(KindEligibility, "staff member does not perform this service")
	}
	return nil
}

func checkScheduleWindow(_ context.Context, c *check) error {
	err := domain.WindowFitsSchedule(c.out.Staff.Schedule, c.date, c.start, c.end, c.req.UnitID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNoValidAvailability):
		return reject(KindAvailability, domain.ErrNoValidAvailability.Error())
	default:
		return reject(KindAvailability, err.Error())
	}
}

// checkOverlap is skipped for cancelled bookings, which never block time.
func checkOverlap(ctx context.Context, c *check) error {
	if c.req.Status == domain.AppointmentCancelled {
		return nil
	}
	hit, err := c.tx.FindOverlap(ctx, store.OverlapQuery{
		StaffID:   c.req.StaffID,
		Date:      c.out.Date,
		Start:     c.out.Start,
		End:       c.out.End,
		ExcludeID: c.req.ExcludeID,
	})
	if err != nil {
		return err
	}
	if hit != nil {
		r := reject(KindConflict, "staff member already has an appointment at this time")
		r.Conflict = hit
		return r
	}
	return nil
}
