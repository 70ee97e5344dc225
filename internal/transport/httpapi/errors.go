package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agenda/backend/internal/service/booking"
	"agenda/backend/internal/service/catalog"
	"agenda/backend/internal/store"
)

type errorBody struct {
	Message  string               `json:"message"`
	Kind     string               `json:"kind,omitempty"`
	Step     string               `json:"step,omitempty"`
	Field    string               `json:"field,omitempty"`
	Conflict *appointmentResponse `json:"conflict,omitempty"`
}

func rejectionStatus(k booking.Kind) int {
	switch k {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// fail writes the response for err. Internal failures are logged with the
// request id and reported without detail.
func (h *handlers) fail(c *gin.Context, op string, err error) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("tenant_id", c.GetString(tenantIDKey)),
	)

	var rej *booking.Rejection
	if errors.As(err, &rej) {
		body := errorBody{Message: rej.Message, Kind: string(rej.Kind), Step: rej.Step}
		if rej.Conflict != nil {
			conflict := toAppointmentResponse(*rej.Conflict)
			body.Conflict = &conflict
			log.Info("booking conflict", slog.Int64("conflict_id", rej.Conflict.ID))
		} else {
			log.Warn("booking rejected", slog.String("kind", string(rej.Kind)), slog.String("step", rej.Step), slog.String("reason", rej.Message))
		}
		c.JSON(rejectionStatus(rej.Kind), body)
		return
	}

	var vErr *catalog.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, errorBody{Message: vErr.Error(), Kind: string(booking.KindMalformed), Field: vErr.Field})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{Message: err.Error(), Kind: string(booking.KindNotFound)})
	case errors.Is(err, store.ErrConflict):
		log.Info("write conflict", slog.Any("err", err))
		c.JSON(http.StatusConflict, errorBody{Message: "record conflicts with an existing one", Kind: string(booking.KindConflict)})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request deadline exceeded")
		c.JSON(http.StatusServiceUnavailable, errorBody{Message: "request timed out"})
	default:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, errorBody{Message: "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Message: msg, Kind: string(booking.KindMalformed)})
}
