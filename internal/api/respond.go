package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glowclinic/scheduling/internal/booking"
	redisclient "github.com/glowclinic/scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

var notFoundErrs = []error{
	booking.ErrPatientNotFound,
	booking.ErrAttendantNotFound,
	booking.ErrRoomNotFound,
	booking.ErrServiceNotFound,
	booking.ErrProductNotFound,
	booking.ErrPackageNotFound,
	booking.ErrAppointmentNotFound,
	booking.ErrRequestNotFound,
}

// handleDomainError maps booking errors to HTTP responses: validation to
// 400, permission to 403, missing resources to 404, every policy or state
// conflict to 409.
func handleDomainError(w http.ResponseWriter, err error) {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "validation_error", ve.Error())
		return
	}
	var pe *booking.PermissionError
	if errors.As(err, &pe) {
		writeError(w, http.StatusForbidden, "forbidden", pe.Error())
		return
	}
	var ce *booking.ConflictError
	if errors.As(err, &ce) {
		writeError(w, http.StatusConflict, ce.Rule, ce.Msg)
		return
	}
	var se *booking.StateError
	if errors.As(err, &se) {
		writeError(w, http.StatusConflict, "invalid_status_transition", se.Error())
		return
	}

	switch {
	case errors.Is(err, booking.ErrSlotContended), errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrUnavailabilityPending):
		writeError(w, http.StatusConflict, "unavailability_pending", err.Error())
	case errors.Is(err, booking.ErrRequestProcessed):
		writeError(w, http.StatusConflict, "request_already_processed", err.Error())
	default:
		for _, sentinel := range notFoundErrs {
			if errors.Is(err, sentinel) {
				writeError(w, http.StatusNotFound, "not_found", err.Error())
				return
			}
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
