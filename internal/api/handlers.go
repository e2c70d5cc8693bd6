package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/booking"
)

func bookServiceHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req BookServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := booking.BookServiceInput{
			PatientID: actor.ID,
			ServiceID: serviceID,
			Date:      req.Date,
			Time:      req.Time,
		}
		if !parseOptionalID(w, req.AttendantID, "attendant_id", &in.AttendantID) {
			return
		}
		if !parseOptionalID(w, req.RoomID, "room_id", &in.RoomID) {
			return
		}

		appt, err := svc.BookService(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func bookPackageHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req BookPackageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := booking.BookPackageInput{
			PatientID: actor.ID,
			PackageID: packageID,
			Date:      req.Date,
			Time:      req.Time,
		}
		if !parseOptionalID(w, req.AttendantID, "attendant_id", &in.AttendantID) {
			return
		}

		appt, err := svc.BookPackage(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func bookProductHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req BookProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}

		appt, err := svc.BookProduct(r.Context(), booking.BookProductInput{
			PatientID: actor.ID,
			ProductID: productID,
			Date:      req.Date,
			Time:      req.Time,
			Quantity:  req.Quantity,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		// Patients only see their own bookings.
		if actor.Role == booking.RolePatient && appt.PatientID != actor.ID {
			writeError(w, http.StatusNotFound, "not_found", "appointment not found")
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func myAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appts, err := svc.ListPatientAppointments(r.Context(), actor.ID, limit, offset)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func confirmHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		res, err := svc.Confirm(r.Context(), actor, id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ConfirmResponse{
			Appointment:  toAppointmentResponse(res.Appointment),
			StockWarning: res.StockWarning,
		})
	}
}

func completeHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		appt, err := svc.Complete(r.Context(), actor, id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Cancel(r.Context(), actor, id, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func markNoShowHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		appt, err := svc.MarkNoShow(r.Context(), actor, id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reassignHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req ReassignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		attendantID, err := uuid.Parse(req.AttendantID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_attendant_id", "attendant_id must be a valid UUID")
			return
		}

		appt, err := svc.ReassignAttendant(r.Context(), actor, id, attendantID)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func requestCancellationHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		cr, err := svc.RequestCancellation(r.Context(), actor.ID, id, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCancellationResponse(cr))
	}
}

func requestRescheduleHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req RescheduleRequestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rr, err := svc.RequestReschedule(r.Context(), actor.ID, id, req.NewDate, req.NewTime, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRescheduleResponse(rr))
	}
}

func reviewCancellationHandler(svc *booking.Service, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var cr *booking.CancellationRequest
		var err error
		if approve {
			cr, err = svc.ApproveCancellation(r.Context(), actor, id)
		} else {
			cr, err = svc.RejectCancellation(r.Context(), actor, id)
		}
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCancellationResponse(cr))
	}
}

func reviewRescheduleHandler(svc *booking.Service, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var rr *booking.RescheduleRequest
		var err error
		if approve {
			rr, err = svc.ApproveReschedule(r.Context(), actor, id)
		} else {
			rr, err = svc.RejectReschedule(r.Context(), actor, id)
		}
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRescheduleResponse(rr))
	}
}

func markUnavailableHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ur, err := svc.MarkAttendantUnavailable(r.Context(), actor, id, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUnavailabilityResponse(ur))
	}
}

func respondUnavailableHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := pathID(w, r, "requestID")
		if !ok {
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req RespondUnavailableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resp := booking.UnavailabilityResponse{Choice: booking.PatientChoice(req.Choice)}
		if !parseOptionalID(w, req.NewAttendantID, "new_attendant_id", &resp.NewAttendantID) {
			return
		}

		outcome, err := svc.RespondToUnavailability(r.Context(), actor.ID, requestID, resp)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, UnavailabilityOutcomeResponse{
			Request:     toUnavailabilityResponse(outcome.Request),
			Appointment: toAppointmentResponse(outcome.Appointment),
			NextStep:    outcome.NextStep,
		})
	}
}

func listAttendantsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Unparseable filters are ignored so the picker still renders.
		var date *time.Time
		var tod *booking.TimeOfDay
		if v := r.URL.Query().Get("date"); v != "" {
			if d, err := booking.ParseDate(v); err == nil {
				date = &d
			}
		}
		if v := r.URL.Query().Get("time"); v != "" {
			if t, err := booking.ParseTimeOfDay(v); err == nil {
				tod = &t
			}
		}

		attendants, err := svc.AvailableAttendants(r.Context(), date, tod)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		out := make([]AttendantResponse, 0, len(attendants))
		for i := range attendants {
			out = append(out, toAttendantResponse(&attendants[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listRoomsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := svc.AvailableRooms(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		out := make([]RoomResponse, 0, len(rooms))
		for _, room := range rooms {
			out = append(out, RoomResponse{ID: room.ID, Name: room.Name})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listTimeSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.ActiveTimeSlots(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		out := make([]TimeSlotResponse, 0, len(slots))
		for _, slot := range slots {
			out = append(out, TimeSlotResponse{ID: slot.ID, Time: slot.Time.String(), Label: slot.Time.Clock()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listClosedDaysHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := svc.ClosedDays(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		out := make([]ClosedDayResponse, 0, len(days))
		for _, d := range days {
			out = append(out, ClosedDayResponse{Date: d.Date.Format("2006-01-02"), Reason: d.Reason})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Helpers

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func requireActor(w http.ResponseWriter, r *http.Request) (booking.Actor, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "caller identity is required")
		return booking.Actor{}, false
	}
	return actor, true
}

func parseOptionalID(w http.ResponseWriter, raw *string, field string, dst **uuid.UUID) bool {
	if raw == nil || *raw == "" {
		return true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return false
	}
	*dst = &id
	return true
}
