package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/booking"
	"github.com/glowclinic/scheduling/internal/notify"
)

type BookServiceRequest struct {
	Date        string  `json:"appointment_date"`
	Time        string  `json:"appointment_time"`
	AttendantID *string `json:"attendant_id,omitempty"`
	RoomID      *string `json:"room_id,omitempty"`
}

type BookPackageRequest struct {
	Date        string  `json:"appointment_date"`
	Time        string  `json:"appointment_time"`
	AttendantID *string `json:"attendant_id,omitempty"`
}

type BookProductRequest struct {
	Date     string `json:"appointment_date"`
	Time     string `json:"appointment_time"`
	Quantity int    `json:"quantity"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type RescheduleRequestBody struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
	Reason  string `json:"reason,omitempty"`
}

type ReassignRequest struct {
	AttendantID string `json:"attendant_id"`
}

type RespondUnavailableRequest struct {
	Choice         string  `json:"choice"`
	NewAttendantID *string `json:"new_attendant_id,omitempty"`
}

type MarkReadRequest struct {
	NotificationID *string `json:"notification_id,omitempty"`
	All            bool    `json:"all,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID  `json:"id"`
	TransactionID string     `json:"transaction_id"`
	Date          string     `json:"appointment_date"`
	Time          string     `json:"appointment_time"`
	Status        string     `json:"status"`
	Kind          string     `json:"kind"`
	Quantity      int        `json:"quantity,omitempty"`
	PatientID     uuid.UUID  `json:"patient_id"`
	AttendantID   uuid.UUID  `json:"attendant_id"`
	ServiceID     *uuid.UUID `json:"service_id,omitempty"`
	ProductID     *uuid.UUID `json:"product_id,omitempty"`
	PackageID     *uuid.UUID `json:"package_id,omitempty"`
	RoomID        *uuid.UUID `json:"room_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		TransactionID: a.TransactionID,
		Date:          a.Date.Format("2006-01-02"),
		Time:          a.Time.String(),
		Status:        string(a.Status),
		Kind:          a.Kind(),
		Quantity:      a.Quantity,
		PatientID:     a.PatientID,
		AttendantID:   a.AttendantID,
		ServiceID:     a.ServiceID,
		ProductID:     a.ProductID,
		PackageID:     a.PackageID,
		RoomID:        a.RoomID,
		CreatedAt:     a.CreatedAt,
	}
}

type ConfirmResponse struct {
	Appointment  AppointmentResponse `json:"appointment"`
	StockWarning string              `json:"stock_warning,omitempty"`
}

type ChangeRequestResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Status        string    `json:"status"`
	NewDate       string    `json:"new_date,omitempty"`
	NewTime       string    `json:"new_time,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

func toCancellationResponse(r *booking.CancellationRequest) ChangeRequestResponse {
	return ChangeRequestResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		Status:        string(r.Status),
		Reason:        r.Reason,
	}
}

func toRescheduleResponse(r *booking.RescheduleRequest) ChangeRequestResponse {
	return ChangeRequestResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		Status:        string(r.Status),
		NewDate:       r.NewDate.Format("2006-01-02"),
		NewTime:       r.NewTime.String(),
		Reason:        r.Reason,
	}
}

type UnavailabilityRequestResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason"`
	PatientChoice string    `json:"patient_choice,omitempty"`
}

func toUnavailabilityResponse(r *booking.UnavailabilityRequest) UnavailabilityRequestResponse {
	return UnavailabilityRequestResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		Status:        string(r.Status),
		Reason:        r.Reason,
		PatientChoice: string(r.PatientChoice),
	}
}

type UnavailabilityOutcomeResponse struct {
	Request     UnavailabilityRequestResponse `json:"request"`
	Appointment AppointmentResponse           `json:"appointment"`
	NextStep    string                        `json:"next_step,omitempty"`
}

type AttendantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	WorkDays  []string  `json:"work_days,omitempty"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
}

func toAttendantResponse(a *booking.Attendant) AttendantResponse {
	resp := AttendantResponse{
		ID:   a.ID,
		Name: a.FullName(),
	}
	if a.Profile != nil {
		for _, d := range a.Profile.WorkDays {
			resp.WorkDays = append(resp.WorkDays, d.String())
		}
		resp.StartTime = a.Profile.StartTime.String()
		resp.EndTime = a.Profile.EndTime.String()
	}
	return resp
}

type RoomResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type TimeSlotResponse struct {
	ID    uuid.UUID `json:"id"`
	Time  string    `json:"time"`
	Label string    `json:"label"`
}

type ClosedDayResponse struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toNotificationResponse(n notify.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Type:          string(n.Type),
		Title:         n.Title,
		Message:       n.Message,
		AppointmentID: n.AppointmentID,
		CreatedAt:     n.CreatedAt,
	}
}

type ReminderRunResponse struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
