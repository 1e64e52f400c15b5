package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/juliherms/petAgendamentos/internal/scheduling"
)

type CreateAppointmentRequest struct {
	PetID      string `json:"pet_id"`
	ServiceID  string `json:"service_id"`
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`       // 2006-01-02
	StartTime  string `json:"start_time"` // 15:04 or 15:04:05
}

type AppointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	PetID      uuid.UUID `json:"pet_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		PetID:      a.PetID,
		ServiceID:  a.ServiceID,
		ProviderID: a.ProviderID,
		Date:       a.Date.Format("2006-01-02"),
		StartTime:  a.StartTime.String(),
		EndTime:    a.EndTime.String(),
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
	}
}

func toAppointmentResponses(appts []scheduling.Appointment) []AppointmentResponse {
	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, toAppointmentResponse(&appts[i]))
	}
	return resp
}

type BusinessHoursResponse struct {
	Weekday  string `json:"weekday"`
	OpensAt  string `json:"opens_at"`
	ClosesAt string `json:"closes_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
