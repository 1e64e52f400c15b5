package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/juliherms/petAgendamentos/internal/scheduling"
)

// SchedulingService is the slice of the admission engine the handlers need.
type SchedulingService interface {
	CreateAppointment(ctx context.Context, petID, serviceID, providerID uuid.UUID, date time.Time, start scheduling.TimeOfDay) (*scheduling.Appointment, error)
	AppointmentsByPet(ctx context.Context, petID uuid.UUID) ([]scheduling.Appointment, error)
	AppointmentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]scheduling.Appointment, error)
	ProviderAgenda(ctx context.Context, providerID uuid.UUID, date time.Time) ([]scheduling.Appointment, error)
}

// HoursProvider exposes the configured business-hours rules for the read path.
type HoursProvider interface {
	ActiveRules(ctx context.Context) ([]scheduling.BusinessHoursRule, error)
}

func createAppointmentHandler(svc SchedulingService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		petID, err := uuid.Parse(req.PetID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pet_id", "pet_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation("2006-01-02", req.Date, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
			return
		}

		start, err := scheduling.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be formatted as HH:MM or HH:MM:SS")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), petID, serviceID, providerID, date, start)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listByPetHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, err := uuid.Parse(chi.URLParam(r, "petID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pet_id", "petID must be a valid UUID")
			return
		}

		appts, err := svc.AppointmentsByPet(r.Context(), petID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func listByUserHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "userID must be a valid UUID")
			return
		}

		appts, err := svc.AppointmentsByOwner(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func providerAgendaHandler(svc SchedulingService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "providerID must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be formatted as YYYY-MM-DD")
			return
		}

		appts, err := svc.ProviderAgenda(r.Context(), providerID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func businessHoursHandler(hours HoursProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := hours.ActiveRules(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]BusinessHoursResponse, 0, len(rules))
		for _, rule := range rules {
			resp = append(resp, BusinessHoursResponse{
				Weekday:  rule.Weekday.String(),
				OpensAt:  rule.OpensAt.String(),
				ClosesAt: rule.ClosesAt.String(),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// handleServiceError maps each rejection kind onto its own status so callers
// can tell not-found, forbidden, temporal and conflict failures apart. System
// failures collapse into an opaque 500.
func handleServiceError(w http.ResponseWriter, err error) {
	var rejection *scheduling.Rejection
	if errors.As(err, &rejection) {
		writeError(w, rejectionStatus(rejection.Kind), rejection.Code, rejection.Message)
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}

func rejectionStatus(kind scheduling.RejectionKind) int {
	switch kind {
	case scheduling.KindNotFound:
		return http.StatusNotFound
	case scheduling.KindForbidden:
		return http.StatusForbidden
	case scheduling.KindUnprocessable:
		return http.StatusUnprocessableEntity
	case scheduling.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
