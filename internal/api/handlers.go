package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/thezulux24/dentar-server/internal/appointment"
	"github.com/thezulux24/dentar-server/internal/catalog"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if !validDate(req.Date) {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		if !validClock(req.StartTime) || !validClock(req.EndTime) {
			writeError(w, http.StatusBadRequest, "invalid_time", "startTime and endTime must be HH:mm or HH:mm:ss")
			return
		}

		patientID, err := parseUUID("patientId", req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		dentistID, err := parseOptionalUUID("dentistId", req.DentistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dentist_id", err.Error())
			return
		}
		auxiliaryID, err := parseOptionalUUID("auxiliaryId", req.AuxiliaryID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_auxiliary_id", err.Error())
			return
		}
		treatmentID, err := parseOptionalUUID("treatmentId", req.TreatmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_treatment_id", err.Error())
			return
		}

		id, err := svc.Create(r.Context(), appointment.CreateRequest{
			PatientID:   patientID,
			DentistID:   nilIfCleared(dentistID),
			AuxiliaryID: nilIfCleared(auxiliaryID),
			TreatmentID: nilIfCleared(treatmentID),
			Date:        req.Date,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Reason:      req.Reason,
			Notes:       req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, IDResponse{ID: id})
	}
}

func listAppointmentsHandler(svc *appointment.Service, tl *appointment.Timeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var f appointment.Filter
		if v := q.Get("from"); v != "" {
			from, err := parseDayBound(tl, "from", v, false)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			f.From = &from
		}
		if v := q.Get("to"); v != "" {
			to, err := parseDayBound(tl, "to", v, true)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			f.To = &to
		}

		for _, p := range []struct {
			name string
			dst  **uuid.UUID
		}{
			{"patientId", &f.PatientID},
			{"dentistId", &f.DentistID},
			{"auxiliaryId", &f.AuxiliaryID},
			{"treatmentId", &f.TreatmentID},
			{"statusId", &f.StatusID},
		} {
			if v := q.Get(p.name); v != "" {
				id, err := parseUUID(p.name, v)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
					return
				}
				*p.dst = &id
			}
		}

		page, pageSize := paginationParams(q.Get("page"), q.Get("pageSize"))

		result, err := svc.List(r.Context(), f, page, pageSize)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPageResponse(result))
	}
}

func listPatientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := parseUUID("patientId", chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		q := r.URL.Query()
		from, to := q.Get("from"), q.Get("to")
		if !validDate(from) || !validDate(to) {
			writeError(w, http.StatusBadRequest, "invalid_date_range", "from and to are required as YYYY-MM-DD")
			return
		}

		page, pageSize := paginationParams(q.Get("page"), q.Get("pageSize"))

		result, err := svc.ListByPatient(r.Context(), patientID, from, to, page, pageSize)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPageResponse(result))
	}
}

func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUID("id", chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ch, err := changesFromRequest(&req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		updated, err := svc.Update(r.Context(), id, ch, appointment.Actor{Staff: true})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, IDResponse{ID: updated})
	}
}

func patientUpdateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := parseUUID("patientId", chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}
		id, err := parseUUID("id", chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var req PatientUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := checkOptionalDate("date", req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		if err := checkOptionalClock("startTime", req.StartTime); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}
		if err := checkOptionalClock("endTime", req.EndTime); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		ch := appointment.Changes{
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Reason:    req.Reason,
			Notes:     req.Notes,
		}

		updated, err := svc.Update(r.Context(), id, ch, appointment.Actor{PatientID: patientID})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, IDResponse{ID: updated})
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUID("id", chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		cancelled, err := svc.Cancel(r.Context(), id, appointment.Actor{Staff: true}, false)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, IDResponse{ID: cancelled})
	}
}

func patientCancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := parseUUID("patientId", chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}
		id, err := parseUUID("id", chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		cancelled, err := svc.Cancel(r.Context(), id, appointment.Actor{PatientID: patientID}, true)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, IDResponse{ID: cancelled})
	}
}

func changesFromRequest(req *UpdateAppointmentRequest) (appointment.Changes, error) {
	var ch appointment.Changes

	if err := checkOptionalDate("date", req.Date); err != nil {
		return ch, err
	}
	if err := checkOptionalClock("startTime", req.StartTime); err != nil {
		return ch, err
	}
	if err := checkOptionalClock("endTime", req.EndTime); err != nil {
		return ch, err
	}

	patientID, err := parseOptionalUUID("patientId", req.PatientID)
	if err != nil {
		return ch, err
	}
	dentistID, err := parseOptionalUUID("dentistId", req.DentistID)
	if err != nil {
		return ch, err
	}
	auxiliaryID, err := parseOptionalUUID("auxiliaryId", req.AuxiliaryID)
	if err != nil {
		return ch, err
	}
	treatmentID, err := parseOptionalUUID("treatmentId", req.TreatmentID)
	if err != nil {
		return ch, err
	}
	statusID, err := parseOptionalUUID("statusId", req.StatusID)
	if err != nil {
		return ch, err
	}

	ch = appointment.Changes{
		PatientID:   patientID,
		DentistID:   dentistID,
		AuxiliaryID: auxiliaryID,
		TreatmentID: treatmentID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
		Notes:       req.Notes,
		StatusID:    statusID,
	}
	return ch, nil
}

// parseDayBound turns a calendar day into an instant bound; the upper bound
// is exclusive at the following midnight so the day itself stays included.
func parseDayBound(tl *appointment.Timeline, field, value string, upper bool) (time.Time, error) {
	if !validDate(value) {
		return time.Time{}, &appointment.ValidationError{Msg: field + " must be YYYY-MM-DD"}
	}
	day, err := tl.ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		return tl.NextDay(day), nil
	}
	return day, nil
}

func paginationParams(pageStr, sizeStr string) (int, int) {
	page, _ := strconv.Atoi(pageStr)
	size, _ := strconv.Atoi(sizeStr)
	return page, size
}

func nilIfCleared(id *uuid.UUID) *uuid.UUID {
	if id != nil && *id == uuid.Nil {
		return nil
	}
	return id
}

func toPageResponse(p *appointment.Page) PageResponse {
	items := make([]AppointmentListItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, AppointmentListItem{
			ID:        it.ID,
			Patient:   PersonPayload(it.Patient),
			Dentist:   personPayload(it.Dentist),
			Auxiliary: personPayload(it.Auxiliary),
			Treatment: namedPayload(it.Treatment),
			Date:      it.Date,
			StartTime: it.StartTime,
			EndTime:   it.EndTime,
			Reason:    it.Reason,
			Notes:     it.Notes,
			Status:    NamedPayload(it.Status),
		})
	}
	return PageResponse{
		Data:       items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

func personPayload(p *appointment.PersonRef) *PersonPayload {
	if p == nil {
		return nil
	}
	out := PersonPayload(*p)
	return &out
}

func namedPayload(n *appointment.NamedRef) *NamedPayload {
	if n == nil {
		return nil
	}
	out := NamedPayload(*n)
	return &out
}

func writeServiceError(w http.ResponseWriter, err error) {
	var ve *appointment.ValidationError
	var ce *catalog.ConfigurationError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "validation_error", ve.Msg)
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrDentistNotFound):
		writeError(w, http.StatusNotFound, "dentist_not_found", err.Error())
	case errors.Is(err, appointment.ErrAuxiliaryNotFound):
		writeError(w, http.StatusNotFound, "auxiliary_not_found", err.Error())
	case errors.Is(err, appointment.ErrTreatmentNotFound):
		writeError(w, http.StatusNotFound, "treatment_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrScheduleConflict):
		writeError(w, http.StatusConflict, "schedule_conflict", err.Error())
	case errors.Is(err, appointment.ErrAgendaBusy):
		writeError(w, http.StatusConflict, "agenda_busy", "agenda is being modified, please retry shortly")
	case errors.As(err, &ce):
		writeError(w, http.StatusInternalServerError, "configuration_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
