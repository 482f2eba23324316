package api

import (
	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	PatientID   string  `json:"patientId"`
	DentistID   *string `json:"dentistId,omitempty"`
	AuxiliaryID *string `json:"auxiliaryId,omitempty"`
	TreatmentID *string `json:"treatmentId,omitempty"`
	Date        string  `json:"date"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Reason      *string `json:"reason,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// UpdateAppointmentRequest is the staff-mode partial update. Absent fields
// are left alone; an empty-string id clears the assignment.
type UpdateAppointmentRequest struct {
	PatientID   *string `json:"patientId,omitempty"`
	DentistID   *string `json:"dentistId,omitempty"`
	AuxiliaryID *string `json:"auxiliaryId,omitempty"`
	TreatmentID *string `json:"treatmentId,omitempty"`
	Date        *string `json:"date,omitempty"`
	StartTime   *string `json:"startTime,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	StatusID    *string `json:"statusId,omitempty"`
}

// PatientUpdateRequest is the self-service subset.
type PatientUpdateRequest struct {
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	Reason    *string `json:"reason,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type IDResponse struct {
	ID uuid.UUID `json:"id"`
}

type PersonPayload struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
}

type NamedPayload struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AppointmentListItem struct {
	ID        uuid.UUID      `json:"id"`
	Patient   PersonPayload  `json:"patient"`
	Dentist   *PersonPayload `json:"dentist,omitempty"`
	Auxiliary *PersonPayload `json:"auxiliary,omitempty"`
	Treatment *NamedPayload  `json:"treatment,omitempty"`
	Date      string         `json:"date"`
	StartTime string         `json:"startTime"`
	EndTime   string         `json:"endTime"`
	Reason    *string        `json:"reason,omitempty"`
	Notes     *string        `json:"notes,omitempty"`
	Status    NamedPayload   `json:"status"`
}

type PageResponse struct {
	Data       []AppointmentListItem `json:"data"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
