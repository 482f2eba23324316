package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is a booked (or requested) visit. Date holds the UTC instant
// of business-local midnight for the visit's calendar day; StartTime and
// EndTime are the absolute instants of the visit window.
type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DentistID   *uuid.UUID
	AuxiliaryID *uuid.UUID
	TreatmentID *uuid.UUID
	Date        time.Time
	StartTime   time.Time
	EndTime     time.Time
	Reason      *string
	Notes       *string
	StatusID    uuid.UUID
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Window is a half-open [Start, End) slice of a participant's day.
type Window struct {
	Start time.Time
	End   time.Time
}

// CreateRequest carries the raw booking input. Date and the clock strings
// are business-local and already format-checked at the boundary.
type CreateRequest struct {
	PatientID   uuid.UUID
	DentistID   *uuid.UUID
	AuxiliaryID *uuid.UUID
	TreatmentID *uuid.UUID
	Date        string // YYYY-MM-DD
	StartTime   string // HH:mm or HH:mm:ss
	EndTime     string
	Reason      *string
	Notes       *string
}

// Changes is a partial update. A nil field means "leave it alone"; a non-nil
// field overwrites, and for the optional participant references a non-nil
// pointer to uuid.Nil clears the assignment.
type Changes struct {
	PatientID   *uuid.UUID
	DentistID   *uuid.UUID
	AuxiliaryID *uuid.UUID
	TreatmentID *uuid.UUID
	Date        *string
	StartTime   *string
	EndTime     *string
	Reason      *string
	Notes       *string
	StatusID    *uuid.UUID
}

// Actor identifies who is performing a mutation. Staff can touch everything;
// a patient only their own appointments, and only a narrow field set.
type Actor struct {
	Staff     bool
	PatientID uuid.UUID
}

// Participant scopes an overlap check to one agenda.
type ParticipantKind string

const (
	ParticipantDentist   ParticipantKind = "dentist"
	ParticipantPatient   ParticipantKind = "patient"
	ParticipantAuxiliary ParticipantKind = "auxiliary"
)

type Participant struct {
	Kind ParticipantKind
	ID   uuid.UUID
}
