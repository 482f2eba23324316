package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Column names for partial updates. The service tracks which logical fields
// a mutation actually changed and only those are written back.
const (
	FieldPatient   = "patient_id"
	FieldDentist   = "dentist_id"
	FieldAuxiliary = "auxiliary_id"
	FieldTreatment = "treatment_id"
	FieldDate      = "date"
	FieldStart     = "start_time"
	FieldEnd       = "end_time"
	FieldReason    = "reason"
	FieldNotes     = "notes"
	FieldStatus    = "status_id"
)

// Repository contains all DB interactions needed by the scheduler. InTx runs
// fn against a repository bound to one serializable transaction, so overlap
// checks and the write they guard commit or fail as a unit.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetPatientAppointment(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error)

	// DayWindows returns the active, non-cancelled windows of one
	// participant's agenda on one business day, minus the excluded row.
	DayWindows(ctx context.Context, p Participant, day time.Time, exclude, cancelledStatusID uuid.UUID) ([]Window, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment, fields []string) error

	CountAppointments(ctx context.Context, f Filter) (int, error)
	ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]ListRow, error)

	InTx(ctx context.Context, fn func(Repository) error) error
}

// Filter narrows a listing. All set members are ANDed; From/To bound
// start_time as [From, To).
type Filter struct {
	From        *time.Time
	To          *time.Time
	PatientID   *uuid.UUID
	DentistID   *uuid.UUID
	AuxiliaryID *uuid.UUID
	TreatmentID *uuid.UUID
	StatusID    *uuid.UUID
}

// PersonRef is the display projection of a directory entry.
type PersonRef struct {
	ID        uuid.UUID
	Name      string
	AvatarURL *string
}

// NamedRef is a bare id/name pair (treatments, statuses).
type NamedRef struct {
	ID   uuid.UUID
	Name string
}

// ListRow is one listing result as read from the store, instants still
// absolute.
type ListRow struct {
	ID        uuid.UUID
	Patient   PersonRef
	Dentist   *PersonRef
	Auxiliary *PersonRef
	Treatment *NamedRef
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
	Reason    *string
	Notes     *string
	Status    NamedRef
}
