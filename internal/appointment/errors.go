package appointment

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDentistNotFound     = errors.New("dentist not found")
	ErrAuxiliaryNotFound   = errors.New("auxiliary not found")
	ErrTreatmentNotFound   = errors.New("treatment not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrScheduleConflict means a participant already has an appointment
	// intersecting the requested window.
	ErrScheduleConflict = errors.New("participant already booked in that window")

	// ErrAgendaBusy means another request holds the agenda lock; the caller
	// should retry.
	ErrAgendaBusy = errors.New("agenda is being modified, please retry")
)

// ValidationError is a client-caused input problem, reported verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
