package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thezulux24/dentar-server/internal/catalog"
	"github.com/thezulux24/dentar-server/internal/config"
	"github.com/thezulux24/dentar-server/internal/directory"
	redisclient "github.com/thezulux24/dentar-server/internal/redisclient"
)

// Service is the scheduling core: booking, mutation, cancellation and
// listing of appointments.
type Service struct {
	repo     Repository
	dir      directory.Directory
	statuses *catalog.StatusSet
	locker   redisclient.Locker
	tl       *Timeline

	checkAuxiliary  bool
	defaultPageSize int
	maxPageSize     int

	log zerolog.Logger
}

func NewService(
	repo Repository,
	dir directory.Directory,
	statuses *catalog.StatusSet,
	locker redisclient.Locker,
	tl *Timeline,
	cfg config.Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:            repo,
		dir:             dir,
		statuses:        statuses,
		locker:          locker,
		tl:              tl,
		checkAuxiliary:  cfg.CheckAuxiliaryOverlap,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		log:             log,
	}
}

// Create books a new appointment and returns its id. The validation pipeline
// short-circuits on the first failure; the overlap checks and the insert run
// under the participants' agenda locks inside one serializable transaction,
// so two concurrent requests for the same dentist or patient cannot both
// pass validation and both write.
func (s *Service) Create(ctx context.Context, req CreateRequest) (uuid.UUID, error) {
	if req.PatientID == uuid.Nil {
		return uuid.Nil, validationf("patientId is required")
	}
	if err := s.ensurePatient(ctx, req.PatientID); err != nil {
		return uuid.Nil, err
	}
	if err := s.ensureDentist(ctx, req.DentistID); err != nil {
		return uuid.Nil, err
	}
	if err := s.ensureAuxiliary(ctx, req.AuxiliaryID); err != nil {
		return uuid.Nil, err
	}
	if err := s.ensureTreatment(ctx, req.TreatmentID); err != nil {
		return uuid.Nil, err
	}

	day, err := s.tl.ParseDate(req.Date)
	if err != nil {
		return uuid.Nil, err
	}
	start, err := s.tl.At(day, req.StartTime)
	if err != nil {
		return uuid.Nil, err
	}
	end, err := s.tl.At(day, req.EndTime)
	if err != nil {
		return uuid.Nil, err
	}

	now := s.tl.Now()
	if err := s.checkWindow(day, start, end, now); err != nil {
		return uuid.Nil, err
	}

	appt := &Appointment{
		ID:          uuid.New(),
		PatientID:   req.PatientID,
		DentistID:   req.DentistID,
		AuxiliaryID: req.AuxiliaryID,
		TreatmentID: req.TreatmentID,
		Date:        day,
		StartTime:   start,
		EndTime:     end,
		Reason:      req.Reason,
		Notes:       req.Notes,
		StatusID:    s.statuses.PendingID(),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.locker.WithAgendaLock(ctx, s.lockKeys(appt), func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(tx Repository) error {
			if err := s.assertAgendasFree(lockCtx, tx, appt, uuid.Nil); err != nil {
				return err
			}
			if err := tx.CreateAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return uuid.Nil, ErrAgendaBusy
		}
		if errors.Is(err, ErrScheduleConflict) {
			s.log.Info().
				Str("patient_id", req.PatientID.String()).
				Time("start", start).
				Time("end", end).
				Msg("booking rejected, window already taken")
		}
		return uuid.Nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("patient_id", appt.PatientID.String()).
		Time("start", start).
		Msg("appointment booked")

	return appt.ID, nil
}

// checkWindow enforces ordering and the past-date/past-time rules relative
// to the business-local calendar.
func (s *Service) checkWindow(day, start, end, now time.Time) error {
	if !end.After(start) {
		return validationf("endTime must be after startTime")
	}
	today := s.tl.BusinessMidnight(now)
	if day.Before(today) {
		return validationf("date is in the past")
	}
	if day.Equal(today) && !start.After(now) {
		return validationf("start time is in the past")
	}
	return nil
}

// assertAgendasFree runs the overlap validator per participant, dentist
// first, then patient. Auxiliaries multi-task, so their agenda is only
// checked when explicitly configured.
func (s *Service) assertAgendasFree(ctx context.Context, tx Repository, a *Appointment, exclude uuid.UUID) error {
	if a.DentistID != nil {
		if err := s.assertFree(ctx, tx, Participant{Kind: ParticipantDentist, ID: *a.DentistID}, a, exclude); err != nil {
			return err
		}
	}
	if err := s.assertFree(ctx, tx, Participant{Kind: ParticipantPatient, ID: a.PatientID}, a, exclude); err != nil {
		return err
	}
	if s.checkAuxiliary && a.AuxiliaryID != nil {
		if err := s.assertFree(ctx, tx, Participant{Kind: ParticipantAuxiliary, ID: *a.AuxiliaryID}, a, exclude); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) assertFree(ctx context.Context, tx Repository, p Participant, a *Appointment, exclude uuid.UUID) error {
	windows, err := tx.DayWindows(ctx, p, a.Date, exclude, s.statuses.CancelledID())
	if err != nil {
		return fmt.Errorf("load %s agenda: %w", p.Kind, err)
	}
	if Overlaps(a.StartTime, a.EndTime, windows) {
		return fmt.Errorf("%s %s: %w", p.Kind, p.ID, ErrScheduleConflict)
	}
	return nil
}

// lockKeys names the agendas a write is about to touch.
func (s *Service) lockKeys(a *Appointment) []string {
	keys := []string{redisclient.AgendaKey(a.PatientID, a.Date)}
	if a.DentistID != nil {
		keys = append(keys, redisclient.AgendaKey(*a.DentistID, a.Date))
	}
	if s.checkAuxiliary && a.AuxiliaryID != nil {
		keys = append(keys, redisclient.AgendaKey(*a.AuxiliaryID, a.Date))
	}
	return keys
}

func (s *Service) ensurePatient(ctx context.Context, id uuid.UUID) error {
	ok, err := s.dir.PatientExists(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup patient: %w", err)
	}
	if !ok {
		return ErrPatientNotFound
	}
	return nil
}

func (s *Service) ensureDentist(ctx context.Context, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	ok, err := s.dir.DentistExists(ctx, *id)
	if err != nil {
		return fmt.Errorf("lookup dentist: %w", err)
	}
	if !ok {
		return ErrDentistNotFound
	}
	return nil
}

func (s *Service) ensureAuxiliary(ctx context.Context, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	ok, err := s.dir.AuxiliaryExists(ctx, *id)
	if err != nil {
		return fmt.Errorf("lookup auxiliary: %w", err)
	}
	if !ok {
		return ErrAuxiliaryNotFound
	}
	return nil
}

func (s *Service) ensureTreatment(ctx context.Context, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	ok, err := s.dir.TreatmentExists(ctx, *id)
	if err != nil {
		return fmt.Errorf("lookup treatment: %w", err)
	}
	if !ok {
		return ErrTreatmentNotFound
	}
	return nil
}
