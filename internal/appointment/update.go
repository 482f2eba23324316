package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/thezulux24/dentar-server/internal/redisclient"
)

// updatePlan is the outcome of diffing a change set against a stored row.
type updatePlan struct {
	next        *Appointment
	fields      []string
	timeChanged bool
}

// Update applies a partial change set to an existing appointment. Staff may
// reassign participants and set the status; a patient may only move the time
// window and edit reason/notes on their own, not-yet-cancelled appointments.
// Only the fields that actually changed are written back, and the
// authoritative read-validate-write runs inside a single transaction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, ch Changes, actor Actor) (uuid.UUID, error) {
	if !actor.Staff {
		if ch.PatientID != nil || ch.DentistID != nil || ch.AuxiliaryID != nil ||
			ch.TreatmentID != nil || ch.StatusID != nil {
			return uuid.Nil, validationf("patients may only change the time window, reason and notes")
		}
	}

	// First pass outside the transaction: reject invalid input early and
	// size the agenda locks. The row is read again inside the transaction
	// and the plan rebuilt from that authoritative state.
	peek, err := s.load(ctx, s.repo, id, actor)
	if err != nil {
		return uuid.Nil, err
	}
	draft, err := s.planChanges(ctx, peek, ch, actor)
	if err != nil {
		return uuid.Nil, err
	}
	if len(draft.fields) == 0 {
		return peek.ID, nil
	}

	var (
		resultID uuid.UUID
		written  []string
	)
	run := func(txCtx context.Context, tx Repository) error {
		existing, err := s.load(txCtx, tx, id, actor)
		if err != nil {
			return err
		}
		plan, err := s.planChanges(txCtx, existing, ch, actor)
		if err != nil {
			return err
		}
		resultID = existing.ID
		if len(plan.fields) == 0 {
			return nil
		}
		plan.next.UpdatedAt = s.tl.Now()
		if plan.timeChanged {
			if err := s.assertAgendasFree(txCtx, tx, plan.next, plan.next.ID); err != nil {
				return err
			}
		}
		if err := tx.UpdateAppointment(txCtx, plan.next, plan.fields); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		written = plan.fields
		return nil
	}

	if draft.timeChanged {
		err = s.locker.WithAgendaLock(ctx, s.lockKeys(draft.next), func(lockCtx context.Context) error {
			return s.repo.InTx(lockCtx, func(tx Repository) error {
				return run(lockCtx, tx)
			})
		})
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return uuid.Nil, ErrAgendaBusy
		}
	} else {
		err = s.repo.InTx(ctx, func(tx Repository) error {
			return run(ctx, tx)
		})
	}
	if err != nil {
		return uuid.Nil, err
	}

	if len(written) > 0 {
		s.log.Info().
			Str("appointment_id", resultID.String()).
			Strs("fields", written).
			Bool("staff", actor.Staff).
			Msg("appointment updated")
	}

	return resultID, nil
}

// planChanges diffs the change set against a stored row, running existence
// checks and window validation as it goes. It does not write anything.
func (s *Service) planChanges(ctx context.Context, existing *Appointment, ch Changes, actor Actor) (updatePlan, error) {
	if !actor.Staff && s.statuses.IsCancelled(existing.StatusID) {
		// A cancelled appointment is gone as far as the patient is concerned.
		return updatePlan{}, fmt.Errorf("appointment is cancelled: %w", ErrAppointmentNotFound)
	}

	next := *existing
	var fields []string

	if ch.PatientID != nil && *ch.PatientID != existing.PatientID {
		if *ch.PatientID == uuid.Nil {
			return updatePlan{}, validationf("patientId is required")
		}
		if err := s.ensurePatient(ctx, *ch.PatientID); err != nil {
			return updatePlan{}, err
		}
		next.PatientID = *ch.PatientID
		fields = append(fields, FieldPatient)
	}
	if changed, err := s.applyRef(ctx, ch.DentistID, &next.DentistID, s.ensureDentist); err != nil {
		return updatePlan{}, err
	} else if changed {
		fields = append(fields, FieldDentist)
	}
	if changed, err := s.applyRef(ctx, ch.AuxiliaryID, &next.AuxiliaryID, s.ensureAuxiliary); err != nil {
		return updatePlan{}, err
	} else if changed {
		fields = append(fields, FieldAuxiliary)
	}
	if changed, err := s.applyRef(ctx, ch.TreatmentID, &next.TreatmentID, s.ensureTreatment); err != nil {
		return updatePlan{}, err
	} else if changed {
		fields = append(fields, FieldTreatment)
	}

	if ch.Date != nil {
		day, err := s.tl.ParseDate(*ch.Date)
		if err != nil {
			return updatePlan{}, err
		}
		next.Date = day
	}
	// Clock strings are recomputed against the (possibly new) day; absent
	// clock strings inherit the existing wall time on that day.
	if ch.StartTime != nil {
		start, err := s.tl.At(next.Date, *ch.StartTime)
		if err != nil {
			return updatePlan{}, err
		}
		next.StartTime = start
	} else if !next.Date.Equal(existing.Date) {
		next.StartTime = s.tl.Rebase(next.Date, existing.StartTime)
	}
	if ch.EndTime != nil {
		end, err := s.tl.At(next.Date, *ch.EndTime)
		if err != nil {
			return updatePlan{}, err
		}
		next.EndTime = end
	} else if !next.Date.Equal(existing.Date) {
		next.EndTime = s.tl.Rebase(next.Date, existing.EndTime)
	}

	timeChanged := !next.Date.Equal(existing.Date) ||
		!next.StartTime.Equal(existing.StartTime) ||
		!next.EndTime.Equal(existing.EndTime)
	if timeChanged {
		if err := s.checkWindow(next.Date, next.StartTime, next.EndTime, s.tl.Now()); err != nil {
			return updatePlan{}, err
		}
		if !next.Date.Equal(existing.Date) {
			fields = append(fields, FieldDate)
		}
		if !next.StartTime.Equal(existing.StartTime) {
			fields = append(fields, FieldStart)
		}
		if !next.EndTime.Equal(existing.EndTime) {
			fields = append(fields, FieldEnd)
		}
	}

	if ch.Reason != nil && !sameText(ch.Reason, existing.Reason) {
		next.Reason = ch.Reason
		fields = append(fields, FieldReason)
	}
	if ch.Notes != nil && !sameText(ch.Notes, existing.Notes) {
		next.Notes = ch.Notes
		fields = append(fields, FieldNotes)
	}
	if ch.StatusID != nil && *ch.StatusID != existing.StatusID {
		if !s.statuses.Contains(*ch.StatusID) {
			return updatePlan{}, validationf("statusId is not an appointment status")
		}
		next.StatusID = *ch.StatusID
		fields = append(fields, FieldStatus)
	}

	return updatePlan{next: &next, fields: fields, timeChanged: timeChanged}, nil
}

// Cancel moves an appointment to the cancelled status. The read and the
// already-cancelled check run inside the same transaction as the write, so
// two concurrent cancels resolve to one winner; the loser fails as not-found.
// The row itself is never removed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor, scopeToOwner bool) (uuid.UUID, error) {
	var cancelled uuid.UUID

	err := s.repo.InTx(ctx, func(tx Repository) error {
		var existing *Appointment
		var err error
		if scopeToOwner {
			existing, err = tx.GetPatientAppointment(ctx, id, actor.PatientID)
		} else {
			existing, err = tx.GetAppointmentByID(ctx, id)
		}
		if err != nil {
			return err
		}
		if s.statuses.IsCancelled(existing.StatusID) {
			return fmt.Errorf("already cancelled: %w", ErrAppointmentNotFound)
		}

		next := *existing
		next.StatusID = s.statuses.CancelledID()
		next.UpdatedAt = s.tl.Now()
		if err := tx.UpdateAppointment(ctx, &next, []string{FieldStatus}); err != nil {
			return err
		}
		cancelled = next.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.log.Info().
		Str("appointment_id", cancelled.String()).
		Bool("patient_initiated", scopeToOwner).
		Msg("appointment cancelled")

	return cancelled, nil
}

func (s *Service) load(ctx context.Context, repo Repository, id uuid.UUID, actor Actor) (*Appointment, error) {
	if actor.Staff {
		return repo.GetAppointmentByID(ctx, id)
	}
	return repo.GetPatientAppointment(ctx, id, actor.PatientID)
}

// applyRef merges an optional participant reference. A pointer to uuid.Nil
// clears the assignment; anything else is existence-checked first.
func (s *Service) applyRef(
	ctx context.Context,
	change *uuid.UUID,
	current **uuid.UUID,
	ensure func(context.Context, *uuid.UUID) error,
) (bool, error) {
	if change == nil {
		return false, nil
	}
	if *change == uuid.Nil {
		if *current == nil {
			return false, nil
		}
		*current = nil
		return true, nil
	}
	if *current != nil && **current == *change {
		return false, nil
	}
	if err := ensure(ctx, change); err != nil {
		return false, err
	}
	v := *change
	*current = &v
	return true, nil
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
