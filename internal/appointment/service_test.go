package appointment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCreateRequiresPatient(t *testing.T) {
	f := newFixture(t)

	req := f.createReq("2026-03-11", "09:00", "10:00")
	req.PatientID = uuid.Nil

	_, err := f.svc.Create(context.Background(), req)
	if !IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestCreateUnknownParticipants(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name    string
		mutate  func(*CreateRequest)
		wantErr error
	}{
		{"patient", func(r *CreateRequest) { r.PatientID = uuid.New() }, ErrPatientNotFound},
		{"dentist", func(r *CreateRequest) { id := uuid.New(); r.DentistID = &id }, ErrDentistNotFound},
		{"auxiliary", func(r *CreateRequest) { id := uuid.New(); r.AuxiliaryID = &id }, ErrAuxiliaryNotFound},
		{"treatment", func(r *CreateRequest) { id := uuid.New(); r.TreatmentID = &id }, ErrTreatmentNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.createReq("2026-03-11", "09:00", "10:00")
			tc.mutate(&req)
			_, err := f.svc.Create(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateWithoutDentistAllowed(t *testing.T) {
	f := newFixture(t)

	req := f.createReq("2026-03-11", "09:00", "10:00")
	req.DentistID = nil

	id := f.mustCreate(t, req)
	if f.repo.appts[id].DentistID != nil {
		t.Fatal("dentist should stay unassigned")
	}
}

func TestCreateRejectsIllOrderedWindow(t *testing.T) {
	f := newFixture(t)

	for _, times := range [][2]string{{"10:00", "09:00"}, {"10:00", "10:00"}} {
		_, err := f.svc.Create(context.Background(), f.createReq("2026-03-11", times[0], times[1]))
		if !IsValidation(err) {
			t.Fatalf("window %v: want ValidationError, got %v", times, err)
		}
	}
}

func TestCreatePastRules(t *testing.T) {
	f := newFixture(t)

	// Yesterday business-local.
	if _, err := f.svc.Create(context.Background(), f.createReq("2026-03-09", "09:00", "10:00")); !IsValidation(err) {
		t.Fatalf("past date: want ValidationError, got %v", err)
	}

	// Today, start already elapsed (now is 12:00 local).
	if _, err := f.svc.Create(context.Background(), f.createReq("2026-03-10", "09:00", "10:00")); !IsValidation(err) {
		t.Fatalf("elapsed start: want ValidationError, got %v", err)
	}

	// Today, start exactly now is still "in the past".
	if _, err := f.svc.Create(context.Background(), f.createReq("2026-03-10", "12:00", "13:00")); !IsValidation(err) {
		t.Fatalf("start == now: want ValidationError, got %v", err)
	}

	// Today with a future start succeeds.
	f.mustCreate(t, f.createReq("2026-03-10", "15:00", "16:00"))
}

func TestCreateDentistConflict(t *testing.T) {
	f := newFixture(t)

	f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	// Same dentist, different patient, overlapping window.
	other := uuid.New()
	f.dir.patients[other] = true
	req := f.createReq("2026-03-11", "09:30", "10:30")
	req.PatientID = other

	_, err := f.svc.Create(context.Background(), req)
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("want ErrScheduleConflict, got %v", err)
	}
}

func TestCreatePatientConflict(t *testing.T) {
	f := newFixture(t)

	req := f.createReq("2026-03-11", "09:00", "10:00")
	req.DentistID = nil
	f.mustCreate(t, req)

	// Same patient with a different dentist still collides.
	req2 := f.createReq("2026-03-11", "09:45", "10:15")
	_, err := f.svc.Create(context.Background(), req2)
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("want ErrScheduleConflict, got %v", err)
	}
}

func TestCreateTouchingWindowsDoNotConflict(t *testing.T) {
	f := newFixture(t)

	f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))
	f.mustCreate(t, f.createReq("2026-03-11", "10:00", "11:00"))
}

func TestCreateCancelledRowsIgnoredByOverlap(t *testing.T) {
	f := newFixture(t)

	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))
	if _, err := f.svc.Cancel(context.Background(), id, Actor{Staff: true}, false); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The cancelled booking no longer blocks the window.
	f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))
}

func TestCreateAuxiliaryNotOverlapCheckedByDefault(t *testing.T) {
	f := newFixture(t)

	aux := f.auxiliary
	req := f.createReq("2026-03-11", "09:00", "10:00")
	req.AuxiliaryID = &aux
	f.mustCreate(t, req)

	// Same auxiliary, same window, different dentist and patient: allowed,
	// auxiliaries multi-task unless configured otherwise.
	other := uuid.New()
	f.dir.patients[other] = true
	dentist2 := uuid.New()
	f.dir.dentists[dentist2] = true

	req2 := CreateRequest{
		PatientID:   other,
		DentistID:   &dentist2,
		AuxiliaryID: &aux,
		Date:        "2026-03-11",
		StartTime:   "09:00",
		EndTime:     "10:00",
	}
	f.mustCreate(t, req2)
}

func TestCreateAuxiliaryOverlapWhenConfigured(t *testing.T) {
	f := newFixture(t)
	f.svc.checkAuxiliary = true

	aux := f.auxiliary
	req := f.createReq("2026-03-11", "09:00", "10:00")
	req.AuxiliaryID = &aux
	f.mustCreate(t, req)

	other := uuid.New()
	f.dir.patients[other] = true
	dentist2 := uuid.New()
	f.dir.dentists[dentist2] = true

	req2 := CreateRequest{
		PatientID:   other,
		DentistID:   &dentist2,
		AuxiliaryID: &aux,
		Date:        "2026-03-11",
		StartTime:   "09:30",
		EndTime:     "10:30",
	}
	_, err := f.svc.Create(context.Background(), req2)
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("want ErrScheduleConflict, got %v", err)
	}
}

func TestCreateInitialStateAndInvariants(t *testing.T) {
	f := newFixture(t)

	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:30"))
	a := f.repo.appts[id]

	if a.StatusID != f.pending {
		t.Fatalf("want initial status Pending, got %s", f.statuses.NameOf(a.StatusID))
	}
	if !a.Active {
		t.Fatal("new appointment must be active")
	}
	if !a.StartTime.Before(a.EndTime) {
		t.Fatal("startTime must precede endTime")
	}
	// date invariant: date equals the business-local midnight of startTime
	if !f.svc.tl.BusinessMidnight(a.StartTime).Equal(a.Date) {
		t.Fatalf("date %v is not the business midnight of start %v", a.Date, a.StartTime)
	}
	// Guayaquil is UTC-5, so local 09:00 is 14:00Z.
	if got := a.StartTime.UTC().Hour(); got != 14 {
		t.Fatalf("want 14:00Z start, got %02d:00Z", got)
	}
}

func TestCreateAgendaBusy(t *testing.T) {
	f := newFixture(t)
	f.locker.busy = true

	_, err := f.svc.Create(context.Background(), f.createReq("2026-03-11", "09:00", "10:00"))
	if !errors.Is(err, ErrAgendaBusy) {
		t.Fatalf("want ErrAgendaBusy, got %v", err)
	}
}

func TestCreateNoDedup(t *testing.T) {
	f := newFixture(t)

	// Identical requests in non-overlapping windows both create rows; there
	// is no idempotency key.
	a := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))
	b := f.mustCreate(t, f.createReq("2026-03-12", "09:00", "10:00"))
	if a == b {
		t.Fatal("expected two distinct appointments")
	}
}
