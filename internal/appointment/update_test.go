package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thezulux24/dentar-server/internal/config"
)

func strptr(s string) *string { return &s }

func TestPatientUpdateFieldRestrictions(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	dentist2 := uuid.New()
	_, err := f.svc.Update(context.Background(), id, Changes{DentistID: &dentist2}, Actor{PatientID: f.patient})
	if !IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestPatientUpdateOwnAppointment(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	updated, err := f.svc.Update(context.Background(), id, Changes{
		Reason: strptr("toothache got worse"),
	}, Actor{PatientID: f.patient})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated != id {
		t.Fatalf("want id %s back, got %s", id, updated)
	}
	if got := f.repo.appts[id].Reason; got == nil || *got != "toothache got worse" {
		t.Fatalf("reason not persisted: %v", got)
	}
}

func TestPatientUpdateForeignAppointment(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	_, err := f.svc.Update(context.Background(), id, Changes{Reason: strptr("x")}, Actor{PatientID: uuid.New()})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("want ErrAppointmentNotFound, got %v", err)
	}
}

func TestPatientUpdateCancelledAppointment(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))
	if _, err := f.svc.Cancel(context.Background(), id, Actor{Staff: true}, false); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The row exists, but for the patient it reads as gone.
	_, err := f.svc.Update(context.Background(), id, Changes{Reason: strptr("x")}, Actor{PatientID: f.patient})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("want ErrAppointmentNotFound, got %v", err)
	}

	// Staff mode has no such block.
	if _, err := f.svc.Update(context.Background(), id, Changes{Reason: strptr("rebooked by phone")}, Actor{Staff: true}); err != nil {
		t.Fatalf("staff update on cancelled: %v", err)
	}
}

func TestUpdateRescheduleExcludesOwnWindow(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	// Shrinking the window inside itself would self-conflict unless the row
	// under edit is excluded from the overlap set.
	if _, err := f.svc.Update(context.Background(), id, Changes{
		StartTime: strptr("09:15"),
		EndTime:   strptr("09:45"),
	}, Actor{Staff: true}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
}

func TestUpdateRescheduleConflicts(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	other := uuid.New()
	f.dir.patients[other] = true
	req := f.createReq("2026-03-11", "11:00", "12:00")
	req.PatientID = other
	id2 := f.mustCreate(t, req)

	// Moving the second booking onto the first dentist's busy window fails.
	_, err := f.svc.Update(context.Background(), id2, Changes{
		StartTime: strptr("09:30"),
		EndTime:   strptr("10:30"),
	}, Actor{Staff: true})
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("want ErrScheduleConflict, got %v", err)
	}
}

func TestUpdateDateOnlyKeepsClockTimes(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	if _, err := f.svc.Update(context.Background(), id, Changes{
		Date: strptr("2026-03-12"),
	}, Actor{Staff: true}); err != nil {
		t.Fatalf("move date: %v", err)
	}

	a := f.repo.appts[id]
	if got := f.svc.tl.FormatLocalDate(a.Date); got != "2026-03-12" {
		t.Fatalf("want date 2026-03-12, got %s", got)
	}
	if got := f.svc.tl.FormatLocalClock(a.StartTime); got != "09:00" {
		t.Fatalf("start clock drifted: %s", got)
	}
	if got := f.svc.tl.FormatLocalClock(a.EndTime); got != "10:00" {
		t.Fatalf("end clock drifted: %s", got)
	}
	if !f.svc.tl.BusinessMidnight(a.StartTime).Equal(a.Date) {
		t.Fatal("date invariant broken after move")
	}
}

func TestUpdatePastRulesApplyOnReschedule(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	_, err := f.svc.Update(context.Background(), id, Changes{Date: strptr("2026-03-09")}, Actor{Staff: true})
	if !IsValidation(err) {
		t.Fatalf("past date: want ValidationError, got %v", err)
	}

	_, err = f.svc.Update(context.Background(), id, Changes{
		Date:      strptr("2026-03-10"),
		StartTime: strptr("08:00"),
		EndTime:   strptr("09:00"),
	}, Actor{Staff: true})
	if !IsValidation(err) {
		t.Fatalf("elapsed start: want ValidationError, got %v", err)
	}
}

func TestUpdatePersistsOnlyChangedFields(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	if _, err := f.svc.Update(context.Background(), id, Changes{
		Notes: strptr("bring previous x-rays"),
	}, Actor{Staff: true}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(f.repo.lastFields) != 1 || f.repo.lastFields[0] != FieldNotes {
		t.Fatalf("want only notes written, got %v", f.repo.lastFields)
	}
}

func TestUpdateNoopChanges(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))
	before := f.repo.appts[id]

	// Same values all around: nothing to write.
	dentist := f.dentist
	if _, err := f.svc.Update(context.Background(), id, Changes{
		DentistID: &dentist,
		StartTime: strptr("09:00"),
	}, Actor{Staff: true}); err != nil {
		t.Fatalf("noop update: %v", err)
	}

	after := f.repo.appts[id]
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatal("noop update must not touch the row")
	}
}

func TestUpdateClearsDentist(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	cleared := uuid.Nil
	if _, err := f.svc.Update(context.Background(), id, Changes{DentistID: &cleared}, Actor{Staff: true}); err != nil {
		t.Fatalf("clear dentist: %v", err)
	}
	if f.repo.appts[id].DentistID != nil {
		t.Fatal("dentist should be cleared")
	}
}

func TestUpdateStatusMustBeAppointmentStatus(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	bogus := uuid.New()
	_, err := f.svc.Update(context.Background(), id, Changes{StatusID: &bogus}, Actor{Staff: true})
	if !IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}

	if _, err := f.svc.Update(context.Background(), id, Changes{StatusID: &f.completed}, Actor{Staff: true}); err != nil {
		t.Fatalf("set Completed: %v", err)
	}
	if f.repo.appts[id].StatusID != f.completed {
		t.Fatal("status not persisted")
	}
}

func TestUpdateUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), uuid.New(), Changes{Reason: strptr("x")}, Actor{Staff: true})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("want ErrAppointmentNotFound, got %v", err)
	}
}

func TestCancelLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	cancelled, err := f.svc.Cancel(context.Background(), id, Actor{Staff: true}, false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled != id {
		t.Fatalf("want id %s back, got %s", id, cancelled)
	}

	a := f.repo.appts[id]
	if !f.statuses.IsCancelled(a.StatusID) {
		t.Fatalf("want Cancelled, got %s", f.statuses.NameOf(a.StatusID))
	}
	if !a.Active {
		t.Fatal("cancellation must not deactivate the row")
	}

	// A second cancel is rejected as not-found, not silently absorbed.
	if _, err := f.svc.Cancel(context.Background(), id, Actor{Staff: true}, false); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("double cancel: want ErrAppointmentNotFound, got %v", err)
	}
}

// gateRepo stalls appointment reads made outside a transaction until two
// readers have arrived. Reads inside InTx bypass it, because InTx hands the
// callback the embedded repo directly.
type gateRepo struct {
	*memRepo
	barrier sync.WaitGroup
}

func (g *gateRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := g.memRepo.GetAppointmentByID(ctx, id)
	g.barrier.Done()
	g.barrier.Wait()
	return a, err
}

func TestConcurrentCancelOneWinner(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	// If the already-cancelled check ran outside the transaction, the gate
	// would let both cancels read the pending row and both would succeed.
	gate := &gateRepo{memRepo: f.repo}
	gate.barrier.Add(2)
	svc := NewService(gate, f.dir, f.statuses, f.locker, f.svc.tl,
		config.Config{DefaultPageSize: 10, MaxPageSize: 50}, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Cancel(context.Background(), id, Actor{Staff: true}, false)
		}(i)
	}
	wg.Wait()

	var wins, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAppointmentNotFound):
			rejected++
		default:
			t.Fatalf("unexpected cancel error: %v", err)
		}
	}
	if wins != 1 || rejected != 1 {
		t.Fatalf("want one winner and one not-found, got %d wins and %d rejections", wins, rejected)
	}
	if !f.statuses.IsCancelled(f.repo.appts[id].StatusID) {
		t.Fatal("row should end cancelled")
	}
}

func TestCancelScopedToOwner(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreate(t, f.createReq("2026-03-11", "09:00", "10:00"))

	if _, err := f.svc.Cancel(context.Background(), id, Actor{PatientID: uuid.New()}, true); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("foreign cancel: want ErrAppointmentNotFound, got %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), id, Actor{PatientID: f.patient}, true); err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
}
