package appointment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thezulux24/dentar-server/internal/catalog"
	"github.com/thezulux24/dentar-server/internal/config"
	redisclient "github.com/thezulux24/dentar-server/internal/redisclient"
)

// -- Mock collaborators --

type mockDirectory struct {
	patients    map[uuid.UUID]bool
	dentists    map[uuid.UUID]bool
	auxiliaries map[uuid.UUID]bool
	treatments  map[uuid.UUID]bool
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		patients:    make(map[uuid.UUID]bool),
		dentists:    make(map[uuid.UUID]bool),
		auxiliaries: make(map[uuid.UUID]bool),
		treatments:  make(map[uuid.UUID]bool),
	}
}

func (m *mockDirectory) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.patients[id], nil
}

func (m *mockDirectory) DentistExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.dentists[id], nil
}

func (m *mockDirectory) AuxiliaryExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.auxiliaries[id], nil
}

func (m *mockDirectory) TreatmentExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.treatments[id], nil
}

type mockLocker struct {
	busy  bool
	calls int
}

func (l *mockLocker) WithAgendaLock(ctx context.Context, _ []string, fn func(ctx context.Context) error) error {
	l.calls++
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type memRepo struct {
	mu          sync.Mutex
	appts       map[uuid.UUID]Appointment
	statusNames map[uuid.UUID]string
	lastFields  []string
}

func newMemRepo(statusNames map[uuid.UUID]string) *memRepo {
	return &memRepo{
		appts:       make(map[uuid.UUID]Appointment),
		statusNames: statusNames,
	}
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || !a.Active {
		return nil, ErrAppointmentNotFound
	}
	out := a
	return &out, nil
}

func (m *memRepo) GetPatientAppointment(_ context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || !a.Active || a.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}
	out := a
	return &out, nil
}

func (m *memRepo) DayWindows(_ context.Context, p Participant, day time.Time, exclude, cancelledStatusID uuid.UUID) ([]Window, error) {
	var result []Window
	for _, a := range m.appts {
		if !a.Active || a.ID == exclude || a.StatusID == cancelledStatusID || !a.Date.Equal(day) {
			continue
		}
		var match bool
		switch p.Kind {
		case ParticipantDentist:
			match = a.DentistID != nil && *a.DentistID == p.ID
		case ParticipantPatient:
			match = a.PatientID == p.ID
		case ParticipantAuxiliary:
			match = a.AuxiliaryID != nil && *a.AuxiliaryID == p.ID
		}
		if match {
			result = append(result, Window{Start: a.StartTime, End: a.EndTime})
		}
	}
	return result, nil
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	m.appts[a.ID] = *a
	return nil
}

func (m *memRepo) UpdateAppointment(_ context.Context, a *Appointment, fields []string) error {
	stored, ok := m.appts[a.ID]
	if !ok || !stored.Active {
		return ErrAppointmentNotFound
	}
	m.appts[a.ID] = *a
	m.lastFields = fields
	return nil
}

func (m *memRepo) matches(a Appointment, f Filter) bool {
	if !a.Active {
		return false
	}
	if f.From != nil && a.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && !a.StartTime.Before(*f.To) {
		return false
	}
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.DentistID != nil && (a.DentistID == nil || *a.DentistID != *f.DentistID) {
		return false
	}
	if f.AuxiliaryID != nil && (a.AuxiliaryID == nil || *a.AuxiliaryID != *f.AuxiliaryID) {
		return false
	}
	if f.TreatmentID != nil && (a.TreatmentID == nil || *a.TreatmentID != *f.TreatmentID) {
		return false
	}
	if f.StatusID != nil && a.StatusID != *f.StatusID {
		return false
	}
	return true
}

func (m *memRepo) CountAppointments(_ context.Context, f Filter) (int, error) {
	n := 0
	for _, a := range m.appts {
		if m.matches(a, f) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListAppointments(_ context.Context, f Filter, limit, offset int) ([]ListRow, error) {
	var matched []Appointment
	for _, a := range m.appts {
		if m.matches(a, f) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	var result []ListRow
	for _, a := range matched[offset:end] {
		result = append(result, ListRow{
			ID:        a.ID,
			Patient:   PersonRef{ID: a.PatientID, Name: "patient"},
			Date:      a.Date,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Reason:    a.Reason,
			Notes:     a.Notes,
			Status:    NamedRef{ID: a.StatusID, Name: m.statusNames[a.StatusID]},
		})
	}
	return result, nil
}

// InTx runs transactions one at a time, mirroring the isolation the
// serializable database transactions provide in production.
func (m *memRepo) InTx(_ context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

// -- Fixture --

// Guayaquil is UTC-5 year round; a fixed zone keeps tests independent of the
// host's tz database.
var testZone = time.FixedZone("America/Guayaquil", -5*60*60)

type fixture struct {
	svc       *Service
	repo      *memRepo
	dir       *mockDirectory
	locker    *mockLocker
	statuses  *catalog.StatusSet
	pending   uuid.UUID
	cancelled uuid.UUID
	completed uuid.UUID
	patient   uuid.UUID
	dentist   uuid.UUID
	auxiliary uuid.UUID
	treatment uuid.UUID
}

// testNow is business-local 2026-03-10 12:00.
var testNow = time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		pending:   uuid.New(),
		cancelled: uuid.New(),
		completed: uuid.New(),
		patient:   uuid.New(),
		dentist:   uuid.New(),
		auxiliary: uuid.New(),
		treatment: uuid.New(),
	}

	names := map[uuid.UUID]string{
		f.pending:   catalog.StatusPending,
		f.cancelled: catalog.StatusCancelled,
		f.completed: catalog.StatusCompleted,
	}

	statuses, err := catalog.NewStatusSet(names)
	if err != nil {
		t.Fatalf("build status set: %v", err)
	}
	f.statuses = statuses

	f.repo = newMemRepo(names)
	f.dir = newMockDirectory()
	f.dir.patients[f.patient] = true
	f.dir.dentists[f.dentist] = true
	f.dir.auxiliaries[f.auxiliary] = true
	f.dir.treatments[f.treatment] = true
	f.locker = &mockLocker{}

	cfg := config.Config{
		DefaultPageSize: 10,
		MaxPageSize:     50,
	}

	tl := NewTimeline(testZone, func() time.Time { return testNow })
	f.svc = NewService(f.repo, f.dir, statuses, f.locker, tl, cfg, zerolog.Nop())
	return f
}

func (f *fixture) createReq(date, start, end string) CreateRequest {
	dentist := f.dentist
	return CreateRequest{
		PatientID: f.patient,
		DentistID: &dentist,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}
}

func (f *fixture) mustCreate(t *testing.T, req CreateRequest) uuid.UUID {
	t.Helper()
	id, err := f.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return id
}
