package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ListItem is a listing row projected for display: participant names and
// avatars resolved, instants rendered as business-local strings.
type ListItem struct {
	ID        uuid.UUID
	Patient   PersonRef
	Dentist   *PersonRef
	Auxiliary *PersonRef
	Treatment *NamedRef
	Date      string
	StartTime string
	EndTime   string
	Reason    *string
	Notes     *string
	Status    NamedRef
}

// Page is one page of listing results plus pagination metadata.
type Page struct {
	Items      []ListItem
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List returns active appointments matching the filter, sorted by start
// time ascending. Page defaults to 1 and pageSize is clamped to the
// configured maximum.
func (s *Service) List(ctx context.Context, f Filter, page, pageSize int) (*Page, error) {
	page, pageSize = s.clampPage(page, pageSize)

	total, err := s.repo.CountAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := s.repo.ListAppointments(ctx, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	items := make([]ListItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, s.project(r))
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// ListByPatient is the patient-scoped date range listing. Both bounds are
// required and the range must be strictly ordered.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to string, page, pageSize int) (*Page, error) {
	if patientID == uuid.Nil {
		return nil, validationf("patientId is required")
	}
	fromDay, err := s.tl.ParseDate(from)
	if err != nil {
		return nil, err
	}
	toDay, err := s.tl.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if !toDay.After(fromDay) {
		return nil, validationf("date range end must be after its start")
	}

	// [from, to] on calendar days: the exclusive bound is the midnight after
	// the last requested day.
	toExcl := s.tl.NextDay(toDay)

	f := Filter{
		PatientID: &patientID,
		From:      &fromDay,
		To:        &toExcl,
	}
	return s.List(ctx, f, page, pageSize)
}

func (s *Service) project(r ListRow) ListItem {
	return ListItem{
		ID:        r.ID,
		Patient:   r.Patient,
		Dentist:   r.Dentist,
		Auxiliary: r.Auxiliary,
		Treatment: r.Treatment,
		Date:      s.tl.FormatLocalDate(r.Date),
		StartTime: s.tl.FormatLocalClock(r.StartTime),
		EndTime:   s.tl.FormatLocalClock(r.EndTime),
		Reason:    r.Reason,
		Notes:     r.Notes,
		Status:    r.Status,
	}
}

func (s *Service) clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}
