package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

// InTx runs fn against a repository bound to one serializable transaction.
// Nested calls reuse the surrounding transaction.
func (r *PgRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PgRepository{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const appointmentColumns = `
	id, patient_id, dentist_id, auxiliary_id, treatment_id,
	date, start_time, end_time, reason, notes, status_id,
	active, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DentistID,
		&a.AuxiliaryID,
		&a.TreatmentID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Reason,
		&a.Notes,
		&a.StatusID,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND active
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetPatientAppointment(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND patient_id = $2 AND active
	`, id, patientID)
	return scanAppointment(row)
}

func participantColumn(kind ParticipantKind) (string, error) {
	switch kind {
	case ParticipantDentist:
		return "dentist_id", nil
	case ParticipantPatient:
		return "patient_id", nil
	case ParticipantAuxiliary:
		return "auxiliary_id", nil
	default:
		return "", fmt.Errorf("unknown participant kind %q", kind)
	}
}

func (r *PgRepository) DayWindows(ctx context.Context, p Participant, day time.Time, exclude, cancelledStatusID uuid.UUID) ([]Window, error) {
	col, err := participantColumn(p.Kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE `+col+` = $1
		  AND date = $2
		  AND status_id <> $3
		  AND id <> $4
		  AND active
	`, p.ID, day, cancelledStatusID, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		var w Window
		if err := rows.Scan(&w.Start, &w.End); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		a.ID, a.PatientID, a.DentistID, a.AuxiliaryID, a.TreatmentID,
		a.Date, a.StartTime, a.EndTime, a.Reason, a.Notes, a.StatusID,
		a.Active, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// UpdateAppointment writes only the named fields, plus updated_at.
func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment, fields []string) error {
	set := []string{"updated_at = $2"}
	args := []any{a.ID, a.UpdatedAt}

	for _, f := range fields {
		var v any
		switch f {
		case FieldPatient:
			v = a.PatientID
		case FieldDentist:
			v = a.DentistID
		case FieldAuxiliary:
			v = a.AuxiliaryID
		case FieldTreatment:
			v = a.TreatmentID
		case FieldDate:
			v = a.Date
		case FieldStart:
			v = a.StartTime
		case FieldEnd:
			v = a.EndTime
		case FieldReason:
			v = a.Reason
		case FieldNotes:
			v = a.Notes
		case FieldStatus:
			v = a.StatusID
		default:
			return fmt.Errorf("unknown appointment field %q", f)
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", f, len(args)))
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE appointments
		SET `+strings.Join(set, ", ")+`
		WHERE id = $1 AND active
	`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// filterClause renders the listing filter as an AND chain. Args are appended
// to base so the caller can add limit/offset afterwards.
func filterClause(f Filter, base []any) (string, []any) {
	where := []string{"a.active"}
	args := base

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.From != nil {
		add("a.start_time >= $%d", *f.From)
	}
	if f.To != nil {
		add("a.start_time < $%d", *f.To)
	}
	if f.PatientID != nil {
		add("a.patient_id = $%d", *f.PatientID)
	}
	if f.DentistID != nil {
		add("a.dentist_id = $%d", *f.DentistID)
	}
	if f.AuxiliaryID != nil {
		add("a.auxiliary_id = $%d", *f.AuxiliaryID)
	}
	if f.TreatmentID != nil {
		add("a.treatment_id = $%d", *f.TreatmentID)
	}
	if f.StatusID != nil {
		add("a.status_id = $%d", *f.StatusID)
	}

	return strings.Join(where, " AND "), args
}

func (r *PgRepository) CountAppointments(ctx context.Context, f Filter) (int, error) {
	where, args := filterClause(f, nil)

	var total int
	err := r.q.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		WHERE `+where, args...).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]ListRow, error) {
	where, args := filterClause(f, []any{limit, offset})

	rows, err := r.q.Query(ctx, `
		SELECT a.id, a.date, a.start_time, a.end_time, a.reason, a.notes,
		       p.id, p.full_name, p.avatar_url,
		       d.id, d.full_name, d.avatar_url,
		       x.id, x.full_name, x.avatar_url,
		       t.id, t.name,
		       st.id, st.name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		LEFT JOIN dentists d ON d.id = a.dentist_id
		LEFT JOIN auxiliaries x ON x.id = a.auxiliary_id
		LEFT JOIN treatments t ON t.id = a.treatment_id
		JOIN catalog_parameters st ON st.id = a.status_id
		WHERE `+where+`
		ORDER BY a.start_time ASC
		LIMIT $1 OFFSET $2
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListRow
	for rows.Next() {
		var row ListRow
		var (
			dentistID, auxiliaryID, treatmentID *uuid.UUID
			dentistName, auxiliaryName          *string
			dentistAvatar, auxiliaryAvatar      *string
			treatmentName                       *string
		)

		err := rows.Scan(
			&row.ID, &row.Date, &row.StartTime, &row.EndTime, &row.Reason, &row.Notes,
			&row.Patient.ID, &row.Patient.Name, &row.Patient.AvatarURL,
			&dentistID, &dentistName, &dentistAvatar,
			&auxiliaryID, &auxiliaryName, &auxiliaryAvatar,
			&treatmentID, &treatmentName,
			&row.Status.ID, &row.Status.Name,
		)
		if err != nil {
			return nil, err
		}

		if dentistID != nil {
			row.Dentist = &PersonRef{ID: *dentistID, AvatarURL: dentistAvatar}
			if dentistName != nil {
				row.Dentist.Name = *dentistName
			}
		}
		if auxiliaryID != nil {
			row.Auxiliary = &PersonRef{ID: *auxiliaryID, AvatarURL: auxiliaryAvatar}
			if auxiliaryName != nil {
				row.Auxiliary.Name = *auxiliaryName
			}
		}
		if treatmentID != nil {
			row.Treatment = &NamedRef{ID: *treatmentID}
			if treatmentName != nil {
				row.Treatment.Name = *treatmentName
			}
		}

		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
