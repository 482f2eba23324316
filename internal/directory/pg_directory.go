package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) exists(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	var ok bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND active)`, table)
	if err := d.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup %s: %w", table, err)
	}
	return ok, nil
}

func (d *PgDirectory) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.exists(ctx, "patients", id)
}

func (d *PgDirectory) DentistExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.exists(ctx, "dentists", id)
}

func (d *PgDirectory) AuxiliaryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.exists(ctx, "auxiliaries", id)
}

func (d *PgDirectory) TreatmentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.exists(ctx, "treatments", id)
}
