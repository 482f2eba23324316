package directory

import (
	"context"

	"github.com/google/uuid"
)

// Directory answers existence queries for the people and treatments an
// appointment can reference. Soft-deleted rows do not exist as far as the
// scheduler is concerned.
type Directory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	DentistExists(ctx context.Context, id uuid.UUID) (bool, error)
	AuxiliaryExists(ctx context.Context, id uuid.UUID) (bool, error)
	TreatmentExists(ctx context.Context, id uuid.UUID) (bool, error)
}
