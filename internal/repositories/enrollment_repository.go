package repositories

import (
	"context"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

// EnrollmentRepository is the users collection
type EnrollmentRepository interface {
	// UpsertMerge writes the non-empty fields of rec, keeping any others already stored
	UpsertMerge(ctx context.Context, rec *models.EnrollmentRecord) error
	GetByUID(ctx context.Context, uid string) (*models.EnrollmentRecord, error)
}
