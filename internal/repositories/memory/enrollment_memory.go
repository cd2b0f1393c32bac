package memory

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// EnrollmentMemory is a thread-safe users collection
type EnrollmentMemory struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	records map[string]*models.EnrollmentRecord
}

func NewEnrollmentMemory(clock clockwork.Clock) *EnrollmentMemory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EnrollmentMemory{
		clock:   clock,
		records: make(map[string]*models.EnrollmentRecord),
	}
}

func (m *EnrollmentMemory) UpsertMerge(ctx context.Context, rec *models.EnrollmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	existing, ok := m.records[rec.UID]
	if !ok {
		existing = &models.EnrollmentRecord{UID: rec.UID, CreatedAt: now}
		m.records[rec.UID] = existing
	}

	if rec.Email != "" {
		existing.Email = rec.Email
	}
	if rec.DisplayName != "" {
		existing.DisplayName = rec.DisplayName
	}
	if rec.BiometricID != "" {
		existing.BiometricID = rec.BiometricID
	}
	if len(rec.StudentInfo) > 0 {
		existing.StudentInfo = append(datatypes.JSON(nil), rec.StudentInfo...)
	}
	if !rec.EnrollmentDate.IsZero() {
		existing.EnrollmentDate = rec.EnrollmentDate
	}
	if rec.EnrollmentStatus != "" {
		existing.EnrollmentStatus = rec.EnrollmentStatus
	}
	existing.UpdatedAt = now

	return nil
}

func (m *EnrollmentMemory) GetByUID(ctx context.Context, uid string) (*models.EnrollmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *rec
	c.StudentInfo = append(datatypes.JSON(nil), rec.StudentInfo...)
	return &c, nil
}
