package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/recruitx-service/internal/cache"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// mergeValues returns the insert values and the columns an existing row takes
// from them. Empty fields are left out so a merge never clobbers stored data.
func mergeValues(rec *models.EnrollmentRecord) (map[string]interface{}, []string) {
	values := map[string]interface{}{
		"uid":        rec.UID,
		"created_at": gorm.Expr("NOW()"),
		"updated_at": gorm.Expr("NOW()"),
	}
	columns := []string{"updated_at"}

	set := func(column string, value interface{}) {
		values[column] = value
		columns = append(columns, column)
	}

	if rec.Email != "" {
		set("email", rec.Email)
	}
	if rec.DisplayName != "" {
		set("display_name", rec.DisplayName)
	}
	if rec.BiometricID != "" {
		set("biometric_id", rec.BiometricID)
	}
	if len(rec.StudentInfo) > 0 {
		set("student_info", rec.StudentInfo)
	}
	if !rec.EnrollmentDate.IsZero() {
		set("enrollment_date", rec.EnrollmentDate)
	}
	if rec.EnrollmentStatus != "" {
		set("enrollment_status", rec.EnrollmentStatus)
	}

	return values, columns
}

func (e *EnrollmentPostgreSQL) UpsertMerge(ctx context.Context, rec *models.EnrollmentRecord) error {
	values, columns := mergeValues(rec)

	err := e.db.WithContext(ctx).
		Model(&models.EnrollmentRecord{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(values).Error
	if err != nil {
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}

	cache.InvalidateEnrollmentCache(ctx, e.cacheManager, rec.UID)
	return nil
}

// GetByUID reads through the enrollment cache
func (e *EnrollmentPostgreSQL) GetByUID(ctx context.Context, uid string) (*models.EnrollmentRecord, error) {
	var rec models.EnrollmentRecord

	err := e.cacheManager.Enrollment.CacheOrExecute(ctx, cache.EnrollmentKey(uid), &rec, cache.EnrollmentCacheConfig.TTL, func() (interface{}, error) {
		var dbRec models.EnrollmentRecord
		if err := e.db.WithContext(ctx).Where("uid = ?", uid).First(&dbRec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.ErrNotFound
			}
			return nil, fmt.Errorf("failed to get enrollment: %w", err)
		}
		return &dbRec, nil
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}
