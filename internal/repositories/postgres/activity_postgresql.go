package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// touchLastActivity keeps lastActivity monotonic and never before loginTime.
// GREATEST skips NULLs in Postgres.
var touchLastActivity = gorm.Expr("GREATEST(last_activity, login_time, NOW())")

type ActivityPostgreSQL struct {
	db *gorm.DB
}

func NewActivityPostgreSQL(db *gorm.DB) repositories.ActivityRepository {
	return &ActivityPostgreSQL{db: db}
}

// UpsertLogin writes both timestamps from one NOW() so they are equal
func (a *ActivityPostgreSQL) UpsertLogin(ctx context.Context, entry models.LoginEntry) error {
	values := map[string]interface{}{
		"uid":           entry.UID,
		"email":         entry.Email,
		"display_name":  entry.DisplayName,
		"role":          entry.Role,
		"status":        models.StatusActive,
		"login_time":    gorm.Expr("NOW()"),
		"last_activity": gorm.Expr("NOW()"),
		"device_info":   entry.DeviceInfo,
		"biometric_id":  entry.BiometricID,
	}

	updates := clause.AssignmentColumns([]string{"email", "display_name", "role", "status", "login_time", "last_activity"})
	updates = append(updates,
		clause.Assignment{
			Column: clause.Column{Name: "device_info"},
			Value:  gorm.Expr("COALESCE(NULLIF(excluded.device_info, ''), user_activity.device_info)"),
		},
		clause.Assignment{
			Column: clause.Column{Name: "biometric_id"},
			Value:  gorm.Expr("COALESCE(user_activity.biometric_id, excluded.biometric_id)"),
		},
	)

	err := a.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: updates,
		}).
		Create(values).Error
	if err != nil {
		return fmt.Errorf("failed to upsert activity: %w", err)
	}

	return nil
}

// update applies values to the uid's record; extra is an optional additional
// condition and its arguments
func (a *ActivityPostgreSQL) update(ctx context.Context, uid string, values map[string]interface{}, extra ...interface{}) error {
	values["last_activity"] = touchLastActivity

	query := a.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Where("uid = ?", uid)
	if len(extra) > 0 {
		query = query.Where(extra[0], extra[1:]...)
	}

	result := query.Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update activity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// TouchLastActivity refreshes active records only; an inactive session reports ErrNotFound
func (a *ActivityPostgreSQL) TouchLastActivity(ctx context.Context, uid string) error {
	return a.update(ctx, uid, map[string]interface{}{}, "status = ?", models.StatusActive)
}

func (a *ActivityPostgreSQL) MarkInactive(ctx context.Context, uid string) error {
	return a.update(ctx, uid, map[string]interface{}{"status": models.StatusInactive})
}

func (a *ActivityPostgreSQL) SetCurrentPage(ctx context.Context, uid, page string) error {
	return a.update(ctx, uid, map[string]interface{}{"current_page": page})
}

func (a *ActivityPostgreSQL) GetByUID(ctx context.Context, uid string) (*models.ActivityRecord, error) {
	var rec models.ActivityRecord
	err := a.db.WithContext(ctx).Where("uid = ?", uid).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return &rec, nil
}

func (a *ActivityPostgreSQL) List(ctx context.Context, filter models.ActivityFilter) ([]*models.ActivityRecord, error) {
	filter = filter.Normalize()

	query := a.db.WithContext(ctx).Model(&models.ActivityRecord{})
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var records []*models.ActivityRecord
	if err := query.Order("uid ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return records, nil
}
