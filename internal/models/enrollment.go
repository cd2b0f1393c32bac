package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type EnrollmentStatus string

const (
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// StudentInfo is the free-form candidate profile collected before capture
type StudentInfo struct {
	Name            string `json:"name" validate:"required,not_blank,max=100"`
	Year            string `json:"year" validate:"required,not_blank,max=32"`
	InstitutionName string `json:"institution_name" validate:"required,not_blank,max=200"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"required,not_blank,max=32"`
	InstitutionID   string `json:"institution_id" validate:"required,not_blank,max=64"`
}

// EnrollmentRecord is the durable per-user enrollment document
type EnrollmentRecord struct {
	UID              string           `json:"uid" gorm:"primaryKey;size:255"`
	Email            string           `json:"email" gorm:"size:255"`
	DisplayName      string           `json:"display_name" gorm:"size:255"`
	BiometricID      string           `json:"biometric_id" gorm:"size:255"`
	StudentInfo      datatypes.JSON   `json:"student_info" gorm:"type:jsonb"`
	EnrollmentDate   time.Time        `json:"enrollment_date"`
	EnrollmentStatus EnrollmentStatus `json:"enrollment_status" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EnrollmentRecord) TableName() string {
	return "users"
}

// SetProfile encodes info into the StudentInfo column
func (r *EnrollmentRecord) SetProfile(info StudentInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode student info: %w", err)
	}
	r.StudentInfo = datatypes.JSON(data)
	return nil
}

// Profile decodes the StudentInfo column
func (r *EnrollmentRecord) Profile() (StudentInfo, error) {
	var info StudentInfo
	if len(r.StudentInfo) == 0 {
		return info, nil
	}
	if err := json.Unmarshal(r.StudentInfo, &info); err != nil {
		return info, fmt.Errorf("failed to decode student info: %w", err)
	}
	return info, nil
}
