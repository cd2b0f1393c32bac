package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

const presenceSheet = "Presence"

var presenceHeader = []interface{}{
	"UID", "Email", "Display Name", "Role", "Status",
	"Current Page", "Login Time", "Last Activity", "Since Login", "Since Activity",
}

type exportService struct {
	presence PresenceService
	logger   *slog.Logger
}

func NewExportService(presence PresenceService, logger *slog.Logger) ExportService {
	return &exportService{
		presence: presence,
		logger:   logger,
	}
}

// ExportPresence renders the current role view as an xlsx workbook
func (s *exportService) ExportPresence(ctx context.Context, role models.UserRole) ([]byte, error) {
	users, err := s.presence.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", presenceSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(presenceSheet, "A1", &presenceHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(presenceHeader))
	if err := f.SetCellStyle(presenceSheet, "A1", lastCol+"1", style); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(presenceSheet, "A", lastCol, 20); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	for i, u := range users {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			u.UID, u.Email, u.DisplayName, string(u.Role), string(u.Status),
			derefString(u.CurrentPage), formatTimestamp(u.LoginTime), formatTimestamp(u.LastActivity),
			u.TimeSinceLogin, u.TimeSinceActivity,
		}
		if err := f.SetSheetRow(presenceSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Presence exported", "role", role, "rows", len(users))
	return buf.Bytes(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
