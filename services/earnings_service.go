package services

import (
	"context"
	"fmt"

	"github.com/learnora/academy-api/database"
	"github.com/learnora/academy-api/model"
	"gorm.io/gorm"
)

// EarningsService assembles the instructor earnings dashboard: aggregate
// figures come from the raw-SQL reporting store, the commission breakdown
// from GORM.
type EarningsService struct {
	db        *gorm.DB
	reporting *database.ReportingStore
}

// NewEarningsService creates a new earnings service
func NewEarningsService(db *gorm.DB, reporting *database.ReportingStore) *EarningsService {
	return &EarningsService{db: db, reporting: reporting}
}

// Dashboard is the instructor earnings overview
type Dashboard struct {
	Summary *database.EarningsSummary  `json:"summary"`
	Monthly []database.MonthlyEarnings `json:"monthly"`
}

// GetDashboard returns aggregate earnings for one instructor
func (s *EarningsService) GetDashboard(ctx context.Context, instructorID uint, months int) (*Dashboard, error) {
	if months <= 0 || months > 36 {
		months = 12
	}

	summary, err := s.reporting.GetEarningsSummary(instructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings summary: %w", err)
	}

	monthly, err := s.reporting.GetMonthlyEarnings(instructorID, months)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly earnings: %w", err)
	}

	return &Dashboard{Summary: summary, Monthly: monthly}, nil
}

// ListCommissions returns an instructor's commission rows, newest first
func (s *EarningsService) ListCommissions(ctx context.Context, instructorID uint, limit, offset int) ([]model.Commission, int64, error) {
	var commissions []model.Commission
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Commission{}).
		Where("instructor_id = ?", instructorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count commissions: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	err := query.Preload("Course").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&commissions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list commissions: %w", err)
	}
	return commissions, total, nil
}

// PlatformRevenue returns the platform's total share and order count,
// admin dashboard only
func (s *EarningsService) PlatformRevenue(ctx context.Context) (float64, int64, error) {
	revenue, orders, err := s.reporting.GetPlatformRevenue()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load platform revenue: %w", err)
	}
	return revenue, orders, nil
}
