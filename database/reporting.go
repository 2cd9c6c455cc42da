package database

import (
	"database/sql"
	"time"
)

// EarningsSummary aggregates an instructor's settled commissions
type EarningsSummary struct {
	InstructorID    uint    `json:"instructor_id"`
	TotalGross      float64 `json:"total_gross"`
	TotalEarned     float64 `json:"total_earned"`
	TotalPlatform   float64 `json:"total_platform"`
	OrdersCount     int64   `json:"orders_count"`
	CoursesSold     int64   `json:"courses_sold"`
	PendingPayout   float64 `json:"pending_payout"`   // Wallet balance not yet withdrawn
	ApprovedPayouts float64 `json:"approved_payouts"` // Sum of approved withdrawals
}

// MonthlyEarnings is one month's settled revenue for an instructor
type MonthlyEarnings struct {
	Month       time.Time `json:"month"`
	Gross       float64   `json:"gross"`
	Earned      float64   `json:"earned"`
	CoursesSold int64     `json:"courses_sold"`
}

// GetEarningsSummary aggregates commission totals for one instructor
func (s *ReportingStore) GetEarningsSummary(instructorID uint) (*EarningsSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(gross_amount), 0),
			COALESCE(SUM(instructor_share), 0),
			COALESCE(SUM(platform_share), 0),
			COUNT(DISTINCT order_id),
			COUNT(*)
		FROM commissions
		WHERE instructor_id = $1 AND status = 'paid';
	`

	summary := &EarningsSummary{InstructorID: instructorID}
	err := s.db.QueryRow(query, instructorID).Scan(
		&summary.TotalGross,
		&summary.TotalEarned,
		&summary.TotalPlatform,
		&summary.OrdersCount,
		&summary.CoursesSold,
	)
	if err != nil {
		return nil, err
	}

	// Wallet balance is the ledger sum
	balanceQuery := `SELECT COALESCE(SUM(amount), 0) FROM wallet_histories WHERE user_id = $1;`
	if err := s.db.QueryRow(balanceQuery, instructorID).Scan(&summary.PendingPayout); err != nil {
		return nil, err
	}

	payoutQuery := `SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests WHERE user_id = $1 AND status = 'approved';`
	if err := s.db.QueryRow(payoutQuery, instructorID).Scan(&summary.ApprovedPayouts); err != nil {
		return nil, err
	}

	return summary, nil
}

// GetMonthlyEarnings returns per-month settled revenue for the last `months` months
func (s *ReportingStore) GetMonthlyEarnings(instructorID uint, months int) ([]MonthlyEarnings, error) {
	query := `
		SELECT
			date_trunc('month', created_at) AS month,
			COALESCE(SUM(gross_amount), 0),
			COALESCE(SUM(instructor_share), 0),
			COUNT(*)
		FROM commissions
		WHERE instructor_id = $1
		  AND status = 'paid'
		  AND created_at >= date_trunc('month', NOW()) - ($2 * INTERVAL '1 month')
		GROUP BY month
		ORDER BY month DESC;
	`

	rows, err := s.db.Query(query, instructorID, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	earnings := []MonthlyEarnings{}
	for rows.Next() {
		row, err := scanIntoMonthlyEarnings(rows)
		if err != nil {
			return nil, err
		}
		earnings = append(earnings, *row)
	}

	return earnings, rows.Err()
}

// GetPlatformRevenue sums the platform's share across all settled commissions
func (s *ReportingStore) GetPlatformRevenue() (float64, int64, error) {
	query := `
		SELECT COALESCE(SUM(platform_share), 0), COUNT(DISTINCT order_id)
		FROM commissions
		WHERE status = 'paid';
	`

	var revenue float64
	var orders int64
	if err := s.db.QueryRow(query).Scan(&revenue, &orders); err != nil {
		return 0, 0, err
	}
	return revenue, orders, nil
}

func scanIntoMonthlyEarnings(rows *sql.Rows) (*MonthlyEarnings, error) {
	row := new(MonthlyEarnings)
	err := rows.Scan(
		&row.Month,
		&row.Gross,
		&row.Earned,
		&row.CoursesSold,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}
