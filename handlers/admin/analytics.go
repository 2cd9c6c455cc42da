package admin

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/database"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// GetOverviewAnalytics retrieves system-wide overview statistics
// GET /admin/analytics/overview
func GetOverviewAnalytics(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var stats struct {
		TotalUsers       int64   `json:"total_users"`
		TotalCourses     int64   `json:"total_courses"`
		PublishedCourses int64   `json:"published_courses"`
		TotalOrders      int64   `json:"total_orders"`
		CompletedOrders  int64   `json:"completed_orders"`
		StaleOrders      int64   `json:"stale_orders"`
		GrossRevenue     float64 `json:"gross_revenue"`
		PlatformRevenue  float64 `json:"platform_revenue"`
		InstructorPayout float64 `json:"instructor_payout"`
		OrdersToday      int64   `json:"orders_today"`
		OrdersThisWeek   int64   `json:"orders_this_week"`
	}

	db.Model(&model.User{}).Count(&stats.TotalUsers)
	db.Model(&model.Course{}).Count(&stats.TotalCourses)
	db.Model(&model.Course{}).Where("status = ?", model.CourseStatusPublished).Count(&stats.PublishedCourses)
	db.Model(&model.Order{}).Count(&stats.TotalOrders)
	db.Model(&model.Order{}).Where("status = ?", model.OrderStatusCompleted).Count(&stats.CompletedOrders)
	db.Model(&model.Order{}).Where("status = ? AND flagged_at IS NOT NULL", model.OrderStatusPending).
		Count(&stats.StaleOrders)

	db.Model(&model.Order{}).Where("status = ?", model.OrderStatusCompleted).
		Select("COALESCE(SUM(final_price), 0)").Scan(&stats.GrossRevenue)
	db.Model(&model.Commission{}).Where("status = ?", model.CommissionStatusPaid).
		Select("COALESCE(SUM(platform_share), 0)").Scan(&stats.PlatformRevenue)
	db.Model(&model.Commission{}).Where("status = ?", model.CommissionStatusPaid).
		Select("COALESCE(SUM(instructor_share), 0)").Scan(&stats.InstructorPayout)

	db.Model(&model.Order{}).
		Where("status = ? AND completed_at >= ?", model.OrderStatusCompleted, time.Now().Add(-24*time.Hour)).
		Count(&stats.OrdersToday)
	db.Model(&model.Order{}).
		Where("status = ? AND completed_at >= ?", model.OrderStatusCompleted, time.Now().Add(-7*24*time.Hour)).
		Count(&stats.OrdersThisWeek)

	return response.SuccessWithMessage(c, "Overview analytics retrieved successfully", stats)
}

// GetRevenueAnalytics retrieves revenue trends and top sellers
// GET /admin/analytics/revenue
func GetRevenueAnalytics(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var analytics struct {
		RevenueByDay []struct {
			Date    string  `json:"date"`
			Orders  int64   `json:"orders"`
			Revenue float64 `json:"revenue"`
		} `json:"revenue_by_day"`
		TopCourses []struct {
			CourseID uint    `json:"course_id"`
			Title    string  `json:"title"`
			Sales    int64   `json:"sales"`
			Revenue  float64 `json:"revenue"`
		} `json:"top_courses"`
		TopInstructors []struct {
			InstructorID uint    `json:"instructor_id"`
			Name         string  `json:"name"`
			Earned       float64 `json:"earned"`
		} `json:"top_instructors"`
		TaxCollected float64 `json:"tax_collected"`
	}

	// Completed order revenue, last 30 days
	db.Raw(`
		SELECT DATE(completed_at) as date, COUNT(*) as orders, COALESCE(SUM(final_price), 0) as revenue
		FROM orders
		WHERE status = 'completed'
		AND completed_at >= NOW() - INTERVAL '30 days'
		GROUP BY DATE(completed_at)
		ORDER BY date ASC
	`).Scan(&analytics.RevenueByDay)

	// Top selling courses by settled line revenue
	db.Raw(`
		SELECT cs.title, oc.course_id, COUNT(*) as sales, COALESCE(SUM(oc.price), 0) as revenue
		FROM order_courses oc
		JOIN orders o ON o.id = oc.order_id AND o.status = 'completed'
		JOIN courses cs ON cs.id = oc.course_id
		GROUP BY oc.course_id, cs.title
		ORDER BY revenue DESC
		LIMIT 10
	`).Scan(&analytics.TopCourses)

	// Top earning instructors by paid commissions
	db.Raw(`
		SELECT cm.instructor_id, u.name, COALESCE(SUM(cm.instructor_share), 0) as earned
		FROM commissions cm
		JOIN users u ON u.id = cm.instructor_id
		WHERE cm.status = 'paid'
		GROUP BY cm.instructor_id, u.name
		ORDER BY earned DESC
		LIMIT 10
	`).Scan(&analytics.TopInstructors)

	db.Model(&model.Order{}).Where("status = ?", model.OrderStatusCompleted).
		Select("COALESCE(SUM(tax_price), 0)").Scan(&analytics.TaxCollected)

	return response.SuccessWithMessage(c, "Revenue analytics retrieved successfully", analytics)
}

// GetSalesAnalytics retrieves checkout funnel and promo statistics
// GET /admin/analytics/sales
func GetSalesAnalytics(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var analytics struct {
		OrdersByStatus []struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		} `json:"orders_by_status"`
		OrdersByMethod []struct {
			PaymentMethod string  `json:"payment_method"`
			Count         int64   `json:"count"`
			Revenue       float64 `json:"revenue"`
		} `json:"orders_by_method"`
		PromoUsage []struct {
			Code       string  `json:"code"`
			Orders     int64   `json:"orders"`
			Discounted float64 `json:"discounted"`
		} `json:"promo_usage"`
		TotalDiscounted float64 `json:"total_discounted"`
		RefundsApproved int64   `json:"refunds_approved"`
		RefundedAmount  float64 `json:"refunded_amount"`
	}

	db.Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&analytics.OrdersByStatus)

	db.Model(&model.Order{}).
		Where("status = ?", model.OrderStatusCompleted).
		Select("payment_method, COUNT(*) as count, COALESCE(SUM(final_price), 0) as revenue").
		Group("payment_method").
		Scan(&analytics.OrdersByMethod)

	// Promo performance across completed orders
	db.Raw(`
		SELECT pc.code, COUNT(*) as orders, COALESCE(SUM(o.discount_amount), 0) as discounted
		FROM orders o
		JOIN promo_codes pc ON pc.id = o.promo_code_id
		WHERE o.status = 'completed'
		GROUP BY pc.code
		ORDER BY discounted DESC
		LIMIT 10
	`).Scan(&analytics.PromoUsage)

	db.Model(&model.Order{}).Where("status = ?", model.OrderStatusCompleted).
		Select("COALESCE(SUM(discount_amount), 0)").Scan(&analytics.TotalDiscounted)

	db.Model(&model.Refund{}).Where("status = ?", model.RefundStatusApproved).Count(&analytics.RefundsApproved)
	db.Model(&model.Refund{}).Where("status = ?", model.RefundStatusApproved).
		Select("COALESCE(SUM(amount), 0)").Scan(&analytics.RefundedAmount)

	return response.SuccessWithMessage(c, "Sales analytics retrieved successfully", analytics)
}
