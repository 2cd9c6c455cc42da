package cron

import (
	"fmt"
	"time"

	"github.com/learnora/academy-api/model"
)

// stale orders are flagged for manual reconciliation, never auto-cancelled:
// a gateway webhook may still arrive and the financial record must survive
const staleOrderAge = 7 * 24 * time.Hour

// FlagStaleOrders marks orders that have sat pending past staleOrderAge so
// an admin can reconcile them against the gateway dashboard. Already
// flagged orders are skipped.
func (m *CronManager) FlagStaleOrders() {
	jobName := "flag_stale_orders"
	cutoff := time.Now().Add(-staleOrderAge)

	var orders []model.Order
	err := m.db.
		Where("status = ? AND flagged_at IS NULL AND created_at < ?", model.OrderStatusPending, cutoff).
		Find(&orders).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query stale orders: %w", err))
		return
	}

	if len(orders) == 0 {
		m.logJobComplete(jobName, "No stale orders")
		return
	}

	now := time.Now()
	flagged := 0
	for _, order := range orders {
		err := m.db.Model(&model.Order{}).
			Where("id = ? AND flagged_at IS NULL", order.ID).
			Update("flagged_at", now).Error
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to flag order %d: %w", order.ID, err))
			continue
		}
		flagged++

		notification := model.UserNotification{
			UserID:   order.UserID,
			Type:     model.NotificationTypeWarning,
			Category: model.NotificationCategoryPurchase,
			Title:    "Order awaiting payment",
			Message:  fmt.Sprintf("Your order %s has been pending for over a week. Complete payment or contact support.", order.OrderNumber),
			OrderID:  &order.ID,
		}
		m.db.Create(&notification)
	}

	m.logJobComplete(jobName, fmt.Sprintf("Flagged %d stale orders", flagged))
}

// DeactivateExpiredPromoCodes disables codes whose validity window has
// closed. Expired-but-active codes are already rejected at evaluation;
// this keeps listings and dashboards honest.
func (m *CronManager) DeactivateExpiredPromoCodes() {
	jobName := "deactivate_expired_promos"

	result := m.db.Model(&model.PromoCode{}).
		Where("active = ? AND end_date < ?", true, time.Now()).
		Update("active", false)
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to deactivate promo codes: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deactivated %d expired promo codes", result.RowsAffected))
}

// CleanupExpiredTokens purges expired password reset tokens and expired
// blacklist entries
func (m *CronManager) CleanupExpiredTokens() {
	jobName := "cleanup_expired_tokens"
	now := time.Now()

	resets := m.db.Unscoped().
		Where("expires_at < ?", now).
		Delete(&model.PasswordResetToken{})
	if resets.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete reset tokens: %w", resets.Error))
		return
	}

	blacklist := m.db.Unscoped().
		Where("expires_at < ?", now).
		Delete(&model.JWTTokenBlacklist{})
	if blacklist.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete blacklist entries: %w", blacklist.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf(
		"Removed %d reset tokens, %d blacklist entries",
		resets.RowsAffected, blacklist.RowsAffected))
}

// CleanupOldData removes read notifications older than 90 days and cron
// logs older than 30 days
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"

	notifications := m.db.Unscoped().
		Where("read = ? AND created_at < ?", true, time.Now().AddDate(0, 0, -90)).
		Delete(&model.UserNotification{})
	if notifications.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete old notifications: %w", notifications.Error))
		return
	}

	logs := m.db.Unscoped().
		Where("started_at < ?", time.Now().AddDate(0, 0, -30)).
		Delete(&model.CronJobLog{})
	if logs.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete old cron logs: %w", logs.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf(
		"Removed %d notifications, %d cron logs",
		notifications.RowsAffected, logs.RowsAffected))
}
