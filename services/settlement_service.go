package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementService runs the post-completion bookkeeping for an order:
// enrollment (lesson track seeding), commission split and instructor wallet
// credit, then buyer notification and receipt email. It runs at most once
// per order; the unique index on commissions.order_course_id and the
// conflict-ignoring track insert make re-runs harmless.
//
// Settlement never fails a completed order. Every error here is logged and
// swallowed by Settle.
type SettlementService struct {
	db            *gorm.DB
	settings      *SettingsService
	wallet        *WalletService
	notifications *NotificationService
	email         *EmailService
}

// NewSettlementService creates a new settlement service
func NewSettlementService(db *gorm.DB, settings *SettingsService, wallet *WalletService, notifications *NotificationService, email *EmailService) *SettlementService {
	return &SettlementService{
		db:            db,
		settings:      settings,
		wallet:        wallet,
		notifications: notifications,
		email:         email,
	}
}

// Settle performs full settlement for a completed order. Best-effort: all
// failures are logged, none propagate to the caller.
func (s *SettlementService) Settle(ctx context.Context, orderID uint) {
	var order model.Order
	err := s.db.WithContext(ctx).
		Preload("Courses").Preload("Courses.Course").Preload("User").
		First(&order, orderID).Error
	if err != nil {
		log.Printf("Settlement: failed to load order %d: %v", orderID, err)
		return
	}
	if !order.IsCompleted() {
		log.Printf("Settlement: order %d is not completed, skipping", orderID)
		return
	}

	if err := s.seedLessonTracks(ctx, &order); err != nil {
		log.Printf("Settlement: lesson track seeding failed for order %d: %v", orderID, err)
	}

	if err := s.settleCommissions(ctx, &order); err != nil {
		log.Printf("Settlement: commission bookkeeping failed for order %d: %v", orderID, err)
	}

	s.notifyBuyer(ctx, &order)
}

// seedLessonTracks creates one not_started track row per lesson of each
// purchased course. ON CONFLICT DO NOTHING keeps re-settlement idempotent
// and preserves progress from a refunded-then-repurchased course.
func (s *SettlementService) seedLessonTracks(ctx context.Context, order *model.Order) error {
	for _, line := range order.Courses {
		var lessons []model.Lesson
		err := s.db.WithContext(ctx).
			Where("course_id = ?", line.CourseID).
			Find(&lessons).Error
		if err != nil {
			return fmt.Errorf("failed to load lessons for course %d: %w", line.CourseID, err)
		}

		if len(lessons) == 0 {
			continue
		}

		tracks := make([]model.LessonTrack, 0, len(lessons))
		for _, lesson := range lessons {
			tracks = append(tracks, model.LessonTrack{
				UserID:   order.UserID,
				LessonID: lesson.ID,
				CourseID: line.CourseID,
				OrderID:  order.ID,
				Status:   model.TrackStatusNotStarted,
			})
		}

		err = s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&tracks).Error
		if err != nil {
			return fmt.Errorf("failed to seed lesson tracks for course %d: %w", line.CourseID, err)
		}
	}
	return nil
}

// settleCommissions creates and pays one commission per order line. Each
// line settles in its own transaction: the commission row, the paid flip
// and the instructor wallet credit commit together or not at all.
func (s *SettlementService) settleCommissions(ctx context.Context, order *model.Order) error {
	rate := s.settings.CommissionRate(ctx)

	var firstErr error
	for _, line := range order.Courses {
		if err := s.settleLine(ctx, order, &line, rate); err != nil {
			log.Printf("Settlement: line %d of order %d: %v", line.ID, order.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *SettlementService) settleLine(ctx context.Context, order *model.Order, line *model.OrderCourse, rate float64) error {
	// Recognized revenue excludes tax and certificate fees
	gross := money.Round(line.Price)
	if gross <= 0 {
		// Free and fully discounted lines still enroll but carry no revenue
		return nil
	}

	instructorID := line.Course.InstructorID
	if instructorID == 0 {
		var course model.Course
		if err := s.db.WithContext(ctx).Select("instructor_id").First(&course, line.CourseID).Error; err != nil {
			return fmt.Errorf("failed to resolve instructor for course %d: %w", line.CourseID, err)
		}
		instructorID = course.InstructorID
	}

	instructorShare := money.Round(gross * rate / 100)
	platformShare := money.Round(gross - instructorShare)

	settled := false
	var commissionID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commission := &model.Commission{
			InstructorID:    instructorID,
			OrderID:         order.ID,
			OrderCourseID:   line.ID,
			CourseID:        line.CourseID,
			GrossAmount:     gross,
			RatePercent:     rate,
			InstructorShare: instructorShare,
			PlatformShare:   platformShare,
			Status:          model.CommissionStatusPending,
		}
		if err := tx.Create(commission).Error; err != nil {
			// The unique index on order_course_id rejects a second
			// settlement of the same line
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return fmt.Errorf("failed to create commission: %w", err)
		}

		if err := s.wallet.Credit(ctx, tx, instructorID, instructorShare,
			model.WalletTypeCommission, "commission", commission.ID,
			fmt.Sprintf("commission for order %s", order.OrderNumber)); err != nil {
			return err
		}

		now := tx.NowFunc()
		commission.Status = model.CommissionStatusPaid
		commission.PaidAt = &now
		if err := tx.Save(commission).Error; err != nil {
			return fmt.Errorf("failed to mark commission paid: %w", err)
		}
		settled = true
		commissionID = commission.ID
		return nil
	})
	if err != nil {
		return err
	}

	// Notify only after the commission committed, and only on the run that
	// actually paid it; a rolled-back or re-settled line sends nothing
	if settled {
		courseTitle := line.Course.Title
		notifyErr := s.notifications.NotifyOrder(ctx, instructorID, order.ID,
			model.NotificationCategorySettlement, "New course sale",
			fmt.Sprintf("You earned %.2f from a sale of %q", instructorShare, courseTitle),
			&model.NotificationMetadata{
				OrderNumber: order.OrderNumber,
				CourseID:    line.CourseID,
				CourseTitle: courseTitle,
				Amount:      instructorShare,
			})
		if notifyErr != nil {
			log.Printf("Settlement: instructor notification failed for commission %d: %v", commissionID, notifyErr)
		}
	}
	return nil
}

// notifyBuyer records the purchase notification and sends the receipt email
func (s *SettlementService) notifyBuyer(ctx context.Context, order *model.Order) {
	err := s.notifications.NotifyOrder(ctx, order.UserID, order.ID,
		model.NotificationCategoryPurchase, "Purchase confirmed",
		fmt.Sprintf("Your order %s is complete. Happy learning!", order.OrderNumber),
		&model.NotificationMetadata{
			OrderNumber: order.OrderNumber,
			Amount:      order.FinalPrice,
			Method:      order.PaymentMethod,
		})
	if err != nil {
		log.Printf("Settlement: buyer notification failed for order %d: %v", order.ID, err)
	}

	if s.email != nil && order.User.Email != "" {
		currency := s.settings.Currency(ctx)
		if err := s.email.SendPurchaseReceiptEmail(order.User.Email, order.User.Name, order, currency); err != nil {
			log.Printf("Settlement: receipt email failed for order %d: %v", order.ID, err)
		}
	}
}
