package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services/payment"
	"github.com/learnora/academy-api/services/storage"
	"github.com/learnora/academy-api/utils/money"
	"github.com/learnora/academy-api/utils/pdfvalidation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrUnsupportedMethod is returned for payment methods the dispatcher
	// does not know
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	// ErrNothingToPay is returned when dispatching a zero-amount order to a
	// paid method
	ErrNothingToPay = errors.New("order total is zero")
	// ErrInvalidReceipt is returned for bank-transfer receipts that fail
	// PDF validation
	ErrInvalidReceipt = errors.New("invalid payment receipt")
	// ErrNoReceipt is returned when approving a bank transfer without an
	// uploaded receipt
	ErrNoReceipt = errors.New("no receipt uploaded for this order")
	// ErrStorageUnavailable is returned when receipt storage is not
	// configured; bank-transfer uploads need somewhere to live
	ErrStorageUnavailable = errors.New("receipt storage is not configured")

	// ErrAmountMismatch is returned when a gateway callback reports a
	// captured amount that does not match the order total
	ErrAmountMismatch = errors.New("payment amount does not match order total")
)

// PaymentConfig carries the redirect URLs planted into gateway sessions
type PaymentConfig struct {
	ReturnURL string
	CancelURL string
}

// PaymentService routes a pending order to its payment method: wallet
// orders settle synchronously, gateway orders open an external session and
// wait for the webhook, bank transfers wait for a receipt and admin
// approval.
type PaymentService struct {
	db       *gorm.DB
	orders   *OrderService
	wallet   *WalletService
	settings *SettingsService
	gateways *payment.Registry
	spaces   *storage.SpacesClient
	config   PaymentConfig
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, orders *OrderService, wallet *WalletService, settings *SettingsService, gateways *payment.Registry, spaces *storage.SpacesClient, config PaymentConfig) *PaymentService {
	return &PaymentService{
		db:       db,
		orders:   orders,
		wallet:   wallet,
		settings: settings,
		gateways: gateways,
		spaces:   spaces,
		config:   config,
	}
}

// DispatchResult is what checkout returns to the client. Session is set
// only for gateway methods.
type DispatchResult struct {
	Order   *model.Order     `json:"order"`
	Session *payment.Session `json:"session,omitempty"`
}

// Dispatch routes a freshly assembled pending order. Completed orders
// (the free fast paths) pass through untouched.
func (s *PaymentService) Dispatch(ctx context.Context, order *model.Order, buyer *model.User) (*DispatchResult, error) {
	if order.IsCompleted() {
		return &DispatchResult{Order: order}, nil
	}
	if order.FinalPrice <= 0 {
		// Assembly completes zero-amount orders inline; a pending zero
		// order here means a bug upstream
		return nil, ErrNothingToPay
	}

	switch order.PaymentMethod {
	case model.PaymentMethodWallet:
		completed, err := s.payWithWallet(ctx, order)
		if err != nil {
			return nil, err
		}
		return &DispatchResult{Order: completed}, nil

	case model.PaymentMethodBankTransfer:
		// Stays pending until a receipt is uploaded and approved
		return &DispatchResult{Order: order}, nil

	default:
		if !model.IsGatewayMethod(order.PaymentMethod) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, order.PaymentMethod)
		}
		session, err := s.openGatewaySession(ctx, order, buyer)
		if err != nil {
			return nil, err
		}
		return &DispatchResult{Order: order, Session: session}, nil
	}
}

// payWithWallet debits the buyer and completes the order in one database
// transaction. The debit re-checks the balance inside the transaction, so
// two concurrent wallet purchases cannot both spend the same funds.
func (s *PaymentService) payWithWallet(ctx context.Context, order *model.Order) (*model.Order, error) {
	var completed *model.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.wallet.Debit(ctx, tx, order.UserID, order.FinalPrice,
			model.WalletTypePurchase, "order", order.ID,
			fmt.Sprintf("payment for order %s", order.OrderNumber)); err != nil {
			return err
		}

		txn := &model.Transaction{
			OrderID:       order.ID,
			TxnID:         uuid.NewString(),
			Amount:        order.FinalPrice,
			PaymentMethod: model.PaymentMethodWallet,
			Status:        model.TransactionStatusSuccess,
			Message:       "paid from wallet balance",
		}

		var loaded model.Order
		if err := tx.Preload("Courses").First(&loaded, order.ID).Error; err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if err := s.orders.completeInTx(ctx, tx, &loaded, txn); err != nil {
			return err
		}
		completed = &loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.orders.settlement.Settle(ctx, completed.ID)
	return completed, nil
}

// openGatewaySession creates the external checkout session and records a
// pending transaction attempt. The order itself stays pending.
func (s *PaymentService) openGatewaySession(ctx context.Context, order *model.Order, buyer *model.User) (*payment.Session, error) {
	gateway, err := s.gateways.Get(order.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, order.PaymentMethod)
	}

	email := ""
	if buyer != nil {
		email = buyer.Email
	}

	session, err := gateway.CreateSession(ctx, payment.CheckoutRequest{
		OrderNumber:   order.OrderNumber,
		Amount:        order.FinalPrice,
		Currency:      s.settings.Currency(ctx),
		CustomerEmail: email,
		Description:   fmt.Sprintf("Learnora order %s", order.OrderNumber),
		ReturnURL:     s.config.ReturnURL,
		CancelURL:     s.config.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", order.PaymentMethod, err)
	}

	attempt := &model.Transaction{
		OrderID:       order.ID,
		TxnID:         session.SessionID,
		Amount:        order.FinalPrice,
		PaymentMethod: order.PaymentMethod,
		Status:        model.TransactionStatusPending,
		Message:       "gateway session opened",
		Metadata:      datatypes.JSON(session.Raw),
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		// The session exists at the gateway either way; losing the
		// attempt row only loses the audit trail entry
		log.Printf("Payment: failed to record session attempt for order %s: %v", order.OrderNumber, err)
	}

	return session, nil
}

// HandleWebhook verifies and applies one gateway callback. Duplicate
// deliveries resolve to ErrOrderNotPending, which callers treat as success.
func (s *PaymentService) HandleWebhook(ctx context.Context, method string, payload []byte, header http.Header) (*model.Order, error) {
	gateway, err := s.gateways.Get(method)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	event, err := gateway.ParseWebhook(payload, header)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByOrderNumber(ctx, event.OrderNumber)
	if err != nil {
		return nil, err
	}

	if !event.Succeeded {
		failed := &model.Transaction{
			OrderID:       order.ID,
			TxnID:         event.TxnID,
			Amount:        event.Amount,
			PaymentMethod: method,
			Status:        model.TransactionStatusFailed,
			Message:       event.Message,
			Metadata:      datatypes.JSON(event.Raw),
		}
		if err := s.db.WithContext(ctx).Create(failed).Error; err != nil {
			return nil, fmt.Errorf("failed to record failed payment: %w", err)
		}
		log.Printf("Payment: %s payment failed for order %s", method, order.OrderNumber)
		return order, nil
	}

	// A signed callback can still carry the wrong charge, for example a
	// session created against a stale total. Record it and refuse to
	// complete the order rather than settling the wrong amount.
	if event.Amount > 0 && money.Round(event.Amount) != money.Round(order.FinalPrice) {
		mismatch := &model.Transaction{
			OrderID:       order.ID,
			TxnID:         event.TxnID,
			Amount:        event.Amount,
			PaymentMethod: method,
			Status:        model.TransactionStatusFailed,
			Message:       fmt.Sprintf("amount mismatch: paid %.2f, order total %.2f", event.Amount, order.FinalPrice),
			Metadata:      datatypes.JSON(event.Raw),
		}
		if err := s.db.WithContext(ctx).Create(mismatch).Error; err != nil {
			return nil, fmt.Errorf("failed to record mismatched payment: %w", err)
		}
		log.Printf("Payment: %s callback for order %s paid %.2f, expected %.2f", method, order.OrderNumber, event.Amount, order.FinalPrice)
		return nil, ErrAmountMismatch
	}

	txn := &model.Transaction{
		TxnID:         event.TxnID,
		Amount:        event.Amount,
		PaymentMethod: method,
		Status:        model.TransactionStatusSuccess,
		Message:       event.Message,
		Metadata:      datatypes.JSON(event.Raw),
	}
	return s.orders.Complete(ctx, order.ID, txn)
}

// AttachReceipt validates and stores a bank-transfer receipt PDF against a
// pending order. The order completes later via ApproveBankTransfer.
func (s *PaymentService) AttachReceipt(ctx context.Context, userID, orderID uint, receipt []byte) (*model.Transaction, error) {
	if s.spaces == nil {
		return nil, ErrStorageUnavailable
	}

	order, err := s.orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsCompleted() {
		return nil, ErrOrderNotPending
	}
	if order.PaymentMethod != model.PaymentMethodBankTransfer {
		return nil, fmt.Errorf("%w: order uses %s", ErrUnsupportedMethod, order.PaymentMethod)
	}

	result, err := pdfvalidation.ValidatePDFBytes(receipt, pdfvalidation.ReceiptLimits)
	if err != nil {
		return nil, fmt.Errorf("failed to validate receipt: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReceipt, result.Error)
	}

	key := fmt.Sprintf("receipts/%s/%s.pdf", order.OrderNumber, uuid.NewString())
	if _, err := s.spaces.UploadBytes(ctx, key, receipt, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	txn := &model.Transaction{
		OrderID:       order.ID,
		TxnID:         uuid.NewString(),
		Amount:        order.FinalPrice,
		PaymentMethod: model.PaymentMethodBankTransfer,
		Status:        model.TransactionStatusPending,
		Message:       "receipt uploaded, awaiting review",
		ReceiptKey:    key,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to record receipt: %w", err)
	}
	return txn, nil
}

// ApproveBankTransfer completes a bank-transfer order after an admin has
// verified the uploaded receipt. Rejection marks the attempt failed and
// leaves the order pending for a retry.
func (s *PaymentService) ApproveBankTransfer(ctx context.Context, orderID uint, approve bool, note string) (*model.Order, error) {
	var attempt model.Transaction
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND payment_method = ? AND status = ?",
			orderID, model.PaymentMethodBankTransfer, model.TransactionStatusPending).
		Order("created_at DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoReceipt
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt attempt: %w", err)
	}

	if !approve {
		attempt.Status = model.TransactionStatusFailed
		attempt.Message = note
		if err := s.db.WithContext(ctx).Save(&attempt).Error; err != nil {
			return nil, fmt.Errorf("failed to reject receipt: %w", err)
		}
		var order model.Order
		if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
			return nil, fmt.Errorf("failed to load order: %w", err)
		}
		return &order, nil
	}

	attempt.Status = model.TransactionStatusSuccess
	attempt.Message = "receipt verified"
	if err := s.db.WithContext(ctx).Save(&attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to approve receipt: %w", err)
	}

	// Complete records no new transaction row; the approved attempt is
	// the transaction of record
	return s.orders.Complete(ctx, orderID, &attempt)
}
