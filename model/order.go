package model

import "time"

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Payment methods
const (
	PaymentMethodFree         = "free"
	PaymentMethodWallet       = "wallet"
	PaymentMethodStripe       = "stripe"
	PaymentMethodRazorpay     = "razorpay"
	PaymentMethodFlutterwave  = "flutterwave"
	PaymentMethodBankTransfer = "bank_transfer"
)

// GatewayMethods lists the payment methods completed asynchronously via webhook
var GatewayMethods = []string{PaymentMethodStripe, PaymentMethodRazorpay, PaymentMethodFlutterwave}

// IsGatewayMethod reports whether method requires an external payment session
func IsGatewayMethod(method string) bool {
	for _, m := range GatewayMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Order is the checkout aggregate. Orders are financial records and are
// never hard-deleted.
type Order struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	OrderNumber    string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	PaymentMethod  string     `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status         string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	TotalPrice     float64    `gorm:"not null" json:"total_price"` // Sum of line prices, post-discount, pre-tax
	TaxPrice       float64    `gorm:"not null" json:"tax_price"`
	FinalPrice     float64    `gorm:"not null" json:"final_price"` // Always TotalPrice + TaxPrice
	DiscountAmount float64    `gorm:"default:0" json:"discount_amount"`
	PromoCodeID    *uint      `gorm:"index" json:"promo_code_id,omitempty"`
	TransactionID  string     `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	FromCart       bool       `gorm:"default:false" json:"from_cart"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	FlaggedAt      *time.Time `json:"flagged_at,omitempty"` // Stale-pending marker set by the reconciliation cron

	// Relationships
	User         User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PromoCode    *PromoCode    `gorm:"foreignKey:PromoCodeID" json:"promo_code,omitempty"`
	Courses      []OrderCourse `gorm:"foreignKey:OrderID" json:"courses,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:OrderID" json:"-"`
}

// IsCompleted reports whether the order has finished checkout
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// OrderCourse is one purchased course line item. Immutable once the order
// completes, except for certificate purchase augmentation.
type OrderCourse struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	PromoCodeID     *uint     `gorm:"index" json:"promo_code_id,omitempty"` // Line-item scope for cart orders
	Price           float64   `gorm:"not null" json:"price"`                // Post-discount, pre-tax
	DiscountAmount  float64   `gorm:"default:0" json:"discount_amount"`
	TaxPrice        float64   `gorm:"default:0" json:"tax_price"`
	WithCertificate bool      `gorm:"default:false" json:"with_certificate"`
	CertificateFee  float64   `gorm:"default:0" json:"certificate_fee"`

	// Relationships
	Order     Order      `gorm:"foreignKey:OrderID" json:"-"`
	Course    Course     `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	PromoCode *PromoCode `gorm:"foreignKey:PromoCodeID" json:"-"`
}

// TableName specifies the table name for OrderCourse
func (OrderCourse) TableName() string {
	return "order_courses"
}
