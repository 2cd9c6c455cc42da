package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/config"
	"github.com/learnora/academy-api/database"
	"github.com/learnora/academy-api/handlers"
	admin_handlers "github.com/learnora/academy-api/handlers/admin"
	auth_handlers "github.com/learnora/academy-api/handlers/auth"
	cart_handlers "github.com/learnora/academy-api/handlers/cart"
	course_handlers "github.com/learnora/academy-api/handlers/course"
	earnings_handlers "github.com/learnora/academy-api/handlers/earnings"
	notification_handlers "github.com/learnora/academy-api/handlers/notification"
	order_handlers "github.com/learnora/academy-api/handlers/order"
	payment_handlers "github.com/learnora/academy-api/handlers/payment"
	promo_handlers "github.com/learnora/academy-api/handlers/promo"
	refund_handlers "github.com/learnora/academy-api/handlers/refund"
	tracking_handlers "github.com/learnora/academy-api/handlers/tracking"
	wallet_handlers "github.com/learnora/academy-api/handlers/wallet"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/services/geo"
	gateway "github.com/learnora/academy-api/services/payment"
	"github.com/learnora/academy-api/services/storage"
	"github.com/learnora/academy-api/utils"
	"github.com/learnora/academy-api/utils/auth"
	"github.com/learnora/academy-api/utils/cache"
	"github.com/learnora/academy-api/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage, reporting *database.ReportingStore) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load environment configuration")
	}

	jwtSecret := getEnv.JWT_SECRET
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "learnora-academy-api"
	}

	// Initialize JWT manager with config
	jwtConfig := auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs brute force protection and the geolocation cache. Both
	// degrade gracefully when Redis is unavailable.
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and geo caching will be disabled.", err)
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	// Spaces object storage for invoices and bank-transfer receipts
	var spaces *storage.SpacesClient
	if getEnv.SPACES_ACCESS_KEY != "" {
		spaces, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: getEnv.SPACES_ACCESS_KEY,
			SecretKey: getEnv.SPACES_SECRET_KEY,
			Bucket:    getEnv.SPACES_BUCKET,
			Region:    getEnv.SPACES_REGION,
			Endpoint:  getEnv.SPACES_ENDPOINT,
			CDNURL:    getEnv.SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize Spaces client: %v. Invoices and receipts will be unavailable.", err)
		}
	}

	// Best-effort IP geolocation for tax country resolution
	geoClient := geo.NewClient(geo.Config{
		Endpoint: getEnv.GEOIP_ENDPOINT,
		Cache:    redisCache,
	})

	// Payment gateway registry. Only gateways with credentials are registered;
	// dispatching to an unregistered one fails with a clear error.
	var gateways []gateway.Gateway
	if getEnv.STRIPE_SECRET_KEY != "" {
		gateways = append(gateways, gateway.NewStripeGateway(getEnv.STRIPE_SECRET_KEY, getEnv.STRIPE_WEBHOOK_SECRET))
	}
	if getEnv.RAZORPAY_KEY_ID != "" {
		gateways = append(gateways, gateway.NewRazorpayGateway(getEnv.RAZORPAY_KEY_ID, getEnv.RAZORPAY_KEY_SECRET, getEnv.RAZORPAY_WEBHOOK_SECRET))
	}
	if getEnv.FLUTTERWAVE_SECRET_KEY != "" {
		gateways = append(gateways, gateway.NewFlutterwaveGateway(getEnv.FLUTTERWAVE_SECRET_KEY, getEnv.FLUTTERWAVE_SECRET_HASH))
	}
	registry := gateway.NewRegistry(gateways...)

	// Services, wired bottom-up
	settingsService := services.NewSettingsService(db)
	walletService := services.NewWalletService(db)
	notificationService := services.NewNotificationService(db)
	emailService := services.NewEmailService()
	pricingService := services.NewPricingService(db, geoClient)
	promoService := services.NewPromoService(db)
	settlementService := services.NewSettlementService(db, settingsService, walletService, notificationService, emailService)
	orderService := services.NewOrderService(db, pricingService, promoService, settingsService, settlementService)
	paymentService := services.NewPaymentService(db, orderService, walletService, settingsService, registry, spaces, services.PaymentConfig{
		ReturnURL: getEnv.PAYMENT_RETURN_URL,
		CancelURL: getEnv.PAYMENT_CANCEL_URL,
	})
	invoiceService := services.NewInvoiceService(db, spaces, settingsService)
	trackingService := services.NewTrackingService(db)
	refundService := services.NewRefundService(db, walletService)
	payoutAccountService := services.NewPayoutAccountService(db, getEnv.PAYOUT_ENCRYPTION_SECRET)
	earningsService := services.NewEarningsService(db, reporting)

	// Auth middleware with DB for blacklist checking
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection, emailService)
	courseHandler := course_handlers.NewCourseHandler(db)
	cartHandler := cart_handlers.NewCartHandler(db)
	orderHandler := order_handlers.NewOrderHandler(db, orderService, paymentService, invoiceService)
	webhookHandler := payment_handlers.NewWebhookHandler(paymentService)
	promoHandler := promo_handlers.NewPromoHandler(db, promoService)
	walletHandler := wallet_handlers.NewWalletHandler(walletService, payoutAccountService)
	earningsHandler := earnings_handlers.NewEarningsHandler(earningsService)
	trackingHandler := tracking_handlers.NewTrackingHandler(trackingService)
	refundHandler := refund_handlers.NewRefundHandler(refundService)
	notificationHandler := notification_handlers.NewNotificationHandler(notificationService)
	opsHandler := admin_handlers.NewOpsHandler(db, walletService, paymentService, payoutAccountService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)
	profileGroup.Get("/billing", authHandler.GetBillingDetail)
	profileGroup.Put("/billing", authHandler.UpsertBillingDetail)

	// Catalog routes. Listing and viewing published courses is public;
	// authoring requires the instructor role.
	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.ListCourses)
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)
	courses.Post("/", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.CreateCourse)
	courses.Put("/:id", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.UpdateCourse)
	courses.Post("/:id/publish", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.PublishCourse)
	courses.Post("/:id/archive", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.ArchiveCourse)

	// Curriculum authoring (nested under courses)
	courses.Post("/:id/sections", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.CreateSection)
	courses.Delete("/:id/sections/:sectionId", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.DeleteSection)
	courses.Post("/:id/sections/:sectionId/lessons", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.CreateLesson)
	courses.Delete("/:id/sections/:sectionId/lessons/:lessonId", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.DeleteLesson)

	// Cart routes (protected)
	cart := api.Group("/cart", authMiddleware.Required())
	cart.Get("/", cartHandler.ListItems)
	cart.Post("/items", cartHandler.AddItem)
	cart.Delete("/items/:courseId", cartHandler.RemoveItem)
	cart.Delete("/", cartHandler.Clear)

	// Checkout & orders (protected)
	orders := api.Group("/orders", authMiddleware.Required())
	orders.Post("/", orderHandler.PlaceOrder)
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Get("/:id/invoice", orderHandler.DownloadInvoice)
	orders.Post("/:id/receipt", orderHandler.UploadReceipt)

	// Gateway webhooks (public; signature-verified inside)
	api.Post("/webhooks/:provider", webhookHandler.Handle)

	// Promo codes. Validation is open to any authenticated buyer; authoring
	// is instructor/admin.
	promos := api.Group("/promo-codes", authMiddleware.Required())
	promos.Post("/validate", promoHandler.ValidatePromo)
	promos.Get("/", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), promoHandler.ListPromos)
	promos.Post("/", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), promoHandler.CreatePromo)
	promos.Post("/:id/deactivate", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), promoHandler.DeactivatePromo)

	// Learning progress (protected)
	learning := api.Group("/learning", authMiddleware.Required())
	learning.Get("/", trackingHandler.ListEnrollments)
	learning.Get("/courses/:courseId", trackingHandler.GetCourseProgress)
	learning.Put("/lessons/:lessonId", trackingHandler.UpdateProgress)

	// Wallet & payout account (protected)
	wallet := api.Group("/wallet", authMiddleware.Required())
	wallet.Get("/", walletHandler.GetBalance)
	wallet.Get("/history", walletHandler.GetHistory)
	wallet.Post("/withdrawals", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), walletHandler.RequestWithdrawal)
	wallet.Get("/payout-account", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), walletHandler.GetPayoutAccount)
	wallet.Put("/payout-account", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), walletHandler.SavePayoutAccount)
	wallet.Delete("/payout-account", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin), walletHandler.DeletePayoutAccount)

	// Instructor earnings (protected, instructor only)
	earnings := api.Group("/earnings", authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin))
	earnings.Get("/", earningsHandler.GetDashboard)
	earnings.Get("/commissions", earningsHandler.ListCommissions)

	// Refunds (protected)
	refunds := api.Group("/refunds", authMiddleware.Required())
	refunds.Post("/", refundHandler.RequestRefund)
	refunds.Get("/", refundHandler.ListMyRefunds)

	// Notifications (protected)
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Post("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)
	notifications.Delete("/", notificationHandler.DeleteAllNotifications)

	// ==================== Admin Panel Endpoints ====================

	admin := api.Group("/admin", authMiddleware.RequireAdmin())

	// Admin User Management
	admin.Get("/users/stats", func(c *fiber.Ctx) error { return admin_handlers.GetUserStats(c, store) })
	admin.Get("/users", func(c *fiber.Ctx) error { return admin_handlers.ListUsers(c, store) })
	admin.Get("/users/:id", func(c *fiber.Ctx) error { return admin_handlers.GetUser(c, store) })
	admin.Put("/users/:id", func(c *fiber.Ctx) error { return admin_handlers.UpdateUser(c, store) })
	admin.Delete("/users/:id", func(c *fiber.Ctx) error { return admin_handlers.DeleteUser(c, store) })
	admin.Post("/users/:id/reset-password", func(c *fiber.Ctx) error { return admin_handlers.ResetUserPassword(c, store) })
	admin.Get("/users/:id/payout-account", opsHandler.RevealPayoutAccount)

	// Admin Analytics
	admin.Get("/analytics/overview", func(c *fiber.Ctx) error { return admin_handlers.GetOverviewAnalytics(c, store) })
	admin.Get("/analytics/revenue", func(c *fiber.Ctx) error { return admin_handlers.GetRevenueAnalytics(c, store) })
	admin.Get("/analytics/sales", func(c *fiber.Ctx) error { return admin_handlers.GetSalesAnalytics(c, store) })

	// Admin Audit Logs
	admin.Get("/audit", func(c *fiber.Ctx) error { return admin_handlers.ListAuditLogs(c, store) })
	admin.Get("/audit/:id", func(c *fiber.Ctx) error { return admin_handlers.GetAuditLog(c, store) })

	// Admin Settings Management
	admin.Get("/settings", func(c *fiber.Ctx) error { return admin_handlers.ListSettings(c, store) })
	admin.Post("/settings", func(c *fiber.Ctx) error { return admin_handlers.CreateSetting(c, store) })
	admin.Get("/settings/:key", func(c *fiber.Ctx) error { return admin_handlers.GetSetting(c, store) })
	admin.Put("/settings/:key", func(c *fiber.Ctx) error { return admin_handlers.UpdateSetting(c, store) })
	admin.Delete("/settings/:key", func(c *fiber.Ctx) error { return admin_handlers.DeleteSetting(c, store) })

	// Admin Tax Rules
	admin.Get("/tax-rules", func(c *fiber.Ctx) error { return admin_handlers.ListTaxRules(c, store) })
	admin.Post("/tax-rules", func(c *fiber.Ctx) error { return admin_handlers.CreateTaxRule(c, store) })
	admin.Put("/tax-rules/:id", func(c *fiber.Ctx) error { return admin_handlers.UpdateTaxRule(c, store) })
	admin.Delete("/tax-rules/:id", func(c *fiber.Ctx) error { return admin_handlers.DeleteTaxRule(c, store) })

	// Admin Money Movement
	admin.Get("/withdrawals", opsHandler.ListWithdrawals)
	admin.Post("/withdrawals/:id", opsHandler.ProcessWithdrawal)
	admin.Get("/bank-transfers", opsHandler.ListPendingBankTransfers)
	admin.Post("/bank-transfers/:orderId", opsHandler.ProcessBankTransfer)
	admin.Get("/refunds", refundHandler.ListPendingRefunds)
	admin.Post("/refunds/:id", refundHandler.ProcessRefund)
}
