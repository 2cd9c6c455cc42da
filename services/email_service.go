package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"github.com/learnora/academy-api/model"
)

// EmailService handles sending emails via SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	appURL   string
}

// NewEmailService creates a new email service instance
func NewEmailService() *EmailService {
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	return &EmailService{
		host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		port:     port,
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getEnvOrDefault("SMTP_FROM", "noreply@learnora.app"),
		appURL:   getEnvOrDefault("APP_URL", "http://localhost:3000"),
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// SendPasswordResetEmail sends a password reset email to the user
func (e *EmailService) SendPasswordResetEmail(toEmail, resetToken, userName string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Reset token for %s: %s", toEmail, resetToken)
		return fmt.Errorf("SMTP not configured")
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, resetToken)
	subject := "Reset Your Password - Learnora Academy"
	body := e.buildPasswordResetEmailBody(userName, resetLink)

	return e.sendEmail(toEmail, subject, body)
}

// SendPurchaseReceiptEmail sends the order receipt after a completed checkout
func (e *EmailService) SendPurchaseReceiptEmail(toEmail, userName string, order *model.Order, currency string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Skipping receipt email for order %s", order.OrderNumber)
		return fmt.Errorf("SMTP not configured")
	}

	subject := fmt.Sprintf("Your Receipt for Order %s - Learnora Academy", order.OrderNumber)
	body := e.buildReceiptEmailBody(userName, order, currency)

	return e.sendEmail(toEmail, subject, body)
}

func emailGreetingName(userName string) string {
	if userName == "" {
		return "Learner"
	}
	return userName
}

// buildPasswordResetEmailBody creates the HTML email body for password reset
func (e *EmailService) buildPasswordResetEmailBody(userName, resetLink string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reset Your Password - Learnora Academy</title>
    %s
</head>
<body>
    <div class="container">
        <div class="logo">
            <h1>Learnora Academy</h1>
            <div class="domain">learnora.app</div>
        </div>

        <h2>Reset Your Password</h2>

        <p>Hello %s,</p>

        <p>We received a request to reset the password for your Learnora Academy account. Click the button below to create a new password:</p>

        <p style="text-align: center;">
            <a href="%s" class="button">Reset Password</a>
        </p>

        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <div class="link-text">%s</div>

        <div class="warning">
            <strong>Important:</strong> This link will expire in 1 hour. If you didn't request a password reset, you can safely ignore this email.
        </div>

        %s
    </div>
</body>
</html>`, emailStyles, emailGreetingName(userName), resetLink, resetLink, emailFooter)
}

// buildReceiptEmailBody creates the HTML body for an order receipt
func (e *EmailService) buildReceiptEmailBody(userName string, order *model.Order, currency string) string {
	var rows strings.Builder
	for _, line := range order.Courses {
		title := line.Course.Title
		if title == "" {
			title = fmt.Sprintf("Course #%d", line.CourseID)
		}
		rows.WriteString(fmt.Sprintf(
			`<tr><td>%s</td><td style="text-align: right;">%s %.2f</td></tr>`,
			title, currency, line.Price+line.CertificateFee))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Order Receipt - Learnora Academy</title>
    %s
</head>
<body>
    <div class="container">
        <div class="logo">
            <h1>Learnora Academy</h1>
            <div class="domain">learnora.app</div>
        </div>

        <h2>Thanks for your purchase!</h2>

        <p>Hello %s,</p>

        <p>Your order <strong>%s</strong> is complete. Here is your receipt:</p>

        <table style="width: 100%%; border-collapse: collapse;">
            %s
            <tr><td style="border-top: 1px solid #eee;">Discount</td><td style="border-top: 1px solid #eee; text-align: right;">-%s %.2f</td></tr>
            <tr><td>Tax</td><td style="text-align: right;">%s %.2f</td></tr>
            <tr><td><strong>Total</strong></td><td style="text-align: right;"><strong>%s %.2f</strong></td></tr>
        </table>

        <p style="text-align: center;">
            <a href="%s/orders/%d" class="button">View Order</a>
        </p>

        %s
    </div>
</body>
</html>`, emailStyles, emailGreetingName(userName), order.OrderNumber, rows.String(),
		currency, order.DiscountAmount, currency, order.TaxPrice, currency, order.FinalPrice,
		e.appURL, order.ID, emailFooter)
}

const emailStyles = `<style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background-color: #ffffff;
            border-radius: 8px;
            padding: 40px;
            box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
        }
        .logo {
            text-align: center;
            margin-bottom: 30px;
            padding-bottom: 20px;
            border-bottom: 2px solid #1a3c6e;
        }
        .logo h1 {
            color: #1a3c6e;
            font-size: 28px;
            margin: 0;
        }
        .logo .domain {
            color: #666;
            font-size: 14px;
            margin-top: 5px;
        }
        h2 {
            color: #1a3c6e;
            margin-top: 0;
        }
        .button {
            display: inline-block;
            background-color: #1a3c6e;
            color: #ffffff !important;
            padding: 14px 28px;
            text-decoration: none;
            border-radius: 6px;
            font-weight: 600;
            margin: 20px 0;
        }
        .link-text {
            word-break: break-all;
            color: #666;
            font-size: 12px;
            background-color: #f5f5f5;
            padding: 10px;
            border-radius: 4px;
            margin-top: 15px;
        }
        .footer {
            margin-top: 30px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
        .footer a {
            color: #1a3c6e;
            text-decoration: none;
        }
        .warning {
            background-color: #fff3cd;
            border: 1px solid #ffc107;
            border-radius: 4px;
            padding: 12px;
            margin-top: 20px;
            font-size: 13px;
        }
    </style>`

const emailFooter = `<div class="footer">
            <p><strong>Learnora Academy</strong></p>
            <p>Learn anything, anywhere</p>
            <p><a href="https://learnora.app">learnora.app</a></p>
            <p><a href="https://learnora.app">Website</a> | <a href="mailto:support@learnora.app">Support</a></p>
        </div>`

// sendEmail sends an email using SMTP with TLS
func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("Learnora Academy <%s>", e.from)
	headers["Reply-To"] = "support@learnora.app"
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"
	headers["X-Mailer"] = "Learnora Mailer"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         e.host,
	}

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	log.Printf("Email sent to %s: %s", to, subject)
	return nil
}
