// utils/email.go
package utils

import (
	"fmt"

	"github.com/keighl/postmark"

	"go-freshmart/models"
)

// EmailService handles sending emails using Postmark
type EmailService struct {
	client *postmark.Client
	sender string
}

// NewEmailService initializes and returns a new EmailService instance
func NewEmailService(apiToken, sender string) *EmailService {
	return &EmailService{
		client: postmark.NewClient(apiToken, ""),
		sender: sender,
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})

	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOrderConfirmation sends an order confirmation email to the customer.
func (es *EmailService) SendOrderConfirmation(toEmail string, order *models.Order) error {
	subject := "Order Confirmation"
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order (ID: %s) has been placed successfully.<br><br>Total Amount: <strong>$%.2f</strong><br>Payment Method: <strong>%s</strong><br><br>Thank you for shopping with us!",
		order.ShippingAddress.FullName,
		order.ID.Hex(),
		order.TotalPrice,
		order.PaymentMethod,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendPaymentReceipt sends a payment confirmation once an order is paid.
func (es *EmailService) SendPaymentReceipt(toEmail string, order *models.Order) error {
	subject := "Payment Received"
	reference := ""
	if order.PaymentResult != nil {
		reference = order.PaymentResult.Reference
		if reference == "" {
			reference = order.PaymentResult.ID
		}
	}
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>We have received your payment of <strong>$%.2f</strong> for order %s (reference: %s). Your order is now being prepared.<br><br>Thank you for shopping with us!",
		order.ShippingAddress.FullName,
		order.TotalPrice,
		order.ID.Hex(),
		reference,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendOrderCanceled notifies the customer that an order was canceled and
// its items returned to stock.
func (es *EmailService) SendOrderCanceled(toEmail string, order *models.Order) error {
	subject := "Order Canceled"
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Your order (ID: %s) has been canceled. Any reserved items have been returned to stock. If you did not request this, please contact support.<br><br>Thank you for shopping with us!",
		order.ShippingAddress.FullName,
		order.ID.Hex(),
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}
