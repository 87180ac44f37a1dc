package service

import (
	"fmt"
	"log"
	"time"

	"oriyet/internal/domain"
	"oriyet/internal/models"
	"oriyet/pkg/mailer"
)

// EmailNotifier sends transactional emails through the configured SMTP
// mailer. Sends run on their own goroutine so request handlers never block
// on the mail server; failures are logged and not retried.
type EmailNotifier struct {
	mail mailer.Mailer
}

func NewEmailNotifier(mail mailer.Mailer) *EmailNotifier {
	return &EmailNotifier{mail: mail}
}

func (n *EmailNotifier) send(to, subject, body string) {
	go func() {
		if err := n.mail.Send(to, subject, body); err != nil {
			log.Printf("[MAIL] send %q to %s failed: %v", subject, to, err)
		}
	}()
}

func (n *EmailNotifier) PaymentConfirmed(user *models.User, event *models.Event, txn *models.PaymentTransaction) {
	body := fmt.Sprintf(`
		<h2>Payment Received</h2>
		<p>Hi %s,</p>
		<p>Your payment of <b>%.2f %s</b> for <b>%s</b> has been confirmed.</p>
		<p>Transaction ID: %s<br>Payment method: %s</p>
		<p>Your spot is reserved. See you there!</p>`,
		user.Name, txn.Amount, txn.Currency, event.Title, txn.TransactionID, txn.PaymentMethod)
	n.send(user.Email, "Payment confirmed: "+event.Title, body)
}

func (n *EmailNotifier) PaymentRefunded(user *models.User, event *models.Event, txn *models.PaymentTransaction) {
	body := fmt.Sprintf(`
		<h2>Payment Refunded</h2>
		<p>Hi %s,</p>
		<p>Your payment of <b>%.2f %s</b> for <b>%s</b> has been refunded.</p>
		<p>Transaction ID: %s</p>
		<p>The amount will reach your account within a few business days.</p>`,
		user.Name, txn.Amount, txn.Currency, event.Title, txn.TransactionID)
	n.send(user.Email, "Payment refunded: "+event.Title, body)
}

func (n *EmailNotifier) RegistrationConfirmed(user *models.User, event *models.Event, reg *models.EventRegistration) {
	body := fmt.Sprintf(`
		<h2>Registration Confirmed</h2>
		<p>Hi %s,</p>
		<p>You are registered for <b>%s</b> on %s.</p>
		<p>Registration number: %s</p>`,
		user.Name, event.Title, event.StartDate.Format("2 January 2006, 3:04 PM"), reg.RegistrationNumber)
	n.send(user.Email, "You're in: "+event.Title, body)
}

func (n *EmailNotifier) OTP(email, name, code, purpose string, expiry time.Duration) {
	subject, intro := otpCopy(purpose)
	body := fmt.Sprintf(`
		<h2>%s</h2>
		<p>Hi %s,</p>
		<p>%s</p>
		<p style="font-size:28px;letter-spacing:6px"><b>%s</b></p>
		<p>This code expires in %d minutes. If you did not request it, ignore this email.</p>`,
		subject, name, intro, code, int(expiry.Minutes()))
	n.send(email, subject, body)
}

func otpCopy(purpose string) (subject, intro string) {
	switch purpose {
	case domain.OTPTypeVerification:
		return "Verify your email", "Use this code to verify your email address:"
	case domain.OTPTypePasswordReset:
		return "Reset your password", "Use this code to reset your password:"
	case domain.OTPTypeLogin:
		return "Your login code", "Use this code to finish signing in:"
	case domain.OTPTypeTwoFactor:
		return "Your security code", "Use this code to confirm it's you:"
	default:
		return "Your one-time code", "Use this code to continue:"
	}
}
