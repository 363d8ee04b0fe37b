package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier delivers confirmation and lockdown emails through Resend.
type ResendNotifier struct {
	client *resend.Client
	from   string
}

func NewResendNotifier(apiKey string, from string) *ResendNotifier {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendNotifier{}
	}
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (n *ResendNotifier) SendLoginConfirmation(ctx context.Context, email string, msg LoginConfirmationEmail) error {
	if n.client == nil {
		return errors.New("notifier not configured")
	}

	where := msg.IPAddress
	if msg.Location != "" {
		where = fmt.Sprintf("%s (%s)", msg.IPAddress, msg.Location)
	}
	subject := "Was this you? Confirm your sign-in"
	html := fmt.Sprintf(
		"<p>A sign-in from <strong>%s</strong> at %s needs your confirmation.</p>"+
			"<p><a href=\"%s\">Yes, this was me</a></p>"+
			"<p><a href=\"%s\">No, secure my account</a></p>",
		msg.DeviceName, where, msg.ConfirmURL, msg.DenyURL,
	)
	text := fmt.Sprintf(
		"A sign-in from %s at %s needs your confirmation.\nConfirm: %s\nDeny: %s",
		msg.DeviceName, where, msg.ConfirmURL, msg.DenyURL,
	)
	return n.send(ctx, email, subject, html, text)
}

func (n *ResendNotifier) SendPasswordResetRequired(ctx context.Context, email string, resetURL string) error {
	if n.client == nil {
		return errors.New("notifier not configured")
	}
	subject := "Your account was locked down"
	html := fmt.Sprintf(
		"<p>You denied a sign-in, so all sessions were revoked. Set a new password to regain access:</p>"+
			"<p><a href=\"%s\">Reset Password</a></p>",
		resetURL,
	)
	text := fmt.Sprintf("You denied a sign-in, so all sessions were revoked. Reset your password: %s", resetURL)
	return n.send(ctx, email, subject, html, text)
}

func (n *ResendNotifier) send(ctx context.Context, to string, subject string, html string, text string) error {
	_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	return err
}
