// Package mail provides the fallback email channel over AWS SES.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// SESClient defines the subset of the SESv2 API we use.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type Mailer struct {
	client SESClient
	from   string // verified send-from address; the display name varies per message
	domain string
	logger *slog.Logger
}

func NewMailer(client SESClient, from, domain string, logger *slog.Logger) *Mailer {
	return &Mailer{
		client: client,
		from:   from,
		domain: domain,
		logger: logger.With("component", "Mailer"),
	}
}

// Send composes and sends the invitation email for the event. For Accept
// and Decline the message is framed as coming from the party who took the
// action, so sender and recipient swap relative to the caller/callee fields.
// There is no channel behind this one; an error here is terminal.
func (m *Mailer) Send(ctx context.Context, event invitation.Event) error {
	sender := event.CallerEmail
	recipient := event.CalleeEmail
	var subject, body string

	switch event.Action {
	case invitation.ActionInvite:
		body = fmt.Sprintf(
			"Hey there,\n\n%s is waiting for you on %s to be joined for a video call. "+
				"It's a free tool and you don't need to sign up or install anything. "+
				"Just follow this link and you're all set :)\n\nhttp://%s/%s\n\n",
			event.CallerEmail, m.domain, m.domain, event.Room)
		subject = "Join me on a video call right now"
	case invitation.ActionCancel:
		body = event.CallerEmail + " has canceled the video call they started."
		subject = body
	case invitation.ActionAccept:
		body = event.CalleeEmail + " has accepted the video call you started."
		subject = body
		sender, recipient = event.CalleeEmail, event.CallerEmail
	case invitation.ActionDecline:
		body = event.CalleeEmail + " has declined the video call you started."
		subject = body
		sender, recipient = event.CalleeEmail, event.CallerEmail
	default:
		return fmt.Errorf("no email template for action %q", event.Action)
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", sender, m.from)),
		ReplyToAddresses: []string{sender},
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	m.logger.Debug("Fallback email sent", "to", recipient, "action", string(event.Action))
	return nil
}
