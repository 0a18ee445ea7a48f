package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type createMessageFunc func(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)

// TwilioNotifier texts the administrator through the Twilio REST API.
type TwilioNotifier struct {
	from          string
	to            string
	createMessage createMessageFunc
}

func NewTwilioNotifier(accountSID, authToken, from, to string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{
		from:          from,
		to:            to,
		createMessage: client.Api.CreateMessage,
	}
}

func (t *TwilioNotifier) Notify(ctx context.Context, n Notification) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(n.Message())

	message, err := t.createMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send admin notification: %w", err)
	}
	if message != nil && message.Sid != nil {
		slog.InfoContext(ctx, "admin notification sent", "sid", *message.Sid)
	}
	return nil
}

func (t *TwilioNotifier) Close() error {
	return nil
}
