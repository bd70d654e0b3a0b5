// internal/channels/chat.go
package channels

import (
	"context"
	"time"

	"github.com/slack-go/slack"

	commonhttp "hrms-escalation/internal/common/http"
)

// ChatService is the slice of the Slack API the dispatcher needs.
type ChatService interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// NewSlackClient builds a Slack client on the shared HTTP client.
func NewSlackClient(token string) ChatService {
	httpClient := commonhttp.NewClient(15 * time.Second)
	return slack.New(token, slack.OptionHTTPClient(httpClient.Unwrap()))
}

func (d *Dispatcher) postChat(ctx context.Context, channelName, title, message string) error {
	text := message
	if title != "" {
		text = "*" + title + "*\n" + message
	}
	_, _, err := d.chat.PostMessageContext(ctx, channelName,
		slack.MsgOptionText(text, false))
	return err
}
