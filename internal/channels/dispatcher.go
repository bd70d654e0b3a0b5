// internal/channels/dispatcher.go
package channels

import (
	"context"
	"strconv"

	apperrors "hrms-escalation/internal/common/errors"
	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/common/metrics"
	"hrms-escalation/internal/models"
)

// StepContext carries the escalation-step metadata a dispatch needs beyond
// the rendered message itself.
type StepContext struct {
	TargetRole string
	Template   string
	// RecipientOverride names an explicit address, phone number, or chat
	// channel, taking precedence over the employee's stored contact.
	RecipientOverride string
}

// Dispatcher sends a rendered message over the concrete channels. Channels
// without a live transport record into the mock sinks and report not
// delivered; callers treat that as expected in credential-less environments,
// not as a hard failure. Dispatch never mutates notification state.
type Dispatcher struct {
	logger logger.Logger
	sinks  *MockSinks

	ses  SESService  // nil when email transport is not configured
	sns  SNSService  // nil when sms/push transport is not configured
	chat ChatService // nil when chat transport is not configured

	fromEmail          string
	defaultChatChannel string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithSES(svc SESService, fromEmail string) Option {
	return func(d *Dispatcher) {
		d.ses = svc
		d.fromEmail = fromEmail
	}
}

func WithSNS(svc SNSService) Option {
	return func(d *Dispatcher) {
		d.sns = svc
	}
}

func WithChat(svc ChatService, defaultChannel string) Option {
	return func(d *Dispatcher) {
		d.chat = svc
		if defaultChannel != "" {
			d.defaultChatChannel = defaultChannel
		}
	}
}

func NewDispatcher(log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:             log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		sinks:              NewMockSinks(),
		defaultChatChannel: "hr-escalations",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sinks exposes the mock sinks for observability and tests.
func (d *Dispatcher) Sinks() *MockSinks {
	return d.sinks
}

// Dispatch sends the rendered message across the given channel set, at most
// once per distinct normalized channel. The returned map records the
// delivered outcome per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, rawChannels []string, n *models.Notification, message string, step StepContext) map[Channel]bool {
	results := make(map[Channel]bool)
	for _, raw := range rawChannels {
		ch := Normalize(raw)
		if _, done := results[ch]; done {
			continue
		}
		delivered := d.dispatchOne(ctx, ch, n, message, step)
		results[ch] = delivered
		metrics.DispatchOutcomes.WithLabelValues(string(ch), strconv.FormatBool(delivered)).Inc()
	}
	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ch Channel, n *models.Notification, message string, step StepContext) bool {
	switch ch {
	case ChannelEmail:
		return d.dispatchEmail(ctx, n, message, step)
	case ChannelSMS:
		return d.dispatchSMS(ctx, n, message, step)
	case ChannelChat:
		return d.dispatchChat(ctx, n, message, step)
	case ChannelPush:
		return d.dispatchPush(ctx, n, message)
	}
	return false
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, n *models.Notification, message string, step StepContext) bool {
	to := step.RecipientOverride
	if to == "" && n.Employee != nil {
		to = n.Employee.Email
	}
	if to == "" {
		d.logger.Warn("email skipped, no resolvable address", map[string]interface{}{
			"notificationId": n.ID,
			"error":          apperrors.NewRecipientUnknownError(string(ChannelEmail), n.ID),
		})
		return false
	}

	if d.ses == nil {
		d.sinks.Record(MockMessage{
			Channel:        ChannelEmail,
			NotificationID: n.ID,
			Recipient:      to,
			Subject:        n.Title,
			Body:           message,
		})
		return false
	}

	if err := d.sendEmail(ctx, to, n.Title, message); err != nil {
		d.logger.Error("email send failed", map[string]interface{}{
			"error":          apperrors.NewDispatchFailedError(string(ChannelEmail), err),
			"notificationId": n.ID,
		})
		return false
	}
	return true
}

func (d *Dispatcher) dispatchSMS(ctx context.Context, n *models.Notification, message string, step StepContext) bool {
	to := step.RecipientOverride
	if to == "" && n.Employee != nil {
		to = n.Employee.Phone
	}
	if to == "" {
		d.logger.Warn("sms skipped, no resolvable phone number", map[string]interface{}{
			"notificationId": n.ID,
			"error":          apperrors.NewRecipientUnknownError(string(ChannelSMS), n.ID),
		})
		return false
	}

	if d.sns == nil {
		d.sinks.Record(MockMessage{
			Channel:        ChannelSMS,
			NotificationID: n.ID,
			Recipient:      to,
			Body:           message,
		})
		return false
	}

	if err := d.sendSMS(ctx, to, message); err != nil {
		d.logger.Error("sms send failed", map[string]interface{}{
			"error":          apperrors.NewDispatchFailedError(string(ChannelSMS), err),
			"notificationId": n.ID,
		})
		return false
	}
	return true
}

func (d *Dispatcher) dispatchChat(ctx context.Context, n *models.Notification, message string, step StepContext) bool {
	channelName := step.RecipientOverride
	if channelName == "" {
		channelName = step.TargetRole
	}
	if channelName == "" {
		channelName = d.defaultChatChannel
	}

	if d.chat == nil {
		d.sinks.Record(MockMessage{
			Channel:        ChannelChat,
			NotificationID: n.ID,
			Recipient:      channelName,
			Subject:        n.Title,
			Body:           message,
		})
		return false
	}

	if err := d.postChat(ctx, channelName, n.Title, message); err != nil {
		d.logger.Error("chat post failed", map[string]interface{}{
			"error":          apperrors.NewDispatchFailedError(string(ChannelChat), err),
			"notificationId": n.ID,
			"channel":        channelName,
		})
		return false
	}
	return true
}

func (d *Dispatcher) dispatchPush(ctx context.Context, n *models.Notification, message string) bool {
	var target string
	if n.Employee != nil {
		target = n.Employee.PushEndpointARN
	}

	if d.sns == nil || target == "" {
		d.sinks.Record(MockMessage{
			Channel:        ChannelPush,
			NotificationID: n.ID,
			Recipient:      target,
			Subject:        n.Title,
			Body:           message,
		})
		return false
	}

	if err := d.sendPush(ctx, target, n.Title, message); err != nil {
		d.logger.Error("push publish failed", map[string]interface{}{
			"error":          apperrors.NewDispatchFailedError(string(ChannelPush), err),
			"notificationId": n.ID,
		})
		return false
	}
	return true
}
