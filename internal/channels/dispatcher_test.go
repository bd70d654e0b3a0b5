// internal/channels/dispatcher_test.go
package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/models"
)

// MockSESService implements SESService with overridable behavior.
type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	Calls         []*ses.SendEmailInput
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Calls = append(m.Calls, params)
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{}, nil
}

// MockSNSService implements SNSService with overridable behavior.
type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Calls       []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.Calls = append(m.Calls, params)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

// MockChatService implements ChatService with overridable behavior.
type MockChatService struct {
	PostMessageFunc func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	Channels        []string
}

func (m *MockChatService) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	m.Channels = append(m.Channels, channelID)
	if m.PostMessageFunc != nil {
		return m.PostMessageFunc(ctx, channelID, options...)
	}
	return channelID, "1700000000.000100", nil
}

func dispatchNotification() *models.Notification {
	return &models.Notification{
		ID:    "n-100",
		Title: "Visa expiring",
		Employee: &models.Employee{
			ID:              "emp-100",
			FirstName:       "Priya",
			LastName:        "Nair",
			Email:           "priya.nair@example.com",
			Phone:           "+14155550101",
			PushEndpointARN: "arn:aws:sns:us-east-1:123456789012:endpoint/GCM/hrms/abc",
		},
	}
}

func TestDispatchEmailViaSES(t *testing.T) {
	mockSES := &MockSESService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSES(mockSES, "hr@example.com"))

	results := d.Dispatch(context.Background(), []string{"email"}, dispatchNotification(), "act now", StepContext{})

	assert.True(t, results[ChannelEmail])
	require.Len(t, mockSES.Calls, 1)
	call := mockSES.Calls[0]
	assert.Equal(t, []string{"priya.nair@example.com"}, call.Destination.ToAddresses)
	assert.Equal(t, "hr@example.com", *call.Source)
	assert.Equal(t, "Visa expiring", *call.Message.Subject.Data)
	assert.Equal(t, "act now", *call.Message.Body.Text.Data)
	assert.Equal(t, 0, d.Sinks().Len(), "live transport bypasses the sink")
}

func TestDispatchWithoutTransportsFallsBackToSinks(t *testing.T) {
	d := NewDispatcher(logger.NewTestLogger(t))
	n := dispatchNotification()

	results := d.Dispatch(context.Background(), []string{"email", "sms", "chat", "push"}, n, "act now", StepContext{TargetRole: "hr-manager"})

	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelChat, ChannelPush} {
		assert.False(t, results[ch], "mock sink records but does not deliver")
		require.Len(t, d.Sinks().ByChannel(ch), 1)
	}
	assert.Equal(t, "priya.nair@example.com", d.Sinks().ByChannel(ChannelEmail)[0].Recipient)
	assert.Equal(t, "+14155550101", d.Sinks().ByChannel(ChannelSMS)[0].Recipient)
	assert.Equal(t, "hr-manager", d.Sinks().ByChannel(ChannelChat)[0].Recipient)
	assert.Equal(t, n.Employee.PushEndpointARN, d.Sinks().ByChannel(ChannelPush)[0].Recipient)
}

func TestDispatchDeduplicatesChannels(t *testing.T) {
	mockSES := &MockSESService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSES(mockSES, "hr@example.com"))

	results := d.Dispatch(context.Background(), []string{"email", "Email", "EMAIL"}, dispatchNotification(), "act now", StepContext{})

	assert.Len(t, results, 1)
	assert.Len(t, mockSES.Calls, 1, "one attempt per distinct normalized channel")
}

func TestDispatchEmailMissingAddress(t *testing.T) {
	mockSES := &MockSESService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSES(mockSES, "hr@example.com"))
	n := dispatchNotification()
	n.Employee.Email = ""

	results := d.Dispatch(context.Background(), []string{"email"}, n, "act now", StepContext{})

	assert.False(t, results[ChannelEmail])
	assert.Empty(t, mockSES.Calls, "no address means no send attempt")
	assert.Equal(t, 0, d.Sinks().Len())
}

func TestDispatchSMSMissingPhoneNoEmployee(t *testing.T) {
	mockSNS := &MockSNSService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSNS(mockSNS))
	n := dispatchNotification()
	n.Employee = nil

	results := d.Dispatch(context.Background(), []string{"sms"}, n, "act now", StepContext{})

	assert.False(t, results[ChannelSMS])
	assert.Empty(t, mockSNS.Calls)
}

func TestDispatchRecipientOverride(t *testing.T) {
	mockSES := &MockSESService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSES(mockSES, "hr@example.com"))

	d.Dispatch(context.Background(), []string{"email"}, dispatchNotification(), "act now", StepContext{
		RecipientOverride: "escalations@example.com",
	})

	require.Len(t, mockSES.Calls, 1)
	assert.Equal(t, []string{"escalations@example.com"}, mockSES.Calls[0].Destination.ToAddresses)
}

func TestDispatchSMSViaSNS(t *testing.T) {
	mockSNS := &MockSNSService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSNS(mockSNS))

	results := d.Dispatch(context.Background(), []string{"sms"}, dispatchNotification(), "act now", StepContext{})

	assert.True(t, results[ChannelSMS])
	require.Len(t, mockSNS.Calls, 1)
	assert.Equal(t, "+14155550101", *mockSNS.Calls[0].PhoneNumber)
	assert.Equal(t, "act now", *mockSNS.Calls[0].Message)
	assert.Nil(t, mockSNS.Calls[0].TargetArn)
}

func TestDispatchPushPublishesToEndpoint(t *testing.T) {
	mockSNS := &MockSNSService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSNS(mockSNS))
	n := dispatchNotification()

	results := d.Dispatch(context.Background(), []string{"push"}, n, "act now", StepContext{})

	assert.True(t, results[ChannelPush])
	require.Len(t, mockSNS.Calls, 1)
	require.NotNil(t, mockSNS.Calls[0].TargetArn)
	assert.Equal(t, n.Employee.PushEndpointARN, *mockSNS.Calls[0].TargetArn)
	assert.Nil(t, mockSNS.Calls[0].PhoneNumber)
}

func TestDispatchPushWithoutEndpointUsesSink(t *testing.T) {
	mockSNS := &MockSNSService{}
	d := NewDispatcher(logger.NewTestLogger(t), WithSNS(mockSNS))
	n := dispatchNotification()
	n.Employee.PushEndpointARN = ""

	results := d.Dispatch(context.Background(), []string{"push"}, n, "act now", StepContext{})

	assert.False(t, results[ChannelPush])
	assert.Empty(t, mockSNS.Calls)
	require.Len(t, d.Sinks().ByChannel(ChannelPush), 1)
}

func TestDispatchChatChannelResolution(t *testing.T) {
	tests := []struct {
		name        string
		step        StepContext
		wantChannel string
	}{
		{name: "override wins", step: StepContext{RecipientOverride: "#visa-desk", TargetRole: "hr-manager"}, wantChannel: "#visa-desk"},
		{name: "target role next", step: StepContext{TargetRole: "hr-manager"}, wantChannel: "hr-manager"},
		{name: "default channel last", step: StepContext{}, wantChannel: "compliance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockChat := &MockChatService{}
			d := NewDispatcher(logger.NewTestLogger(t), WithChat(mockChat, "compliance"))

			results := d.Dispatch(context.Background(), []string{"chat"}, dispatchNotification(), "act now", tt.step)

			assert.True(t, results[ChannelChat])
			require.Len(t, mockChat.Channels, 1)
			assert.Equal(t, tt.wantChannel, mockChat.Channels[0])
		})
	}
}

func TestDispatchTransportErrorReportsUndelivered(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	d := NewDispatcher(logger.NewTestLogger(t), WithSES(mockSES, "hr@example.com"), WithSNS(mockSNS))

	results := d.Dispatch(context.Background(), []string{"email", "sms"}, dispatchNotification(), "act now", StepContext{})

	assert.False(t, results[ChannelEmail])
	assert.False(t, results[ChannelSMS])
}
