// internal/channels/push.go
package channels

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Push delivers through SNS platform application endpoints. Each employee
// record carries the endpoint ARN registered for their device; no ARN means
// the employee has no push-capable device.
func (d *Dispatcher) sendPush(ctx context.Context, targetARN, title, message string) error {
	_, err := d.sns.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(targetARN),
		Subject:   aws.String(title),
		Message:   aws.String(message),
	})
	return err
}
