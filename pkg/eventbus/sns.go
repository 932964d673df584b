package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
)

// SNSBus is the production EventBus adapter: it publishes to an SNS topic
// (fanning out to per-stage SQS subscriptions) and consumes from one SQS
// queue bound to this process's stage handlers.
type SNSBus struct {
	sns        *sns.Client
	sqs        *sqs.Client
	topicARN   string
	queueURL   string
	publishCfg *config.PublishRetryConfig
}

// NewSNSBus wraps already-configured SNS/SQS clients.
func NewSNSBus(snsClient *sns.Client, sqsClient *sqs.Client, topicARN, queueURL string, publishCfg *config.PublishRetryConfig) *SNSBus {
	if publishCfg == nil {
		publishCfg = config.DefaultPublishRetryConfig()
	}
	return &SNSBus{sns: snsClient, sqs: sqsClient, topicARN: topicARN, queueURL: queueURL, publishCfg: publishCfg}
}

// Publish attempts up to MaxAttempts times with exponential backoff (base
// BaseDelay, factor BackoffFactor, jitter +-JitterFraction), per spec
// §4.3. The final failure is apperrors.KindTransient.
func (b *SNSBus) Publish(ctx context.Context, envelope events.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, "marshal envelope")
	}

	var lastErr error
	delay := b.publishCfg.BaseDelay
	for attempt := 1; attempt <= b.publishCfg.MaxAttempts; attempt++ {
		_, err := b.sns.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(b.topicARN),
			Message:  aws.String(string(body)),
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == b.publishCfg.MaxAttempts {
			break
		}
		jitter := 1 + (rand.Float64()*2-1)*b.publishCfg.JitterFraction
		sleep := time.Duration(float64(delay) * jitter)
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.KindTransient, "publish cancelled")
		case <-time.After(sleep):
		}
		delay = time.Duration(float64(delay) * b.publishCfg.BackoffFactor)
	}
	return apperrors.NewTransientError(lastErr, "publish event after retries")
}

// Receive long-polls the bound SQS queue.
func (b *SNSBus) Receive(ctx context.Context, maxMessages int) ([]Message, error) {
	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}
	out, err := b.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(b.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return nil, classifySQSErr(err, "receive messages")
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		var notification snsNotification
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &notification); err != nil {
			// Not an SNS envelope (e.g. raw message delivery): treat the
			// body itself as the event envelope.
			notification.Message = aws.ToString(m.Body)
		}
		var envelope events.Envelope
		if err := json.Unmarshal([]byte(notification.Message), &envelope); err != nil {
			continue
		}
		msgs = append(msgs, Message{Envelope: envelope, ReceiptHandle: aws.ToString(m.ReceiptHandle)})
	}
	return msgs, nil
}

func (b *SNSBus) Ack(ctx context.Context, msg Message) error {
	_, err := b.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(b.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	return classifySQSErr(err, "delete message")
}

// Release makes the message immediately visible again by zeroing its
// visibility timeout, so the next poll redelivers it (spec §5
// at-least-once semantics).
func (b *SNSBus) Release(ctx context.Context, msg Message) error {
	_, err := b.sqs.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(b.queueURL),
		ReceiptHandle:     aws.String(msg.ReceiptHandle),
		VisibilityTimeout: 0,
	})
	return classifySQSErr(err, "release message")
}

// snsNotification is the envelope SNS wraps around a message delivered to
// an SQS subscription (unless RawMessageDelivery is enabled on the
// subscription).
type snsNotification struct {
	Message string `json:"Message"`
}

func classifySQSErr(err error, operation string) error {
	if err == nil {
		return nil
	}
	var notExist *sqstypes.QueueDoesNotExist
	if errors.As(err, &notExist) {
		return apperrors.Wrap(err, apperrors.KindInternal, operation)
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return apperrors.NewTransientError(err, operation)
	}
	return apperrors.NewTransientError(err, operation)
}

var _ EventBus = (*SNSBus)(nil)
