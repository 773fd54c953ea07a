package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

const (
	// LocalRegion switches the client to plain http, for elasticmq and friends.
	LocalRegion = "elasticmq"

	fifoGroupID = "default"

	legacyCodeQueueDoesNotExist = "AWS.SimpleQueueService.NonExistentQueue"
)

// AWSQueue implementation
type AWSQueue struct {
	queue sqsiface.SQSAPI
	log   *logrus.Entry
}

// InitAWSQueue ...
func InitAWSQueue(cfg Config, logger *logrus.Entry) (*AWSQueue, error) {
	awsCfg := &aws.Config{
		MaxRetries: aws.Int(cfg.Retries),
	}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Region == LocalRegion {
		awsCfg.DisableSSL = aws.Bool(true)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	switch {
	case cfg.AccessKeyID != "":
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	case cfg.CredentialsFile != "" || cfg.CredentialsProfile != "":
		awsCfg.Credentials = credentials.NewSharedCredentials(cfg.CredentialsFile, cfg.CredentialsProfile)
	}
	ssn, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewAWSQueue(sqs.New(ssn), logger), nil
}

// NewAWSQueue wraps an existing SQS api client.
func NewAWSQueue(api sqsiface.SQSAPI, logger *logrus.Entry) *AWSQueue {
	return &AWSQueue{
		queue: api,
		log:   logger.WithField("queue", "aws_sqs"),
	}
}

// ListQueueURLs returns urls of all queues whose name starts with prefix.
func (q *AWSQueue) ListQueueURLs(ctx context.Context, prefix string) ([]string, error) {
	input := &sqs.ListQueuesInput{}
	if prefix != "" {
		input.QueueNamePrefix = aws.String(prefix)
	}
	var urls []string
	err := q.queue.ListQueuesPagesWithContext(ctx, input, func(page *sqs.ListQueuesOutput, _ bool) bool {
		urls = append(urls, aws.StringValueSlice(page.QueueUrls)...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

// EnsureQueue creates the queue unless it exists and returns its url.
func (q *AWSQueue) EnsureQueue(ctx context.Context, name string, attributes map[string]string) (string, error) {
	out, err := q.queue.CreateQueueWithContext(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: aws.StringMap(attributes),
	})
	if err == nil {
		q.log.WithFields(logrus.Fields{
			"event": "create_queue",
			"name":  name,
		}).Debug(aws.StringValue(out.QueueUrl))
		return aws.StringValue(out.QueueUrl), nil
	}
	// Same name with different attributes; the queue is there, use it as is.
	if !hasCode(err, sqs.ErrCodeQueueNameExists) {
		return "", err
	}
	got, err := q.queue.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", err
	}
	q.log.WithFields(logrus.Fields{
		"event": "queue_exists",
		"name":  name,
	}).Debug(aws.StringValue(got.QueueUrl))
	return aws.StringValue(got.QueueUrl), nil
}

// Receive ...
func (q *AWSQueue) Receive(ctx context.Context, queueURL string, params ReceiveParams) ([]*RecvMessage, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: aws.Int64(int64(params.MaxMessages)),
		WaitTimeSeconds:     aws.Int64(int64(params.WaitTimeSeconds)),
	}
	if len(params.AttributeNames) > 0 {
		input.AttributeNames = aws.StringSlice(params.AttributeNames)
	}
	if len(params.MessageAttributeNames) > 0 {
		input.MessageAttributeNames = aws.StringSlice(params.MessageAttributeNames)
	}
	out, err := q.queue.ReceiveMessageWithContext(ctx, input)
	if err != nil {
		return nil, err
	}
	messages := make([]*RecvMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := &RecvMessage{
			ID:                aws.StringValue(m.MessageId),
			ReceiptHandle:     aws.StringValue(m.ReceiptHandle),
			Body:              aws.StringValue(m.Body),
			Attributes:        aws.StringValueMap(m.Attributes),
			MessageAttributes: make(map[string]string, len(m.MessageAttributes)),
		}
		for name, value := range m.MessageAttributes {
			if value == nil {
				continue
			}
			if value.StringValue != nil {
				msg.MessageAttributes[name] = aws.StringValue(value.StringValue)
				continue
			}
			msg.MessageAttributes[name] = string(value.BinaryValue)
		}
		q.log.WithFields(logrus.Fields{
			"event": "receive_message",
		}).Debug(msg.ID)
		messages = append(messages, msg)
	}
	return messages, nil
}

// Delete ...
func (q *AWSQueue) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	_, err := q.queue.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return err
	}
	q.log.WithFields(logrus.Fields{
		"event": "delete_message",
	}).Debug(receiptHandle)
	return nil
}

// Publish sends body to the queue. FIFO queues require a group and a
// deduplication id; standard queues reject them.
func (q *AWSQueue) Publish(ctx context.Context, queueURL string, body string) error {
	input := &sqs.SendMessageInput{
		MessageBody: aws.String(body),
		QueueUrl:    aws.String(queueURL),
	}
	if IsFIFO(queueURL) {
		input.MessageGroupId = aws.String(fifoGroupID)
		input.MessageDeduplicationId = aws.String(uuid.New().String())
	}
	out, err := q.queue.SendMessageWithContext(ctx, input)
	if err != nil {
		return err
	}
	q.log.WithFields(logrus.Fields{
		"event": "send_message",
	}).Debug(aws.StringValue(out.MessageId))
	return nil
}

// IsNotFound reports whether err says the queue does not exist.
func IsNotFound(err error) bool {
	return hasCode(err, sqs.ErrCodeQueueDoesNotExist) || hasCode(err, legacyCodeQueueDoesNotExist)
}

func hasCode(err error, code string) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == code
	}
	return false
}
