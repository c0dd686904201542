package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSQS struct {
	input *sqs.SendMessageInput
}

func (c *captureSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	c.input = params
	return &sqs.SendMessageOutput{}, nil
}

func TestScheduleSettlement(t *testing.T) {
	t.Run("Sends Job With Delay", func(t *testing.T) {
		client := &captureSQS{}
		s := NewSQSScheduler(client, "queue-url")

		err := s.ScheduleSettlement(context.Background(), "tx-1", 30*time.Second)
		require.NoError(t, err)

		require.NotNil(t, client.input)
		assert.Equal(t, "queue-url", *client.input.QueueUrl)
		assert.JSONEq(t, `{"transaction_id":"tx-1"}`, *client.input.MessageBody)
		assert.Equal(t, int32(30), client.input.DelaySeconds)
	})

	t.Run("Clamps Delay To SQS Ceiling", func(t *testing.T) {
		client := &captureSQS{}
		s := NewSQSScheduler(client, "queue-url")

		err := s.ScheduleSettlement(context.Background(), "tx-1", 2*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int32(900), client.input.DelaySeconds)
	})

	t.Run("Negative Delay Sends Immediately", func(t *testing.T) {
		client := &captureSQS{}
		s := NewSQSScheduler(client, "queue-url")

		err := s.ScheduleSettlement(context.Background(), "tx-1", -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int32(0), client.input.DelaySeconds)
	})
}
