package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freundallein/listener/backend/chassis/queue"
)

type sinkQueue struct {
	mu         sync.Mutex
	attributes map[string]string
	bodies     []string
	ensureErr  error
	publishErr error
}

func (q *sinkQueue) ListQueueURLs(context.Context, string) ([]string, error) { return nil, nil }

func (q *sinkQueue) EnsureQueue(_ context.Context, name string, attributes map[string]string) (string, error) {
	q.attributes = attributes
	return "http://sqs.local/000000000000/" + name, q.ensureErr
}

func (q *sinkQueue) Receive(context.Context, string, queue.ReceiveParams) ([]*queue.RecvMessage, error) {
	return nil, nil
}

func (q *sinkQueue) Delete(context.Context, string, string) error { return nil }

func (q *sinkQueue) Publish(_ context.Context, _ string, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.bodies = append(q.bodies, body)
	return nil
}

func nullLogger() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestRunPublishesSamples(t *testing.T) {
	q := &sinkQueue{}
	cfg := &Config{
		Client:   q,
		Queue:    "orders.fifo",
		Interval: time.Millisecond,
		Workers:  2,
		Count:    3,
		Logger:   nullLogger(),
	}
	var group sync.WaitGroup

	require.NoError(t, Run(context.Background(), cfg, &group))
	group.Wait()

	assert.Equal(t, map[string]string{queue.AttributeFifoQueue: "true"}, q.attributes)
	require.Len(t, q.bodies, 6)
	ids := map[string]bool{}
	for _, body := range q.bodies {
		var sample Sample
		require.NoError(t, json.Unmarshal([]byte(body), &sample))
		assert.Len(t, sample.Random, 10)
		assert.Contains(t, []int{1, 2}, sample.Worker)
		ids[sample.ID] = true
	}
	assert.Len(t, ids, 6)
}

func TestRunStopsOnCancel(t *testing.T) {
	q := &sinkQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{Client: q, Queue: "orders", Interval: time.Hour, Logger: nullLogger()}
	var group sync.WaitGroup

	require.NoError(t, Run(ctx, cfg, &group))
	cancel()
	group.Wait()

	assert.Empty(t, q.attributes)
	assert.Len(t, q.bodies, 1)
}

func TestRunQueueFailure(t *testing.T) {
	q := &sinkQueue{ensureErr: errors.New("access denied")}
	var group sync.WaitGroup

	err := Run(context.Background(), &Config{Client: q, Queue: "orders", Logger: nullLogger()}, &group)
	assert.EqualError(t, err, "access denied")
}
