package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freundallein/listener/backend/chassis/queue"
	"github.com/freundallein/listener/backend/listener"
)

// idleQueue never has messages.
type idleQueue struct {
	mu       sync.Mutex
	receives int
	listErr  error
}

func (q *idleQueue) ListQueueURLs(context.Context, string) ([]string, error) {
	if q.listErr != nil {
		return nil, q.listErr
	}
	return []string{"http://sqs.local/000000000000/orders"}, nil
}

func (q *idleQueue) EnsureQueue(_ context.Context, name string, _ map[string]string) (string, error) {
	return "http://sqs.local/000000000000/" + name, nil
}

func (q *idleQueue) Receive(context.Context, string, queue.ReceiveParams) ([]*queue.RecvMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.receives++
	return nil, nil
}

func (q *idleQueue) Delete(context.Context, string, string) error { return nil }

func (q *idleQueue) Publish(context.Context, string, string) error { return nil }

func (q *idleQueue) receiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.receives
}

func testConfig(t *testing.T) listener.Config {
	t.Helper()
	cfg, err := listener.NewConfig("orders", listener.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	return cfg
}

func TestRunStartsEveryWorker(t *testing.T) {
	logger, _ := testLogger()
	var mu sync.Mutex
	clients := map[int]*idleQueue{}
	cfg := &Config{
		Listener: testConfig(t),
		Handler:  LogHandler(logger),
		Workers:  3,
		Logger:   logger,
		NewClient: func(workerID int) (queue.Client, error) {
			mu.Lock()
			defer mu.Unlock()
			clients[workerID] = &idleQueue{}
			return clients[workerID], nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(clients) != 3 {
			return false
		}
		for _, c := range clients {
			if c.receiveCount() == 0 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunDefaultsToOneWorker(t *testing.T) {
	logger, _ := testLogger()
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := &Config{
		Listener: testConfig(t),
		Handler:  LogHandler(logger),
		Logger:   logger,
		NewClient: func(int) (queue.Client, error) {
			calls++
			return &idleQueue{}, nil
		},
	}

	assert.NoError(t, Run(ctx, cfg))
	assert.Equal(t, 1, calls)
}

func TestRunClientFailure(t *testing.T) {
	logger, hook := testLogger()
	boom := errors.New("no credentials")
	cfg := &Config{
		Listener: testConfig(t),
		Handler:  LogHandler(logger),
		Workers:  2,
		Logger:   logger,
		NewClient: func(workerID int) (queue.Client, error) {
			if workerID == 2 {
				return nil, boom
			}
			return &idleQueue{}, nil
		},
	}

	assert.ErrorIs(t, Run(context.Background(), cfg), boom)
	assert.Equal(t, "queue_init_failed", hook.LastEntry().Data["event"])
}

func TestRunTopologyFailureStopsAll(t *testing.T) {
	logger, _ := testLogger()
	denied := errors.New("access denied")
	cfg := &Config{
		Listener: testConfig(t),
		Handler:  LogHandler(logger),
		Workers:  2,
		Logger:   logger,
		NewClient: func(workerID int) (queue.Client, error) {
			if workerID == 1 {
				return &idleQueue{listErr: denied}, nil
			}
			return &idleQueue{}, nil
		},
	}

	err := Run(context.Background(), cfg)
	assert.ErrorIs(t, err, listener.ErrTopology)
	assert.ErrorIs(t, err, denied)
}
