package listener

import (
	"context"
	"io/ioutil"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/freundallein/listener/backend/chassis/queue"
)

const fakeQueuePrefix = "http://sqs.local/000000000000/"

// fakeQueue is an in-memory queue.Client. Every call that matters for
// ordering is appended to events, handlers append to the same log.
type fakeQueue struct {
	mu sync.Mutex

	queues      map[string]string
	created     []string
	createAttrs map[string]map[string]string
	listCalls   int

	batches       [][]*queue.RecvMessage
	receiveErrs   []error
	receiveParams []queue.ReceiveParams

	events    []string
	deleted   []string
	published map[string][]string

	listErr    error
	ensureErr  error
	deleteErr  error
	publishErr func(url string) error
}

func newFakeQueue(existing ...string) *fakeQueue {
	q := &fakeQueue{
		queues:      map[string]string{},
		createAttrs: map[string]map[string]string{},
		published:   map[string][]string{},
	}
	for _, name := range existing {
		q.queues[name] = fakeQueuePrefix + name
	}
	return q
}

func (q *fakeQueue) record(event string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
}

func (q *fakeQueue) ListQueueURLs(_ context.Context, prefix string) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listCalls++
	if q.listErr != nil {
		return nil, q.listErr
	}
	var urls []string
	for name, url := range q.queues {
		if strings.HasPrefix(name, prefix) {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

func (q *fakeQueue) EnsureQueue(_ context.Context, name string, attributes map[string]string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensureErr != nil {
		return "", q.ensureErr
	}
	if url, ok := q.queues[name]; ok {
		return url, nil
	}
	url := fakeQueuePrefix + name
	q.queues[name] = url
	q.created = append(q.created, name)
	q.createAttrs[name] = attributes
	return url, nil
}

func (q *fakeQueue) Receive(_ context.Context, _ string, params queue.ReceiveParams) ([]*queue.RecvMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.receiveParams = append(q.receiveParams, params)
	q.events = append(q.events, "receive")
	if len(q.receiveErrs) > 0 {
		err := q.receiveErrs[0]
		q.receiveErrs = q.receiveErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(q.batches) == 0 {
		return nil, nil
	}
	batch := q.batches[0]
	q.batches = q.batches[1:]
	return batch, nil
}

func (q *fakeQueue) Delete(_ context.Context, _ string, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, "delete:"+receiptHandle)
	if q.deleteErr != nil {
		return q.deleteErr
	}
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) Publish(_ context.Context, queueURL string, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, "publish:"+queue.QueueName(queueURL))
	if q.publishErr != nil {
		if err := q.publishErr(queueURL); err != nil {
			return err
		}
	}
	q.published[queueURL] = append(q.published[queueURL], body)
	return nil
}

func message(receiptHandle, body string) *queue.RecvMessage {
	return &queue.RecvMessage{
		ID:                "id-" + receiptHandle,
		ReceiptHandle:     receiptHandle,
		Body:              body,
		Attributes:        map[string]string{},
		MessageAttributes: map[string]string{},
	}
}

func nullLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return logrus.NewEntry(logger)
}

func hookedLogger() (*logrus.Entry, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

// stopWhenDrained replaces the idle wait: it records each requested duration
// and cancels the loop once the fake has no batches left.
func stopWhenDrained(l *Listener, q *fakeQueue, cancel context.CancelFunc) *[]time.Duration {
	var waits []time.Duration
	l.wait = func(_ context.Context, d time.Duration) {
		waits = append(waits, d)
		q.mu.Lock()
		drained := len(q.batches) == 0 && len(q.receiveErrs) == 0
		q.mu.Unlock()
		if drained {
			cancel()
		}
	}
	return &waits
}

func eventsWithPrefix(events []string, prefix string) []string {
	var out []string
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}
