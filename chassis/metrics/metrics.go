package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sqs_listener"

var (
	// MessagesReceived ...
	MessagesReceived = counter("messages_received_total", "Messages returned by receive calls.")
	// EmptyPolls ...
	EmptyPolls = counter("empty_polls_total", "Receive calls that returned no messages.")
	// ReceiveFailures ...
	ReceiveFailures = counter("receive_failures_total", "Receive calls that failed.")
	// DecodeFailures ...
	DecodeFailures = counter("decode_failures_total", "Messages skipped because the body is not valid JSON.")
	// MessagesDeleted ...
	MessagesDeleted = counter("messages_deleted_total", "Messages deleted from the source queue.")
	// DeleteFailures ...
	DeleteFailures = counter("delete_failures_total", "Delete calls that failed.")
	// FailuresPublished ...
	FailuresPublished = counter("failures_published_total", "Failure records published to the error queue.")
	// PublishFailures ...
	PublishFailures = counter("publish_failures_total", "Failure records that could not be published.")

	// MessagesHandled is labelled by outcome: success or failure.
	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_handled_total",
		Help:      "Handler invocations by outcome.",
	}, []string{"queue", "outcome"})
)

func counter(name, help string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"queue"})
}

// Handled records a handler outcome for queue.
func Handled(queue string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	MessagesHandled.WithLabelValues(queue, outcome).Inc()
}
