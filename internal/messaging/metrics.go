package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK        = "ok"
	resultFailed    = "failed"
	resultMalformed = "malformed"
	resultUnknown   = "unknown_type"
)

var (
	commandsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenqueue_commands_published_total",
			Help: "Commands handed to the broker, by queue and outcome",
		},
		[]string{"queue", "result"},
	)
	commandsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenqueue_commands_processed_total",
			Help: "Commands consumed by workers, by queue and outcome",
		},
		[]string{"queue", "result"},
	)
	connectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenqueue_broker_connect_attempts_total",
			Help: "Broker connection attempts made by workers",
		},
		[]string{"success"},
	)
)
