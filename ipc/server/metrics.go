package server

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/freedm/ipcd/ipc/connection"
)

// --------------------------------------------------------------------------
// Server Metrics
// --------------------------------------------------------------------------

var (
	metricConnAccepted  = metrics.NewCounter(`ipcd_connections_accepted_total`)
	metricConnRejected  = metrics.NewCounter(`ipcd_connections_rejected_total`)
	metricAuthRejected  = metrics.NewCounter(`ipcd_sessions_auth_rejected_total`)
	metricLimitExceeded = metrics.NewCounter(`ipcd_sessions_limit_exceeded_total`)
	metricCommands      = metrics.NewCounter(`ipcd_commands_handled_total`)
	metricMessages      = metrics.NewCounter(`ipcd_messages_received_total`)
	metricMessageBytes  = metrics.NewCounter(`ipcd_message_bytes_received_total`)
)

// registerSessionGauge exposes the live session count of a pool. Repeated
// registration for the same transport keeps the first callback, which is
// fine for the single-server-per-transport deployment model.
func registerSessionGauge(transport string, pool *connection.Pool) {
	metrics.GetOrCreateGauge(
		fmt.Sprintf(`ipcd_sessions_active{transport=%q}`, transport),
		func() float64 { return float64(pool.Size()) },
	)
}
