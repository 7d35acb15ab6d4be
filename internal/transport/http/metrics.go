package httptransport

import "expvar"

var (
	metricCommandTotal  = expvar.NewInt("http_command_total")
	metricCommandErrors = expvar.NewInt("http_command_errors_total")

	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")
)
