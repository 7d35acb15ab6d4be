package tablepush

import "expvar"

var (
	metricPushQueuedTotal       = expvar.NewInt("table_push_queued_total")
	metricPushDroppedTotal      = expvar.NewInt("table_push_dropped_total")
	metricPushRetryTotal        = expvar.NewInt("table_push_retry_total")
	metricPushRetryDroppedTotal = expvar.NewInt("table_push_retry_dropped_total")
	metricPushSentTotal         = expvar.NewInt("table_push_sent_total")
	metricPushFailedTotal       = expvar.NewInt("table_push_failed_total")
	metricPushCircuitOpenTotal  = expvar.NewInt("table_push_circuit_open_total")
	metricPushQueueLen          = expvar.NewInt("table_push_queue_len")
)
