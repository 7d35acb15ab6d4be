package session

import "expvar"

var (
	metricHandsStarted     = expvar.NewInt("hands_started_total")
	metricHandsAborted     = expvar.NewInt("hands_aborted_total")
	metricActionsApplied   = expvar.NewInt("actions_applied_total")
	metricTimeouts         = expvar.NewInt("turn_timeouts_total")
	metricReconnectsFailed = expvar.NewInt("reconnect_exhausted_total")
	metricCommandsRejected = expvar.NewInt("commands_rejected_total")
	metricTablesOpen       = expvar.NewInt("tables_open")
)
